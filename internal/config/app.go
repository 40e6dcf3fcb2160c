package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":50051"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"12h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	// Booking policy TOML; built-in defaults when empty.
	PolicyFile string `envconfig:"POLICY_FILE"`

	QueryTimeout  time.Duration `envconfig:"QUERY_TIMEOUT" default:"5s"`
	SweepInterval time.Duration `envconfig:"NO_SHOW_SWEEP_INTERVAL" default:"1m"`

	// Audit events go to RabbitMQ as well when set.
	AMQPURL       string `envconfig:"AMQP_URL"`
	AuditExchange string `envconfig:"AUDIT_EXCHANGE" default:"ewuhub.audit"`

	// Tracing is off when empty.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Environment  string `envconfig:"ENV" default:"dev"`
}

// Load reads configuration from environment variables only.
func Load() (*App, error) {
	return LoadWithFile("")
}

// LoadWithFile loads an optional .env file first; a missing file is not an
// error.
func LoadWithFile(envFile string) (*App, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("app config: %w", err)
	}
	// envconfig's required only checks the variable is present
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("app config: JWT_SECRET must not be empty")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("NO_SHOW_SWEEP_INTERVAL must be positive")
	}
	return &cfg, nil
}
