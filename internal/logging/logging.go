package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// logger fields
const (
	Service   = "svc"
	Component = "component"
	Op        = "op"
	UserID    = "user_id"
	BookingID = "booking_id"
	GroupID   = "group_id"
	Resource  = "resource"
	Kind      = "kind"
	Count     = "count"
	Code      = "code"
	Method    = "method"
	Status    = "status"
	Duration  = "duration"
)

// ServiceName tags every log line.
const ServiceName = "ewu-hub"

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// New builds the process logger. An unknown level falls back to info;
// pretty switches to the human console writer.
func New(level string, pretty bool, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str(Service, ServiceName).
		Logger()
}

// For returns a child logger tagged with component.
func For(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str(Component, component).Logger()
}
