// Package reservation is the booking core: availability, the atomic booking
// writer, check-in, cancellation and the no-show sweep. Every operation
// takes the acting user explicitly.
package reservation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/auntor69/ewu-hub-3.0/internal/audit"
	"github.com/auntor69/ewu-hub-3.0/internal/logging"
	"github.com/auntor69/ewu-hub-3.0/internal/metrics"
)

const tracerName = "github.com/auntor69/ewu-hub-3.0/internal/reservation"

type Service struct {
	bookings  BookingStore
	resources ResourceStore
	hours     OpeningHoursStore

	policy       Policy
	newCode      CodeGenerator
	now          func() time.Time
	queryTimeout time.Duration

	audit   *audit.Recorder
	metrics *metrics.Metrics
	log     zerolog.Logger
	tracer  trace.Tracer
}

type Option func(*Service)

func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock overrides time.Now; tests pin it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *Service) { s.newCode = g }
}

// WithQueryTimeout bounds every store call; zero leaves the caller's
// deadline alone.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) { s.queryTimeout = d }
}

func WithAudit(r *audit.Recorder) Option {
	return func(s *Service) { s.audit = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = logging.For(l, "reservation") }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(bookings BookingStore, resources ResourceStore, hours OpeningHoursStore, opts ...Option) *Service {
	s := &Service{
		bookings:  bookings,
		resources: resources,
		hours:     hours,
		policy:    DefaultPolicy(),
		now:       time.Now,
		metrics:   metrics.New(),
		log:       zerolog.Nop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(s)
	}
	if s.newCode == nil {
		s.newCode = NewCodeGenerator(s.policy.CodeLength)
	}
	if s.policy.CodeRetries < 1 {
		s.policy.CodeRetries = 1
	}
	if s.policy.Location == nil {
		s.policy.Location = time.UTC
	}
	return s
}

// Policy returns the rules the service enforces.
func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	s.audit.Record(ctx, e)
}
