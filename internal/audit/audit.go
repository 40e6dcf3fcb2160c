// Package audit records side entries about booking actions. Recording is
// best effort: failures are logged and counted, never returned to the
// operation that produced the entry.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/auntor69/ewu-hub-3.0/internal/logging"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

// Entry is one audit record.
type Entry struct {
	UserID  *uuid.UUID        `json:"user_id,omitempty"`
	Action  model.AuditAction `json:"action"`
	Payload map[string]any    `json:"payload,omitempty"`
	At      time.Time         `json:"at"`
}

// Sink persists or forwards entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// GormSink writes entries to the audit_logs table.
type GormSink struct {
	repo repository.AuditRepository
}

func NewGormSink(repo repository.AuditRepository) *GormSink {
	return &GormSink{repo: repo}
}

func (s *GormSink) Write(ctx context.Context, e Entry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	row := &model.AuditLog{
		UserID:    e.UserID,
		Action:    e.Action,
		Payload:   datatypes.JSON(payload),
		CreatedAt: e.At.UTC(),
	}
	return s.repo.Insert(ctx, row)
}

// Publisher is the subset of mq.Publisher the AMQP sink needs.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// AMQPSink publishes entries to a topic exchange under RoutingKey(action).
type AMQPSink struct {
	pub Publisher
}

func NewAMQPSink(pub Publisher) *AMQPSink {
	return &AMQPSink{pub: pub}
}

func (s *AMQPSink) Write(ctx context.Context, e Entry) error {
	return s.pub.PublishJSON(ctx, RoutingKey(e.Action), e)
}

// RoutingKey maps "booking.create" to "audit.booking.create".
func RoutingKey(action model.AuditAction) string {
	return "audit." + strings.ToLower(string(action))
}

// Multi fans an entry out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Write(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const defaultTimeout = 3 * time.Second

// Recorder is what services call after their primary write committed.
type Recorder struct {
	sink     Sink
	log      zerolog.Logger
	failures prometheus.Counter
	now      func() time.Time
	timeout  time.Duration
}

type Option func(*Recorder)

// WithFailureCounter counts failed writes.
func WithFailureCounter(c prometheus.Counter) Option {
	return func(r *Recorder) { r.failures = c }
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(sink Sink, log zerolog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		sink:    sink,
		log:     logging.For(log, "audit"),
		now:     time.Now,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Record writes e. It detaches from ctx cancellation so an entry for a
// committed action is still attempted when the caller went away.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.sink == nil {
		return
	}
	if e.At.IsZero() {
		e.At = r.now()
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.sink.Write(wctx, e); err != nil {
		if r.failures != nil {
			r.failures.Inc()
		}
		ev := r.log.Warn().Err(err).Str("action", string(e.Action))
		if e.UserID != nil {
			ev = ev.Str(logging.UserID, e.UserID.String())
		}
		ev.Msg("audit write failed")
	}
}
