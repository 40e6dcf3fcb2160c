package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ewuhub"

// Metrics are the collectors of the booking core. Each Metrics owns its
// collectors; Register them on the registry the process exposes.
type Metrics struct {
	// Reservations counts reserve attempts by resource kind and outcome.
	Reservations *prometheus.CounterVec
	// BookingsCreated counts booking rows written, by kind.
	BookingsCreated *prometheus.CounterVec
	// CheckIns counts check-in attempts by outcome.
	CheckIns *prometheus.CounterVec
	// Cancellations counts cancel attempts by outcome.
	Cancellations *prometheus.CounterVec
	// NoShows counts bookings swept to no_show.
	NoShows prometheus.Counter
	// AuditFailures counts audit entries that could not be written.
	AuditFailures prometheus.Counter
	// ReserveDuration observes Reserve latency in seconds.
	ReserveDuration prometheus.Histogram
}

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeConflict    = "conflict"
	OutcomeRejected    = "rejected"
	OutcomeUpstreamErr = "upstream_error"
)

func New() *Metrics {
	return &Metrics{
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservation",
			Name:      "attempts_total",
			Help:      "Reservation attempts by resource kind and outcome.",
		}, []string{"kind", "outcome"}),
		BookingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservation",
			Name:      "bookings_created_total",
			Help:      "Booking rows created by resource kind.",
		}, []string{"kind"}),
		CheckIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "check_ins_total",
			Help:      "Check-in attempts by outcome.",
		}, []string{"outcome"}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservation",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by outcome.",
		}, []string{"outcome"}),
		NoShows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "no_shows_total",
			Help:      "Bookings marked no_show by the sweeper.",
		}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "failures_total",
			Help:      "Audit entries that failed to persist.",
		}),
		ReserveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reservation",
			Name:      "reserve_duration_seconds",
			Help:      "Latency of Reserve including the locked re-check.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Reservations,
		m.BookingsCreated,
		m.CheckIns,
		m.Cancellations,
		m.NoShows,
		m.AuditFailures,
		m.ReserveDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
