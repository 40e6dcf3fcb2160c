package reservation

import (
	"time"

	"github.com/auntor69/ewu-hub-3.0/internal/config"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

// KindRules are the booking rules of one resource kind.
type KindRules struct {
	// Owners may cancel until start minus CancelCutoff.
	CancelCutoff time.Duration
	// Zero means unlimited.
	MaxDuration         time.Duration
	EnforceOpeningHours bool
	// Zero disables the no-show penalty.
	NoShowFee int64
}

type Policy struct {
	Location *time.Location
	// Check-in is accepted from start-CheckInOpensBefore until start+CheckInGrace.
	CheckInGrace       time.Duration
	CheckInOpensBefore time.Duration
	CodeLength         int
	// Attempts at a reservation when a generated code collides.
	CodeRetries int

	Kinds map[model.ResourceKind]KindRules
}

// PolicyFromConfig converts the decoded policy file.
func PolicyFromConfig(p *config.Policy) Policy {
	conv := func(k config.KindPolicy) KindRules {
		return KindRules{
			CancelCutoff:        k.CancelCutoff.Duration,
			MaxDuration:         k.MaxDuration.Duration,
			EnforceOpeningHours: k.EnforceOpeningHours,
			NoShowFee:           k.NoShowFee,
		}
	}
	return Policy{
		Location:           p.Location(),
		CheckInGrace:       p.CheckInGrace.Duration,
		CheckInOpensBefore: p.CheckInOpensBefore.Duration,
		CodeLength:         p.AttendanceCodeLen,
		CodeRetries:        p.CodeGenerateRetries,
		Kinds: map[model.ResourceKind]KindRules{
			model.ResourceKindLibrarySeat:   conv(p.LibrarySeat),
			model.ResourceKindEquipmentUnit: conv(p.EquipmentUnit),
			model.ResourceKindRoom:          conv(p.Room),
		},
	}
}

// DefaultPolicy is PolicyFromConfig(config.DefaultPolicy()).
func DefaultPolicy() Policy {
	p := config.DefaultPolicy()
	return PolicyFromConfig(&p)
}

func (p Policy) rules(kind model.ResourceKind) KindRules {
	return p.Kinds[kind]
}
