package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration decodes TOML strings such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// KindPolicy holds the rules of one resource kind.
type KindPolicy struct {
	// Owners may cancel until this long before start.
	CancelCutoff Duration `toml:"cancel_cutoff"`
	// Zero means unlimited.
	MaxDuration         Duration `toml:"max_duration"`
	EnforceOpeningHours bool     `toml:"enforce_opening_hours"`
	// Fee charged when a booking is marked no-show; zero disables the penalty.
	NoShowFee int64 `toml:"no_show_fee"`
}

// Policy is the booking policy file. These are non-sensitive settings admins
// may change without a redeploy.
type Policy struct {
	TimeZone            string   `toml:"time_zone"`
	CheckInGrace        Duration `toml:"check_in_grace"`
	CheckInOpensBefore  Duration `toml:"check_in_opens_before"`
	AttendanceCodeLen   int      `toml:"attendance_code_length"`
	CodeGenerateRetries int      `toml:"attendance_code_retries"`

	LibrarySeat   KindPolicy `toml:"library_seat"`
	EquipmentUnit KindPolicy `toml:"equipment_unit"`
	Room          KindPolicy `toml:"room"`
}

// DefaultPolicy mirrors the rules published to students and faculty.
func DefaultPolicy() Policy {
	return Policy{
		TimeZone:            "Asia/Dhaka",
		CheckInGrace:        Duration{15 * time.Minute},
		CheckInOpensBefore:  Duration{15 * time.Minute},
		AttendanceCodeLen:   10,
		CodeGenerateRetries: 3,
		LibrarySeat: KindPolicy{
			CancelCutoff:        Duration{30 * time.Minute},
			EnforceOpeningHours: true,
			NoShowFee:           500,
		},
		EquipmentUnit: KindPolicy{
			CancelCutoff: Duration{30 * time.Minute},
		},
		Room: KindPolicy{
			CancelCutoff: Duration{time.Hour},
			MaxDuration:  Duration{75 * time.Minute},
		},
	}
}

// LoadPolicy decodes path over DefaultPolicy; keys absent from the file keep
// their defaults. An empty path returns the defaults.
func LoadPolicy(path string) (*Policy, error) {
	p := DefaultPolicy()
	if path != "" {
		if _, err := toml.DecodeFile(path, &p); err != nil {
			return nil, fmt.Errorf("failed to load policy: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) Validate() error {
	if p.CheckInGrace.Duration <= 0 {
		return fmt.Errorf("check_in_grace must be positive")
	}
	if p.CheckInOpensBefore.Duration < 0 {
		return fmt.Errorf("check_in_opens_before must not be negative")
	}
	if p.AttendanceCodeLen < 6 {
		return fmt.Errorf("attendance_code_length must be at least 6")
	}
	if p.CodeGenerateRetries < 1 {
		return fmt.Errorf("attendance_code_retries must be at least 1")
	}
	if _, err := time.LoadLocation(p.TimeZone); err != nil {
		return fmt.Errorf("time_zone: %w", err)
	}
	for name, k := range map[string]KindPolicy{
		"library_seat":   p.LibrarySeat,
		"equipment_unit": p.EquipmentUnit,
		"room":           p.Room,
	} {
		if k.CancelCutoff.Duration < 0 || k.MaxDuration.Duration < 0 || k.NoShowFee < 0 {
			return fmt.Errorf("%s: durations and fees must not be negative", name)
		}
	}
	return nil
}

// Location resolves TimeZone; Validate guarantees it loads.
func (p *Policy) Location() *time.Location {
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
