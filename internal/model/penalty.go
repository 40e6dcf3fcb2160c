package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PenaltyReason string

const (
	PenaltyReasonNoShow PenaltyReason = "no_show"
)

type PenaltyStatus string

const (
	PenaltyStatusPending PenaltyStatus = "pending"
	PenaltyStatusPaid    PenaltyStatus = "paid"
	PenaltyStatusWaived  PenaltyStatus = "waived"
)

// Valid reports whether s is one of the known statuses.
func (s PenaltyStatus) Valid() bool {
	switch s {
	case PenaltyStatusPending, PenaltyStatusPaid, PenaltyStatusWaived:
		return true
	}
	return false
}

// penalties: financial consequence of a booking violation.
type Penalty struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	BookingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`

	Reason PenaltyReason `gorm:"type:varchar(32);not null"`
	// Whole currency units (BDT).
	Amount int64         `gorm:"not null"`
	Status PenaltyStatus `gorm:"type:varchar(16);not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Booking *Booking `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (p *Penalty) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PenaltyStatusPending
	}
	return nil
}
