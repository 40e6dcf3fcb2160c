package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit action.
type AuditAction string

const (
	AuditActionBookingCreate      AuditAction = "booking.create"
	AuditActionBookingCancel      AuditAction = "booking.cancel"
	AuditActionBookingCheckIn     AuditAction = "booking.check_in"
	AuditActionBookingNoShow      AuditAction = "booking.no_show"
	AuditActionPenaltyUpdate      AuditAction = "penalty.update"
	AuditActionOpeningHoursUpdate AuditAction = "opening_hours.update"
	AuditActionUserRole           AuditAction = "user.role"
	AuditActionUserActive         AuditAction = "user.active"
)

// audit_logs: append-only side record, nothing on the booking path reads it.
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID *uuid.UUID  `gorm:"type:uuid;index"`
	Action AuditAction `gorm:"type:varchar(64);not null;index"`

	Payload datatypes.JSON

	CreatedAt time.Time `gorm:"not null;index"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
