package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusArrived   BookingStatus = "arrived"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// ActiveBookingStatuses block a resource; every other status never does.
var ActiveBookingStatuses = []BookingStatus{BookingStatusConfirmed, BookingStatusArrived}

// Active reports whether a booking in status s occupies its resource.
func (s BookingStatus) Active() bool {
	return s == BookingStatusConfirmed || s == BookingStatusArrived
}

// booking_groups: join key for bookings created in one user action.
type BookingGroup struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (g *BookingGroup) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// bookings: one resource for the half-open interval [StartAt, EndAt).
type Booking struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ResourceID uuid.UUID  `gorm:"type:uuid;not null;index:idx_bookings_resource_time,priority:1"`
	GroupID    *uuid.UUID `gorm:"type:uuid;index"`

	BookedBy  uuid.UUID `gorm:"type:uuid;not null;index"`
	BookedFor uuid.UUID `gorm:"type:uuid;not null;index"`

	StartAt time.Time `gorm:"not null;index:idx_bookings_resource_time,priority:2"`
	EndAt   time.Time `gorm:"not null;index:idx_bookings_resource_time,priority:3"`

	Status BookingStatus `gorm:"type:varchar(32);not null;index"`

	AttendanceCode *string `gorm:"type:varchar(32);uniqueIndex"`
	CheckedInAt    *time.Time
	CancelledAt    *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Resource *Resource     `gorm:"foreignKey:ResourceID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Group    *BookingGroup `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BookingInterval is the projection the availability check needs.
type BookingInterval struct {
	ResourceID uuid.UUID
	StartAt    time.Time
	EndAt      time.Time
}
