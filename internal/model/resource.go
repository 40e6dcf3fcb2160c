package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kind of bookable resource.
type ResourceKind string

const (
	ResourceKindLibrarySeat   ResourceKind = "library_seat"
	ResourceKindEquipmentUnit ResourceKind = "equipment_unit"
	ResourceKindRoom          ResourceKind = "room"
)

// Valid reports whether k is one of the known kinds.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceKindLibrarySeat, ResourceKindEquipmentUnit, ResourceKindRoom:
		return true
	}
	return false
}

// resources: anything that can be booked. Rows are created administratively
// and never mutated by booking flows.
type Resource struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Kind  ResourceKind `gorm:"type:varchar(32);not null;index"`
	Label string       `gorm:"type:varchar(255);not null"`
	// Human code, required and unique: room code (AB2-301), seat code (T3-S2), asset tag.
	Code string `gorm:"type:varchar(64);not null;uniqueIndex"`

	// Seat back-reference.
	TableNo *int

	// Equipment back-reference.
	EquipmentType string `gorm:"type:varchar(128);index"`
	Room          string `gorm:"type:varchar(64);index"`

	Active bool `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (r *Resource) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
