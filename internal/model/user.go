package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// users: campus accounts. Credentials live with the identity provider,
// this table only carries what booking flows need.
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email     string `gorm:"type:varchar(255);not null;uniqueIndex"`
	FullName  string `gorm:"type:varchar(255)"`
	StudentID string `gorm:"type:varchar(32);index"`

	Active bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
