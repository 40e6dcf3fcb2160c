package model

import "time"

// opening_hours: one row per weekday (0 = Sunday). Open/Close are "HH:MM"
// in the campus time zone.
type OpeningHours struct {
	Weekday int    `gorm:"primaryKey;autoIncrement:false"`
	Open    string `gorm:"type:varchar(5);not null"`
	Close   string `gorm:"type:varchar(5);not null"`
	Closed  bool   `gorm:"not null"`

	UpdatedAt time.Time `gorm:"not null"`
}
