package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate migrates every entity of the booking core.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Role{},
		&UserRole{},
		&Resource{},
		&BookingGroup{},
		&Booking{},
		&Penalty{},
		&OpeningHours{},
		&AuditLog{},
	); err != nil {
		return err
	}
	if db.Dialector.Name() == "postgres" {
		return migratePostgres(db)
	}
	return nil
}

// BookingsNoOverlapConstraint rejects overlapping active bookings of one
// resource at the storage layer.
const BookingsNoOverlapConstraint = "bookings_no_overlap"

func migratePostgres(db *gorm.DB) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,
		fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%[1]s') THEN
		ALTER TABLE bookings ADD CONSTRAINT %[1]s EXCLUDE USING gist (
			resource_id WITH =,
			tstzrange(start_at, end_at, '[)') WITH &&
		) WHERE (status IN ('%[2]s', '%[3]s'));
	END IF;
END $$`, BookingsNoOverlapConstraint, BookingStatusConfirmed, BookingStatusArrived),
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("postgres migration: %w", err)
		}
	}
	return nil
}
