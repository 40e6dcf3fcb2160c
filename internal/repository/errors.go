package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

var (
	// ErrOverlap is returned when the storage layer itself rejects an
	// overlapping active booking (postgres exclusion constraint).
	ErrOverlap = errors.New("booking overlaps an active booking")
	// ErrAttendanceCodeTaken is returned when a generated attendance code
	// is already in use.
	ErrAttendanceCodeTaken = errors.New("attendance code already in use")
)

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

// IsNotFound reports whether err means "no such row".
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// classifyWriteError maps driver errors of booking inserts to repository
// sentinels; anything else is returned unchanged.
func classifyWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgExclusionViolation && pgErr.ConstraintName == model.BookingsNoOverlapConstraint:
		return ErrOverlap
	case pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "attendance_code"):
		return ErrAttendanceCodeTaken
	}
	return err
}
