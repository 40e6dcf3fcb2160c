package reservation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
)

var (
	ErrInvalidWindow       = calendar.ErrInvalidWindow
	ErrWindowTooLong       = errors.New("booking window exceeds the maximum duration")
	ErrOutsideOpeningHours = errors.New("booking window is outside opening hours")
	ErrInvalidSelection    = errors.New("invalid resource selection")

	ErrUpstreamQuery = errors.New("upstream query failed")
	ErrUpstreamWrite = errors.New("upstream write failed")

	ErrResourceNoLongerAvailable = errors.New("resource no longer available")
	ErrInsufficientAvailability  = errors.New("insufficient availability")
	ErrResourceNotFound          = errors.New("resource not found")

	ErrInvalidCode          = errors.New("invalid attendance code")
	ErrCheckInWindowExpired = errors.New("check-in window expired")
	ErrCheckInNotOpen       = errors.New("check-in is not open yet")
	ErrAlreadyCheckedIn     = errors.New("already checked in")
	ErrBookingNotActive     = errors.New("booking is not active")

	ErrNotAuthorized            = errors.New("not authorized")
	ErrAlreadyCancelled         = errors.New("booking already cancelled")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrCancellationWindowClosed = errors.New("cancellation window closed")

	ErrPenaltyNotFound      = errors.New("penalty not found")
	ErrInvalidPenaltyStatus = errors.New("invalid penalty status")
	ErrInvalidRole          = errors.New("invalid role")
)

// UnavailableError names the resources that were taken between the caller's
// availability view and the write. Matches ErrResourceNoLongerAvailable.
type UnavailableError struct {
	ResourceIDs []uuid.UUID
}

func (e *UnavailableError) Error() string {
	ids := make([]string, len(e.ResourceIDs))
	for i, id := range e.ResourceIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s: %s", ErrResourceNoLongerAvailable, strings.Join(ids, ", "))
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrResourceNoLongerAvailable
}

// InsufficientError reports how many resources an auto-assignment found.
// Matches ErrInsufficientAvailability.
type InsufficientError struct {
	Requested int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("%s: requested %d, available %d", ErrInsufficientAvailability, e.Requested, e.Available)
}

func (e *InsufficientError) Is(target error) bool {
	return target == ErrInsufficientAvailability
}

// UpstreamError wraps a storage failure verbatim. It matches
// ErrUpstreamWrite when Write is set and ErrUpstreamQuery otherwise, and
// unwraps to the cause (context.DeadlineExceeded included).
type UpstreamError struct {
	Op    string
	Write bool
	Err   error
}

func (e *UpstreamError) Error() string {
	kind := ErrUpstreamQuery
	if e.Write {
		kind = ErrUpstreamWrite
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, kind, e.Err)
}

func (e *UpstreamError) Is(target error) bool {
	if e.Write {
		return target == ErrUpstreamWrite
	}
	return target == ErrUpstreamQuery
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func queryErr(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

func writeErr(op string, err error) error {
	return &UpstreamError{Op: op, Write: true, Err: err}
}
