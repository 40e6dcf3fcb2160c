package service

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/auntor69/ewu-hub-3.0/internal/auth"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/reservation"
)

// toStatus maps domain errors onto gRPC codes. The message keeps the error
// text, which names the failing resources for conflicts.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled

	case errors.Is(err, reservation.ErrUpstreamQuery),
		errors.Is(err, reservation.ErrUpstreamWrite):
		return codes.Unavailable

	case errors.Is(err, reservation.ErrInvalidWindow),
		errors.Is(err, reservation.ErrWindowTooLong),
		errors.Is(err, reservation.ErrOutsideOpeningHours),
		errors.Is(err, reservation.ErrInvalidSelection),
		errors.Is(err, reservation.ErrInvalidRole),
		errors.Is(err, reservation.ErrInvalidPenaltyStatus),
		errors.Is(err, calendar.ErrInvalidClock):
		return codes.InvalidArgument

	case errors.Is(err, reservation.ErrResourceNoLongerAvailable):
		return codes.Aborted
	case errors.Is(err, reservation.ErrInsufficientAvailability):
		return codes.ResourceExhausted

	case errors.Is(err, reservation.ErrAlreadyCheckedIn),
		errors.Is(err, reservation.ErrAlreadyCancelled):
		return codes.AlreadyExists

	case errors.Is(err, reservation.ErrCheckInWindowExpired),
		errors.Is(err, reservation.ErrCheckInNotOpen),
		errors.Is(err, reservation.ErrBookingNotActive),
		errors.Is(err, reservation.ErrCancellationWindowClosed):
		return codes.FailedPrecondition

	case errors.Is(err, reservation.ErrResourceNotFound),
		errors.Is(err, reservation.ErrBookingNotFound),
		errors.Is(err, reservation.ErrPenaltyNotFound),
		errors.Is(err, reservation.ErrInvalidCode),
		errors.Is(err, calendar.ErrUserNotFound):
		return codes.NotFound

	case errors.Is(err, reservation.ErrNotAuthorized),
		errors.Is(err, calendar.ErrUserInactive):
		return codes.PermissionDenied
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, calendar.ErrInvalidUserID):
		return codes.Unauthenticated
	}
	return codes.Internal
}
