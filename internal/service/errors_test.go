package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/reservation"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: window starts in the past", reservation.ErrInvalidWindow), codes.InvalidArgument},
		{reservation.ErrWindowTooLong, codes.InvalidArgument},
		{reservation.ErrOutsideOpeningHours, codes.InvalidArgument},
		{&reservation.UnavailableError{ResourceIDs: []uuid.UUID{uuid.New()}}, codes.Aborted},
		{&reservation.InsufficientError{Requested: 2, Available: 1}, codes.ResourceExhausted},
		{reservation.ErrResourceNotFound, codes.NotFound},
		{reservation.ErrInvalidCode, codes.NotFound},
		{reservation.ErrCheckInWindowExpired, codes.FailedPrecondition},
		{reservation.ErrCheckInNotOpen, codes.FailedPrecondition},
		{reservation.ErrAlreadyCheckedIn, codes.AlreadyExists},
		{reservation.ErrAlreadyCancelled, codes.AlreadyExists},
		{reservation.ErrCancellationWindowClosed, codes.FailedPrecondition},
		{reservation.ErrNotAuthorized, codes.PermissionDenied},
		{calendar.ErrUserInactive, codes.PermissionDenied},
		{&reservation.UpstreamError{Op: "reserve", Write: true, Err: errors.New("disk full")}, codes.Unavailable},
		{&reservation.UpstreamError{Op: "list", Err: context.DeadlineExceeded}, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			st := status.Convert(toStatus(tt.err))
			assert.Equal(t, tt.want, st.Code())
			assert.Equal(t, tt.err.Error(), st.Message())
		})
	}

	assert.NoError(t, toStatus(nil))
	already := status.Error(codes.InvalidArgument, "start is required")
	assert.Equal(t, already, toStatus(already))
}
