package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/reservation"
)

// errorBody is the JSON error shape. Code is a stable machine-readable kind.
type errorBody struct {
	Error       string   `json:"error"`
	Code        string   `json:"code"`
	ResourceIDs []string `json:"resource_ids,omitempty"`
	Requested   int      `json:"requested,omitempty"`
	Available   *int     `json:"available,omitempty"`
}

var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	{reservation.ErrUpstreamQuery, http.StatusServiceUnavailable, "upstream_query"},
	{reservation.ErrUpstreamWrite, http.StatusServiceUnavailable, "upstream_write"},
	{reservation.ErrInvalidWindow, http.StatusBadRequest, "invalid_window"},
	{reservation.ErrWindowTooLong, http.StatusBadRequest, "window_too_long"},
	{reservation.ErrOutsideOpeningHours, http.StatusUnprocessableEntity, "outside_opening_hours"},
	{reservation.ErrInvalidSelection, http.StatusBadRequest, "invalid_selection"},
	{reservation.ErrResourceNoLongerAvailable, http.StatusConflict, "resource_no_longer_available"},
	{reservation.ErrInsufficientAvailability, http.StatusConflict, "insufficient_availability"},
	{reservation.ErrResourceNotFound, http.StatusNotFound, "resource_not_found"},
	{reservation.ErrInvalidCode, http.StatusNotFound, "invalid_code"},
	{reservation.ErrCheckInWindowExpired, http.StatusUnprocessableEntity, "check_in_window_expired"},
	{reservation.ErrCheckInNotOpen, http.StatusUnprocessableEntity, "check_in_not_open"},
	{reservation.ErrAlreadyCheckedIn, http.StatusConflict, "already_checked_in"},
	{reservation.ErrBookingNotActive, http.StatusConflict, "booking_not_active"},
	{reservation.ErrNotAuthorized, http.StatusForbidden, "not_authorized"},
	{reservation.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
	{reservation.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{reservation.ErrCancellationWindowClosed, http.StatusUnprocessableEntity, "cancellation_window_closed"},
	{calendar.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
}

func writeError(c *gin.Context, err error) {
	body := errorBody{Error: err.Error(), Code: "internal"}
	status := http.StatusInternalServerError
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			status, body.Code = k.status, k.code
			break
		}
	}

	var unavailable *reservation.UnavailableError
	if errors.As(err, &unavailable) {
		for _, id := range unavailable.ResourceIDs {
			body.ResourceIDs = append(body.ResourceIDs, id.String())
		}
	}
	var insufficient *reservation.InsufficientError
	if errors.As(err, &insufficient) {
		body.Requested = insufficient.Requested
		body.Available = &insufficient.Available
	}
	c.JSON(status, body)
}
