package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auntor69/ewu-hub-3.0/internal/reservation"
)

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.New()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"timeout", fmt.Errorf("list: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"unavailable", &reservation.UnavailableError{ResourceIDs: []uuid.UUID{id}}, http.StatusConflict, "resource_no_longer_available"},
		{"insufficient", &reservation.InsufficientError{Requested: 2, Available: 0}, http.StatusConflict, "insufficient_availability"},
		{"window", reservation.ErrInvalidWindow, http.StatusBadRequest, "invalid_window"},
		{"hours", reservation.ErrOutsideOpeningHours, http.StatusUnprocessableEntity, "outside_opening_hours"},
		{"cutoff", reservation.ErrCancellationWindowClosed, http.StatusUnprocessableEntity, "cancellation_window_closed"},
		{"forbidden", reservation.ErrNotAuthorized, http.StatusForbidden, "not_authorized"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}

	t.Run("carries details", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, &reservation.InsufficientError{Requested: 2, Available: 0})

		var body errorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Requested)
		require.NotNil(t, body.Available)
		assert.Equal(t, 0, *body.Available)

		w = httptest.NewRecorder()
		c, _ = gin.CreateTestContext(w)
		writeError(c, &reservation.UnavailableError{ResourceIDs: []uuid.UUID{id}})
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, []string{id.String()}, body.ResourceIDs)
	})
}
