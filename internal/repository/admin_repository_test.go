package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

func TestPenaltyRepository(t *testing.T) {
	gdb := newTestDB(t)
	bookings := NewGormBookingRepository(gdb)
	repo := NewGormPenaltyRepository(gdb)
	user := seedUser(t, gdb, "a@ewu.edu")
	seats := seedSeats(t, gdb, 1)

	batch := insert(t, bookings,
		booking(seats[0].ID, user.ID, base, time.Hour),
		booking(seats[0].ID, user.ID, base.Add(2*time.Hour), time.Hour),
	)

	for _, b := range batch {
		p := &model.Penalty{BookingID: b.ID, UserID: user.ID, Reason: model.PenaltyReasonNoShow, Amount: 500}
		require.NoError(t, repo.Create(ctx, p))
		assert.Equal(t, model.PenaltyStatusPending, p.Status)
	}

	pending, total, err := repo.List(ctx, model.PenaltyStatusPending, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, pending, 2)

	paid, err := repo.UpdateStatus(ctx, pending[0].ID, model.PenaltyStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, model.PenaltyStatusPaid, paid.Status)

	_, total, err = repo.List(ctx, model.PenaltyStatusPending, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, err = repo.UpdateStatus(ctx, uuid.New(), model.PenaltyStatusWaived)
	assert.True(t, IsNotFound(err))
}

func TestOpeningHoursRepository(t *testing.T) {
	repo := NewGormOpeningHoursRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, []model.OpeningHours{
		{Weekday: 0, Open: "08:00", Close: "20:00"},
		{Weekday: 5, Closed: true, Open: "00:00", Close: "00:00"},
	}))
	require.NoError(t, repo.Upsert(ctx, []model.OpeningHours{
		{Weekday: 0, Open: "09:00", Close: "21:00"},
	}))

	days, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 0, days[0].Weekday)
	assert.Equal(t, "09:00", days[0].Open)
	assert.Equal(t, "21:00", days[0].Close)
	assert.True(t, days[1].Closed)
}

func TestAuditRepository(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewGormAuditRepository(gdb)
	user := seedUser(t, gdb, "a@ewu.edu")

	require.NoError(t, repo.Insert(ctx, &model.AuditLog{
		UserID:  &user.ID,
		Action:  model.AuditActionBookingCreate,
		Payload: datatypes.JSON(`{"count":2}`),
	}))
	require.NoError(t, repo.Insert(ctx, &model.AuditLog{
		Action:  model.AuditActionBookingNoShow,
		Payload: datatypes.JSON(`{}`),
	}))

	all, total, err := repo.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	creates, total, err := repo.List(ctx, model.AuditActionBookingCreate, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, creates, 1)
	assert.JSONEq(t, `{"count":2}`, string(creates[0].Payload))
}
