package reservation

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/auntor69/ewu-hub-3.0/internal/audit"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

func TestReserve_SeatsScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice@ewu.edu", model.RoleStudent)
	bob := e.user(t, "bob@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A", "B", "C")

	_, err := e.svc.Reserve(ctx, bob, Specific(seats[1].ID), at(14, 0), at(16, 0))
	require.NoError(t, err)

	free, err := e.svc.FindAvailable(ctx, seats, at(14, 0), at(16, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, codesOf(free))

	res, err := e.svc.Reserve(ctx, alice, Specific(idsOf(free)...), at(14, 0), at(16, 0))
	require.NoError(t, err)
	require.NotNil(t, res.Group)
	require.Len(t, res.Bookings, 2)
	for _, b := range res.Bookings {
		require.NotNil(t, b.GroupID)
		assert.Equal(t, res.Group.ID, *b.GroupID)
		assert.Equal(t, model.BookingStatusConfirmed, b.Status)
		assert.Equal(t, alice.UserID, b.BookedBy)
		require.NotNil(t, b.AttendanceCode)
		assert.Len(t, *b.AttendanceCode, 10)
		require.NotNil(t, b.Resource)
	}
	assert.NotEqual(t, *res.Bookings[0].AttendanceCode, *res.Bookings[1].AttendanceCode)

	free, err = e.svc.FindAvailable(ctx, seats, at(14, 0), at(16, 0))
	require.NoError(t, err)
	assert.Empty(t, free)

	assert.EqualValues(t, 1, e.count(t, &model.BookingGroup{}))
	assert.EqualValues(t, 3, e.count(t, &model.Booking{}))
}

func TestReserve_SingleBookingHasNoGroup(t *testing.T) {
	e := newEnv(t)
	alice := e.user(t, "alice@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A")

	res, err := e.svc.Reserve(context.Background(), alice, Specific(seats[0].ID), at(10, 0), at(11, 0))
	require.NoError(t, err)
	assert.Nil(t, res.Group)
	require.Len(t, res.Bookings, 1)
	assert.Nil(t, res.Bookings[0].GroupID)
	assert.EqualValues(t, 0, e.count(t, &model.BookingGroup{}))
}

func TestReserve_HalfOpenBoundary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A")

	_, err := e.svc.Reserve(ctx, alice, Specific(seats[0].ID), at(10, 0), at(11, 0))
	require.NoError(t, err)

	_, err = e.svc.Reserve(ctx, alice, Specific(seats[0].ID), at(11, 0), at(12, 0))
	require.NoError(t, err, "back-to-back booking must be allowed")

	_, err = e.svc.Reserve(ctx, alice, Specific(seats[0].ID), at(9, 0), at(10, 0))
	require.NoError(t, err)

	_, err = e.svc.Reserve(ctx, alice, Specific(seats[0].ID), at(9, 0), at(10, 30))
	require.ErrorIs(t, err, ErrResourceNoLongerAvailable)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uuid.UUID{seats[0].ID}, unavailable.ResourceIDs)
}

func TestReserve_SpecificIsAllOrNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice@ewu.edu", model.RoleStudent)
	bob := e.user(t, "bob@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A", "B", "C")

	_, err := e.svc.Reserve(ctx, bob, Specific(seats[2].ID), at(10, 0), at(11, 0))
	require.NoError(t, err)

	_, err = e.svc.Reserve(ctx, alice, Specific(idsOf(seats)...), at(10, 30), at(11, 30))
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uuid.UUID{seats[2].ID}, unavailable.ResourceIDs)

	assert.EqualValues(t, 1, e.count(t, &model.Booking{}))
	assert.EqualValues(t, 0, e.count(t, &model.BookingGroup{}))
}

func TestReserve_SecondInsertFailureLeavesNothing(t *testing.T) {
	e := newEnv(t)
	alice := e.user(t, "alice@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A", "B", "C")

	inserts := 0
	boom := errors.New("insert failed")
	require.NoError(t, e.db.Callback().Create().Before("gorm:create").Register("test:fail_second_booking", func(tx *gorm.DB) {
		if tx.Statement.Table != "bookings" {
			return
		}
		inserts++
		if inserts == 2 {
			_ = tx.AddError(boom)
		}
	}))

	_, err := e.svc.Reserve(context.Background(), alice, Specific(idsOf(seats)...), at(14, 0), at(16, 0))
	require.ErrorIs(t, err, ErrUpstreamWrite)
	require.ErrorIs(t, err, boom)

	assert.EqualValues(t, 0, e.count(t, &model.Booking{}))
	assert.EqualValues(t, 0, e.count(t, &model.BookingGroup{}))
	assert.EqualValues(t, 0, e.count(t, &model.AuditLog{}), "no audit entry for a failed reservation")
}

func TestReserve_AutoAssign(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice@ewu.edu", model.RoleStudent)
	bob := e.user(t, "bob@ewu.edu", model.RoleStudent)
	units := e.equipment(t, "Multimeter", "LAB-1", 3)

	_, err := e.svc.Reserve(ctx, bob, Specific(units[0].ID), at(10, 0), at(12, 0))
	require.NoError(t, err)

	pool, err := e.svc.EquipmentPool(ctx, "multimeter", "LAB-1")
	require.NoError(t, err)

	_, err = e.svc.Reserve(ctx, alice, AutoAssign(pool, 3), at(11, 0), at(12, 0))
	var insufficient *InsufficientError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Requested)
	assert.Equal(t, 2, insufficient.Available)
	assert.ErrorIs(t, err, ErrInsufficientAvailability)
	assert.EqualValues(t, 1, e.count(t, &model.Booking{}))

	res, err := e.svc.Reserve(ctx, alice, AutoAssign(pool, 2), at(11, 0), at(12, 0))
	require.NoError(t, err)
	require.Len(t, res.Bookings, 2)
	assert.Equal(t, units[1].ID, res.Bookings[0].ResourceID)
	assert.Equal(t, units[2].ID, res.Bookings[1].ResourceID)
	assert.NotNil(t, res.Group)

	_, err = e.svc.Reserve(ctx, alice, AutoAssign(pool, 1), at(11, 30), at(12, 30))
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Available)

	_, err = e.svc.Reserve(ctx, alice, AutoAssign(pool, 0), at(13, 0), at(14, 0))
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = e.svc.Reserve(ctx, alice, AutoAssign(nil, 1), at(13, 0), at(14, 0))
	assert.ErrorIs(t, err, ErrInsufficientAvailability)
}

func TestReserve_AutoAssignSkipsRepeatedUnits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice@ewu.edu", model.RoleStudent)
	units := e.equipment(t, "Scope", "LAB-1", 2)

	_, err := e.svc.Reserve(ctx, alice, AutoAssign([]model.Resource{units[0], units[0]}, 2), at(10, 0), at(11, 0))
	var insufficient *InsufficientError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Available)
	assert.EqualValues(t, 0, e.count(t, &model.Booking{}))

	res, err := e.svc.Reserve(ctx, alice, AutoAssign([]model.Resource{units[1], units[0], units[1]}, 2), at(10, 0), at(11, 0))
	require.NoError(t, err)
	require.Len(t, res.Bookings, 2)
	assert.Equal(t, units[1].ID, res.Bookings[0].ResourceID)
	assert.Equal(t, units[0].ID, res.Bookings[1].ResourceID)
	assertNoOverlap(t, e.db)
}

func TestReserve_SpecificKeepsSelectionOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice@ewu.edu", model.RoleStudent)
	bob := e.user(t, "bob@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A", "B", "C")
	a, b, c := seats[0].ID, seats[1].ID, seats[2].ID

	res, err := e.svc.Reserve(ctx, alice, Specific(c, a, b), at(9, 0), at(10, 0))
	require.NoError(t, err)
	require.Len(t, res.Bookings, 3)
	assert.Equal(t, []uuid.UUID{c, a, b}, []uuid.UUID{
		res.Bookings[0].ResourceID, res.Bookings[1].ResourceID, res.Bookings[2].ResourceID,
	})

	_, err = e.svc.Reserve(ctx, bob, Specific(b, c), at(10, 0), at(11, 0))
	require.NoError(t, err)

	_, err = e.svc.Reserve(ctx, alice, Specific(c, a, b), at(10, 0), at(11, 0))
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []uuid.UUID{c, b}, unavailable.ResourceIDs)
}

func TestReserve_PolicyChecks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	faculty := e.user(t, "f@ewu.edu", model.RoleFaculty)
	student := e.user(t, "s@ewu.edu", model.RoleStudent)
	room := e.room(t, "AB2-301")
	seats := e.seats(t, "A")
	units := e.equipment(t, "Scope", "LAB-1", 1)

	require.NoError(t, e.hours.Upsert(ctx, []model.OpeningHours{
		{Weekday: int(time.Monday), Open: "08:00", Close: "20:00"},
		{Weekday: int(time.Friday), Closed: true},
	}))

	tests := []struct {
		name       string
		actor      calendar.Actor
		sel        Selection
		start, end time.Time
		want       error
	}{
		{"room over 75 minutes", faculty, Specific(room.ID), at(10, 0), at(11, 30), ErrWindowTooLong},
		{"room exactly 75 minutes", faculty, Specific(room.ID), at(10, 0), at(11, 15), nil},
		{"window in the past", student, Specific(seats[0].ID), at(7, 0), at(9, 0), ErrInvalidWindow},
		{"empty window", student, Specific(seats[0].ID), at(9, 0), at(9, 0), ErrInvalidWindow},
		{"seat after closing", student, Specific(seats[0].ID), at(19, 30), at(20, 30), ErrOutsideOpeningHours},
		{"seat until closing", student, Specific(seats[0].ID), at(19, 0), at(20, 0), nil},
		{"seat on a closed day", student, Specific(seats[0].ID), at(9, 0).AddDate(0, 0, 4), at(10, 0).AddDate(0, 0, 4), ErrOutsideOpeningHours},
		{"equipment ignores opening hours", student, Specific(units[0].ID), at(21, 0), at(22, 0), nil},
		{"unknown resource", student, Specific(uuid.New()), at(9, 0), at(10, 0), ErrResourceNotFound},
		{"same resource twice", student, Specific(seats[0].ID, seats[0].ID), at(9, 0), at(10, 0), ErrInvalidSelection},
		{"mixed kinds", student, Specific(seats[0].ID, units[0].ID), at(9, 0), at(10, 0), ErrInvalidSelection},
		{"nothing selected", student, Specific(), at(9, 0), at(10, 0), ErrInvalidSelection},
		{"anonymous actor", calendar.Actor{}, Specific(seats[0].ID), at(9, 0), at(10, 0), ErrNotAuthorized},
		{"room through a seat selection", student, SpecificOf(model.ResourceKindLibrarySeat, room.ID), at(12, 0), at(13, 0), ErrInvalidSelection},
		{"unit through a seat selection", student, SpecificOf(model.ResourceKindLibrarySeat, units[0].ID), at(12, 0), at(13, 0), ErrInvalidSelection},
		{"seat through a seat selection", student, SpecificOf(model.ResourceKindLibrarySeat, seats[0].ID), at(12, 0), at(13, 0), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Reserve(ctx, tt.actor, tt.sel, tt.start, tt.end)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReserve_InactiveResourceIsNotFound(t *testing.T) {
	e := newEnv(t)
	student := e.user(t, "s@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A")
	require.NoError(t, e.db.Model(&model.Resource{}).Where("id = ?", seats[0].ID).Update("active", false).Error)

	_, err := e.svc.Reserve(context.Background(), student, Specific(seats[0].ID), at(9, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestReserve_RegeneratesCollidingCode(t *testing.T) {
	codes := []string{"aaaaaaaaaa", "aaaaaaaaaa", "bbbbbbbbbb"}
	var mu sync.Mutex
	gen := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return c, nil
	}

	e := newEnv(t, WithCodeGenerator(gen))
	student := e.user(t, "s@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A", "B")

	first, err := e.svc.Reserve(context.Background(), student, Specific(seats[0].ID), at(9, 0), at(10, 0))
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaa", *first.Bookings[0].AttendanceCode)

	second, err := e.svc.Reserve(context.Background(), student, Specific(seats[1].ID), at(9, 0), at(10, 0))
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbbb", *second.Bookings[0].AttendanceCode)
}

func TestReserve_CodeRetriesExhausted(t *testing.T) {
	e := newEnv(t, WithCodeGenerator(func() (string, error) { return "samesame00", nil }))
	student := e.user(t, "s@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A", "B")

	_, err := e.svc.Reserve(context.Background(), student, Specific(seats[0].ID), at(9, 0), at(10, 0))
	require.NoError(t, err)

	_, err = e.svc.Reserve(context.Background(), student, Specific(seats[1].ID), at(9, 0), at(10, 0))
	require.ErrorIs(t, err, ErrUpstreamWrite)
	assert.ErrorIs(t, err, repository.ErrAttendanceCodeTaken)
}

func TestReserve_WritesAuditEntry(t *testing.T) {
	e := newEnv(t)
	student := e.user(t, "s@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A", "B")

	res, err := e.svc.Reserve(context.Background(), student, Specific(idsOf(seats)...), at(9, 0), at(10, 0))
	require.NoError(t, err)

	logs, total, err := e.audits.List(context.Background(), model.AuditActionBookingCreate, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, student.UserID, *logs[0].UserID)
	assert.Contains(t, string(logs[0].Payload), res.Group.ID.String())
	assert.Contains(t, string(logs[0].Payload), `"count":2`)
}

type failingSink struct{}

func (failingSink) Write(context.Context, audit.Entry) error { return errors.New("audit store down") }

func TestReserve_AuditFailureDoesNotFail(t *testing.T) {
	e := newEnv(t, WithAudit(audit.NewRecorder(failingSink{}, zerolog.Nop())))
	student := e.user(t, "s@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A")

	_, err := e.svc.Reserve(context.Background(), student, Specific(seats[0].ID), at(9, 0), at(10, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.count(t, &model.Booking{}))
	assert.EqualValues(t, 0, e.count(t, &model.AuditLog{}))
}

// Random reservation and cancellation sequences against an in-memory model
// of what must be accepted.
func TestReserve_NoOverlapProperty(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	student := e.user(t, "s@ewu.edu", model.RoleStudent)
	seats := e.seats(t, "A", "B", "C")
	rng := rand.New(rand.NewPCG(42, 7))

	type held struct {
		id     uuid.UUID
		window calendar.TimeRange
	}
	accepted := map[uuid.UUID][]held{}

	for step := 0; step < 120; step++ {
		seat := seats[rng.IntN(len(seats))]

		if list := accepted[seat.ID]; len(list) > 0 && rng.IntN(5) == 0 {
			i := rng.IntN(len(list))
			_, err := e.svc.Cancel(ctx, student, list[i].id)
			require.NoError(t, err)
			accepted[seat.ID] = append(list[:i], list[i+1:]...)
			continue
		}

		start := at(9, 0).Add(time.Duration(rng.IntN(16)) * 30 * time.Minute)
		end := start.Add(time.Duration(1+rng.IntN(4)) * 30 * time.Minute)
		window := calendar.TimeRange{Start: start, End: end}

		expectConflict := false
		for _, h := range accepted[seat.ID] {
			if calendar.Overlaps(window, h.window) {
				expectConflict = true
				break
			}
		}

		res, err := e.svc.Reserve(ctx, student, Specific(seat.ID), start, end)
		if expectConflict {
			require.ErrorIsf(t, err, ErrResourceNoLongerAvailable, "step %d", step)
		} else {
			require.NoErrorf(t, err, "step %d", step)
			accepted[seat.ID] = append(accepted[seat.ID], held{id: res.Bookings[0].ID, window: window})
		}
		assertNoOverlap(t, e.db)
	}
}

func TestReserve_ConcurrentAttempts(t *testing.T) {
	e := newEnv(t)
	seats := e.seats(t, "A", "B")

	const workers = 8
	actors := make([]calendar.Actor, workers)
	for i := range actors {
		actors[i] = e.user(t, uuid.NewString()+"@ewu.edu", model.RoleStudent)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(actor calendar.Actor, offset int) {
			defer wg.Done()
			// overlapping windows on both seats
			start := at(10, 0).Add(time.Duration(offset%2) * 30 * time.Minute)
			_, err := e.svc.Reserve(context.Background(), actor, Specific(idsOf(seats)...), start, start.Add(time.Hour))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrResourceNoLongerAvailable):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(actors[i], i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, conflict)
	assert.EqualValues(t, 2, e.count(t, &model.Booking{}))
	assert.EqualValues(t, 1, e.count(t, &model.BookingGroup{}))
	assertNoOverlap(t, e.db)
}
