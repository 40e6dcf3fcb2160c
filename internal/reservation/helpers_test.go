package reservation

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/auntor69/ewu-hub-3.0/internal/audit"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/config"
	"github.com/auntor69/ewu-hub-3.0/internal/db"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

// Monday 2030-03-04 08:00 UTC.
var now0 = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2030, 3, 4, hour, minute, 0, 0, time.UTC)
}

type env struct {
	db        *gorm.DB
	svc       *Service
	admin     *Admin
	bookings  *repository.GormBookingRepository
	resources *repository.GormResourceRepository
	users     *repository.GormUserRepository
	hours     *repository.GormOpeningHoursRepository
	audits    *repository.GormAuditRepository
	now       time.Time
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	gdb, err := db.NewGormDB(&config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "core.db"),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	e := &env{
		db:        gdb,
		bookings:  repository.NewGormBookingRepository(gdb),
		resources: repository.NewGormResourceRepository(gdb),
		users:     repository.NewGormUserRepository(gdb),
		hours:     repository.NewGormOpeningHoursRepository(gdb),
		audits:    repository.NewGormAuditRepository(gdb),
		now:       now0,
	}
	recorder := audit.NewRecorder(audit.NewGormSink(e.audits), zerolog.Nop())

	policy := DefaultPolicy()
	policy.Location = time.UTC
	all := append([]Option{
		WithPolicy(policy),
		WithClock(func() time.Time { return e.now }),
		WithAudit(recorder),
	}, opts...)
	e.svc = New(e.bookings, e.resources, e.hours, all...)
	e.admin = NewAdmin(e.users, repository.NewGormPenaltyRepository(gdb), e.hours, e.audits, recorder, zerolog.Nop())
	return e
}

func (e *env) user(t *testing.T, email string, role model.RoleCode) calendar.Actor {
	t.Helper()
	u, err := e.users.UpsertUser(context.Background(), email, email, "")
	require.NoError(t, err)
	require.NoError(t, e.users.SetRole(context.Background(), u.ID, role))
	actor, err := calendar.ValidateActor(context.Background(), e.users, u.ID)
	require.NoError(t, err)
	return actor
}

func (e *env) seats(t *testing.T, codes ...string) []model.Resource {
	t.Helper()
	out := make([]model.Resource, len(codes))
	for i, code := range codes {
		table := 1
		out[i] = model.Resource{Kind: model.ResourceKindLibrarySeat, Label: "Seat " + code, Code: code, TableNo: &table, Active: true}
		require.NoError(t, e.resources.Create(context.Background(), &out[i]))
	}
	return out
}

func (e *env) equipment(t *testing.T, typ, room string, n int) []model.Resource {
	t.Helper()
	out := make([]model.Resource, n)
	for i := range out {
		out[i] = model.Resource{
			Kind:          model.ResourceKindEquipmentUnit,
			Label:         fmt.Sprintf("%s #%d", typ, i+1),
			Code:          fmt.Sprintf("%s-%s-%d", room, typ, i+1),
			EquipmentType: typ,
			Room:          room,
			Active:        true,
		}
		require.NoError(t, e.resources.Create(context.Background(), &out[i]))
	}
	return out
}

func (e *env) room(t *testing.T, code string) model.Resource {
	t.Helper()
	r := model.Resource{Kind: model.ResourceKindRoom, Label: code, Code: code, Active: true}
	require.NoError(t, e.resources.Create(context.Background(), &r))
	return r
}

func (e *env) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

func idsOf(rs []model.Resource) []uuid.UUID {
	return resourceIDs(rs)
}

func codesOf(rs []model.Resource) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Code
	}
	return out
}

// assertNoOverlap checks the storage invariant directly.
func assertNoOverlap(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	var active []model.Booking
	require.NoError(t, gdb.Where("status IN ?", model.ActiveBookingStatuses).Find(&active).Error)
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if a.ResourceID != b.ResourceID {
				continue
			}
			ra := calendar.TimeRange{Start: a.StartAt, End: a.EndAt}
			rb := calendar.TimeRange{Start: b.StartAt, End: b.EndAt}
			require.Falsef(t, calendar.Overlaps(ra, rb), "bookings %s and %s overlap on %s", a.ID, b.ID, a.ResourceID)
		}
	}
}
