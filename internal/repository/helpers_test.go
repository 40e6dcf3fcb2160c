package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/auntor69/ewu-hub-3.0/internal/config"
	"github.com/auntor69/ewu-hub-3.0/internal/db"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.NewGormDB(&config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "repo.db"),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, email string) model.User {
	t.Helper()
	u := model.User{Email: email, FullName: email, Active: true}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func seedSeats(t *testing.T, gdb *gorm.DB, n int) []model.Resource {
	t.Helper()
	out := make([]model.Resource, n)
	for i := range out {
		table := 1
		out[i] = model.Resource{
			Kind:    model.ResourceKindLibrarySeat,
			Label:   fmt.Sprintf("Seat %d", i+1),
			Code:    fmt.Sprintf("T1-S%d", i+1),
			TableNo: &table,
			Active:  true,
		}
		require.NoError(t, gdb.Create(&out[i]).Error)
	}
	return out
}

func booking(resourceID, userID uuid.UUID, start time.Time, d time.Duration) model.Booking {
	return model.Booking{
		ResourceID: resourceID,
		BookedBy:   userID,
		BookedFor:  userID,
		StartAt:    start,
		EndAt:      start.Add(d),
		Status:     model.BookingStatusConfirmed,
	}
}

func ptr[T any](v T) *T { return &v }

var ctx = context.Background()

// base is a fixed whole-minute instant so stored timestamps compare cleanly.
var base = time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
