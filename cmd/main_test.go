package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/auntor69/ewu-hub-3.0/internal/config"
	"github.com/auntor69/ewu-hub-3.0/internal/db"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
	"github.com/auntor69/ewu-hub-3.0/internal/reservation"
)

func TestSweepStopsOnCancel(t *testing.T) {
	gdb, err := db.NewGormDB(&config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "sweep.db"),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	core := reservation.New(
		repository.NewGormBookingRepository(gdb),
		repository.NewGormResourceRepository(gdb),
		repository.NewGormOpeningHoursRepository(gdb),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweep(ctx, core, 5*time.Millisecond, zerolog.Nop())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
