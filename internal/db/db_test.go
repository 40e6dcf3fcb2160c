package db

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/auntor69/ewu-hub-3.0/internal/config"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

func TestNewGormDB_SQLite(t *testing.T) {
	cfg := &config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "nested", "test.db"),
	}

	gdb, err := NewGormDB(cfg)
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	assert.True(t, gdb.Migrator().HasTable(&model.Booking{}))
	assert.True(t, gdb.Migrator().HasTable(&model.BookingGroup{}))
	assert.True(t, gdb.Migrator().HasTable(&model.AuditLog{}))
}

func TestNewGormDB_UnknownDriver(t *testing.T) {
	_, err := NewGormDB(&config.DBConfig{Driver: "oracle"})
	require.Error(t, err)
}

func TestLogger_SkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "log.db")), &gorm.Config{
		Logger: newLogger(&buf),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	buf.Reset()

	var role model.Role
	err = gdb.Where("code = ?", "nobody").First(&role).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	err = gdb.First(&model.User{}, "id = ?", uuid.New()).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	// real errors still reach the log
	require.Error(t, gdb.Exec("SELECT * FROM no_such_table").Error)
	assert.Contains(t, buf.String(), "no_such_table")
}
