package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/HaiNguyen26/Meals-RMG/config"
)

type sampleRow struct {
	ID   int `gorm:"primaryKey"`
	Name string
}

func TestNewDB_SQLiteAndMigrate(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:     DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "meals.db"),
	}

	db, err := NewDB(cfg, "error", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, Migrate(db, DriverSQLite, zap.NewNop(), &sampleRow{}))
	require.NoError(t, db.Create(&sampleRow{ID: 1, Name: "Sales"}).Error)

	var got sampleRow
	require.NoError(t, db.First(&got, 1).Error)
	assert.Equal(t, "Sales", got.Name)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestNewDB_UnknownDriver(t *testing.T) {
	_, err := NewDB(&config.DatabaseConfig{Driver: "mysql"}, "info", zap.NewNop())
	assert.Error(t, err)
}

func TestMigrate_UnknownDriver(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: DriverSQLite, SQLitePath: ":memory:"}
	db, err := NewDB(cfg, "error", zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, Migrate(db, "mysql", zap.NewNop()))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, gormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel("info"))
	assert.Equal(t, gormlogger.Error, gormLogLevel("error"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
