package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/config"
	"tasktracker/internal/model"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "postgres"})
	assert.Error(t, err)
}

func TestMigrateAndReset(t *testing.T) {
	gormDB, err := Open(&config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "app.db"),
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(gormDB))
	assert.True(t, gormDB.Migrator().HasTable("task"))
	assert.True(t, gormDB.Migrator().HasTable("user"))
	assert.True(t, gormDB.Migrator().HasColumn(&model.User{}, "password"))

	require.NoError(t, Reset(gormDB))
	assert.False(t, gormDB.Migrator().HasTable("task"))
	assert.False(t, gormDB.Migrator().HasTable("user"))

	// dropping again is harmless
	require.NoError(t, Reset(gormDB))
}
