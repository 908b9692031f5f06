package database

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyspect/inspection/internal/model"
)

func newSqliteManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(zerolog.Nop())
	db, err := m.GetSqliteDB("")
	require.NoError(t, err)
	m.DB = db
	m.IsValid = true
	m.ShouldSaveLocal = true
	return m
}

func TestGetSqliteDB_InMemory(t *testing.T) {
	m := newSqliteManager(t)
	sqlDB, err := m.DB.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}

func TestSetup_MigratesSchemaAndSeedsSite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("site.name", "Test Bridge")
	viper.Set("site.latitude", 47.5)
	viper.Set("site.longitude", 7.6)

	m := newSqliteManager(t)
	require.NoError(t, m.Setup())

	for _, tbl := range model.DatabaseModels {
		assert.True(t, m.DB.Migrator().HasTable(tbl), "missing table for %T", tbl)
	}

	var site model.Site
	require.NoError(t, m.DB.Where("name = ?", "Test Bridge").First(&site).Error)
	assert.Equal(t, 47.5, site.Latitude)

	// Setup is idempotent: the site must not be duplicated.
	require.NoError(t, m.Setup())
	var count int64
	m.DB.Model(&model.Site{}).Where("name = ?", "Test Bridge").Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestDumpMemoryToDisk_RequiresPath(t *testing.T) {
	m := newSqliteManager(t)
	assert.Error(t, m.DumpMemoryToDisk())
}

func TestDumpMemoryToDisk(t *testing.T) {
	t.Cleanup(viper.Reset)
	m := newSqliteManager(t)
	require.NoError(t, m.Setup())

	m.SqliteFilePath = t.TempDir() + "/dump.db"
	require.NoError(t, m.DumpMemoryToDisk())
	assert.FileExists(t, m.SqliteFilePath)
}
