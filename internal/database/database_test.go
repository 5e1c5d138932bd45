package database

import (
	"testing"
	"time"

	"unitoku/internal/config"
	"unitoku/internal/middleware"
	"unitoku/internal/models"
	"unitoku/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: NewGormLogger(middleware.Logger).LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	err := configurePool(db, &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_Defaults(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db, &config.Config{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=postgres sslmode=disable", DSN(cfg, "postgres"))

	cfg.DBSSLMode = "require"
	assert.Contains(t, DSN(cfg, "unitoku"), "dbname=unitoku sslmode=require")
}

func TestAutoMigrate_CreatesEveryTable(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestRegisterQueryMetrics(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, RegisterQueryMetrics(db))
	require.NoError(t, AutoMigrate(db))

	before := testutil.CollectAndCount(observability.DatabaseQueryLatency)
	require.NoError(t, db.Create(&models.Category{Name: "計測"}).Error)
	var got models.Category
	require.NoError(t, db.First(&got, "name = ?", "計測").Error)

	assert.Greater(t, testutil.CollectAndCount(observability.DatabaseQueryLatency), before)
}

func TestCustomGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(middleware.Logger)
	silent := l.LogMode(logger.Silent).(*CustomGormLogger)

	assert.Equal(t, logger.Silent, silent.Config.LogLevel)
	assert.Equal(t, logger.Warn, l.Config.LogLevel)
	assert.Equal(t, 200*time.Millisecond, silent.Config.SlowThreshold)
}
