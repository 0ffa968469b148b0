package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("APP_URL", "https://app.example.com/")
	t.Setenv("AUTH_LOCKOUT_DURATION", "10m")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("STORE_RETRY_ATTEMPTS", "not-a-number")

	require.NoError(t, LoadConfig())
	assert.Equal(t, "sqlite", AppConfig.DBDriver)
	assert.Equal(t, "https://app.example.com", AppConfig.AppURL)
	assert.Equal(t, 10*time.Minute, AppConfig.Auth.LockoutDuration)
	assert.Equal(t, 5, AppConfig.Auth.MaxFailedAttempts)
	assert.Equal(t, 3, AppConfig.Auth.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, AppConfig.Auth.RetryBackoff)
	assert.True(t, AppConfig.Redis.Enabled)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.EqualError(t, LoadConfig(), "JWT_SECRET is required")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PASSWORD", "")
	assert.EqualError(t, LoadConfig(), "DB_PASSWORD is required")

	t.Setenv("DB_DRIVER", "mysql")
	assert.Error(t, LoadConfig())

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SMTP_HOST", "")
	assert.EqualError(t, LoadConfig(), "SMTP_HOST is required in production")
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t,
		"host=db port=5432 user=app password=***** dbname=pf sslmode=disable",
		maskPassword("host=db port=5432 user=app password=hunter2 dbname=pf sslmode=disable"))
	assert.Equal(t, "user=app password=*****", maskPassword("user=app password=hunter2"))
	assert.Equal(t, "host=db", maskPassword("host=db"))
}

func TestOpenDBAndMigrateSQLite(t *testing.T) {
	db, err := OpenDB(Config{DBDriver: "sqlite", SQLitePath: "file::memory:", Environment: "test"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "projects", "tasks", "subtasks", "comments", "attachments", "time_logs", "notifications", "activity_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
