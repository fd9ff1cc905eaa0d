package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "", cfg.APIPrefix)
	assert.Equal(t, time.Hour, cfg.DBMaxConnLife)
	assert.Equal(t, "user-events", cfg.RabbitMQEventsQueue)
	assert.True(t, cfg.MailSendEnabled)
	assert.Empty(t, cfg.CORSOrigins())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("API_PREFIX", "/api/")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("DB_MAX_CONN_LIFETIME", "90s")
	t.Setenv("MAIL_SEND_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test, ,http://b.test ")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, 90*time.Second, cfg.DBMaxConnLife)
	assert.False(t, cfg.MailSendEnabled)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "three")
	t.Setenv("HTTP_LOG_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.HTTPLogEnabled)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5433", DBName: "users", DBSSLMode: "require"}
	assert.Equal(t, "postgres://u:p@db:5433/users?sslmode=require", cfg.PostgresDSN())
}
