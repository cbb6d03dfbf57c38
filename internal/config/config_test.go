package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "users.db", cfg.DatabaseDSN)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Len(t, cfg.JWTSecret, 64, "a random secret is generated when none is configured")

	other, err := Load(nil)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.JWTSecret, other.JWTSecret)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://localhost/noshow")
	t.Setenv("MODEL_PATH", "s3://models/noshow.json")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("S3_ENDPOINT", "http://127.0.0.1:9000")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://localhost/noshow", cfg.DatabaseDSN)
	assert.Equal(t, "s3://models/noshow.json", cfg.ModelPath)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 45*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.S3Endpoint)
}

func TestLoad_BadEnvValuesKeepDefaults(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")
	t.Setenv("BCRYPT_COST", "high")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")

	cfg, err := Load([]string{"-a", "127.0.0.1:7000", "-m", "model.json", "-data", "trends.csv", "-t", "1h", "-s", "flag-secret"})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.HTTPAddr)
	assert.Equal(t, "model.json", cfg.ModelPath)
	assert.Equal(t, "trends.csv", cfg.DatasetPath)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "flag-secret", cfg.JWTSecret)
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, err := Load([]string{"-nope"})
	assert.Error(t, err)
}
