package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "http://localhost:8000/api", cfg.APIBase)
	assert.Equal(t, "hygiene_snapshot.db", cfg.SnapshotDBPath)
	assert.False(t, cfg.UseCredentials)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, 15, cfg.HTTPTimeoutSeconds)
	assert.Equal(t, 2, cfg.HTTPRetries)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HYGIENE_API_BASE", "https://example.test/api/")
	t.Setenv("HYGIENE_SNAPSHOT_DB", "/tmp/snap.db")
	t.Setenv("HYGIENE_USE_CREDENTIALS", "true")
	t.Setenv("HYGIENE_TIMEZONE", "UTC")
	t.Setenv("HYGIENE_HTTP_TIMEOUT_SECONDS", "30")
	t.Setenv("HYGIENE_HTTP_RETRIES", "0")

	cfg := FromEnv()

	// trailing slash is stripped so path joining stays predictable
	assert.Equal(t, "https://example.test/api", cfg.APIBase)
	assert.Equal(t, "/tmp/snap.db", cfg.SnapshotDBPath)
	assert.True(t, cfg.UseCredentials)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 30, cfg.HTTPTimeoutSeconds)
	assert.Equal(t, 0, cfg.HTTPRetries)
}

func TestFromEnvBadNumbersFallBack(t *testing.T) {
	t.Setenv("HYGIENE_HTTP_TIMEOUT_SECONDS", "soon")
	t.Setenv("HYGIENE_USE_CREDENTIALS", "maybe")

	cfg := FromEnv()
	assert.Equal(t, 15, cfg.HTTPTimeoutSeconds)
	assert.False(t, cfg.UseCredentials)
}
