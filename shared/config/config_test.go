package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"SERVER_PORT", "LOG_LEVEL", "LOG_FORMAT", "IMAGE_CACHE_DIR", "CATALOG_EPOCH",
	"SQLITE_DB_PATH", "APOD_BASE_URL", "APOD_API_KEY", "APOD_PREFER_HD",
	"APOD_REQUEST_TIMEOUT", "APOD_RATE_LIMIT", "APOD_RATE_BURST",
	"APOD_METADATA_CACHE_SIZE", "APOD_MAX_IMAGE_BYTES",
}

// clearEnv unsets every variable Load reads, restoring them after the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "./images", cfg.ImageDir)
	assert.Equal(t, "1995-06-16", cfg.CatalogEpoch.String())
	assert.Equal(t, "./apod.db", cfg.SQLite.Path)
	assert.Equal(t, "https://api.nasa.gov/planetary/apod", cfg.Nasa.BaseURL)
	assert.Equal(t, "DEMO_KEY", cfg.Nasa.APIKey)
	assert.False(t, cfg.Nasa.PreferHD)
	assert.Equal(t, 30*time.Second, cfg.Nasa.RequestTimeout)
	assert.Equal(t, 1.0, cfg.Nasa.RateLimit)
	assert.Equal(t, 5, cfg.Nasa.RateBurst)
	assert.Equal(t, 128, cfg.Nasa.MetadataCacheSize)
	assert.Equal(t, int64(64<<20), cfg.Nasa.MaxImageBytes)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CATALOG_EPOCH", "2000-01-01")
	t.Setenv("SQLITE_DB_PATH", "/data/apod.db")
	t.Setenv("APOD_PREFER_HD", "true")
	t.Setenv("APOD_REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "2000-01-01", cfg.CatalogEpoch.String())
	assert.Equal(t, "/data/apod.db", cfg.SQLite.Path)
	assert.True(t, cfg.Nasa.PreferHD)
	assert.Equal(t, 5*time.Second, cfg.Nasa.RequestTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port out of range", key: "SERVER_PORT", value: "70000"},
		{name: "port not a number", key: "SERVER_PORT", value: "http"},
		{name: "bad epoch", key: "CATALOG_EPOCH", value: "1995-13-01"},
		{name: "bad timeout", key: "APOD_REQUEST_TIMEOUT", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
