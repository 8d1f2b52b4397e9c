package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("WS_URL", "")
	t.Setenv("STATE_DIR", t.TempDir())
	t.Setenv("HTTP_TIMEOUT", "")
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8080/update", cfg.WSURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 8080, cfg.Port)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.DatabasePath)
}

func TestLoadConfigDerivesSecureWSURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://blog.example.com/api")
	t.Setenv("WS_URL", "")
	t.Setenv("STATE_DIR", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "wss://blog.example.com/update", cfg.WSURL)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("STATE_DIR", t.TempDir())

	t.Run("invalid base url", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "not a url")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "")
		t.Setenv("HTTP_TIMEOUT", "soon")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("privileged port", func(t *testing.T) {
		t.Setenv("HTTP_TIMEOUT", "")
		t.Setenv("PORT", "80")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("missing secret outside development", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
