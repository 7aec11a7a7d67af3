package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Poll.IntervalSec)
	assert.True(t, cfg.Poll.StopWhenMissing)
	assert.Equal(t, 30, cfg.API.RequestTimeoutSec)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VIDEO_API_URL", "https://backend.example.com")
	t.Setenv("POLL_INTERVAL_SEC", "2")
	t.Setenv("POLL_STOP_WHEN_MISSING", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://backend.example.com", cfg.API.BaseURL)
	assert.Equal(t, 2, cfg.Poll.IntervalSec)
	assert.False(t, cfg.Poll.StopWhenMissing)
}

func TestBearerTokenFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("tok-abc\n"), 0o600))

	auth := AuthConfig{Token: "ignored", TokenFile: path}
	token, err := auth.BearerToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token, "file wins and is trimmed")
}

func TestBearerTokenMissingFile(t *testing.T) {
	auth := AuthConfig{TokenFile: filepath.Join(t.TempDir(), "gone")}
	_, err := auth.BearerToken()
	assert.Error(t, err)
}
