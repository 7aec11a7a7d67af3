package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds client configuration loaded from environment.
type Config struct {
	API  APIConfig
	Auth AuthConfig
	Poll PollConfig
}

// APIConfig holds backend endpoint settings. Either BaseURL is set directly,
// or ConfigURL points at the web app origin whose /api/config endpoint
// returns the backend URL.
type APIConfig struct {
	BaseURL           string
	ConfigURL         string
	RequestTimeoutSec int
}

// AuthConfig holds the bearer token used for backend calls. TokenFile, when
// set, takes precedence over Token.
type AuthConfig struct {
	Token     string
	TokenFile string
}

// PollConfig holds status polling settings.
type PollConfig struct {
	IntervalSec     int
	StopWhenMissing bool
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		API: APIConfig{
			BaseURL:           getEnv("VIDEO_API_URL", ""),
			ConfigURL:         getEnv("VIDEO_CONFIG_URL", ""),
			RequestTimeoutSec: getEnvInt("VIDEO_REQUEST_TIMEOUT_SEC", 30),
		},
		Auth: AuthConfig{
			Token:     getEnv("VIDEO_AUTH_TOKEN", ""),
			TokenFile: getEnv("VIDEO_AUTH_TOKEN_FILE", ""),
		},
		Poll: PollConfig{
			IntervalSec:     getEnvInt("POLL_INTERVAL_SEC", 5),
			StopWhenMissing: getEnvBool("POLL_STOP_WHEN_MISSING", true),
		},
	}
	return cfg, nil
}

// BearerToken returns the configured token, preferring TokenFile when set.
func (c AuthConfig) BearerToken() (string, error) {
	if c.TokenFile != "" {
		raw, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return c.Token, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
