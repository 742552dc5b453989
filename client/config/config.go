package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "QUIZROOM_"

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	APIURL             string
	WSURL              string
	LogLevel           string
	RequestTimeout     time.Duration
	HandoffTTL         time.Duration
	ReconnectAttempts  int
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	ChatLines          int
}

func Default() Config {
	return Config{
		APIURL:             "http://localhost:8000/api",
		WSURL:              "ws://localhost:8000",
		LogLevel:           "info",
		RequestTimeout:     10 * time.Second,
		HandoffTTL:         30 * time.Minute,
		ReconnectBaseDelay: time.Second,
		ReconnectMaxDelay:  30 * time.Second,
		ChatLines:          8,
	}
}

// Load applies QUIZROOM_* environment overrides to the defaults.
// Malformed values are ignored.
func Load() Config {
	cfg := Default()
	if raw := getenv("API_URL"); raw != "" {
		cfg.APIURL = raw
	}
	if raw := getenv("WS_URL"); raw != "" {
		cfg.WSURL = raw
	}
	if raw := getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if value, ok := duration("REQUEST_TIMEOUT"); ok && value > 0 {
		cfg.RequestTimeout = value
	}
	if value, ok := duration("HANDOFF_TTL"); ok && value > 0 {
		cfg.HandoffTTL = value
	}
	if raw := getenv("RECONNECT_ATTEMPTS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.ReconnectAttempts = value
		}
	}
	if value, ok := duration("RECONNECT_BASE_DELAY"); ok && value > 0 {
		cfg.ReconnectBaseDelay = value
	}
	if value, ok := duration("RECONNECT_MAX_DELAY"); ok && value > 0 {
		cfg.ReconnectMaxDelay = value
	}
	if raw := getenv("CHAT_LINES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ChatLines = value
		}
	}
	return cfg
}

func getenv(name string) string {
	return os.Getenv(envPrefix + name)
}

// duration accepts Go durations ("1500ms") and plain seconds ("2").
func duration(name string) (time.Duration, bool) {
	raw := getenv(name)
	if raw == "" {
		return 0, false
	}
	if value, err := time.ParseDuration(raw); err == nil {
		return value, true
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}
