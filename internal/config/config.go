// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the runtime settings for the relay service, all of them
// derived from environment variables.
type Config struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string
	// ClientDir is the directory holding the static client entry
	// document.
	ClientDir string
	// SessionBuffer is the per-connection outbound channel capacity.
	SessionBuffer int
	// StateSyncTimeout bounds how long a dungeon-state request to a
	// host stays open.
	StateSyncTimeout time.Duration
	// RedisAddr enables the event journal when non-empty.
	RedisAddr string
	// RedisDB selects the Redis database index for the journal.
	RedisDB int
	// JournalQueue is the Redis list the journal pushes onto.
	JournalQueue string
}

// FromEnv builds a Config from the environment, falling back to
// defaults for anything unset:
//   - PORT (default "3000")
//   - CLIENT_DIR (default "./client")
//   - SESSION_BUFFER (default 16)
//   - STATE_SYNC_TIMEOUT (default "10s")
//   - REDIS_ADDR (default "", journal disabled)
//   - REDIS_DB (default 0)
//   - JOURNAL_QUEUE (default "dungeon_events")
func FromEnv() Config {
	return Config{
		Addr:             ":" + getEnv("PORT", "3000"),
		ClientDir:        getEnv("CLIENT_DIR", "./client"),
		SessionBuffer:    getEnvInt("SESSION_BUFFER", 16),
		StateSyncTimeout: getEnvDuration("STATE_SYNC_TIMEOUT", 10*time.Second),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		JournalQueue:     getEnv("JOURNAL_QUEUE", "dungeon_events"),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration is a helper to parse an environment variable as a
// duration, else a default value.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
