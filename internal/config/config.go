// Package config defines the matchday service configuration and how it is
// layered from defaults, an optional YAML file and MATCHDAY_ environment
// variables.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory prediction submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submission ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Storage is "memory" or "sqlite".
	Storage string `koanf:"storage"`

	// SQLitePath is the database file used when Storage is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// RosterPath optionally seeds the roster at startup (.yaml, .yml or .xlsx).
	RosterPath string `koanf:"roster_path"`

	// Jitter is the amplitude of the random draft perturbation.
	Jitter float64 `koanf:"jitter"`

	// GuestRating is the overall assigned to guest entrants.
	GuestRating float64 `koanf:"guest_rating"`

	// CORSOrigins lists browser origins allowed to call the API. From the
	// environment it is a comma separated list.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		Storage:             StorageMemory,
		SQLitePath:          "matchday.db",
		Jitter:              3,
		GuestRating:         70,
		CORSOrigins:         []string{"*"},
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive, got %d", ErrInvalidConfig, c.MaxLeaderboardLimit)
	case c.Jitter < 0:
		return fmt.Errorf("%w: jitter must not be negative", ErrInvalidConfig)
	case c.GuestRating <= 0:
		return fmt.Errorf("%w: guest_rating must be positive", ErrInvalidConfig)
	}

	switch c.Storage {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for sqlite storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}
	return nil
}
