// Package simulate drives a running matchday server through a generated
// season: it loads a roster, drafts and plays fixtures, floods the server
// with predictions and checks the published leaderboard against a local
// computation.
package simulate

import (
	"errors"
	"time"
)

// Default configuration values.
const (
	DefaultPlayers       = 20
	DefaultMatches       = 5
	DefaultWorkers       = 8
	DefaultTimeout       = 10 * time.Second
	DefaultSettleTimeout = 30 * time.Second
	DefaultDuplicateRate = 0.1
)

// Config holds configuration for a simulated season.
type Config struct {
	BaseURL       string        // Base URL of the service
	Players       int           // Roster size
	Matches       int           // Fixtures to play
	Workers       int           // Concurrent prediction submitters
	Timeout       time.Duration // HTTP request timeout
	SettleTimeout time.Duration // How long to wait for queued predictions to be stored
	DuplicateRate float64       // Share of submissions sent twice with the same id
	Seed          uint64        // Generator seed, 0 for a random one
	OutputFile    string        // Optional file receiving matches and predictions
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.New("base url is required")
	case c.Players < 2:
		return errors.New("at least two players are required")
	case c.Matches < 1:
		return errors.New("at least one match is required")
	case c.Workers < 1:
		return errors.New("at least one worker is required")
	case c.DuplicateRate < 0 || c.DuplicateRate > 1:
		return errors.New("duplicate rate must be within [0, 1]")
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Matches            int
	Submitted          int
	Accepted           int
	Duplicates         int
	Throttled          int
	Failed             int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
