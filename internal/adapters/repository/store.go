// Package repository persists the roster, matches and predictions.
package repository

import (
	"context"
	"time"

	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/pkg/metrics"
)

// Counts summarizes what a store holds.
type Counts struct {
	Players     int `json:"players"`
	Matches     int `json:"matches"`
	Predictions int `json:"predictions"`
}

// Store provides read/write access to club data.
//
// Matches and Predictions return rows in creation order; two matches created
// at the same instant keep the order in which they were first saved.
type Store interface {
	// ReplaceRoster swaps the whole roster for players.
	ReplaceRoster(ctx context.Context, players []model.RatedPlayer) error
	// Roster returns every player sorted by name.
	Roster(ctx context.Context) ([]model.RatedPlayer, error)
	// Player looks a player up by exact name. Returns ErrNotFound if unknown.
	Player(ctx context.Context, name string) (model.RatedPlayer, error)

	// SaveMatch inserts or updates a match. An empty ID and a zero CreatedAt
	// are filled in; the stored match is returned.
	SaveMatch(ctx context.Context, m model.MatchResult) (model.MatchResult, error)
	Match(ctx context.Context, id string) (model.MatchResult, error)
	Matches(ctx context.Context) ([]model.MatchResult, error)
	// DeleteMatch removes a match and its predictions.
	DeleteMatch(ctx context.Context, id string) error

	// UpsertPrediction stores p keyed by (MatchID, PlayerName). An existing
	// prediction keeps its ID and CreatedAt and takes the new forecast.
	// The match is checked in the same step as the write: ErrNotFound if it
	// is gone, ErrPredictionsClosed if it no longer accepts predictions.
	UpsertPrediction(ctx context.Context, p model.Prediction) (model.Prediction, error)
	Predictions(ctx context.Context) ([]model.Prediction, error)
	PredictionsForMatch(ctx context.Context, matchID string) ([]model.Prediction, error)
	DeletePrediction(ctx context.Context, matchID, playerName string) error

	Counts(ctx context.Context) (Counts, error)
	Close() error
}

func validatePrediction(p model.Prediction) error {
	if p.MatchID == "" || p.PlayerName == "" {
		return ErrInvalidInput
	}
	return nil
}

// observe records the latency and outcome of one store call. Call it
// deferred with a pointer to the named error result.
func observe(op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	metrics.RecordStoreOperation(op, float64(time.Since(start).Microseconds())/1000, err)
}

// normalizeMatch gives every stored match non-nil team slices and a UTC timestamp.
func normalizeMatch(m model.MatchResult) model.MatchResult {
	if m.RedTeam == nil {
		m.RedTeam = []string{}
	}
	if m.BlueTeam == nil {
		m.BlueTeam = []string{}
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m
}
