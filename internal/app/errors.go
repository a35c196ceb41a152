package service

import (
	"errors"

	"github.com/smfc/matchday/internal/adapters/repository"
	"github.com/smfc/matchday/internal/domain/squad"
)

// Sentinel kinds returned by Service. Callers match them with errors.Is.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrNotFound          = repository.ErrNotFound
	ErrPlayerNotFound    = squad.ErrPlayerNotFound
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrTooFewPlayers     = errors.New("at least two entrants are required")
	ErrInvalidStatus     = errors.New("invalid match status")
	ErrInvalidScore      = errors.New("invalid score")
	ErrInvalidLimit      = errors.New("invalid leaderboard limit")
	ErrInvalidSubmission = errors.New("invalid prediction submission")
	ErrPredictionsClosed = repository.ErrPredictionsClosed
	ErrBackpressure      = errors.New("prediction queue is full")
)
