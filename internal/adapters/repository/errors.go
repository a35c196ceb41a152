package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid store input")
	// ErrPredictionsClosed is returned by UpsertPrediction when the match is
	// completed or no longer takes forecasts.
	ErrPredictionsClosed = errors.New("predictions are closed for this match")
)
