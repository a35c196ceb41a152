package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smfc/matchday/internal/adapters/mq/queue"
	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/internal/domain/scoring"
	"github.com/smfc/matchday/internal/domain/types"
	"github.com/smfc/matchday/pkg/logger"
	"github.com/smfc/matchday/pkg/metrics"
)

// Enqueue validates a submission and queues it for the workers. It reports
// duplicate=true, with a nil error, when the submission id was already seen.
// Submissions without an id get a fresh one and are never duplicates.
func (s *Service) Enqueue(ctx context.Context, sub model.Submission) (duplicate bool, err error) { //nolint:gocritic // hugeParam: mirrors the queue API
	s.mu.RLock()
	started, dd, q := s.started, s.deduper, s.queue
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}

	if err := normalizeSubmission(&sub); err != nil {
		metrics.RecordPredictionRejected("invalid")
		return false, err
	}

	m, err := s.store.Match(ctx, sub.MatchID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordPredictionRejected("unknown_match")
		}
		return false, err
	}
	if !m.AcceptsPredictions() {
		metrics.RecordPredictionRejected("closed")
		return false, fmt.Errorf("%w: %s", ErrPredictionsClosed, m.ID)
	}

	if dd.SeenAndRecord(ctx, sub.SubmissionID) {
		metrics.RecordPredictionDuplicate()
		return true, nil
	}

	if err := q.Enqueue(ctx, sub); err != nil {
		dd.Unrecord(ctx, sub.SubmissionID)
		switch {
		case errors.Is(err, queue.ErrFull):
			return false, ErrBackpressure
		case errors.Is(err, queue.ErrClosed):
			return false, ErrNotStarted
		default:
			return false, err
		}
	}
	metrics.RecordPredictionReceived()
	metrics.UpdateQueueSize(q.Len(ctx))
	return false, nil
}

func normalizeSubmission(sub *model.Submission) error {
	sub.SubmissionID = strings.TrimSpace(sub.SubmissionID)
	sub.MatchID = strings.TrimSpace(sub.MatchID)
	sub.PlayerName = strings.TrimSpace(sub.PlayerName)
	if sub.MatchID == "" || sub.PlayerName == "" {
		return fmt.Errorf("%w: match_id and player_name are required", ErrInvalidSubmission)
	}

	raw := sub.Winner
	sub.Winner = model.ParseOutcome(string(raw))
	if raw != "" && sub.Winner == model.OutcomeUnknown {
		return fmt.Errorf("%w: unknown winner %q", ErrInvalidSubmission, raw)
	}
	if (sub.ScoreRed != nil && *sub.ScoreRed < 0) || (sub.ScoreBlue != nil && *sub.ScoreBlue < 0) {
		return fmt.Errorf("%w: goals cannot be negative", ErrInvalidSubmission)
	}
	if sub.Winner == model.OutcomeUnknown && (sub.ScoreRed == nil || sub.ScoreBlue == nil) {
		return fmt.Errorf("%w: a winner or both scores are required", ErrInvalidSubmission)
	}

	if sub.SubmissionID == "" {
		sub.SubmissionID = uuid.NewString()
	}
	sub.ID = ""
	sub.CreatedAt = time.Time{}
	return nil
}

// DeletePrediction removes one player's forecast for a match.
func (s *Service) DeletePrediction(ctx context.Context, matchID, player string) error {
	if err := s.store.DeletePrediction(ctx, matchID, player); err != nil {
		return err
	}
	s.refreshCounts(ctx)
	return nil
}

// ScoredPredictions lists the predictions for a match with their points.
func (s *Service) ScoredPredictions(ctx context.Context, matchID string) ([]model.ScoredPrediction, error) {
	m, err := s.store.Match(ctx, matchID)
	if err != nil {
		return nil, err
	}
	preds, err := s.store.PredictionsForMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	out := make([]model.ScoredPrediction, len(preds))
	for i, p := range preds {
		out[i] = model.ScoredPrediction{Prediction: p, Points: scoring.ScorePrediction(p, m)}
	}
	return out, nil
}

// Leaderboard returns the top limit ranked rows. A limit of 0 returns all.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	rows, err := s.rankedLeaderboard(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

// Rank returns the leaderboard row of one player.
func (s *Service) Rank(ctx context.Context, player string) (types.Entry, error) {
	rows, err := s.rankedLeaderboard(ctx)
	if err != nil {
		return types.Entry{}, err
	}
	player = strings.TrimSpace(player)
	for _, row := range rows {
		if row.Name == player {
			return row, nil
		}
	}
	return types.Entry{}, fmt.Errorf("player %q: %w", player, ErrNotFound)
}

// LastMatchTopScorers reports the best predictors of the latest completed
// match, or nil when no match is completed.
func (s *Service) LastMatchTopScorers(ctx context.Context) (*model.TopScorers, error) {
	matches, preds, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.TopScorersOfLastMatch(matches, preds), nil
}

func (s *Service) rankedLeaderboard(ctx context.Context) ([]types.Entry, error) {
	start := time.Now()
	matches, preds, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rows := types.Rank(scoring.BuildLeaderboard(matches, preds))
	metrics.RecordLeaderboardBuild(float64(time.Since(start).Microseconds()) / 1000)
	return rows, nil
}

func (s *Service) snapshot(ctx context.Context) ([]model.MatchResult, []model.Prediction, error) {
	matches, err := s.store.Matches(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load matches: %w", err)
	}
	preds, err := s.store.Predictions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load predictions: %w", err)
	}
	return matches, preds, nil
}

// GetStats returns service statistics and refreshes the matching gauges.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	started, dd, q, pool := s.started, s.deduper, s.queue, s.pool
	s.mu.RUnlock()

	stats := map[string]any{"started": started}

	if c, err := s.store.Counts(ctx); err == nil {
		stats["roster_size"] = c.Players
		stats["match_count"] = c.Matches
		stats["prediction_count"] = c.Predictions
		metrics.UpdateStoreCounts(c.Players, c.Matches, c.Predictions)
	} else {
		s.log().Warn(ctx, "store counts unavailable", logger.Error(err))
	}

	if !started {
		return stats
	}
	qLen := q.Len(ctx)
	stats["queue_len"] = qLen
	stats["queue_capacity"] = q.Capacity()
	stats["dedupe_size"] = dd.Size()
	stats["worker_count"] = pool.Size()
	stats["processed"] = pool.Processed()
	stats["failed"] = pool.Failed()
	stats["rejected"] = pool.Rejected()

	metrics.UpdateQueueSize(qLen)
	metrics.UpdateQueueCapacity(q.Capacity())
	return stats
}
