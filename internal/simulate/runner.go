package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
	pollInterval        = 50 * time.Millisecond
)

// Run plays a generated season against the server at cfg.BaseURL and
// verifies the resulting leaderboard. The server roster is replaced.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting matchday simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("matches", cfg.Matches),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()))

	c := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if _, err := c.Do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and load the roster
	plan := NewGenerator(cfg.Seed).Generate(cfg.Players, cfg.Matches, cfg.DuplicateRate)
	if _, err := c.Do(ctx, http.MethodPut, "/players", plan.Roster, nil, http.StatusNoContent); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	s := season{
		players:  make(map[string]struct{}, len(plan.Roster)),
		matchIDs: make(map[string]struct{}, len(plan.Fixtures)),
	}
	for _, p := range plan.Roster {
		s.players[p.Name] = struct{}{}
	}

	baseline, err := fetchProgress(ctx, c)
	if err != nil {
		return nil, err
	}

	// Step 3: Create, draft and open every fixture, then flood predictions
	var (
		counters submitCounters
		subs     []model.Submission
		ids      = make([]string, len(plan.Fixtures))
	)
	for i := range plan.Fixtures {
		fx := &plan.Fixtures[i]
		id, err := openFixture(ctx, c, fx)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i+1, err)
		}
		ids[i] = id
		s.matchIDs[id] = struct{}{}
		for j := range fx.Submissions {
			fx.Submissions[j].MatchID = id
		}
		subs = append(subs, fx.Submissions...)
	}
	if err := submitPredictions(ctx, c, cfg.Workers, subs, &counters); err != nil {
		return nil, fmt.Errorf("prediction submission failed: %w", err)
	}
	stats.Submitted = int(counters.submitted.Load())
	stats.Accepted = int(counters.accepted.Load())
	stats.Duplicates = int(counters.duplicates.Load())
	stats.Throttled = int(counters.throttled.Load())
	stats.Failed = int(counters.failed.Load())

	// Step 4: Wait for the workers to store what was accepted
	if err := waitForWorkers(ctx, c, baseline+int64(stats.Accepted), cfg.SettleTimeout); err != nil {
		return nil, err
	}

	// Step 5: Play the fixtures in order
	for i, fx := range plan.Fixtures {
		body := map[string]any{"score_red": fx.ScoreRed, "score_blue": fx.ScoreBlue, "comments": "simulated"}
		if _, err := c.Do(ctx, http.MethodPut, "/matches/"+ids[i]+"/result", body, nil, http.StatusOK); err != nil {
			return nil, fmt.Errorf("finish fixture %d: %w", i+1, err)
		}
	}
	stats.Matches = len(plan.Fixtures)

	// Step 6: Verify
	for _, sub := range subs {
		if _, ok := counters.acceptedID.Load(sub.SubmissionID); ok {
			s.predictions = append(s.predictions, sub.Prediction)
			counters.acceptedID.Delete(sub.SubmissionID)
		}
	}
	rows, err := verify(ctx, c, cfg.Workers, s)
	stats.LeaderboardEntries = rows
	if err != nil {
		return stats, fmt.Errorf("verification failed: %w", err)
	}

	// Step 7: Save the season for offline scoring
	if cfg.OutputFile != "" {
		if err := saveSeason(ctx, c, cfg.OutputFile, s); err != nil {
			log.Warn(ctx, "failed to save season", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// openFixture creates the match, drafts its teams and returns its id.
// New matches accept predictions until they are finished.
func openFixture(ctx context.Context, c *Client, fx *Fixture) (string, error) {
	var m model.MatchResult
	in := map[string]any{"date": fx.Date, "venue": fx.Venue, "created_by": "simulate"}
	if _, err := c.Do(ctx, http.MethodPost, "/matches", in, &m, http.StatusCreated); err != nil {
		return "", fmt.Errorf("create match: %w", err)
	}

	var squad struct {
		model.Squad
		RedStrength  float64 `json:"red_strength"`
		BlueStrength float64 `json:"blue_strength"`
	}
	draft := map[string]any{"players": fx.Players, "guests": fx.Guests, "match_id": m.ID}
	if _, err := c.Do(ctx, http.MethodPost, "/squads/draft", draft, &squad, http.StatusOK); err != nil {
		return "", fmt.Errorf("draft: %w", err)
	}
	logger.Get().Debug(ctx, "fixture drafted",
		logger.String("matchID", m.ID),
		logger.Int("red", len(squad.Red)),
		logger.Int("blue", len(squad.Blue)),
		logger.Float64("redStrength", squad.RedStrength),
		logger.Float64("blueStrength", squad.BlueStrength))
	return m.ID, nil
}

// fetchProgress returns how many queued predictions the server workers have
// handled so far, stored, failed or dropped as late.
func fetchProgress(ctx context.Context, c *Client) (int64, error) {
	var stats struct {
		Processed int64 `json:"processed"`
		Failed    int64 `json:"failed"`
		Rejected  int64 `json:"rejected"`
	}
	if _, err := c.Do(ctx, http.MethodGet, "/stats", nil, &stats, http.StatusOK); err != nil {
		return 0, fmt.Errorf("read stats: %w", err)
	}
	return stats.Processed + stats.Failed + stats.Rejected, nil
}

// waitForWorkers polls /stats until at least target predictions have been
// handled or timeout elapses.
func waitForWorkers(ctx context.Context, c *Client, target int64, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		done, err := fetchProgress(ctx, c)
		if err != nil {
			return err
		}
		if done >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for workers: %d of %d handled: %w", done, target, ctx.Err())
		case <-ticker.C:
		}
	}
}

// saveSeason writes the run's matches and accepted predictions in the format
// squadctl score reads.
func saveSeason(ctx context.Context, c *Client, filename string, s season) error {
	var matches []model.MatchResult
	if _, err := c.Do(ctx, http.MethodGet, "/matches", nil, &matches, http.StatusOK); err != nil {
		return err
	}
	data, err := json.MarshalIndent(map[string]any{
		"matches":     s.ownMatches(matches),
		"predictions": s.predictions,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal season: %w", err)
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("write season: %w", err)
	}
	logger.Get().Info(ctx, "season saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("matches", stats.Matches),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("throttled", stats.Throttled),
		logger.Int("failed", stats.Failed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("submissionsPerSecond", perSecond))
}
