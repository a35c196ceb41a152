package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/sync/errgroup"

	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/internal/domain/scoring"
	"github.com/smfc/matchday/internal/domain/types"
	"github.com/smfc/matchday/pkg/logger"
)

// ErrMismatch is returned when the server disagrees with the local
// computation.
var ErrMismatch = errors.New("server result mismatch")

// season is what a run created on the server.
type season struct {
	players     map[string]struct{}
	matchIDs    map[string]struct{}
	predictions []model.Prediction
}

// expected computes the leaderboard rows of the run's players from the
// server's view of the run's matches.
func (s season) expected(matches []model.MatchResult) []model.LeaderboardEntry {
	return scoring.BuildLeaderboard(s.ownMatches(matches), s.predictions)
}

func (s season) ownMatches(matches []model.MatchResult) []model.MatchResult {
	out := make([]model.MatchResult, 0, len(s.matchIDs))
	for _, m := range matches {
		if _, ok := s.matchIDs[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out
}

// verify compares the server leaderboard, per-player ranks and last-match
// top scorers with a local computation. It returns the number of leaderboard
// rows that belong to the run.
func verify(ctx context.Context, c *Client, workers int, s season) (int, error) {
	var matches []model.MatchResult
	if _, err := c.Do(ctx, http.MethodGet, "/matches", nil, &matches, http.StatusOK); err != nil {
		return 0, err
	}
	var board []types.Entry
	if _, err := c.Do(ctx, http.MethodGet, "/leaderboard", nil, &board, http.StatusOK); err != nil {
		return 0, err
	}

	want := s.expected(matches)
	got := make([]model.LeaderboardEntry, 0, len(want))
	ranks := make(map[string]int, len(want))
	for _, e := range board {
		if _, ok := s.players[e.Name]; ok {
			got = append(got, e.LeaderboardEntry)
			ranks[e.Name] = e.Rank
		}
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		return len(got), fmt.Errorf("%w: leaderboard (-want +got):\n%s", ErrMismatch, diff)
	}

	if err := verifyRanks(ctx, c, workers, got, ranks); err != nil {
		return len(got), err
	}
	return len(got), verifyLastMatch(ctx, c, s, matches)
}

func verifyRanks(ctx context.Context, c *Client, workers int, rows []model.LeaderboardEntry, ranks map[string]int) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, row := range rows {
		g.Go(func() error {
			var entry types.Entry
			if _, err := c.Do(gCtx, http.MethodGet, "/rank/"+url.PathEscape(row.Name), nil, &entry, http.StatusOK); err != nil {
				return err
			}
			want := types.Entry{Rank: ranks[row.Name], LeaderboardEntry: row}
			if diff := cmp.Diff(want, entry); diff != "" {
				return fmt.Errorf("%w: rank of %s (-want +got):\n%s", ErrMismatch, row.Name, diff)
			}
			return nil
		})
	}
	return g.Wait()
}

// verifyLastMatch checks the top scorers when the most recent completed
// match on the server is one of the run's own.
func verifyLastMatch(ctx context.Context, c *Client, s season, matches []model.MatchResult) error {
	last, ok := scoring.LastCompleted(matches)
	if !ok {
		return fmt.Errorf("%w: no completed match on the server", ErrMismatch)
	}
	if _, own := s.matchIDs[last.ID]; !own {
		logger.Get().Warn(ctx, "last completed match belongs to another run; skipping top scorers", logger.String("matchID", last.ID))
		return nil
	}

	var top model.TopScorers
	if _, err := c.Do(ctx, http.MethodGet, "/leaderboard/last-match", nil, &top, http.StatusOK); err != nil {
		return err
	}
	want := scoring.TopScorersOfLastMatch(s.ownMatches(matches), s.predictions)
	if diff := cmp.Diff(*want, top, cmpopts.SortSlices(func(a, b string) bool { return a < b }), cmpopts.EquateEmpty()); diff != "" {
		return fmt.Errorf("%w: last match top scorers (-want +got):\n%s", ErrMismatch, diff)
	}
	return nil
}
