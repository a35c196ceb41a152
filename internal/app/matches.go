package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/pkg/logger"
)

// MatchInput describes a fixture to create. Supplying both scores creates
// it already completed, which is how past results are back-filled.
type MatchInput struct {
	Date      string   `json:"date"`
	Venue     string   `json:"venue"`
	Kickoff   string   `json:"kickoff"`
	Format    string   `json:"format"`
	RedTeam   []string `json:"red_team"`
	BlueTeam  []string `json:"blue_team"`
	ScoreRed  *int     `json:"score_red"`
	ScoreBlue *int     `json:"score_blue"`
	Comments  string   `json:"comments"`
	CreatedBy string   `json:"created_by"`
}

// CreateMatch stores a new fixture open for predictions.
func (s *Service) CreateMatch(ctx context.Context, in MatchInput) (model.MatchResult, error) {
	m := model.MatchResult{
		Date:             strings.TrimSpace(in.Date),
		Venue:            strings.TrimSpace(in.Venue),
		Kickoff:          strings.TrimSpace(in.Kickoff),
		Format:           strings.TrimSpace(in.Format),
		RedTeam:          trimNames(in.RedTeam),
		BlueTeam:         trimNames(in.BlueTeam),
		Status:           model.MatchDraft,
		Comments:         in.Comments,
		AllowPredictions: true,
		CreatedBy:        in.CreatedBy,
	}
	if m.Venue == "" {
		m.Venue = DefaultVenue
	}
	if m.Format == "" {
		m.Format = DefaultFormat
	}

	switch {
	case in.ScoreRed != nil && in.ScoreBlue != nil:
		if err := checkScore(*in.ScoreRed, *in.ScoreBlue); err != nil {
			return model.MatchResult{}, err
		}
		m.ScoreRed, m.ScoreBlue = model.Goals(*in.ScoreRed), model.Goals(*in.ScoreBlue)
		m.Status = model.MatchCompleted
		m.AllowPredictions = false
	case in.ScoreRed != nil || in.ScoreBlue != nil:
		return model.MatchResult{}, fmt.Errorf("%w: both scores are required", ErrInvalidScore)
	}

	saved, err := s.store.SaveMatch(ctx, m)
	if err != nil {
		return model.MatchResult{}, err
	}
	s.refreshCounts(ctx)
	s.log().Info(ctx, "match created",
		logger.String("match_id", saved.ID),
		logger.String("status", string(saved.Status)),
	)
	return saved, nil
}

// Match returns one match.
func (s *Service) Match(ctx context.Context, id string) (model.MatchResult, error) {
	return s.store.Match(ctx, id)
}

// Matches returns every match, oldest first.
func (s *Service) Matches(ctx context.Context) ([]model.MatchResult, error) {
	return s.store.Matches(ctx)
}

// ActiveMatch returns the newest match that is not completed.
func (s *Service) ActiveMatch(ctx context.Context) (model.MatchResult, error) {
	all, err := s.store.Matches(ctx)
	if err != nil {
		return model.MatchResult{}, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status != model.MatchCompleted {
			return all[i], nil
		}
	}
	return model.MatchResult{}, fmt.Errorf("active match: %w", ErrNotFound)
}

// SetTeams records the lineups, typically straight from a draft.
func (s *Service) SetTeams(ctx context.Context, id string, red, blue []string) (model.MatchResult, error) {
	return s.updateMatch(ctx, id, func(m *model.MatchResult) error {
		m.RedTeam, m.BlueTeam = trimNames(red), trimNames(blue)
		return nil
	})
}

// UpdateScore sets a running score without completing the match.
func (s *Service) UpdateScore(ctx context.Context, id string, red, blue int) (model.MatchResult, error) {
	if err := checkScore(red, blue); err != nil {
		return model.MatchResult{}, err
	}
	return s.updateMatch(ctx, id, func(m *model.MatchResult) error {
		m.ScoreRed, m.ScoreBlue = model.Goals(red), model.Goals(blue)
		return nil
	})
}

// SetMatchStatus moves a match to any lifecycle state. Completing a match
// this way does not require scores; such a match is simply not scorable.
func (s *Service) SetMatchStatus(ctx context.Context, id string, status model.MatchStatus) (model.MatchResult, error) {
	status = model.MatchStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return model.MatchResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.updateMatch(ctx, id, func(m *model.MatchResult) error {
		m.Status = status
		if status == model.MatchCompleted {
			m.AllowPredictions = false
		}
		return nil
	})
}

// FinishMatch records the final score and completes the match.
func (s *Service) FinishMatch(ctx context.Context, id string, red, blue int, comments string) (model.MatchResult, error) {
	if err := checkScore(red, blue); err != nil {
		return model.MatchResult{}, err
	}
	m, err := s.updateMatch(ctx, id, func(m *model.MatchResult) error {
		m.ScoreRed, m.ScoreBlue = model.Goals(red), model.Goals(blue)
		m.Status = model.MatchCompleted
		m.AllowPredictions = false
		if comments != "" {
			m.Comments = comments
		}
		return nil
	})
	if err != nil {
		return model.MatchResult{}, err
	}
	s.log().Info(ctx, "match finished", logger.String("match_id", id), logger.String("score", m.ScoreLine()))
	return m, nil
}

// TogglePredictions opens or closes a match for predictions. Completed
// matches stay closed.
func (s *Service) TogglePredictions(ctx context.Context, id string, allow bool) (model.MatchResult, error) {
	return s.updateMatch(ctx, id, func(m *model.MatchResult) error {
		if allow && m.Status == model.MatchCompleted {
			return fmt.Errorf("%w: match %s is completed", ErrPredictionsClosed, id)
		}
		m.AllowPredictions = allow
		return nil
	})
}

// ResetDraft returns a match to the draft state: teams, scores and
// comments are cleared, predictions are reopened and kept.
func (s *Service) ResetDraft(ctx context.Context, id string) (model.MatchResult, error) {
	return s.updateMatch(ctx, id, func(m *model.MatchResult) error {
		m.Status = model.MatchDraft
		m.RedTeam, m.BlueTeam = []string{}, []string{}
		m.ScoreRed, m.ScoreBlue = nil, nil
		m.Comments = ""
		m.AllowPredictions = true
		return nil
	})
}

// DeleteMatch removes a match and its predictions.
func (s *Service) DeleteMatch(ctx context.Context, id string) error {
	if err := s.store.DeleteMatch(ctx, id); err != nil {
		return err
	}
	s.refreshCounts(ctx)
	return nil
}

func (s *Service) updateMatch(ctx context.Context, id string, mutate func(*model.MatchResult) error) (model.MatchResult, error) {
	s.matchMu.Lock()
	defer s.matchMu.Unlock()

	m, err := s.store.Match(ctx, id)
	if err != nil {
		return model.MatchResult{}, err
	}
	if err := mutate(&m); err != nil {
		return model.MatchResult{}, err
	}
	return s.store.SaveMatch(ctx, m)
}

func checkScore(red, blue int) error {
	if red < 0 || blue < 0 {
		return fmt.Errorf("%w: %d-%d", ErrInvalidScore, red, blue)
	}
	return nil
}

func trimNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
