package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smfc/matchday/internal/domain/model"
)

// MemoryStore keeps everything in process memory. It is the default store
// and the one used by tests.
type MemoryStore struct {
	opts options

	mu          sync.RWMutex
	roster      map[string]model.RatedPlayer
	matches     []model.MatchResult
	predictions []model.Prediction
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{opts: o, roster: make(map[string]model.RatedPlayer)}
}

func (s *MemoryStore) ReplaceRoster(_ context.Context, players []model.RatedPlayer) (err error) {
	defer observe("replace_roster", time.Now(), &err)

	next := make(map[string]model.RatedPlayer, len(players))
	for _, p := range players {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: player without a name", ErrInvalidInput)
		}
		next[p.Name] = p
	}

	s.mu.Lock()
	s.roster = next
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Roster(_ context.Context) ([]model.RatedPlayer, error) {
	s.mu.RLock()
	out := make([]model.RatedPlayer, 0, len(s.roster))
	for _, p := range s.roster {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Player(_ context.Context, name string) (model.RatedPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.roster[name]
	if !ok {
		return model.RatedPlayer{}, fmt.Errorf("player %q: %w", name, ErrNotFound)
	}
	return p, nil
}

func (s *MemoryStore) SaveMatch(_ context.Context, m model.MatchResult) (model.MatchResult, error) {
	defer observe("save_match", time.Now(), nil)

	if m.ID == "" {
		m.ID = s.opts.newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.opts.now()
	}
	m = cloneMatch(normalizeMatch(m))

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.matchIndex(m.ID); i >= 0 {
		s.matches[i] = m
	} else {
		s.matches = append(s.matches, m)
	}
	return cloneMatch(m), nil
}

func (s *MemoryStore) Match(_ context.Context, id string) (model.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.matchIndex(id)
	if i < 0 {
		return model.MatchResult{}, fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	return cloneMatch(s.matches[i]), nil
}

func (s *MemoryStore) Matches(_ context.Context) ([]model.MatchResult, error) {
	s.mu.RLock()
	out := make([]model.MatchResult, len(s.matches))
	for i, m := range s.matches {
		out[i] = cloneMatch(m)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteMatch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.matchIndex(id)
	if i < 0 {
		return fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	s.matches = slices.Delete(s.matches, i, i+1)
	s.predictions = slices.DeleteFunc(s.predictions, func(p model.Prediction) bool { return p.MatchID == id })
	return nil
}

func (s *MemoryStore) UpsertPrediction(_ context.Context, p model.Prediction) (out model.Prediction, err error) {
	defer observe("upsert_prediction", time.Now(), &err)
	if err := validatePrediction(p); err != nil {
		return model.Prediction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	mi := s.matchIndex(p.MatchID)
	if mi < 0 {
		return model.Prediction{}, fmt.Errorf("match %q: %w", p.MatchID, ErrNotFound)
	}
	if !s.matches[mi].AcceptsPredictions() {
		return model.Prediction{}, fmt.Errorf("match %q: %w", p.MatchID, ErrPredictionsClosed)
	}
	for i, existing := range s.predictions {
		if existing.MatchID == p.MatchID && existing.PlayerName == p.PlayerName {
			p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
			s.predictions[i] = clonePrediction(p)
			return clonePrediction(p), nil
		}
	}
	if p.ID == "" {
		p.ID = s.opts.newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.opts.now()
	}
	p.CreatedAt = p.CreatedAt.UTC()
	s.predictions = append(s.predictions, clonePrediction(p))
	return clonePrediction(p), nil
}

func (s *MemoryStore) Predictions(_ context.Context) ([]model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Prediction, len(s.predictions))
	for i, p := range s.predictions {
		out[i] = clonePrediction(p)
	}
	return out, nil
}

func (s *MemoryStore) PredictionsForMatch(_ context.Context, matchID string) ([]model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Prediction, 0)
	for _, p := range s.predictions {
		if p.MatchID == matchID {
			out = append(out, clonePrediction(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) DeletePrediction(_ context.Context, matchID, playerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.predictions {
		if p.MatchID == matchID && p.PlayerName == playerName {
			s.predictions = slices.Delete(s.predictions, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("prediction %s/%s: %w", matchID, playerName, ErrNotFound)
}

func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{Players: len(s.roster), Matches: len(s.matches), Predictions: len(s.predictions)}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// matchIndex must be called with s.mu held.
func (s *MemoryStore) matchIndex(id string) int {
	return slices.IndexFunc(s.matches, func(m model.MatchResult) bool { return m.ID == id })
}

func cloneMatch(m model.MatchResult) model.MatchResult {
	m.RedTeam = slices.Clone(m.RedTeam)
	m.BlueTeam = slices.Clone(m.BlueTeam)
	m.ScoreRed = cloneInt(m.ScoreRed)
	m.ScoreBlue = cloneInt(m.ScoreBlue)
	return m
}

func clonePrediction(p model.Prediction) model.Prediction {
	p.ScoreRed = cloneInt(p.ScoreRed)
	p.ScoreBlue = cloneInt(p.ScoreBlue)
	return p
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	return model.Goals(*n)
}
