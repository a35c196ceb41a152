package model

import (
	"fmt"
	"strings"
	"time"
)

// MatchStatus tracks the lifecycle of a fixture.
type MatchStatus string

// Lifecycle: draft -> locked -> live -> completed.
const (
	MatchDraft     MatchStatus = "draft"
	MatchLocked    MatchStatus = "locked"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
)

// Valid reports whether s is a known status.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchDraft, MatchLocked, MatchLive, MatchCompleted:
		return true
	}
	return false
}

// Outcome is the result of a fixture or a forecast of it. The zero value
// means "unknown" and never matches a real outcome.
type Outcome string

// Outcomes.
const (
	OutcomeUnknown Outcome = ""
	OutcomeRed     Outcome = "red"
	OutcomeBlue    Outcome = "blue"
	OutcomeDraw    Outcome = "draw"
)

// ParseOutcome accepts red, blue or draw in any case. Anything else is
// OutcomeUnknown.
func ParseOutcome(s string) Outcome {
	switch Outcome(strings.ToLower(strings.TrimSpace(s))) {
	case OutcomeRed:
		return OutcomeRed
	case OutcomeBlue:
		return OutcomeBlue
	case OutcomeDraw:
		return OutcomeDraw
	default:
		return OutcomeUnknown
	}
}

// UnmarshalText normalizes decoded outcomes through ParseOutcome, so "Red"
// and "red" are the same forecast. Unrecognized non-empty values are errors.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed := ParseOutcome(string(text))
	if parsed == OutcomeUnknown && strings.TrimSpace(string(text)) != "" {
		return fmt.Errorf("unknown outcome %q", text)
	}
	*o = parsed
	return nil
}

// OutcomeOf applies the three-way rule to a pair of scores.
func OutcomeOf(red, blue int) Outcome {
	switch {
	case red > blue:
		return OutcomeRed
	case blue > red:
		return OutcomeBlue
	default:
		return OutcomeDraw
	}
}

// MatchResult is a fixture and, once completed, its final score.
type MatchResult struct {
	ID               string      `json:"id"`
	Date             string      `json:"date,omitempty"`
	Venue            string      `json:"venue,omitempty"`
	Kickoff          string      `json:"kickoff,omitempty"`
	Format           string      `json:"format,omitempty"`
	RedTeam          []string    `json:"red_team"`
	BlueTeam         []string    `json:"blue_team"`
	Status           MatchStatus `json:"status"`
	ScoreRed         *int        `json:"score_red"`
	ScoreBlue        *int        `json:"score_blue"`
	Comments         string      `json:"comments,omitempty"`
	AllowPredictions bool        `json:"allow_predictions"`
	CreatedBy        string      `json:"created_by,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Scorable reports whether points can be computed against the match.
func (m MatchResult) Scorable() bool {
	return m.Status == MatchCompleted && m.ScoreRed != nil && m.ScoreBlue != nil
}

// AcceptsPredictions reports whether forecasts may still be stored for m.
func (m MatchResult) AcceptsPredictions() bool {
	return m.Status != MatchCompleted && m.AllowPredictions
}

// ScoreLine renders the final score as "red-blue", or "" when unknown.
func (m MatchResult) ScoreLine() string {
	if m.ScoreRed == nil || m.ScoreBlue == nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", *m.ScoreRed, *m.ScoreBlue)
}

// Prediction is one player's forecast for one match.
type Prediction struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"match_id"`
	PlayerName string    `json:"player_name"`
	Winner     Outcome   `json:"prediction"`
	ScoreRed   *int      `json:"pred_goals_red"`
	ScoreBlue  *int      `json:"pred_goals_blue"`
	CreatedAt  time.Time `json:"created_at"`
}

// Goals returns a pointer to a copy of n.
func Goals(n int) *int { return &n }
