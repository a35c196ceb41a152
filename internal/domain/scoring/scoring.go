// Package scoring awards fantasy points for score predictions and folds
// them into a leaderboard. Every function here is pure: identical inputs
// always give identical outputs.
package scoring

import (
	"sort"

	"github.com/smfc/matchday/internal/domain/model"
)

// Point values per category. A perfect prediction earns MaxPoints.
const (
	ResultPoints    = 3
	RedScorePoints  = 2
	BlueScorePoints = 2
	MaxPoints       = ResultPoints + RedScorePoints + BlueScorePoints
)

// ScorePrediction awards points for p against m. Matches that are not
// completed, or lack either final score, award nothing. The outcome check
// and the two exact-score checks are independent and additive.
func ScorePrediction(p model.Prediction, m model.MatchResult) model.Points {
	if !m.Scorable() {
		return model.Points{}
	}
	actualRed, actualBlue := *m.ScoreRed, *m.ScoreBlue

	var pts model.Points
	if outcome := PredictedOutcome(p); outcome != model.OutcomeUnknown && outcome == model.OutcomeOf(actualRed, actualBlue) {
		pts.Result = ResultPoints
	}
	if p.ScoreRed != nil && *p.ScoreRed == actualRed {
		pts.RedScore = RedScorePoints
	}
	if p.ScoreBlue != nil && *p.ScoreBlue == actualBlue {
		pts.BlueScore = BlueScorePoints
	}
	pts.Total = pts.Result + pts.RedScore + pts.BlueScore
	return pts
}

// PredictedOutcome returns the explicit winner when set, otherwise derives
// one from the predicted scores. With neither it returns OutcomeUnknown.
func PredictedOutcome(p model.Prediction) model.Outcome {
	if p.Winner != model.OutcomeUnknown {
		return p.Winner
	}
	if p.ScoreRed == nil || p.ScoreBlue == nil {
		return model.OutcomeUnknown
	}
	return model.OutcomeOf(*p.ScoreRed, *p.ScoreBlue)
}

// BuildLeaderboard aggregates every prediction by player name.
//
// Each prediction counts towards Played whatever the state of its match;
// only predictions on an existing, completed match add points. Rows are
// ordered by total points descending, then by fewer predictions played,
// then by name.
func BuildLeaderboard(matches []model.MatchResult, predictions []model.Prediction) []model.LeaderboardEntry {
	byID := indexMatches(matches)
	rows := make(map[string]*model.LeaderboardEntry)
	order := make([]string, 0)

	for _, p := range predictions {
		row, ok := rows[p.PlayerName]
		if !ok {
			row = &model.LeaderboardEntry{Name: p.PlayerName}
			rows[p.PlayerName] = row
			order = append(order, p.PlayerName)
		}
		row.Played++

		m, ok := byID[p.MatchID]
		if !ok {
			continue
		}
		pts := ScorePrediction(p, m)
		row.Total += pts.Total
		row.ResultPoints += pts.Result
		row.RedScorePoints += pts.RedScore
		row.BlueScorePoints += pts.BlueScore
	}

	out := make([]model.LeaderboardEntry, len(order))
	for i, name := range order {
		out[i] = *rows[name]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i], out[j])
	})
	return out
}

// Less reports whether a ranks above b.
func Less(a, b model.LeaderboardEntry) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	if a.Played != b.Played {
		return a.Played < b.Played
	}
	return a.Name < b.Name
}

// TopScorersOfLastMatch scores every prediction on the most recently created
// completed match and returns the players sharing the best total. It returns
// nil when no match is completed. A best total of zero is still reported.
func TopScorersOfLastMatch(matches []model.MatchResult, predictions []model.Prediction) *model.TopScorers {
	last, ok := LastCompleted(matches)
	if !ok {
		return nil
	}

	top := &model.TopScorers{
		MatchID:    last.ID,
		MatchDate:  last.Date,
		MatchScore: last.ScoreLine(),
		Players:    []string{},
	}
	first := true
	for _, p := range predictions {
		if p.MatchID != last.ID {
			continue
		}
		total := ScorePrediction(p, last).Total
		switch {
		case first || total > top.TopScore:
			top.TopScore = total
			top.Players = append(top.Players[:0], p.PlayerName)
			first = false
		case total == top.TopScore:
			top.Players = append(top.Players, p.PlayerName)
		}
	}
	return top
}

// LastCompleted returns the completed match with the latest CreatedAt.
// On equal timestamps the later match in the slice wins.
func LastCompleted(matches []model.MatchResult) (model.MatchResult, bool) {
	var (
		last  model.MatchResult
		found bool
	)
	for _, m := range matches {
		if m.Status != model.MatchCompleted {
			continue
		}
		if !found || !m.CreatedAt.Before(last.CreatedAt) {
			last, found = m, true
		}
	}
	return last, found
}

func indexMatches(matches []model.MatchResult) map[string]model.MatchResult {
	byID := make(map[string]model.MatchResult, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
	}
	return byID
}
