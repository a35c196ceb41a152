// Package types contains common types used across the application
package types

import "github.com/smfc/matchday/internal/domain/model"

// Entry represents a ranked leaderboard row.
type Entry struct {
	Rank int `json:"rank"`
	model.LeaderboardEntry
}

// Rank numbers an already sorted leaderboard from 1.
func Rank(rows []model.LeaderboardEntry) []Entry {
	out := make([]Entry, len(rows))
	for i, row := range rows {
		out[i] = Entry{Rank: i + 1, LeaderboardEntry: row}
	}
	return out
}
