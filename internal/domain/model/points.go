package model

// Points is the award for one prediction, split by category.
type Points struct {
	Total     int `json:"total"`
	Result    int `json:"result"`
	RedScore  int `json:"red_score"`
	BlueScore int `json:"blue_score"`
}

// LeaderboardEntry aggregates points per player across all predictions.
// Played counts every prediction, including ones on pending matches.
type LeaderboardEntry struct {
	Name            string `json:"name"`
	Total           int    `json:"total_points"`
	ResultPoints    int    `json:"win_points"`
	RedScorePoints  int    `json:"red_points"`
	BlueScorePoints int    `json:"blue_points"`
	Played          int    `json:"played"`
}

// TopScorers lists the best predictors of the most recent completed match.
type TopScorers struct {
	MatchID    string   `json:"match_id"`
	MatchDate  string   `json:"match_date,omitempty"`
	MatchScore string   `json:"match_score"`
	Players    []string `json:"players"`
	TopScore   int      `json:"top_score"`
}

// ScoredPrediction is a prediction with the points it earned.
type ScoredPrediction struct {
	Prediction
	Points Points `json:"points"`
}
