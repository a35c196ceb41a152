package model

// Team is one of the two sides of a friendly.
type Team string

// Team labels.
const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// DraftEntry is a RatedPlayer plus the metadata of one draft run.
// SortKey is discarded after the draft; it is only kept on the entry so
// that display ordering and later transfers stay consistent.
type DraftEntry struct {
	RatedPlayer
	Overall float64 `json:"ovr"`
	SortKey float64 `json:"sort_key"`
	Team    Team    `json:"team"`
}

// Squad holds the two drafted teams.
type Squad struct {
	Red  []DraftEntry `json:"red"`
	Blue []DraftEntry `json:"blue"`
}

// Entries returns red entries followed by blue entries in a new slice.
func (s Squad) Entries() []DraftEntry {
	out := make([]DraftEntry, 0, len(s.Red)+len(s.Blue))
	out = append(out, s.Red...)
	return append(out, s.Blue...)
}

// Names returns the player names of one side in display order.
func (s Squad) Names(team Team) []string {
	side := s.Red
	if team == TeamBlue {
		side = s.Blue
	}
	names := make([]string, len(side))
	for i, e := range side {
		names[i] = e.Name
	}
	return names
}

// Strength sums the overall rating of a side.
func (s Squad) Strength(team Team) float64 {
	side := s.Red
	if team == TeamBlue {
		side = s.Blue
	}
	var total float64
	for _, e := range side {
		total += e.Overall
	}
	return total
}
