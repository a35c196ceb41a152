// Package squad splits a pool of rated players into two balanced teams.
package squad

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/smfc/matchday/internal/domain/model"
)

// Default balancing configuration constants.
const (
	defaultJitter      = 3.0
	defaultGuestRating = model.DefaultAttribute
)

// JitterSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type JitterSource interface {
	Float64() float64
}

// globalSource draws from the process-wide math/rand/v2 generator, which is
// safe for concurrent use and freshly seeded per process.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Balancer drafts squads. It holds no state besides its jitter source, so a
// Balancer built with the default source may be shared across goroutines.
// An injected source is only as concurrency-safe as the source itself.
type Balancer struct {
	src         JitterSource
	jitter      float64
	guestRating float64
}

// NewBalancer creates a Balancer with configuration options.
func NewBalancer(opts ...Option) *Balancer {
	b := &Balancer{
		src:         globalSource{},
		jitter:      defaultJitter,
		guestRating: defaultGuestRating,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Draft assigns every player and guest to Red or Blue.
//
// Each entrant gets SortKey = overall + uniform(-jitter, +jitter), the pool
// is sorted by SortKey descending (stable, so ties keep players-then-guests
// input order) and team labels are dealt in the repeating Red, Blue, Blue,
// Red pattern. Team sizes therefore differ by at most one.
//
// With the default jitter source the result is deliberately non-deterministic:
// identical inputs generally give a different split on every call.
//
// Draft does not enforce a minimum number of entrants; callers validate that.
func (b *Balancer) Draft(players []model.RatedPlayer, guests []string) model.Squad {
	entries := make([]model.DraftEntry, 0, len(players)+len(guests))
	for _, p := range players {
		entries = append(entries, b.entry(p))
	}
	for _, name := range guests {
		entries = append(entries, b.entry(model.Guest(name, b.guestRating)))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SortKey > entries[j].SortKey
	})

	var s model.Squad
	for i := range entries {
		entries[i].Team = SnakeTeam(i)
		if entries[i].Team == model.TeamRed {
			s.Red = append(s.Red, entries[i])
		} else {
			s.Blue = append(s.Blue, entries[i])
		}
	}
	SortForDisplay(s.Red)
	SortForDisplay(s.Blue)
	return s
}

func (b *Balancer) entry(p model.RatedPlayer) model.DraftEntry {
	ovr := p.Overall()
	return model.DraftEntry{
		RatedPlayer: p,
		Overall:     ovr,
		SortKey:     ovr + (b.src.Float64()*2-1)*b.jitter,
	}
}

// SnakeTeam returns the team for the i-th strongest entrant.
func SnakeTeam(i int) model.Team {
	switch i % 4 {
	case 0, 3:
		return model.TeamRed
	default:
		return model.TeamBlue
	}
}

// SortForDisplay orders a team in place by position group, then by SortKey
// descending within a group.
func SortForDisplay(team []model.DraftEntry) {
	sort.SliceStable(team, func(i, j int) bool {
		pi, pj := team[i].Position.Order(), team[j].Position.Order()
		if pi != pj {
			return pi < pj
		}
		return team[i].SortKey > team[j].SortKey
	})
}

// Transfer swaps fromRed (currently on Red) with fromBlue (currently on Blue)
// and returns the re-sorted squad. Only the Team label of the two entries
// changes. The input squad is never modified.
//
// If either name is not on the expected side the input is returned as is
// together with an error wrapping ErrPlayerNotFound.
func Transfer(s model.Squad, fromRed, fromBlue string) (model.Squad, error) {
	ri := indexOf(s.Red, fromRed)
	if ri < 0 {
		return s, fmt.Errorf("%w: %q not on %s", ErrPlayerNotFound, fromRed, model.TeamRed)
	}
	bi := indexOf(s.Blue, fromBlue)
	if bi < 0 {
		return s, fmt.Errorf("%w: %q not on %s", ErrPlayerNotFound, fromBlue, model.TeamBlue)
	}

	toBlue := s.Red[ri]
	toBlue.Team = model.TeamBlue
	toRed := s.Blue[bi]
	toRed.Team = model.TeamRed

	out := model.Squad{
		Red:  append(without(s.Red, ri), toRed),
		Blue: append(without(s.Blue, bi), toBlue),
	}
	SortForDisplay(out.Red)
	SortForDisplay(out.Blue)
	return out, nil
}

func indexOf(team []model.DraftEntry, name string) int {
	for i, e := range team {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// without copies team minus the entry at i, leaving room for one append.
func without(team []model.DraftEntry, i int) []model.DraftEntry {
	out := make([]model.DraftEntry, 0, len(team))
	out = append(out, team[:i]...)
	return append(out, team[i+1:]...)
}
