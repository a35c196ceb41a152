package simulate

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/smfc/matchday/internal/domain/model"
)

// Generator tuning.
const (
	maxGoals      = 6
	maxGuests     = 2
	predictChance = 80 // percent of players predicting a given fixture
	exactChance   = 60 // percent of predictions carrying a score line
)

// Fixture is one generated match and everything submitted for it.
type Fixture struct {
	Date        string
	Venue       string
	Players     []string
	Guests      []string
	ScoreRed    int
	ScoreBlue   int
	Submissions []model.Submission
}

// Plan is a generated season.
type Plan struct {
	Roster   []model.RatedPlayer
	Fixtures []Fixture
}

// Generator produces seasons. Equal seeds give equal rosters, scores and
// predictions.
type Generator struct {
	faker *gofakeit.Faker
	tag   string
}

// NewGenerator returns a generator seeded with seed, or with a random seed
// when seed is zero. Player names carry a short per-run tag so that several
// runs against one server do not mix their leaderboard rows.
func NewGenerator(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // time is positive
	}
	f := gofakeit.New(seed)
	return &Generator{faker: f, tag: f.LetterN(4)}
}

// Generate builds a plan with the given roster size and fixture count.
// The duplicate rate controls how many submissions are repeated verbatim.
func (g *Generator) Generate(players, matches int, duplicateRate float64) Plan {
	plan := Plan{Roster: g.roster(players)}
	start := g.faker.DateRange(time.Now().AddDate(0, -6, 0), time.Now())
	for i := 0; i < matches; i++ {
		plan.Fixtures = append(plan.Fixtures, g.fixture(plan.Roster, start.AddDate(0, 0, 7*i), duplicateRate))
	}
	return plan
}

func (g *Generator) roster(n int) []model.RatedPlayer {
	positions := []model.Position{model.PositionDEF, model.PositionMID, model.PositionFWD}
	out := make([]model.RatedPlayer, n)
	for i := range out {
		out[i] = model.RatedPlayer{
			Name:        fmt.Sprintf("%s-%s-%d", g.faker.FirstName(), g.tag, i),
			Position:    positions[g.faker.Number(0, len(positions)-1)],
			Pace:        float64(g.faker.Number(45, 95)),
			Shooting:    float64(g.faker.Number(45, 95)),
			Passing:     float64(g.faker.Number(45, 95)),
			Dribbling:   float64(g.faker.Number(45, 95)),
			Defending:   float64(g.faker.Number(45, 95)),
			Physicality: float64(g.faker.Number(45, 95)),
			StarRating:  float64(g.faker.Number(1, 5)),
		}
	}
	return out
}

func (g *Generator) fixture(roster []model.RatedPlayer, date time.Time, duplicateRate float64) Fixture {
	fx := Fixture{
		Date:      date.Format(time.DateOnly),
		Venue:     g.faker.City(),
		ScoreRed:  g.faker.Number(0, maxGoals),
		ScoreBlue: g.faker.Number(0, maxGoals),
	}
	for _, p := range roster {
		if g.faker.Number(1, 100) <= predictChance || len(fx.Players) < 2 {
			fx.Players = append(fx.Players, p.Name)
		}
	}
	for i := g.faker.Number(0, maxGuests); i > 0; i-- {
		fx.Guests = append(fx.Guests, fmt.Sprintf("guest-%s-%s", g.tag, g.faker.LetterN(5)))
	}

	for _, p := range roster {
		if g.faker.Number(1, 100) > predictChance {
			continue
		}
		sub := g.submission(p.Name)
		fx.Submissions = append(fx.Submissions, sub)
		if g.faker.Float64Range(0, 1) < duplicateRate {
			fx.Submissions = append(fx.Submissions, sub)
		}
	}
	return fx
}

// submission predicts either a bare winner or a full score line. The match
// id is filled in once the fixture exists on the server.
func (g *Generator) submission(player string) model.Submission {
	pred := model.Prediction{PlayerName: player}
	if g.faker.Number(1, 100) <= exactChance {
		red, blue := g.faker.Number(0, maxGoals), g.faker.Number(0, maxGoals)
		pred.ScoreRed, pred.ScoreBlue = model.Goals(red), model.Goals(blue)
		pred.Winner = model.OutcomeOf(red, blue)
	} else {
		outcomes := []model.Outcome{model.OutcomeRed, model.OutcomeBlue, model.OutcomeDraw}
		pred.Winner = outcomes[g.faker.Number(0, len(outcomes)-1)]
	}
	return model.Submission{SubmissionID: g.faker.UUID(), Prediction: pred}
}
