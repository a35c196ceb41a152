package service_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/smfc/matchday/internal/adapters/repository"
	service "github.com/smfc/matchday/internal/app"
	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/internal/domain/squad"
	"github.com/smfc/matchday/pkg/logger"
	"github.com/smfc/matchday/pkg/metrics"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

type midSource struct{}

// Float64 returns 0.5, which maps to zero jitter.
func (midSource) Float64() float64 { return 0.5 }

// blockingStore parks every prediction write until release is closed.
type blockingStore struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) UpsertPrediction(ctx context.Context, p model.Prediction) (model.Prediction, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.Store.UpsertPrediction(ctx, p)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// counterValue reads one labelled series of a counter from the service registry.
func counterValue(suffix, reason string) float64 {
	families, err := metrics.GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), suffix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "reason" && l.GetValue() == reason {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func rated(name string, pos model.Position, v float64) model.RatedPlayer {
	return model.RatedPlayer{Name: name, Position: pos, Pace: v, Shooting: v, Passing: v, Dribbling: v, Defending: v, Physicality: v, StarRating: 3}
}

func newStarted(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(64),
			service.WithDedupeSize(128),
		)
		ctx := context.Background()

		Convey("Then it reports not started", func() {
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			_, err := svc.Enqueue(ctx, model.Submission{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When it is started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then the pipeline is sized from the options", func() {
				stats := svc.GetStats(ctx)
				So(stats["started"], ShouldEqual, true)
				So(stats["worker_count"], ShouldEqual, 2)
				So(stats["queue_capacity"], ShouldEqual, 64)
			})

			Convey("And then stopped", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Restart(t *testing.T) {
	Convey("Given a service on a caller-owned sqlite store", t, func() {
		ctx := context.Background()
		store, err := repository.NewSQLStore(ctx, filepath.Join(t.TempDir(), "club.db"))
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		svc := newStarted(service.WithStore(store), service.WithWorkerCount(1))
		first, err := svc.CreateMatch(ctx, service.MatchInput{Date: "2026-10-21"})
		So(err, ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("When it is started again", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then the store is still open and keeps earlier data", func() {
				m, err := svc.Match(ctx, first.ID)
				So(err, ShouldBeNil)
				So(m.Date, ShouldEqual, "2026-10-21")

				_, err = svc.Enqueue(ctx, model.Submission{Prediction: model.Prediction{MatchID: first.ID, PlayerName: "Ann", Winner: model.OutcomeDraw}})
				So(err, ShouldBeNil)
				So(eventually(func() bool { return svc.GetStats(ctx)["prediction_count"] == 1 }), ShouldBeTrue)
			})
		})
	})
}

func TestService_Draft(t *testing.T) {
	Convey("Given a service with a roster", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithBalancerOptions(squad.WithJitterSource(midSource{})))
		So(svc.ReplaceRoster(ctx, []model.RatedPlayer{
			rated("Ann", "def", 90),
			rated("Bo", "MID", 80),
			rated("Cy", "FWD", 70),
			rated("Di", "FWD", 60),
		}), ShouldBeNil)

		Convey("Then positions are normalized on import", func() {
			roster, err := svc.Roster(ctx)
			So(err, ShouldBeNil)
			So(roster[0].Position, ShouldEqual, model.PositionDEF)
		})

		Convey("When drafting known players with a guest", func() {
			s, err := svc.Draft(ctx, []string{"Ann", "Bo", " Cy ", "Di", "Ann"}, []string{"Visitor"})

			Convey("Then every entrant is placed once by snake order", func() {
				So(err, ShouldBeNil)
				So(len(s.Red)+len(s.Blue), ShouldEqual, 5)
				// Ann 90, Bo 80, Cy 70, Visitor 70, Di 60.
				So(s.Names(model.TeamRed), ShouldContain, "Ann")
				So(s.Names(model.TeamRed), ShouldContain, "Visitor")
				So(s.Names(model.TeamRed), ShouldContain, "Di")
				So(s.Names(model.TeamBlue), ShouldResemble, []string{"Bo", "Cy"})
			})

			Convey("And a transfer swaps two players", func() {
				next, err := svc.Transfer(ctx, s, "Ann", "Bo")
				So(err, ShouldBeNil)
				So(next.Names(model.TeamBlue), ShouldContain, "Ann")
				So(next.Names(model.TeamRed), ShouldContain, "Bo")
			})

			Convey("And a transfer of an unknown player fails", func() {
				same, err := svc.Transfer(ctx, s, "Nobody", "Bo")
				So(errors.Is(err, service.ErrPlayerNotFound), ShouldBeTrue)
				So(same, ShouldResemble, s)
			})
		})

		Convey("When a name is not on the roster", func() {
			_, err := svc.Draft(ctx, []string{"Ann", "Zed"}, nil)

			Convey("Then the draft is refused", func() {
				So(errors.Is(err, service.ErrUnknownPlayer), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Zed")
			})
		})

		Convey("When fewer than two entrants remain", func() {
			_, err := svc.Draft(ctx, []string{"Ann", "Ann"}, []string{" "})
			So(errors.Is(err, service.ErrTooFewPlayers), ShouldBeTrue)
		})

		Convey("When the roster has a duplicate", func() {
			err := svc.ReplaceRoster(ctx, []model.RatedPlayer{rated("Ann", "DEF", 1), rated("Ann ", "MID", 2)})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestService_Matches(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("When a fixture is created without details", func() {
			m, err := svc.CreateMatch(ctx, service.MatchInput{Date: "2026-10-21", RedTeam: []string{"Ann", " "}})
			So(err, ShouldBeNil)

			Convey("Then defaults are applied", func() {
				So(m.ID, ShouldNotBeEmpty)
				So(m.Status, ShouldEqual, model.MatchDraft)
				So(m.Venue, ShouldEqual, service.DefaultVenue)
				So(m.Format, ShouldEqual, service.DefaultFormat)
				So(m.AllowPredictions, ShouldBeTrue)
				So(m.RedTeam, ShouldResemble, []string{"Ann"})

				active, err := svc.ActiveMatch(ctx)
				So(err, ShouldBeNil)
				So(active.ID, ShouldEqual, m.ID)
			})

			Convey("Then its status can move through the lifecycle", func() {
				locked, err := svc.SetMatchStatus(ctx, m.ID, "LOCKED")
				So(err, ShouldBeNil)
				So(locked.Status, ShouldEqual, model.MatchLocked)

				_, err = svc.SetMatchStatus(ctx, m.ID, "cancelled")
				So(errors.Is(err, service.ErrInvalidStatus), ShouldBeTrue)
			})

			Convey("Then it can be finished", func() {
				done, err := svc.FinishMatch(ctx, m.ID, 3, 0, "great game")
				So(err, ShouldBeNil)
				So(done.Scorable(), ShouldBeTrue)
				So(done.AllowPredictions, ShouldBeFalse)
				So(done.Comments, ShouldEqual, "great game")

				_, err = svc.TogglePredictions(ctx, m.ID, true)
				So(errors.Is(err, service.ErrPredictionsClosed), ShouldBeTrue)

				_, err = svc.ActiveMatch(ctx)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)

				Convey("And reset back to a draft", func() {
					reset, err := svc.ResetDraft(ctx, m.ID)
					So(err, ShouldBeNil)
					So(reset.Status, ShouldEqual, model.MatchDraft)
					So(reset.ScoreRed, ShouldBeNil)
					So(reset.RedTeam, ShouldBeEmpty)
					So(reset.Comments, ShouldBeEmpty)
					So(reset.AllowPredictions, ShouldBeTrue)
				})
			})

			Convey("Then a negative score is refused", func() {
				_, err := svc.FinishMatch(ctx, m.ID, -1, 0, "")
				So(errors.Is(err, service.ErrInvalidScore), ShouldBeTrue)
				_, err = svc.UpdateScore(ctx, m.ID, 0, -2)
				So(errors.Is(err, service.ErrInvalidScore), ShouldBeTrue)
			})

			Convey("Then teams and a running score can be set", func() {
				_, err := svc.SetTeams(ctx, m.ID, []string{"Ann"}, []string{"Bo"})
				So(err, ShouldBeNil)
				live, err := svc.UpdateScore(ctx, m.ID, 1, 1)
				So(err, ShouldBeNil)
				So(live.ScoreLine(), ShouldEqual, "1-1")
				So(live.Scorable(), ShouldBeFalse)
				So(live.BlueTeam, ShouldResemble, []string{"Bo"})
			})
		})

		Convey("When a past result is back-filled", func() {
			m, err := svc.CreateMatch(ctx, service.MatchInput{ScoreRed: model.Goals(2), ScoreBlue: model.Goals(2)})
			So(err, ShouldBeNil)
			So(m.Status, ShouldEqual, model.MatchCompleted)
			So(m.AllowPredictions, ShouldBeFalse)
		})

		Convey("When only one score is supplied", func() {
			_, err := svc.CreateMatch(ctx, service.MatchInput{ScoreRed: model.Goals(1)})
			So(errors.Is(err, service.ErrInvalidScore), ShouldBeTrue)
		})

		Convey("When a match does not exist", func() {
			_, err := svc.FinishMatch(ctx, "missing", 1, 0, "")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			So(errors.Is(svc.DeleteMatch(ctx, "missing"), service.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Predictions(t *testing.T) {
	Convey("Given a started service with an open match", t, func() {
		ctx := context.Background()
		svc := newStarted(service.WithWorkerCount(2))
		defer func() { _ = svc.Stop(ctx) }()

		m, err := svc.CreateMatch(ctx, service.MatchInput{Date: "2026-10-21"})
		So(err, ShouldBeNil)

		submit := func(id, player, winner string, red, blue *int) (bool, error) {
			return svc.Enqueue(ctx, model.Submission{
				SubmissionID: id,
				Prediction:   model.Prediction{MatchID: m.ID, PlayerName: player, Winner: model.Outcome(winner), ScoreRed: red, ScoreBlue: blue},
			})
		}
		stored := func(n int) func() bool {
			return func() bool {
				return svc.GetStats(ctx)["prediction_count"] == n
			}
		}

		Convey("When predictions are submitted and the match is finished", func() {
			dup, err := submit("s1", "Ann", "Red", model.Goals(3), model.Goals(0))
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			_, err = submit("s2", "Bo", "", model.Goals(1), model.Goals(0))
			So(err, ShouldBeNil)
			_, err = submit("s3", "Cy", "draw", nil, nil)
			So(err, ShouldBeNil)
			So(eventually(stored(3)), ShouldBeTrue)

			_, err = svc.FinishMatch(ctx, m.ID, 3, 0, "")
			So(err, ShouldBeNil)

			Convey("Then the leaderboard ranks by points", func() {
				rows, err := svc.Leaderboard(ctx, 0)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 3)
				So(rows[0].Name, ShouldEqual, "Ann")
				So(rows[0].Total, ShouldEqual, 7)
				So(rows[0].Rank, ShouldEqual, 1)
				So(rows[1].Name, ShouldEqual, "Bo")
				So(rows[1].Total, ShouldEqual, 5)
				So(rows[2].Name, ShouldEqual, "Cy")
				So(rows[2].Rank, ShouldEqual, 3)

				top, err := svc.Leaderboard(ctx, 1)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 1)

				_, err = svc.Leaderboard(ctx, -1)
				So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
			})

			Convey("Then ranks and top scorers are available", func() {
				bo, err := svc.Rank(ctx, "Bo")
				So(err, ShouldBeNil)
				So(bo.Rank, ShouldEqual, 2)

				_, err = svc.Rank(ctx, "Nobody")
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)

				ts, err := svc.LastMatchTopScorers(ctx)
				So(err, ShouldBeNil)
				So(ts.Players, ShouldResemble, []string{"Ann"})
				So(ts.TopScore, ShouldEqual, 7)
				So(ts.MatchScore, ShouldEqual, "3-0")

				scored, err := svc.ScoredPredictions(ctx, m.ID)
				So(err, ShouldBeNil)
				So(scored[1].Points.Result, ShouldEqual, 3)
				So(scored[1].Points.RedScore, ShouldEqual, 0)
			})

			Convey("Then the match is closed to new predictions", func() {
				_, err := submit("s4", "Di", "blue", nil, nil)
				So(errors.Is(err, service.ErrPredictionsClosed), ShouldBeTrue)
			})
		})

		Convey("When the same submission id is sent twice", func() {
			_, err := submit("same", "Ann", "red", nil, nil)
			So(err, ShouldBeNil)
			dup, err := submit("same", "Ann", "blue", nil, nil)

			Convey("Then the second is a duplicate", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				So(eventually(stored(1)), ShouldBeTrue)
			})
		})

		Convey("When a player predicts again with a new id", func() {
			_, err := submit("a1", "Ann", "red", nil, nil)
			So(err, ShouldBeNil)
			So(eventually(stored(1)), ShouldBeTrue)
			_, err = submit("a2", "Ann", "blue", nil, nil)
			So(err, ShouldBeNil)

			Convey("Then the forecast is replaced", func() {
				So(eventually(func() bool {
					scored, _ := svc.ScoredPredictions(ctx, m.ID)
					return len(scored) == 1 && scored[0].Winner == model.OutcomeBlue
				}), ShouldBeTrue)
			})

			Convey("And it can be deleted", func() {
				So(eventually(func() bool {
					scored, _ := svc.ScoredPredictions(ctx, m.ID)
					return len(scored) == 1 && scored[0].Winner == model.OutcomeBlue
				}), ShouldBeTrue)
				So(svc.DeletePrediction(ctx, m.ID, "Ann"), ShouldBeNil)
				So(errors.Is(svc.DeletePrediction(ctx, m.ID, "Ann"), service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When submissions are malformed", func() {
			_, err := submit("", "", "red", nil, nil)
			So(errors.Is(err, service.ErrInvalidSubmission), ShouldBeTrue)
			_, err = submit("", "Ann", "tie", nil, nil)
			So(errors.Is(err, service.ErrInvalidSubmission), ShouldBeTrue)
			_, err = submit("", "Ann", "", model.Goals(1), nil)
			So(errors.Is(err, service.ErrInvalidSubmission), ShouldBeTrue)
			_, err = submit("", "Ann", "red", model.Goals(-1), model.Goals(0))
			So(errors.Is(err, service.ErrInvalidSubmission), ShouldBeTrue)
		})

		Convey("When the match is unknown or closed", func() {
			_, err := svc.Enqueue(ctx, model.Submission{Prediction: model.Prediction{MatchID: "nope", PlayerName: "Ann", Winner: model.OutcomeRed}})
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)

			_, err = svc.TogglePredictions(ctx, m.ID, false)
			So(err, ShouldBeNil)
			_, err = submit("", "Ann", "red", nil, nil)
			So(errors.Is(err, service.ErrPredictionsClosed), ShouldBeTrue)
		})

		Convey("When no match is completed", func() {
			ts, err := svc.LastMatchTopScorers(ctx)
			So(err, ShouldBeNil)
			So(ts, ShouldBeNil)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given one blocked worker and a queue of one", t, func() {
		ctx := context.Background()
		store := &blockingStore{
			Store:   repository.NewMemoryStore(),
			entered: make(chan struct{}, 1),
			release: make(chan struct{}),
		}
		svc := newStarted(service.WithStore(store), service.WithWorkerCount(1), service.WithQueueSize(1))

		m, err := svc.CreateMatch(ctx, service.MatchInput{})
		So(err, ShouldBeNil)
		sub := func(id string) model.Submission {
			return model.Submission{SubmissionID: id, Prediction: model.Prediction{MatchID: m.ID, PlayerName: id, Winner: model.OutcomeDraw}}
		}

		_, err = svc.Enqueue(ctx, sub("p1"))
		So(err, ShouldBeNil)
		<-store.entered
		_, err = svc.Enqueue(ctx, sub("p2"))
		So(err, ShouldBeNil)

		Convey("When the queue is full", func() {
			before := counterValue("queue_rejections_total", "full")
			_, err := svc.Enqueue(ctx, sub("p3"))

			Convey("Then the submission is refused and may be retried", func() {
				So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
				So(counterValue("queue_rejections_total", "full")-before, ShouldEqual, 1)

				close(store.release)
				So(svc.Stop(ctx), ShouldBeNil)

				counts, err := store.Store.Counts(ctx)
				So(err, ShouldBeNil)
				So(counts.Predictions, ShouldEqual, 2)
			})
		})
	})
}

func TestService_LatePredictions(t *testing.T) {
	Convey("Given a prediction held by the worker while its match is open", t, func() {
		ctx := context.Background()
		store := &blockingStore{
			Store:   repository.NewMemoryStore(),
			entered: make(chan struct{}, 1),
			release: make(chan struct{}),
		}
		svc := newStarted(service.WithStore(store), service.WithWorkerCount(1))
		defer func() { _ = svc.Stop(ctx) }()

		m, err := svc.CreateMatch(ctx, service.MatchInput{})
		So(err, ShouldBeNil)
		_, err = svc.Enqueue(ctx, model.Submission{
			SubmissionID: "late",
			Prediction:   model.Prediction{MatchID: m.ID, PlayerName: "Ann", Winner: model.OutcomeRed, ScoreRed: model.Goals(3), ScoreBlue: model.Goals(0)},
		})
		So(err, ShouldBeNil)
		<-store.entered
		rejectedBefore := counterValue("predictions_rejected_total", "closed")
		dropped := func() bool { return svc.GetStats(ctx)["rejected"] == int64(1) }

		Convey("When the result is entered before the write lands", func() {
			_, err := svc.FinishMatch(ctx, m.ID, 3, 0, "")
			So(err, ShouldBeNil)
			close(store.release)

			Convey("Then the prediction is dropped and earns nothing", func() {
				So(eventually(dropped), ShouldBeTrue)
				preds, err := store.Store.PredictionsForMatch(ctx, m.ID)
				So(err, ShouldBeNil)
				So(preds, ShouldBeEmpty)

				rows, err := svc.Leaderboard(ctx, 0)
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
				So(svc.GetStats(ctx)["failed"], ShouldEqual, int64(0))
				So(counterValue("predictions_rejected_total", "closed")-rejectedBefore, ShouldEqual, 1)
			})
		})

		Convey("When the match is deleted before the write lands", func() {
			So(svc.DeleteMatch(ctx, m.ID), ShouldBeNil)
			close(store.release)

			Convey("Then no orphan prediction is left behind", func() {
				So(eventually(dropped), ShouldBeTrue)
				all, err := store.Store.Predictions(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldBeEmpty)

				rows, err := svc.Leaderboard(ctx, 0)
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})
		})
	})
}
