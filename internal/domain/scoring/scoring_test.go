package scoring_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/smfc/matchday/internal/domain/model"
	scoring "github.com/smfc/matchday/internal/domain/scoring"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func completed(id string, red, blue int, at time.Time) model.MatchResult {
	return model.MatchResult{
		ID:        id,
		Status:    model.MatchCompleted,
		ScoreRed:  model.Goals(red),
		ScoreBlue: model.Goals(blue),
		CreatedAt: at,
	}
}

func pending(id string, at time.Time) model.MatchResult {
	return model.MatchResult{ID: id, Status: model.MatchLive, CreatedAt: at}
}

func predict(matchID, player string, winner model.Outcome, red, blue *int) model.Prediction {
	return model.Prediction{MatchID: matchID, PlayerName: player, Winner: winner, ScoreRed: red, ScoreBlue: blue}
}

func TestScorePrediction(t *testing.T) {
	Convey("Given a completed 3-0 match", t, func() {
		m := completed("m1", 3, 0, t0)

		Convey("When the prediction is exact", func() {
			pts := scoring.ScorePrediction(predict("m1", "ann", model.OutcomeRed, model.Goals(3), model.Goals(0)), m)

			Convey("Then it earns the maximum", func() {
				So(pts, ShouldResemble, model.Points{Total: 7, Result: 3, RedScore: 2, BlueScore: 2})
				So(pts.Total, ShouldEqual, scoring.MaxPoints)
			})
		})

		Convey("When the winner is wrong but both scores are right", func() {
			pts := scoring.ScorePrediction(predict("m1", "ann", model.OutcomeBlue, model.Goals(3), model.Goals(0)), m)

			Convey("Then the score categories still award independently", func() {
				So(pts.Result, ShouldEqual, 0)
				So(pts.RedScore, ShouldEqual, 2)
				So(pts.BlueScore, ShouldEqual, 2)
				So(pts.Total, ShouldEqual, 4)
			})
		})

		Convey("When only the winner is right", func() {
			pts := scoring.ScorePrediction(predict("m1", "ann", model.OutcomeRed, model.Goals(2), model.Goals(1)), m)
			So(pts, ShouldResemble, model.Points{Total: 3, Result: 3})
		})

		Convey("When only the blue score is right", func() {
			pts := scoring.ScorePrediction(predict("m1", "ann", model.OutcomeDraw, model.Goals(1), model.Goals(0)), m)
			So(pts, ShouldResemble, model.Points{Total: 2, BlueScore: 2})
		})

		Convey("When the winner is missing it is derived from the scores", func() {
			pts := scoring.ScorePrediction(predict("m1", "ann", model.OutcomeUnknown, model.Goals(2), model.Goals(0)), m)
			So(pts, ShouldResemble, model.Points{Total: 5, Result: 3, BlueScore: 2})
		})

		Convey("When the winner and one score are missing", func() {
			pts := scoring.ScorePrediction(predict("m1", "ann", model.OutcomeUnknown, model.Goals(3), nil), m)

			Convey("Then the outcome does not match but the red score still counts", func() {
				So(pts, ShouldResemble, model.Points{Total: 2, RedScore: 2})
			})
		})

		Convey("When the prediction is empty", func() {
			pts := scoring.ScorePrediction(model.Prediction{MatchID: "m1"}, m)
			So(pts, ShouldResemble, model.Points{})
		})
	})

	Convey("Given a 0-0 draw", t, func() {
		m := completed("m2", 0, 0, t0)

		Convey("When a draw is predicted with a wrong scoreline", func() {
			pts := scoring.ScorePrediction(predict("m2", "bo", model.OutcomeDraw, model.Goals(1), model.Goals(1)), m)
			So(pts, ShouldResemble, model.Points{Total: 3, Result: 3})
		})

		Convey("When the explicit winner contradicts an exact scoreline", func() {
			pts := scoring.ScorePrediction(predict("m2", "bo", model.OutcomeRed, model.Goals(0), model.Goals(0)), m)
			So(pts, ShouldResemble, model.Points{Total: 4, RedScore: 2, BlueScore: 2})
		})
	})

	Convey("Given a match that is not completed", t, func() {
		exact := predict("m3", "cy", model.OutcomeRed, model.Goals(3), model.Goals(0))

		Convey("When it is pending with scores filled in", func() {
			m := pending("m3", t0)
			m.ScoreRed, m.ScoreBlue = model.Goals(3), model.Goals(0)
			So(scoring.ScorePrediction(exact, m).Total, ShouldEqual, 0)
		})

		Convey("When it is completed but a score is missing", func() {
			m := completed("m3", 3, 0, t0)
			m.ScoreBlue = nil
			So(scoring.ScorePrediction(exact, m), ShouldResemble, model.Points{})
		})
	})
}

func TestPredictedOutcome(t *testing.T) {
	Convey("Given predictions with and without an explicit winner", t, func() {
		So(scoring.PredictedOutcome(predict("", "", model.OutcomeBlue, model.Goals(5), model.Goals(0))), ShouldEqual, model.OutcomeBlue)
		So(scoring.PredictedOutcome(predict("", "", "", model.Goals(1), model.Goals(2))), ShouldEqual, model.OutcomeBlue)
		So(scoring.PredictedOutcome(predict("", "", "", model.Goals(2), model.Goals(2))), ShouldEqual, model.OutcomeDraw)
		So(scoring.PredictedOutcome(predict("", "", "", nil, model.Goals(2))), ShouldEqual, model.OutcomeUnknown)
	})
}

func TestBuildLeaderboard(t *testing.T) {
	Convey("Given a player with three predictions and one completed match", t, func() {
		matches := []model.MatchResult{
			completed("done", 2, 1, t0),
			pending("live", t0.Add(time.Hour)),
		}
		predictions := []model.Prediction{
			predict("done", "dee", model.OutcomeRed, model.Goals(2), model.Goals(0)), // 3 + 2
			predict("live", "dee", model.OutcomeBlue, model.Goals(0), model.Goals(1)),
			predict("missing", "dee", model.OutcomeDraw, nil, nil),
		}

		board := scoring.BuildLeaderboard(matches, predictions)

		Convey("Then only the completed match scores but every prediction counts as played", func() {
			want := []model.LeaderboardEntry{{Name: "dee", Total: 5, ResultPoints: 3, RedScorePoints: 2, Played: 3}}
			So(cmp.Diff(want, board), ShouldBeEmpty)
		})
	})

	Convey("Given several players", t, func() {
		matches := []model.MatchResult{
			completed("m1", 3, 0, t0),
			completed("m2", 1, 1, t0.Add(24*time.Hour)),
			pending("m3", t0.Add(48*time.Hour)),
		}
		predictions := []model.Prediction{
			predict("m1", "eve", model.OutcomeRed, model.Goals(3), model.Goals(0)),  // 7
			predict("m1", "fin", model.OutcomeRed, model.Goals(1), model.Goals(0)),  // 5
			predict("m2", "fin", model.OutcomeBlue, model.Goals(0), model.Goals(2)), // 0
			predict("m3", "fin", model.OutcomeRed, model.Goals(1), model.Goals(0)),  // pending
			predict("m2", "gus", model.OutcomeDraw, model.Goals(1), model.Goals(1)), // 7
			predict("m1", "hal", model.OutcomeRed, model.Goals(2), model.Goals(0)),  // 5
			predict("m2", "ivy", model.OutcomeDraw, model.Goals(2), model.Goals(2)), // 3
			predict("m1", "ivy", model.OutcomeBlue, model.Goals(0), model.Goals(0)), // 2
		}

		board := scoring.BuildLeaderboard(matches, predictions)

		Convey("Then rows are ordered by points, then fewer played, then name", func() {
			want := []model.LeaderboardEntry{
				{Name: "eve", Total: 7, ResultPoints: 3, RedScorePoints: 2, BlueScorePoints: 2, Played: 1},
				{Name: "gus", Total: 7, ResultPoints: 3, RedScorePoints: 2, BlueScorePoints: 2, Played: 1},
				{Name: "hal", Total: 5, ResultPoints: 3, BlueScorePoints: 2, Played: 1},
				{Name: "ivy", Total: 5, ResultPoints: 3, BlueScorePoints: 2, Played: 2},
				{Name: "fin", Total: 5, ResultPoints: 3, BlueScorePoints: 2, Played: 3},
			}
			So(cmp.Diff(want, board), ShouldBeEmpty)
		})

		Convey("Then building twice yields identical output", func() {
			So(cmp.Diff(board, scoring.BuildLeaderboard(matches, predictions)), ShouldBeEmpty)
		})

		Convey("Then the inputs are not reordered", func() {
			So(predictions[0].PlayerName, ShouldEqual, "eve")
			So(matches[2].ID, ShouldEqual, "m3")
		})
	})

	Convey("Given no predictions", t, func() {
		So(scoring.BuildLeaderboard([]model.MatchResult{completed("m", 1, 0, t0)}, nil), ShouldBeEmpty)
	})
}

func TestTopScorersOfLastMatch(t *testing.T) {
	Convey("Given several completed matches", t, func() {
		matches := []model.MatchResult{
			completed("old", 1, 0, t0),
			completed("new", 2, 2, t0.Add(7*24*time.Hour)),
			pending("future", t0.Add(14*24*time.Hour)),
		}

		Convey("When several players tie on the best total", func() {
			predictions := []model.Prediction{
				predict("old", "ann", model.OutcomeRed, model.Goals(1), model.Goals(0)),
				predict("new", "bo", model.OutcomeDraw, model.Goals(1), model.Goals(1)),  // 3
				predict("new", "cy", model.OutcomeRed, model.Goals(2), model.Goals(0)),   // 2
				predict("new", "dee", model.OutcomeDraw, model.Goals(0), model.Goals(0)), // 3
			}

			top := scoring.TopScorersOfLastMatch(matches, predictions)

			Convey("Then all of them are reported with the score of the most recent match", func() {
				So(top, ShouldNotBeNil)
				So(top.MatchID, ShouldEqual, "new")
				So(top.MatchScore, ShouldEqual, "2-2")
				So(top.TopScore, ShouldEqual, 3)
				So(top.Players, ShouldResemble, []string{"bo", "dee"})
			})
		})

		Convey("When nobody scored", func() {
			predictions := []model.Prediction{
				predict("new", "bo", model.OutcomeRed, model.Goals(1), model.Goals(0)),
				predict("new", "cy", model.OutcomeBlue, model.Goals(0), model.Goals(1)),
			}

			top := scoring.TopScorersOfLastMatch(matches, predictions)

			Convey("Then the zero tie is still reported", func() {
				So(top.TopScore, ShouldEqual, 0)
				So(top.Players, ShouldResemble, []string{"bo", "cy"})
			})
		})

		Convey("When the last match has no predictions", func() {
			top := scoring.TopScorersOfLastMatch(matches, nil)

			Convey("Then the match is reported with no players", func() {
				So(top.MatchID, ShouldEqual, "new")
				So(top.Players, ShouldBeEmpty)
				So(top.TopScore, ShouldEqual, 0)
			})
		})
	})

	Convey("Given two completed matches created at the same instant", t, func() {
		matches := []model.MatchResult{completed("a", 1, 0, t0), completed("b", 0, 1, t0)}
		last, ok := scoring.LastCompleted(matches)
		So(ok, ShouldBeTrue)
		So(last.ID, ShouldEqual, "b")
	})

	Convey("Given no completed match", t, func() {
		So(scoring.TopScorersOfLastMatch([]model.MatchResult{pending("p", t0)}, nil), ShouldBeNil)
	})
}
