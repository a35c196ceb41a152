package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/smfc/matchday/internal/adapters/http/api"
	service "github.com/smfc/matchday/internal/app"
	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/internal/domain/squad"
	"github.com/smfc/matchday/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

type zeroJitter struct{}

func (zeroJitter) Float64() float64 { return 0.5 }

// failingDeps embeds a real service and overrides selected calls.
type failingDeps struct {
	*service.Service
	enqueueErr error
	boardErr   error
}

func (f *failingDeps) Enqueue(ctx context.Context, sub model.Submission) (bool, error) {
	if f.enqueueErr != nil {
		return false, f.enqueueErr
	}
	return f.Service.Enqueue(ctx, sub)
}

func (f *failingDeps) Leaderboard(ctx context.Context, limit int) ([]api.Entry, error) {
	if f.boardErr != nil {
		return nil, f.boardErr
	}
	return f.Service.Leaderboard(ctx, limit)
}

type client struct {
	h http.Handler
}

func (c client) do(method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		So(err, ShouldBeNil)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
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

func roster() []model.RatedPlayer {
	mk := func(name string, pos model.Position, v float64) model.RatedPlayer {
		return model.RatedPlayer{Name: name, Position: pos, Pace: v, Shooting: v, Passing: v, Dribbling: v, Defending: v, Physicality: v, StarRating: 3}
	}
	return []model.RatedPlayer{
		mk("Ann", model.PositionDEF, 90),
		mk("Bo", model.PositionMID, 80),
		mk("Cy", model.PositionFWD, 70),
		mk("Di", model.PositionFWD, 60),
	}
}

func newClient(deps func(*service.Service) api.Dependencies) (client, *service.Service) {
	svc := service.New(service.WithWorkerCount(2), service.WithBalancerOptions(squad.WithJitterSource(zeroJitter{})))
	So(svc.Start(context.Background()), ShouldBeNil)
	var d api.Dependencies = svc
	if deps != nil {
		d = deps(svc)
	}
	srv := api.NewServer(d, api.WithMaxLeaderboardLimit(10))
	return client{h: srv.Router()}, svc
}

func TestServer_Basics(t *testing.T) {
	Convey("Given a running API", t, func() {
		c, svc := newClient(nil)
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("Then health, stats and metrics respond", func() {
			w := c.do(http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")

			stats := decode[map[string]any](c.do(http.MethodGet, "/stats", nil))
			So(stats["started"], ShouldEqual, true)

			w = c.do(http.MethodGet, "/metrics", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `matchday_http_requests_total{method="GET",route="/stats",status_code="200"}`)
		})

		Convey("Then unknown routes are 404", func() {
			So(c.do(http.MethodGet, "/nope", nil).Code, ShouldEqual, http.StatusNotFound)
			So(c.do(http.MethodPost, "/leaderboard", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_PlayersAndSquads(t *testing.T) {
	Convey("Given an API with a roster", t, func() {
		c, svc := newClient(nil)
		defer func() { _ = svc.Stop(context.Background()) }()
		So(c.do(http.MethodPut, "/players", roster()).Code, ShouldEqual, http.StatusNoContent)

		Convey("Then the roster is listed with overall ratings", func() {
			w := c.do(http.MethodGet, "/players", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			players := decode[[]map[string]any](w)
			So(len(players), ShouldEqual, 4)
			So(players[0]["name"], ShouldEqual, "Ann")
			So(players[0]["ovr"], ShouldEqual, 90.0)
		})

		Convey("When a squad is drafted", func() {
			w := c.do(http.MethodPost, "/squads/draft", map[string]any{"players": []string{"Ann", "Bo", "Cy", "Di"}})
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode[struct {
				model.Squad
				RedStrength  float64 `json:"red_strength"`
				BlueStrength float64 `json:"blue_strength"`
			}](w)

			Convey("Then the teams follow the snake draft", func() {
				So(body.Names(model.TeamRed), ShouldResemble, []string{"Ann", "Di"})
				So(body.Names(model.TeamBlue), ShouldResemble, []string{"Bo", "Cy"})
				So(body.RedStrength, ShouldEqual, 150.0)
				So(body.BlueStrength, ShouldEqual, 150.0)
			})

			Convey("Then a transfer swaps the named players", func() {
				w := c.do(http.MethodPost, "/squads/transfer", map[string]any{"squad": body.Squad, "from_red": "Di", "from_blue": "Cy"})
				So(w.Code, ShouldEqual, http.StatusOK)
				next := decode[model.Squad](w)
				So(next.Names(model.TeamRed), ShouldResemble, []string{"Ann", "Cy"})
			})

			Convey("Then transferring an unknown player is 404", func() {
				w := c.do(http.MethodPost, "/squads/transfer", map[string]any{"squad": body.Squad, "from_red": "Zed", "from_blue": "Cy"})
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode[map[string]string](w)["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When a draft is attached to a match", func() {
			m := decode[model.MatchResult](c.do(http.MethodPost, "/matches", map[string]any{"date": "2026-10-21"}))
			w := c.do(http.MethodPost, "/squads/draft", map[string]any{"players": []string{"Ann", "Bo"}, "guests": []string{"Guest"}, "match_id": m.ID})
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then the match carries the lineups", func() {
				got := decode[model.MatchResult](c.do(http.MethodGet, "/matches/"+m.ID, nil))
				So(len(got.RedTeam)+len(got.BlueTeam), ShouldEqual, 3)
			})
		})

		Convey("When a draft is invalid", func() {
			So(c.do(http.MethodPost, "/squads/draft", map[string]any{"players": []string{"Ann", "Zed"}}).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodPost, "/squads/draft", map[string]any{"players": []string{"Ann"}}).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodPost, "/squads/draft", "{not json").Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodPost, "/squads/transfer", map[string]any{"from_red": "Ann"}).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_MatchLifecycle(t *testing.T) {
	Convey("Given a created match", t, func() {
		c, svc := newClient(nil)
		defer func() { _ = svc.Stop(context.Background()) }()

		w := c.do(http.MethodPost, "/matches", map[string]any{"date": "2026-10-21", "venue": "Powerleague"})
		So(w.Code, ShouldEqual, http.StatusCreated)
		m := decode[model.MatchResult](w)
		base := "/matches/" + m.ID

		Convey("Then it is listed and active", func() {
			So(len(decode[[]model.MatchResult](c.do(http.MethodGet, "/matches", nil))), ShouldEqual, 1)
			So(decode[model.MatchResult](c.do(http.MethodGet, "/matches/active", nil)).ID, ShouldEqual, m.ID)
		})

		Convey("Then it moves through its states", func() {
			w := c.do(http.MethodPut, base+"/status", map[string]string{"status": "live"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[model.MatchResult](w).Status, ShouldEqual, model.MatchLive)

			w = c.do(http.MethodPut, base+"/teams", map[string]any{"red_team": []string{"Ann"}, "blue_team": []string{"Bo"}})
			So(w.Code, ShouldEqual, http.StatusOK)

			w = c.do(http.MethodPut, base+"/score", map[string]int{"score_red": 1, "score_blue": 0})
			So(decode[model.MatchResult](w).ScoreLine(), ShouldEqual, "1-0")

			w = c.do(http.MethodPut, base+"/result", map[string]any{"score_red": 2, "score_blue": 1, "comments": "late winner"})
			So(w.Code, ShouldEqual, http.StatusOK)
			done := decode[model.MatchResult](w)
			So(done.Status, ShouldEqual, model.MatchCompleted)
			So(done.AllowPredictions, ShouldBeFalse)

			So(c.do(http.MethodPut, base+"/predictions-open", map[string]bool{"allow": true}).Code, ShouldEqual, http.StatusConflict)
			So(c.do(http.MethodGet, "/matches/active", nil).Code, ShouldEqual, http.StatusNotFound)

			w = c.do(http.MethodPost, base+"/reset", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[model.MatchResult](w).Status, ShouldEqual, model.MatchDraft)
		})

		Convey("Then bad input is rejected", func() {
			So(c.do(http.MethodPut, base+"/status", map[string]string{"status": "abandoned"}).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodPut, base+"/result", map[string]int{"score_red": 1}).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodPut, base+"/result", map[string]int{"score_red": -1, "score_blue": 0}).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodPut, base+"/predictions-open", map[string]any{}).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodGet, "/matches/missing", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then it can be deleted", func() {
			So(c.do(http.MethodDelete, base, nil).Code, ShouldEqual, http.StatusNoContent)
			So(c.do(http.MethodDelete, base, nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Predictions(t *testing.T) {
	Convey("Given an open match", t, func() {
		c, svc := newClient(nil)
		defer func() { _ = svc.Stop(context.Background()) }()
		m := decode[model.MatchResult](c.do(http.MethodPost, "/matches", map[string]any{"date": "2026-10-21"}))

		post := func(id, player, winner string, red, blue int) *httptest.ResponseRecorder {
			return c.do(http.MethodPost, "/predictions", map[string]any{
				"submission_id": id, "match_id": m.ID, "player_name": player,
				"prediction": winner, "pred_goals_red": red, "pred_goals_blue": blue,
			})
		}

		Convey("When predictions are posted", func() {
			w := post("s1", "Ann", "red", 2, 0)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(decode[map[string]any](w)["status"], ShouldEqual, "accepted")
			So(post("s2", "Bo", "blue", 0, 1).Code, ShouldEqual, http.StatusAccepted)

			Convey("Then a repeated submission id is a duplicate", func() {
				w := post("s1", "Ann", "red", 2, 0)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]any](w)["duplicate"], ShouldEqual, true)
			})

			Convey("Then after the result the leaderboard is scored", func() {
				So(eventually(func() bool {
					return len(decode[[]model.ScoredPrediction](c.do(http.MethodGet, "/matches/"+m.ID+"/predictions", nil))) == 2
				}), ShouldBeTrue)
				So(c.do(http.MethodPut, "/matches/"+m.ID+"/result", map[string]int{"score_red": 2, "score_blue": 0}).Code, ShouldEqual, http.StatusOK)

				board := decode[[]api.Entry](c.do(http.MethodGet, "/leaderboard", nil))
				So(len(board), ShouldEqual, 2)
				So(board[0].Name, ShouldEqual, "Ann")
				So(board[0].Total, ShouldEqual, 7)
				So(board[0].Rank, ShouldEqual, 1)
				So(board[1].Total, ShouldEqual, 0)

				So(len(decode[[]api.Entry](c.do(http.MethodGet, "/leaderboard?limit=1", nil))), ShouldEqual, 1)

				rank := decode[api.Entry](c.do(http.MethodGet, "/rank/Bo", nil))
				So(rank.Rank, ShouldEqual, 2)
				So(c.do(http.MethodGet, "/rank/Nobody", nil).Code, ShouldEqual, http.StatusNotFound)

				top := decode[model.TopScorers](c.do(http.MethodGet, "/leaderboard/last-match", nil))
				So(top.Players, ShouldResemble, []string{"Ann"})
				So(top.MatchScore, ShouldEqual, "2-0")

				So(post("s3", "Cy", "draw", 1, 1).Code, ShouldEqual, http.StatusConflict)
			})

			Convey("Then a prediction can be deleted", func() {
				So(eventually(func() bool {
					return c.do(http.MethodDelete, "/matches/"+m.ID+"/predictions/Bo", nil).Code == http.StatusNoContent
				}), ShouldBeTrue)
				So(c.do(http.MethodDelete, "/matches/"+m.ID+"/predictions/Bo", nil).Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the leaderboard limit is invalid", func() {
			So(c.do(http.MethodGet, "/leaderboard?limit=0", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodGet, "/leaderboard?limit=abc", nil).Code, ShouldEqual, http.StatusBadRequest)
			w := c.do(http.MethodGet, "/leaderboard?limit=11", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[map[string]string](w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When no match is completed", func() {
			So(c.do(http.MethodGet, "/leaderboard/last-match", nil).Code, ShouldEqual, http.StatusNoContent)
		})

		Convey("When a submission is malformed or targets nothing", func() {
			So(c.do(http.MethodPost, "/predictions", map[string]any{"match_id": m.ID}).Code, ShouldEqual, http.StatusBadRequest)
			So(c.do(http.MethodPost, "/predictions", map[string]any{"match_id": "nope", "player_name": "Ann", "prediction": "red"}).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Failures(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		c, svc := newClient(func(s *service.Service) api.Dependencies {
			return &failingDeps{Service: s, enqueueErr: service.ErrBackpressure, boardErr: errors.New("disk on fire")}
		})
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("Then backpressure is 429", func() {
			w := c.do(http.MethodPost, "/predictions", map[string]any{"match_id": "m", "player_name": "Ann", "prediction": "red"})
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode[map[string]string](w)["code"], ShouldEqual, "backpressure")
		})

		Convey("Then unexpected errors are 500 with the operation name", func() {
			w := c.do(http.MethodGet, "/leaderboard", nil)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			body := decode[map[string]string](w)
			So(body["code"], ShouldEqual, "internal_error")
			So(body["message"], ShouldEqual, "api.get_leaderboard: disk on fire")
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given operation errors", t, func() {
		So(api.Wrap("op", nil), ShouldBeNil)

		err := api.WrapKind("api.x", api.ErrBadRequest, errors.New("boom"))
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.x: boom")

		kind := api.NewKind("api.y", api.ErrNotFound)
		So(errors.Is(kind, service.ErrNotFound), ShouldBeTrue)
		So(kind.Error(), ShouldEqual, "api.y: not found")
	})
}
