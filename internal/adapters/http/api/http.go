// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smfc/matchday/internal/domain/types"
	"github.com/smfc/matchday/pkg/metrics"
)

const (
	defaultMaxLeaderboardLimit = 100
	maxBodyBytes               = 1 << 20
)

// Dependencies required by HTTP handlers. Each handler only sees the
// slice of it that it needs.
type Dependencies interface {
	StatsProvider
	PlayerDependencies
	SquadDependencies
	MatchDependencies
	PredictionDependencies
	LeaderboardDependencies
	RankDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	playerHandler      *PlayerHandler
	squadHandler       *SquadHandler
	matchHandler       *MatchHandler
	predictionHandler  *PredictionHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	maxLeaderboardLimit int
}

// WithMaxLeaderboardLimit caps the limit query parameter of /leaderboard.
func WithMaxLeaderboardLimit(n int) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxLeaderboardLimit = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := serverOptions{maxLeaderboardLimit: defaultMaxLeaderboardLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		playerHandler:      NewPlayerHandler(deps),
		squadHandler:       NewSquadHandler(deps),
		matchHandler:       NewMatchHandler(deps),
		predictionHandler:  NewPredictionHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, o.maxLeaderboardLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.Recoverer, MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/players", func(r chi.Router) {
		r.Get("/", s.playerHandler.HandleList)
		r.Put("/", s.playerHandler.HandleReplace)
	})

	r.Route("/squads", func(r chi.Router) {
		r.Post("/draft", s.squadHandler.HandleDraft)
		r.Post("/transfer", s.squadHandler.HandleTransfer)
	})

	r.Route("/matches", func(r chi.Router) {
		r.Post("/", s.matchHandler.HandleCreate)
		r.Get("/", s.matchHandler.HandleList)
		r.Get("/active", s.matchHandler.HandleActive)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.matchHandler.HandleGet)
			r.Delete("/", s.matchHandler.HandleDelete)
			r.Put("/status", s.matchHandler.HandleStatus)
			r.Put("/teams", s.matchHandler.HandleTeams)
			r.Put("/score", s.matchHandler.HandleScore)
			r.Put("/result", s.matchHandler.HandleResult)
			r.Put("/predictions-open", s.matchHandler.HandlePredictionsOpen)
			r.Post("/reset", s.matchHandler.HandleReset)
			r.Get("/predictions", s.predictionHandler.HandleListForMatch)
			r.Delete("/predictions/{player}", s.predictionHandler.HandleDelete)
		})
	})

	r.Post("/predictions", s.predictionHandler.HandlePost)

	r.Get("/leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
	r.Get("/leaderboard/last-match", s.leaderboardHandler.HandleLastMatch)
	r.Get("/rank/{player}", s.rankHandler.HandleGetRank)
}

// Router returns a fresh chi router with every route registered.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error chain.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("decode body: %w", err)))
		return false
	}
	return true
}
