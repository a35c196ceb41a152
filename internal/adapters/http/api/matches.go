package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/smfc/matchday/internal/app"
	"github.com/smfc/matchday/internal/domain/model"
)

// MatchDependencies defines the fixture lifecycle operations.
type MatchDependencies interface {
	CreateMatch(ctx context.Context, in service.MatchInput) (model.MatchResult, error)
	Match(ctx context.Context, id string) (model.MatchResult, error)
	Matches(ctx context.Context) ([]model.MatchResult, error)
	ActiveMatch(ctx context.Context) (model.MatchResult, error)
	DeleteMatch(ctx context.Context, id string) error
	SetTeams(ctx context.Context, id string, red, blue []string) (model.MatchResult, error)
	UpdateScore(ctx context.Context, id string, red, blue int) (model.MatchResult, error)
	SetMatchStatus(ctx context.Context, id string, status model.MatchStatus) (model.MatchResult, error)
	FinishMatch(ctx context.Context, id string, red, blue int, comments string) (model.MatchResult, error)
	TogglePredictions(ctx context.Context, id string, allow bool) (model.MatchResult, error)
	ResetDraft(ctx context.Context, id string) (model.MatchResult, error)
}

// MatchHandler serves fixtures.
type MatchHandler struct {
	deps MatchDependencies
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies) *MatchHandler {
	return &MatchHandler{deps: deps}
}

type statusRequest struct {
	Status model.MatchStatus `json:"status"`
}

type teamsRequest struct {
	RedTeam  []string `json:"red_team"`
	BlueTeam []string `json:"blue_team"`
}

type scoreRequest struct {
	ScoreRed  *int   `json:"score_red"`
	ScoreBlue *int   `json:"score_blue"`
	Comments  string `json:"comments"`
}

func (s scoreRequest) validate() error {
	if s.ScoreRed == nil || s.ScoreBlue == nil {
		return errors.New("score_red and score_blue are required")
	}
	return nil
}

type predictionsOpenRequest struct {
	Allow *bool `json:"allow"`
}

// HandleCreate handles POST /matches.
func (h *MatchHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_match"
	var in service.MatchInput
	if !decodeJSON(w, r, op, &in) {
		return
	}
	m, err := h.deps.CreateMatch(r.Context(), in)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleList handles GET /matches.
func (h *MatchHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	matches, err := h.deps.Matches(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.list_matches", err))
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleActive handles GET /matches/active.
func (h *MatchHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.ActiveMatch(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.active_match", err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleGet handles GET /matches/{id}.
func (h *MatchHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Match(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, Wrap("api.get_match", err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleDelete handles DELETE /matches/{id}.
func (h *MatchHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteMatch(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, Wrap("api.delete_match", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles PUT /matches/{id}/status.
func (h *MatchHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_status"
	var req statusRequest
	if !decodeJSON(w, r, op, &req) {
		return
	}
	h.respond(w, op)(h.deps.SetMatchStatus(r.Context(), chi.URLParam(r, "id"), req.Status))
}

// HandleTeams handles PUT /matches/{id}/teams.
func (h *MatchHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_teams"
	var req teamsRequest
	if !decodeJSON(w, r, op, &req) {
		return
	}
	h.respond(w, op)(h.deps.SetTeams(r.Context(), chi.URLParam(r, "id"), req.RedTeam, req.BlueTeam))
}

// HandleScore handles PUT /matches/{id}/score, a running score.
func (h *MatchHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_score"
	var req scoreRequest
	if !decodeJSON(w, r, op, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, op)(h.deps.UpdateScore(r.Context(), chi.URLParam(r, "id"), *req.ScoreRed, *req.ScoreBlue))
}

// HandleResult handles PUT /matches/{id}/result, which completes the match.
func (h *MatchHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_result"
	var req scoreRequest
	if !decodeJSON(w, r, op, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, op)(h.deps.FinishMatch(r.Context(), chi.URLParam(r, "id"), *req.ScoreRed, *req.ScoreBlue, req.Comments))
}

// HandlePredictionsOpen handles PUT /matches/{id}/predictions-open.
func (h *MatchHandler) HandlePredictionsOpen(w http.ResponseWriter, r *http.Request) {
	const op = "api.predictions_open"
	var req predictionsOpenRequest
	if !decodeJSON(w, r, op, &req) {
		return
	}
	if req.Allow == nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("allow is required")))
		return
	}
	h.respond(w, op)(h.deps.TogglePredictions(r.Context(), chi.URLParam(r, "id"), *req.Allow))
}

// HandleReset handles POST /matches/{id}/reset.
func (h *MatchHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "api.reset_match")(h.deps.ResetDraft(r.Context(), chi.URLParam(r, "id")))
}

func (h *MatchHandler) respond(w http.ResponseWriter, op string) func(model.MatchResult, error) {
	return func(m model.MatchResult, err error) {
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}
