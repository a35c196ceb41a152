package api

import (
	"context"
	"net/http"

	"github.com/smfc/matchday/internal/domain/model"
)

// PlayerDependencies defines the roster operations.
type PlayerDependencies interface {
	Roster(ctx context.Context) ([]model.RatedPlayer, error)
	ReplaceRoster(ctx context.Context, players []model.RatedPlayer) error
}

// PlayerHandler serves the roster.
type PlayerHandler struct {
	deps PlayerDependencies
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies) *PlayerHandler {
	return &PlayerHandler{deps: deps}
}

type playerResponse struct {
	model.RatedPlayer
	Overall float64 `json:"ovr"`
}

// HandleList handles GET /players.
func (h *PlayerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_players"
	roster, err := h.deps.Roster(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	out := make([]playerResponse, len(roster))
	for i, p := range roster {
		out[i] = playerResponse{RatedPlayer: p, Overall: p.Overall()}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleReplace handles PUT /players with a JSON array of players.
func (h *PlayerHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_players"
	var players []model.RatedPlayer
	if !decodeJSON(w, r, op, &players) {
		return
	}
	if err := h.deps.ReplaceRoster(r.Context(), players); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
