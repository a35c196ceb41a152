package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/smfc/matchday/internal/domain/model"
)

// SquadDependencies defines the balancing operations. SetTeams is used to
// attach a fresh draft to a match.
type SquadDependencies interface {
	Draft(ctx context.Context, names, guests []string) (model.Squad, error)
	Transfer(ctx context.Context, current model.Squad, fromRed, fromBlue string) (model.Squad, error)
	SetTeams(ctx context.Context, id string, red, blue []string) (model.MatchResult, error)
}

// SquadHandler serves draft and transfer requests.
type SquadHandler struct {
	deps SquadDependencies
}

// NewSquadHandler creates a new squad handler.
func NewSquadHandler(deps SquadDependencies) *SquadHandler {
	return &SquadHandler{deps: deps}
}

type draftRequest struct {
	Players []string `json:"players"`
	Guests  []string `json:"guests"`
	MatchID string   `json:"match_id,omitempty"`
}

type transferRequest struct {
	Squad    model.Squad `json:"squad"`
	FromRed  string      `json:"from_red"`
	FromBlue string      `json:"from_blue"`
}

type squadResponse struct {
	model.Squad
	RedStrength  float64 `json:"red_strength"`
	BlueStrength float64 `json:"blue_strength"`
}

func newSquadResponse(s model.Squad) squadResponse {
	return squadResponse{
		Squad:        s,
		RedStrength:  s.Strength(model.TeamRed),
		BlueStrength: s.Strength(model.TeamBlue),
	}
}

// HandleDraft handles POST /squads/draft. When match_id is given the
// drafted lineups are stored on that match.
func (h *SquadHandler) HandleDraft(w http.ResponseWriter, r *http.Request) {
	const op = "api.draft"
	var req draftRequest
	if !decodeJSON(w, r, op, &req) {
		return
	}
	squad, err := h.deps.Draft(r.Context(), req.Players, req.Guests)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if req.MatchID != "" {
		if _, err := h.deps.SetTeams(r.Context(), req.MatchID, squad.Names(model.TeamRed), squad.Names(model.TeamBlue)); err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
	}
	writeJSON(w, http.StatusOK, newSquadResponse(squad))
}

// HandleTransfer handles POST /squads/transfer.
func (h *SquadHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	const op = "api.transfer"
	var req transferRequest
	if !decodeJSON(w, r, op, &req) {
		return
	}
	if req.FromRed == "" || req.FromBlue == "" {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("from_red and from_blue are required")))
		return
	}
	squad, err := h.deps.Transfer(r.Context(), req.Squad, req.FromRed, req.FromBlue)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, newSquadResponse(squad))
}
