package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smfc/matchday/internal/domain/model"
)

// PredictionDependencies defines the prediction operations.
type PredictionDependencies interface {
	// Enqueue validates and queues a submission. duplicate is true when the
	// submission id was already seen.
	Enqueue(ctx context.Context, sub model.Submission) (duplicate bool, err error)
	ScoredPredictions(ctx context.Context, matchID string) ([]model.ScoredPrediction, error)
	DeletePrediction(ctx context.Context, matchID, player string) error
}

// PredictionHandler handles prediction requests.
type PredictionHandler struct {
	deps PredictionDependencies
}

// NewPredictionHandler creates a new prediction handler.
func NewPredictionHandler(deps PredictionDependencies) *PredictionHandler {
	return &PredictionHandler{deps: deps}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePost handles POST /predictions. Accepted submissions are stored
// asynchronously.
func (h *PredictionHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_prediction"
	var sub model.Submission
	if !decodeJSON(w, r, op, &sub) {
		return
	}

	duplicate, err := h.deps.Enqueue(r.Context(), sub)
	switch {
	case err != nil:
		writeFailure(w, Wrap(op, err))
	case duplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	}
}

// HandleListForMatch handles GET /matches/{id}/predictions.
func (h *PredictionHandler) HandleListForMatch(w http.ResponseWriter, r *http.Request) {
	scored, err := h.deps.ScoredPredictions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, Wrap("api.list_predictions", err))
		return
	}
	writeJSON(w, http.StatusOK, scored)
}

// HandleDelete handles DELETE /matches/{id}/predictions/{player}.
func (h *PredictionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeletePrediction(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "player")); err != nil {
		writeFailure(w, Wrap("api.delete_prediction", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
