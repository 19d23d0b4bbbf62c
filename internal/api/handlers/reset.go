package handlers

import (
	"net/http"

	"github.com/quantfolio/portfolio-performance-backend/internal/service"
)

// ResetHandler handles derived-data reset HTTP requests
type ResetHandler struct {
	resetService *service.ResetService
}

// NewResetHandler creates a new ResetHandler
func NewResetHandler(resetService *service.ResetService) *ResetHandler {
	return &ResetHandler{
		resetService: resetService,
	}
}

// Derived deletes the user's normalized transactions and snapshots and moves
// the checkpoint back to the sentinel.
//
// Endpoint: POST /api/reset/derived/{userID}
func (h *ResetHandler) Derived(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondServiceError(w, "Invalid user id", err)
		return
	}

	if err := h.resetService.Reset(r.Context(), userID); err != nil {
		respondServiceError(w, "Failed to reset derived data", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Pricing resets all pricing watermarks and checkpoints and drops the
// gap-filled curves.
//
// Endpoint: POST /api/reset/pricing
func (h *ResetHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	if err := h.resetService.ResetPricing(r.Context()); err != nil {
		respondServiceError(w, "Failed to reset pricing data", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
