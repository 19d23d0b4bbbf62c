package handlers

import (
	"net/http"

	"github.com/quantfolio/portfolio-performance-backend/internal/service"
)

// ProcessingHandler handles performance computation HTTP requests
type ProcessingHandler struct {
	processingService *service.ProcessingService
}

// NewProcessingHandler creates a new ProcessingHandler
func NewProcessingHandler(processingService *service.ProcessingService) *ProcessingHandler {
	return &ProcessingHandler{
		processingService: processingService,
	}
}

// Run executes a full performance computation run for the user.
//
// Endpoint: POST /api/processing/run/{userID}
func (h *ProcessingHandler) Run(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondServiceError(w, "Invalid user id", err)
		return
	}

	if err := h.processingService.Run(r.Context(), userID); err != nil {
		respondServiceError(w, "Failed to run performance computation", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
