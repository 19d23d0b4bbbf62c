package handlers

import (
	"net/http"

	"github.com/quantfolio/portfolio-performance-backend/internal/service"
)

// PricingHandler handles price ingestion HTTP requests
type PricingHandler struct {
	pricingService *service.PricingService
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(pricingService *service.PricingService) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
	}
}

// Refresh loads new daily prices for every known instrument and rebuilds
// their gap-filled curves.
//
// Endpoint: POST /api/pricings/refresh
func (h *PricingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.pricingService.RefreshAllPrices(r.Context()); err != nil {
		respondServiceError(w, "Failed to refresh prices", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
