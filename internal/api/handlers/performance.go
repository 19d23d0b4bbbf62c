package handlers

import (
	"net/http"

	"github.com/quantfolio/portfolio-performance-backend/internal/service"
)

// PerformanceHandler handles snapshot series and report HTTP requests
type PerformanceHandler struct {
	performanceService *service.PerformanceService
}

// NewPerformanceHandler creates a new PerformanceHandler
func NewPerformanceHandler(performanceService *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{
		performanceService: performanceService,
	}
}

// PositionSeries returns one position's daily snapshots, optionally bounded
// by ?from= and ?to=.
//
// Endpoint: GET /api/performance/position/{portfolioID}/{assetID}
func (h *PerformanceHandler) PositionSeries(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := pathID(r, "portfolioID")
	if err != nil {
		respondServiceError(w, "Invalid portfolio id", err)
		return
	}
	assetID, err := pathID(r, "assetID")
	if err != nil {
		respondServiceError(w, "Invalid asset id", err)
		return
	}

	series, err := h.performanceService.GetPositionSeries(
		portfolioID, assetID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondServiceError(w, "Failed to retrieve position series", err)
		return
	}

	respondJSON(w, http.StatusOK, series)
}

// GroupSeries returns one weighting group's daily snapshots.
//
// Endpoint: GET /api/performance/group/{groupID}
func (h *PerformanceHandler) GroupSeries(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		respondServiceError(w, "Invalid group id", err)
		return
	}

	series, err := h.performanceService.GetGroupSeries(
		groupID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondServiceError(w, "Failed to retrieve group series", err)
		return
	}

	respondJSON(w, http.StatusOK, series)
}

// PortfolioSeries returns one portfolio's daily snapshots.
//
// Endpoint: GET /api/performance/portfolio/{portfolioID}
func (h *PerformanceHandler) PortfolioSeries(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := pathID(r, "portfolioID")
	if err != nil {
		respondServiceError(w, "Invalid portfolio id", err)
		return
	}

	series, err := h.performanceService.GetPortfolioSeries(
		portfolioID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondServiceError(w, "Failed to retrieve portfolio series", err)
		return
	}

	respondJSON(w, http.StatusOK, series)
}

// AggregateSeries returns the user's aggregate daily snapshots.
//
// Endpoint: GET /api/performance/aggregate/{userID}
func (h *PerformanceHandler) AggregateSeries(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondServiceError(w, "Invalid user id", err)
		return
	}

	series, err := h.performanceService.GetAggregateSeries(
		userID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondServiceError(w, "Failed to retrieve aggregate series", err)
		return
	}

	respondJSON(w, http.StatusOK, series)
}

// GroupWeights reports each group's actual share of the portfolio market
// value on ?date= against its model weight.
//
// Endpoint: GET /api/performance/weights/{portfolioID}
func (h *PerformanceHandler) GroupWeights(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := pathID(r, "portfolioID")
	if err != nil {
		respondServiceError(w, "Invalid portfolio id", err)
		return
	}

	weights, err := h.performanceService.GetGroupWeights(portfolioID, r.URL.Query().Get("date"))
	if err != nil {
		respondServiceError(w, "Failed to compute group weights", err)
		return
	}

	respondJSON(w, http.StatusOK, weights)
}

// PortfolioAt returns the portfolio's newest snapshot at or before ?date=.
//
// Endpoint: GET /api/performance/portfolio/{portfolioID}/at
func (h *PerformanceHandler) PortfolioAt(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := pathID(r, "portfolioID")
	if err != nil {
		respondServiceError(w, "Invalid portfolio id", err)
		return
	}

	snapshot, err := h.performanceService.GetPortfolioSnapshotAt(portfolioID, r.URL.Query().Get("date"))
	if err != nil {
		respondServiceError(w, "Failed to retrieve portfolio snapshot", err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// AggregateAt returns the user's newest aggregate snapshot at or before ?date=.
//
// Endpoint: GET /api/performance/aggregate/{userID}/at
func (h *PerformanceHandler) AggregateAt(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondServiceError(w, "Invalid user id", err)
		return
	}

	snapshot, err := h.performanceService.GetAggregateSnapshotAt(userID, r.URL.Query().Get("date"))
	if err != nil {
		respondServiceError(w, "Failed to retrieve aggregate snapshot", err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// Status reports the user's recomputation checkpoint and newest snapshot date.
//
// Endpoint: GET /api/performance/status/{userID}
func (h *PerformanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondServiceError(w, "Invalid user id", err)
		return
	}

	status, err := h.performanceService.GetStatus(userID)
	if err != nil {
		respondServiceError(w, "Failed to retrieve performance status", err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}
