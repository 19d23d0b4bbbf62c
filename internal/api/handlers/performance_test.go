package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quantfolio/portfolio-performance-backend/internal/api/handlers"
	"github.com/quantfolio/portfolio-performance-backend/internal/testutil"
)

// TestPerformanceHandler_Status tests the status endpoint's parameter
// handling and error mapping.
//
// WHY: The handler layer owns the HTTP contract: numeric path parameters,
// 400 for garbage input, 404 for unknown users.
func TestPerformanceHandler_Status(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.NewAggregate().WithUserID(1).WithCheckpointDate("2024-06-01").Build(t, db)
	handler := handlers.NewPerformanceHandler(testutil.NewTestPerformanceService(t, db))

	t.Run("reports checkpoint for a known user", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/performance/status/1",
			map[string]string{"userID": "1"})
		w := httptest.NewRecorder()

		handler.Status(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body["checkpointDate"] != "2024-06-01" {
			t.Errorf("Expected checkpoint 2024-06-01, got %v", body["checkpointDate"])
		}
	})

	t.Run("404 for an unknown user", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/performance/status/99",
			map[string]string{"userID": "99"})
		w := httptest.NewRecorder()

		handler.Status(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("400 for a non-numeric user id", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/performance/status/abc",
			map[string]string{"userID": "abc"})
		w := httptest.NewRecorder()

		handler.Status(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

// TestPerformanceHandler_Series tests the series endpoints' range handling.
func TestPerformanceHandler_Series(t *testing.T) {
	db := testutil.SetupTestDB(t)
	aggregate := testutil.NewAggregate().WithUserID(1).Build(t, db)
	testutil.NewPortfolio(aggregate.ID).Build(t, db)
	handler := handlers.NewPerformanceHandler(testutil.NewTestPerformanceService(t, db))

	t.Run("empty series for a portfolio without snapshots", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/performance/portfolio/1",
			map[string]string{"portfolioID": "1"})
		w := httptest.NewRecorder()

		handler.PortfolioSeries(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}

		var series []map[string]any
		if err := json.NewDecoder(w.Body).Decode(&series); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if len(series) != 0 {
			t.Errorf("Expected empty series, got %d rows", len(series))
		}
	})

	t.Run("400 for a malformed range bound", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/performance/portfolio/1",
			map[string]string{"portfolioID": "1"})
		q := req.URL.Query()
		q.Set("from", "not-a-date")
		req.URL.RawQuery = q.Encode()
		w := httptest.NewRecorder()

		handler.PortfolioSeries(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("404 for an unknown portfolio", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/performance/portfolio/999",
			map[string]string{"portfolioID": "999"})
		w := httptest.NewRecorder()

		handler.PortfolioSeries(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}
