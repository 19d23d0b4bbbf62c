package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quantfolio/portfolio-performance-backend/internal/api/handlers"
	"github.com/quantfolio/portfolio-performance-backend/internal/service"
	"github.com/quantfolio/portfolio-performance-backend/internal/testutil"
)

// TestSystemHandler_Health tests the health endpoint.
//
// WHY: Load balancers and container orchestration rely on this endpoint;
// it must report database connectivity honestly.
func TestSystemHandler_Health(t *testing.T) {
	t.Run("healthy with a live database", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewSystemHandler(service.NewSystemService(db))

		req := httptest.NewRequest(http.MethodGet, "/api/system/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}

		var body handlers.HealthResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body.Status != "healthy" || body.Database != "connected" {
			t.Errorf("Expected healthy/connected, got %s/%s", body.Status, body.Database)
		}
	})

	t.Run("unhealthy with a closed database", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		db.Close()
		handler := handlers.NewSystemHandler(service.NewSystemService(db))

		req := httptest.NewRequest(http.MethodGet, "/api/system/health", nil)
		w := httptest.NewRecorder()

		handler.Health(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", w.Code)
		}
	})
}

// TestSystemHandler_Version tests the version endpoint.
func TestSystemHandler_Version(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewSystemHandler(service.NewSystemService(db))

	req := httptest.NewRequest(http.MethodGet, "/api/system/version", nil)
	w := httptest.NewRecorder()

	handler.Version(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var body handlers.VersionResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.AppVersion == "" {
		t.Error("Expected a version string")
	}
}
