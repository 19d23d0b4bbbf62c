package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/quantfolio/portfolio-performance-backend/internal/api/middleware"
	"github.com/quantfolio/portfolio-performance-backend/internal/api/response"
)

//nolint:gocyclo // Comprehensive integration test with multiple subtests
func TestAPIKeyMiddleware(t *testing.T) {
	testAPIKey := "test-api-key-12345"
	os.Setenv("INTERNAL_API_KEY", testAPIKey)
	defer os.Unsetenv("INTERNAL_API_KEY")

	t.Run("rejects request without API key", func(t *testing.T) {
		handlerCalled := false
		testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		mw := middleware.APIKeyMiddleware(testHandler)

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		rctx := chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if handlerCalled {
			t.Error("Expected request not to complete.")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", w.Code)
		}

		var body response.ErrorBody
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&body)

		if body.Detail != "Missing API key" {
			t.Errorf("Expected 'Missing API key' error, got '%s'", body.Detail)
		}
	})

	t.Run("rejects request with invalid API key", func(t *testing.T) {
		handlerCalled := false
		testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		mw := middleware.APIKeyMiddleware(testHandler)

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		rctx := chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		req.Header.Set("X-API-Key", "invalid")

		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if handlerCalled {
			t.Error("Expected request not to complete.")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", w.Code)
		}

		var body response.ErrorBody
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&body)

		if body.Detail != "Invalid API key" {
			t.Errorf("Expected 'Invalid API key' error, got '%s'", body.Detail)
		}
	})

	t.Run("rejects request without time token", func(t *testing.T) {
		handlerCalled := false
		testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		mw := middleware.APIKeyMiddleware(testHandler)

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		rctx := chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		req.Header.Set("X-API-Key", testAPIKey)

		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if handlerCalled {
			t.Error("Expected request not to complete.")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", w.Code)
		}

		var body response.ErrorBody
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&body)

		if body.Detail != "Missing Time token" {
			t.Errorf("Expected 'Missing Time token' error, got '%s'", body.Detail)
		}
	})

	t.Run("rejects request with invalid time token", func(t *testing.T) {
		handlerCalled := false
		testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		mw := middleware.APIKeyMiddleware(testHandler)

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		rctx := chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-Time-Token", "invalid")

		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if handlerCalled {
			t.Error("Expected request not to complete.")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", w.Code)
		}

		var body response.ErrorBody
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&body)

		if body.Detail != "Time token is invalid or expired" {
			t.Errorf("Expected 'Time token is invalid or expired' error, got '%s'", body.Detail)
		}

	})

	t.Run("allows request with valid API key and time token", func(t *testing.T) {
		handlerCalled := false
		testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		mw := middleware.APIKeyMiddleware(testHandler)

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		rctx := chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		req.Header.Set("X-API-Key", testAPIKey)
		timeToken := middleware.GenerateTimeToken(testAPIKey)
		req.Header.Set("X-Time-Token", timeToken)

		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if !handlerCalled {
			t.Error("Expected handler to complete.")
		}
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}

	})

	t.Run("fail on not loaded internal_api_key", func(t *testing.T) {
		handlerCalled := false
		testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		os.Unsetenv("INTERNAL_API_KEY")

		mw := middleware.APIKeyMiddleware(testHandler)

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		rctx := chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if handlerCalled {
			t.Error("Expected request not to complete.")
		}
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected 500, got %d", w.Code)
		}

		var body response.ErrorBody
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&body)

		if body.Detail != "Authentication not loaded" {
			t.Errorf("Expected 'Authentication not loaded' error, got '%s'", body.Detail)
		}
	})
}
