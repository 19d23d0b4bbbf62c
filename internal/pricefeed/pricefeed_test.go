package pricefeed_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/pricefeed"
)

// chartJSON renders a minimal chart API payload for two trading days.
// adjclose toggles the adjusted close series, which currency pairs lack.
func chartJSON(adjclose bool) string {
	adj := ""
	if adjclose {
		adj = `,"adjclose":[{"adjclose":[9.5,10.5]}]`
	}
	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"meta": {"currency": "USD", "symbol": "ACME"},
				"timestamp": [1704153600, 1704240000],
				"indicators": {
					"quote": [{
						"open": [10, 11],
						"high": [10.5, 11.5],
						"low": [9.5, 10.5],
						"close": [10.2, 11.2],
						"volume": [100, 200]
					}]%s
				}
			}],
			"error": null
		}
	}`, adj)
}

// TestClient_FetchDailyBars tests the chart API client.
//
// WHY: The client must map the nested chart payload to daily bars, fall
// back to the close series when there is no adjusted close, and classify
// failures: a dead feed wraps ErrPriceFeedUnavailable so callers abort, an
// unknown symbol fails plainly so callers skip it.
func TestClient_FetchDailyBars(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	t.Run("parses bars with adjusted close", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, chartJSON(true))
		}))
		defer server.Close()

		bars, err := pricefeed.NewClient(server.URL).FetchDailyBars(context.Background(), "ACME", start, end)
		if err != nil {
			t.Fatalf("FetchDailyBars() returned unexpected error: %v", err)
		}

		if len(bars) != 2 {
			t.Fatalf("Expected 2 bars, got %d", len(bars))
		}
		if bars[0].Date != "2024-01-02" {
			t.Errorf("Expected first bar dated 2024-01-02, got %s", bars[0].Date)
		}
		if bars[0].Close != 10.2 || bars[0].AdjClose != 9.5 {
			t.Errorf("Expected close 10.2 / adjClose 9.5, got %f / %f", bars[0].Close, bars[0].AdjClose)
		}
	})

	t.Run("falls back to close without adjusted series", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, chartJSON(false))
		}))
		defer server.Close()

		bars, err := pricefeed.NewClient(server.URL).FetchDailyBars(context.Background(), "USDEUR=X", start, end)
		if err != nil {
			t.Fatalf("FetchDailyBars() returned unexpected error: %v", err)
		}

		if bars[1].AdjClose != bars[1].Close {
			t.Errorf("Expected adjClose to fall back to close, got %f vs %f", bars[1].AdjClose, bars[1].Close)
		}
	})

	t.Run("symbol error is a plain error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"chart": {"result": [], "error": "No data found, symbol may be delisted"}}`)
		}))
		defer server.Close()

		_, err := pricefeed.NewClient(server.URL).FetchDailyBars(context.Background(), "GONE", start, end)
		if err == nil {
			t.Fatal("Expected an error for an unknown symbol")
		}
		if errors.Is(err, apperrors.ErrPriceFeedUnavailable) {
			t.Errorf("Expected a plain symbol error, got feed unavailable: %v", err)
		}
	})

	t.Run("server error wraps feed unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := pricefeed.NewClient(server.URL).FetchDailyBars(context.Background(), "ACME", start, end)
		if !errors.Is(err, apperrors.ErrPriceFeedUnavailable) {
			t.Errorf("Expected ErrPriceFeedUnavailable, got %v", err)
		}
	})

	t.Run("unreachable feed wraps feed unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		server.Close()

		_, err := pricefeed.NewClient(server.URL).FetchDailyBars(context.Background(), "ACME", start, end)
		if !errors.Is(err, apperrors.ErrPriceFeedUnavailable) {
			t.Errorf("Expected ErrPriceFeedUnavailable, got %v", err)
		}
	})
}
