package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// Feed fetches daily price bars for an instrument symbol. Both dates are
// inclusive; returned bars are ordered by date, formatted "2006-01-02".
type Feed interface {
	FetchDailyBars(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.PriceBar, error)
}

// Client implements Feed against the Yahoo Finance chart API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new price feed client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchDailyBars fetches daily bars for a symbol within the date range.
//
// Transport failures and server errors wrap ErrPriceFeedUnavailable so a
// caller iterating many symbols can tell a dead feed from one unknown
// symbol. Symbol-level failures (unknown ticker, empty chart) come back as
// plain errors.
func (c *Client) FetchDailyBars(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.PriceBar, error) {
	// period2 is exclusive on day granularity, so push it one day past endDate.
	url := fmt.Sprintf(
		"%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL,
		symbol,
		startDate.Unix(),
		endDate.AddDate(0, 0, 1).Unix(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price feed request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPriceFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrPriceFeedUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPriceFeedUnavailable, err)
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse price feed response: %w", err)
	}

	if response.Chart.Error != nil {
		return nil, fmt.Errorf("price feed error for symbol %s: %s", symbol, *response.Chart.Error)
	}
	if len(response.Chart.Result) == 0 {
		return nil, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	return parseBars(symbol, response)
}

func parseBars(symbol string, response Response) ([]model.PriceBar, error) {
	result := response.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("no price data returned for symbol %s", symbol)
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return nil, fmt.Errorf("no close prices returned for symbol %s", symbol)
	}
	if len(result.Indicators.Quote[0].Close) != len(result.Timestamp) {
		return nil, fmt.Errorf("mismatched data lengths for symbol %s", symbol)
	}

	quote := result.Indicators.Quote[0]

	// Currency pairs carry no adjclose series; fall back to close.
	var adjClose []float64
	if len(result.Indicators.Adjclose) > 0 && len(result.Indicators.Adjclose[0].Adjclose) == len(result.Timestamp) {
		adjClose = result.Indicators.Adjclose[0].Adjclose
	} else {
		adjClose = quote.Close
	}

	bars := make([]model.PriceBar, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bars[i] = model.PriceBar{
			Date:     time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:     quote.Open[i],
			High:     quote.High[i],
			Low:      quote.Low[i],
			Close:    quote.Close[i],
			AdjClose: adjClose[i],
		}
	}

	return bars, nil
}
