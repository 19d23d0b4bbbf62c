package service_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/testutil"
)

// stubFeed serves canned bars per symbol. Unknown symbols fail like an
// unknown ticker; err makes every call fail like a dead feed.
type stubFeed struct {
	bars map[string][]model.PriceBar
	err  error
}

func (f *stubFeed) FetchDailyBars(_ context.Context, symbol string, _, _ time.Time) ([]model.PriceBar, error) {
	if f.err != nil {
		return nil, f.err
	}
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("no results returned for symbol %s", symbol)
	}
	return bars, nil
}

func flatBar(date string, price float64) model.PriceBar {
	return model.PriceBar{
		Date:     date,
		Open:     price,
		High:     price,
		Low:      price,
		Close:    price,
		AdjClose: price,
	}
}

func countAdjustedAssetPrices(t *testing.T, db *sql.DB, assetID int64) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM adjusted_asset_price WHERE asset_id = ?`, assetID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count adjusted prices: %v", err)
	}
	return count
}

func adjustedCloseAt(t *testing.T, db *sql.DB, assetID int64, date string) float64 {
	t.Helper()

	var closePrice float64
	err := db.QueryRow(`SELECT close_price FROM adjusted_asset_price WHERE asset_id = ? AND date = ?`, assetID, date).Scan(&closePrice)
	if err != nil {
		t.Fatalf("Failed to read adjusted price at %s: %v", date, err)
	}
	return closePrice
}

// TestPricingService_RefreshAllPrices tests the price refresh pipeline from
// feed bars to the gap-filled curve.
//
// WHY: The refresh must produce one adjusted row per calendar day through
// today, track the pricing watermarks, and degrade correctly: a dead feed
// aborts, an unknown symbol is skipped.
func TestPricingService_RefreshAllPrices(t *testing.T) {
	t.Run("errors when nothing to price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPricingService(t, db, &stubFeed{})

		err := svc.RefreshAllPrices(context.Background())
		if !errors.Is(err, apperrors.ErrNothingToPrice) {
			t.Errorf("Expected ErrNothingToPrice, got %v", err)
		}
	})

	t.Run("builds a daily curve through today", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		asset := testutil.NewAsset().WithSymbol("ACME").Build(t, db)

		feed := &stubFeed{bars: map[string][]model.PriceBar{
			"ACME": {
				flatBar(testutil.DaysAgo(5), 10),
				flatBar(testutil.DaysAgo(3), 12),
			},
		}}
		svc := testutil.NewTestPricingService(t, db, feed)

		if err := svc.RefreshAllPrices(context.Background()); err != nil {
			t.Fatalf("RefreshAllPrices() returned unexpected error: %v", err)
		}

		// 6 calendar days: first observation through today.
		if count := countAdjustedAssetPrices(t, db, asset.ID); count != 6 {
			t.Errorf("Expected 6 adjusted rows, got %d", count)
		}

		// The day between observations carries the earlier bar forward, and
		// days after the last observation carry it through today.
		if got := adjustedCloseAt(t, db, asset.ID, testutil.DaysAgo(4)); got != 10 {
			t.Errorf("Expected close 10 carried into the gap, got %f", got)
		}
		if got := adjustedCloseAt(t, db, asset.ID, testutil.Today()); got != 12 {
			t.Errorf("Expected close 12 carried through today, got %f", got)
		}

		var first, last string
		err := db.QueryRow(`SELECT first_pricing_date, last_pricing_date FROM asset WHERE id = ?`, asset.ID).Scan(&first, &last)
		if err != nil {
			t.Fatalf("Failed to read watermarks: %v", err)
		}
		if first != testutil.DaysAgo(5) {
			t.Errorf("Expected first watermark %s, got %s", testutil.DaysAgo(5), first)
		}
		if last != testutil.DaysAgo(3) {
			t.Errorf("Expected last watermark %s, got %s", testutil.DaysAgo(3), last)
		}
	})

	t.Run("rebuilds only from the previous watermark", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		asset := testutil.NewAsset().
			WithSymbol("ACME").
			WithPricingDates(testutil.DaysAgo(10), testutil.DaysAgo(3)).
			Build(t, db)

		// Already filled stretch before the watermark.
		testutil.SeedAssetPrices(t, db, asset.ID, testutil.DaysAgo(10), testutil.DaysAgo(4), 5)

		feed := &stubFeed{bars: map[string][]model.PriceBar{
			"ACME": {flatBar(testutil.DaysAgo(2), 20)},
		}}
		svc := testutil.NewTestPricingService(t, db, feed)

		if err := svc.RefreshAllPrices(context.Background()); err != nil {
			t.Fatalf("RefreshAllPrices() returned unexpected error: %v", err)
		}

		// Pre-watermark rows stay untouched.
		if got := adjustedCloseAt(t, db, asset.ID, testutil.DaysAgo(7)); got != 5 {
			t.Errorf("Expected historical close 5 untouched, got %f", got)
		}
		// The refreshed stretch covers watermark through today.
		if got := adjustedCloseAt(t, db, asset.ID, testutil.Today()); got != 20 {
			t.Errorf("Expected close 20 through today, got %f", got)
		}
		if count := countAdjustedAssetPrices(t, db, asset.ID); count != 11 {
			t.Errorf("Expected 11 adjusted rows, got %d", count)
		}
	})

	t.Run("unknown symbol is skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.NewAsset().WithSymbol("GONE").WithName("Delisted").Build(t, db)
		priced := testutil.NewAsset().WithSymbol("ACME").WithName("Live").Build(t, db)

		feed := &stubFeed{bars: map[string][]model.PriceBar{
			"ACME": {flatBar(testutil.DaysAgo(1), 10)},
		}}
		svc := testutil.NewTestPricingService(t, db, feed)

		if err := svc.RefreshAllPrices(context.Background()); err != nil {
			t.Fatalf("Expected unknown symbol to be skipped, got %v", err)
		}
		if count := countAdjustedAssetPrices(t, db, priced.ID); count != 2 {
			t.Errorf("Expected live asset priced with 2 rows, got %d", count)
		}
	})

	t.Run("dead feed aborts the refresh", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.NewAsset().Build(t, db)

		feed := &stubFeed{err: fmt.Errorf("%w: connection refused", apperrors.ErrPriceFeedUnavailable)}
		svc := testutil.NewTestPricingService(t, db, feed)

		err := svc.RefreshAllPrices(context.Background())
		if !errors.Is(err, apperrors.ErrPriceFeedUnavailable) {
			t.Errorf("Expected ErrPriceFeedUnavailable, got %v", err)
		}
	})
}

// TestPricingService_FailedCurveRebuild tests watermark handling when the
// adjusted curve cannot be written.
//
// WHY: The watermark decides where the next refresh resumes. If it advanced
// past days the curve never received, those days would stay unpriced
// forever and every snapshot valued from the curve would be wrong. A failed
// rebuild must leave the watermark behind so the next run retries the same
// stretch.
func TestPricingService_FailedCurveRebuild(t *testing.T) {
	db := testutil.SetupTestDB(t)
	asset := testutil.NewAsset().WithSymbol("ACME").Build(t, db)

	feed := &stubFeed{bars: map[string][]model.PriceBar{
		"ACME": {
			flatBar(testutil.DaysAgo(5), 10),
			flatBar(testutil.DaysAgo(3), 12),
		},
	}}
	svc := testutil.NewTestPricingService(t, db, feed)

	// Make the curve write fail while the raw load succeeds.
	if _, err := db.Exec(`
		CREATE TRIGGER reject_adjusted BEFORE INSERT ON adjusted_asset_price
		BEGIN SELECT RAISE(ABORT, 'curve write rejected'); END
	`); err != nil {
		t.Fatalf("Failed to create trigger: %v", err)
	}

	if err := svc.RefreshAllPrices(context.Background()); err != nil {
		t.Fatalf("RefreshAllPrices() returned unexpected error: %v", err)
	}

	var first, last string
	if err := db.QueryRow(`SELECT first_pricing_date, last_pricing_date FROM asset WHERE id = ?`, asset.ID).Scan(&first, &last); err != nil {
		t.Fatalf("Failed to read pricing dates: %v", err)
	}
	if last != model.SentinelDate {
		t.Errorf("Expected watermark to stay at the sentinel, got %s", last)
	}
	if got := countAdjustedAssetPrices(t, db, asset.ID); got != 0 {
		t.Errorf("Expected no adjusted rows, got %d", got)
	}

	// With the obstacle gone the same refresh must backfill the stretch.
	if _, err := db.Exec(`DROP TRIGGER reject_adjusted`); err != nil {
		t.Fatalf("Failed to drop trigger: %v", err)
	}

	if err := svc.RefreshAllPrices(context.Background()); err != nil {
		t.Fatalf("RefreshAllPrices() returned unexpected error: %v", err)
	}

	if got := countAdjustedAssetPrices(t, db, asset.ID); got != 6 {
		t.Errorf("Expected 6 adjusted rows after retry, got %d", got)
	}
	if err := db.QueryRow(`SELECT last_pricing_date FROM asset WHERE id = ?`, asset.ID).Scan(&last); err != nil {
		t.Fatalf("Failed to read pricing dates: %v", err)
	}
	if last != testutil.DaysAgo(3) {
		t.Errorf("Expected watermark %s after retry, got %s", testutil.DaysAgo(3), last)
	}
}
