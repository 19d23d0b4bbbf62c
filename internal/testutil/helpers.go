package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/quantfolio/portfolio-performance-backend/internal/pricefeed"
	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
	"github.com/quantfolio/portfolio-performance-backend/internal/service"
)

func NewTestPricingService(t *testing.T, db *sql.DB, feed pricefeed.Feed) *service.PricingService {
	t.Helper()

	assetRepo := repository.NewAssetRepository(db)
	pairRepo := repository.NewCurrencyPairRepository(db)
	priceRepo := repository.NewPriceRepository(db)

	return service.NewPricingService(
		assetRepo,
		pairRepo,
		priceRepo,
		feed,
	)
}

func NewTestNormalizerService(t *testing.T, db *sql.DB) *service.NormalizerService {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)
	pairRepo := repository.NewCurrencyPairRepository(db)
	priceRepo := repository.NewPriceRepository(db)

	return service.NewNormalizerService(
		transactionRepo,
		pairRepo,
		priceRepo,
	)
}

func NewTestPositionService(t *testing.T, db *sql.DB) *service.PositionService {
	t.Helper()

	portfolioRepo := repository.NewPortfolioRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	pairRepo := repository.NewCurrencyPairRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	return service.NewPositionService(
		portfolioRepo,
		transactionRepo,
		assetRepo,
		pairRepo,
		priceRepo,
		snapshotRepo,
	)
}

func NewTestAggregationService(t *testing.T, db *sql.DB) *service.AggregationService {
	t.Helper()

	portfolioRepo := repository.NewPortfolioRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	return service.NewAggregationService(
		portfolioRepo,
		transactionRepo,
		snapshotRepo,
	)
}

func NewTestProcessingService(t *testing.T, db *sql.DB) *service.ProcessingService {
	t.Helper()

	settingsRepo := repository.NewSettingsRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	pairRepo := repository.NewCurrencyPairRepository(db)

	return service.NewProcessingService(
		db,
		settingsRepo,
		portfolioRepo,
		assetRepo,
		pairRepo,
		NewTestNormalizerService(t, db),
		NewTestPositionService(t, db),
		NewTestAggregationService(t, db),
	)
}

func NewTestPerformanceService(t *testing.T, db *sql.DB) *service.PerformanceService {
	t.Helper()

	portfolioRepo := repository.NewPortfolioRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	return service.NewPerformanceService(
		portfolioRepo,
		snapshotRepo,
	)
}

func NewTestResetService(t *testing.T, db *sql.DB) *service.ResetService {
	t.Helper()

	portfolioRepo := repository.NewPortfolioRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	pairRepo := repository.NewCurrencyPairRepository(db)
	priceRepo := repository.NewPriceRepository(db)

	return service.NewResetService(
		db,
		portfolioRepo,
		transactionRepo,
		snapshotRepo,
		assetRepo,
		pairRepo,
		priceRepo,
	)
}

// SeedAssetPrices writes a flat adjusted price curve for the asset: one row
// per calendar day from fromDate through toDate, all OHLC fields at price.
func SeedAssetPrices(t *testing.T, db *sql.DB, assetID int64, fromDate, toDate string, price float64) {
	t.Helper()

	query := `
		INSERT INTO adjusted_asset_price (asset_id, date, open_price, high_price, low_price, close_price, adj_close_price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, date := range DateRange(t, fromDate, toDate) {
		if _, err := db.Exec(query, assetID, date, price, price, price, price, price); err != nil {
			t.Fatalf("Failed to seed asset price: %v", err)
		}
	}
}

// SeedAssetPrice writes one adjusted price row with distinct close and
// adjusted close values.
func SeedAssetPrice(t *testing.T, db *sql.DB, assetID int64, date string, closePrice, adjClose float64) {
	t.Helper()

	query := `
		INSERT INTO adjusted_asset_price (asset_id, date, open_price, high_price, low_price, close_price, adj_close_price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (asset_id, date) DO UPDATE SET
			close_price = excluded.close_price,
			adj_close_price = excluded.adj_close_price
	`
	if _, err := db.Exec(query, assetID, date, closePrice, closePrice, closePrice, closePrice, adjClose); err != nil {
		t.Fatalf("Failed to seed asset price: %v", err)
	}
}

// SeedPairPrices writes a flat adjusted exchange rate curve for the pair:
// one row per calendar day from fromDate through toDate at rate.
func SeedPairPrices(t *testing.T, db *sql.DB, pairID int64, fromDate, toDate string, rate float64) {
	t.Helper()

	query := `
		INSERT INTO adjusted_currency_pair_price (currency_pair_id, date, open_price, high_price, low_price, close_price)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, date := range DateRange(t, fromDate, toDate) {
		if _, err := db.Exec(query, pairID, date, rate, rate, rate, rate); err != nil {
			t.Fatalf("Failed to seed pair price: %v", err)
		}
	}
}

// Today returns the current date as an ISO date string.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// DaysAgo returns the date n calendar days before today. The computation
// window of the rollers always ends at today, so tests anchor their
// transaction and price dates relative to it.
func DaysAgo(n int) string {
	return time.Now().AddDate(0, 0, -n).Format("2006-01-02")
}

// DateRange returns every calendar day from fromDate through toDate as ISO
// date strings.
func DateRange(t *testing.T, fromDate, toDate string) []string {
	t.Helper()

	from, err := repository.ParseTime(fromDate)
	if err != nil {
		t.Fatalf("Invalid from date %q: %v", fromDate, err)
	}
	to, err := repository.ParseTime(toDate)
	if err != nil {
		t.Fatalf("Invalid to date %q: %v", toDate, err)
	}

	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates
}
