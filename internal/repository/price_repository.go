package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// insertBatchRows caps bulk-insert batches so the generated statement stays
// within SQLite's bind-variable limit.
const insertBatchRows = 200

// PriceRepository provides data access methods for the raw and gap-filled
// price tables of assets and currency pairs.
type PriceRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// WithTx returns a new PriceRepository scoped to the provided transaction.
func (r *PriceRepository) WithTx(tx *sql.Tx) *PriceRepository {
	return &PriceRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *PriceRepository) getQuerier() interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetAssetPrices retrieves all raw price bars for an asset ordered by date.
func (r *PriceRepository) GetAssetPrices(assetID int64) ([]model.PriceBar, error) {
	query := `
		SELECT date, open_price, high_price, low_price, close_price, adj_close_price
		FROM asset_price
		WHERE asset_id = ?
		ORDER BY date
	`
	return r.queryBars(query, assetID, true)
}

// GetPairPrices retrieves all raw price bars for a currency pair ordered by date.
// AdjClose is left zero; pairs carry no adjusted close.
func (r *PriceRepository) GetPairPrices(pairID int64) ([]model.PriceBar, error) {
	query := `
		SELECT date, open_price, high_price, low_price, close_price
		FROM currency_pair_price
		WHERE currency_pair_id = ?
		ORDER BY date
	`
	return r.queryBars(query, pairID, false)
}

func (r *PriceRepository) queryBars(query string, instrumentID int64, withAdjClose bool) ([]model.PriceBar, error) {
	rows, err := r.getQuerier().Query(query, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price table: %w", err)
	}
	defer rows.Close()

	bars := []model.PriceBar{}

	for rows.Next() {
		var b model.PriceBar

		if withAdjClose {
			err = rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose)
		} else {
			err = rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan price table results: %w", err)
		}

		bars = append(bars, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price table: %w", err)
	}

	return bars, nil
}

// UpsertAssetPrices inserts raw asset bars, replacing any bar already stored
// for the same date. Fetch windows start at the last loaded date, so the
// boundary bar is refreshed rather than duplicated.
func (r *PriceRepository) UpsertAssetPrices(ctx context.Context, assetID int64, bars []model.PriceBar) error {
	for start := 0; start < len(bars); start += insertBatchRows {
		end := min(start+insertBatchRows, len(bars))
		batch := bars[start:end]

		query := `
			INSERT INTO asset_price
				(asset_id, date, open_price, high_price, low_price, close_price, adj_close_price)
			VALUES ` + placeholderRows(len(batch), 7) + `
			ON CONFLICT (asset_id, date) DO UPDATE SET
				open_price = excluded.open_price,
				high_price = excluded.high_price,
				low_price = excluded.low_price,
				close_price = excluded.close_price,
				adj_close_price = excluded.adj_close_price
		`

		args := make([]any, 0, len(batch)*7)
		for _, b := range batch {
			args = append(args, assetID, b.Date, b.Open, b.High, b.Low, b.Close, b.AdjClose)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert asset prices: %w", err)
		}
	}

	return nil
}

// UpsertPairPrices inserts raw currency pair bars, replacing any bar already
// stored for the same date.
func (r *PriceRepository) UpsertPairPrices(ctx context.Context, pairID int64, bars []model.PriceBar) error {
	for start := 0; start < len(bars); start += insertBatchRows {
		end := min(start+insertBatchRows, len(bars))
		batch := bars[start:end]

		query := `
			INSERT INTO currency_pair_price
				(currency_pair_id, date, open_price, high_price, low_price, close_price)
			VALUES ` + placeholderRows(len(batch), 6) + `
			ON CONFLICT (currency_pair_id, date) DO UPDATE SET
				open_price = excluded.open_price,
				high_price = excluded.high_price,
				low_price = excluded.low_price,
				close_price = excluded.close_price
		`

		args := make([]any, 0, len(batch)*6)
		for _, b := range batch {
			args = append(args, pairID, b.Date, b.Open, b.High, b.Low, b.Close)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert currency pair prices: %w", err)
		}
	}

	return nil
}

// DeleteAdjustedAssetPricesFrom removes the gap-filled asset curve from the
// given date onward so it can be rebuilt.
func (r *PriceRepository) DeleteAdjustedAssetPricesFrom(ctx context.Context, assetID int64, date string) error {
	query := `DELETE FROM adjusted_asset_price WHERE asset_id = ? AND date >= ?`

	if _, err := r.getQuerier().ExecContext(ctx, query, assetID, date); err != nil {
		return fmt.Errorf("failed to delete adjusted asset prices: %w", err)
	}

	return nil
}

// DeleteAdjustedPairPricesFrom removes the gap-filled pair curve from the
// given date onward so it can be rebuilt.
func (r *PriceRepository) DeleteAdjustedPairPricesFrom(ctx context.Context, pairID int64, date string) error {
	query := `DELETE FROM adjusted_currency_pair_price WHERE currency_pair_id = ? AND date >= ?`

	if _, err := r.getQuerier().ExecContext(ctx, query, pairID, date); err != nil {
		return fmt.Errorf("failed to delete adjusted currency pair prices: %w", err)
	}

	return nil
}

// DeleteAllAdjustedPrices clears both gap-filled curve tables.
func (r *PriceRepository) DeleteAllAdjustedPrices(ctx context.Context) error {
	if _, err := r.getQuerier().ExecContext(ctx, `DELETE FROM adjusted_asset_price`); err != nil {
		return fmt.Errorf("failed to clear adjusted asset prices: %w", err)
	}
	if _, err := r.getQuerier().ExecContext(ctx, `DELETE FROM adjusted_currency_pair_price`); err != nil {
		return fmt.Errorf("failed to clear adjusted currency pair prices: %w", err)
	}
	return nil
}

// InsertAdjustedAssetPrices bulk-inserts one contiguous stretch of the
// gap-filled asset curve.
func (r *PriceRepository) InsertAdjustedAssetPrices(ctx context.Context, assetID int64, curve []model.PriceBar) error {
	for start := 0; start < len(curve); start += insertBatchRows {
		end := min(start+insertBatchRows, len(curve))
		batch := curve[start:end]

		query := `
			INSERT INTO adjusted_asset_price
				(asset_id, date, open_price, high_price, low_price, close_price, adj_close_price)
			VALUES ` + placeholderRows(len(batch), 7)

		args := make([]any, 0, len(batch)*7)
		for _, b := range batch {
			args = append(args, assetID, b.Date, b.Open, b.High, b.Low, b.Close, b.AdjClose)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert adjusted asset prices: %w", err)
		}
	}

	return nil
}

// InsertAdjustedPairPrices bulk-inserts one contiguous stretch of the
// gap-filled currency pair curve.
func (r *PriceRepository) InsertAdjustedPairPrices(ctx context.Context, pairID int64, curve []model.PriceBar) error {
	for start := 0; start < len(curve); start += insertBatchRows {
		end := min(start+insertBatchRows, len(curve))
		batch := curve[start:end]

		query := `
			INSERT INTO adjusted_currency_pair_price
				(currency_pair_id, date, open_price, high_price, low_price, close_price)
			VALUES ` + placeholderRows(len(batch), 6)

		args := make([]any, 0, len(batch)*6)
		for _, b := range batch {
			args = append(args, pairID, b.Date, b.Open, b.High, b.Low, b.Close)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert adjusted currency pair prices: %w", err)
		}
	}

	return nil
}

// GetAdjustedAssetPrices retrieves the gap-filled asset curve from the given
// date onward, keyed by date.
func (r *PriceRepository) GetAdjustedAssetPrices(assetID int64, fromDate string) (map[string]model.PriceBar, error) {
	query := `
		SELECT date, open_price, high_price, low_price, close_price, adj_close_price
		FROM adjusted_asset_price
		WHERE asset_id = ? AND date >= ?
	`
	return r.queryCurve(query, true, assetID, fromDate)
}

// GetAdjustedPairPrices retrieves the gap-filled currency pair curve from the
// given date onward, keyed by date.
func (r *PriceRepository) GetAdjustedPairPrices(pairID int64, fromDate string) (map[string]model.PriceBar, error) {
	query := `
		SELECT date, open_price, high_price, low_price, close_price
		FROM adjusted_currency_pair_price
		WHERE currency_pair_id = ? AND date >= ?
	`
	return r.queryCurve(query, false, pairID, fromDate)
}

func (r *PriceRepository) queryCurve(query string, withAdjClose bool, args ...any) (map[string]model.PriceBar, error) {
	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjusted price table: %w", err)
	}
	defer rows.Close()

	curve := map[string]model.PriceBar{}

	for rows.Next() {
		var b model.PriceBar

		if withAdjClose {
			err = rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose)
		} else {
			err = rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan adjusted price table results: %w", err)
		}

		curve[b.Date] = b
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating adjusted price table: %w", err)
	}

	return curve, nil
}
