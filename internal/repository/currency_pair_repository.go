package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// CurrencyPairRepository provides data access methods for the currency_pair table.
type CurrencyPairRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewCurrencyPairRepository creates a new CurrencyPairRepository with the provided database connection.
func NewCurrencyPairRepository(db *sql.DB) *CurrencyPairRepository {
	return &CurrencyPairRepository{db: db}
}

// WithTx returns a new CurrencyPairRepository scoped to the provided transaction.
func (r *CurrencyPairRepository) WithTx(tx *sql.Tx) *CurrencyPairRepository {
	return &CurrencyPairRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *CurrencyPairRepository) getQuerier() interface {
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

// GetCurrencyPairs retrieves all currency pairs ordered by name.
func (r *CurrencyPairRepository) GetCurrencyPairs() ([]model.CurrencyPair, error) {
	query := `
		SELECT id, name, symbol, first_currency, second_currency,
			first_pricing_date, last_pricing_date
		FROM currency_pair
		ORDER BY name
	`
	rows, err := r.getQuerier().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query currency_pair table: %w", err)
	}
	defer rows.Close()

	pairs := []model.CurrencyPair{}

	for rows.Next() {
		var p model.CurrencyPair

		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Symbol,
			&p.FirstCurrency,
			&p.SecondCurrency,
			&p.FirstPricingDate,
			&p.LastPricingDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan currency_pair table results: %w", err)
		}

		pairs = append(pairs, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currency_pair table: %w", err)
	}

	return pairs, nil
}

// GetCurrencyPairOnName retrieves a pair by its name, e.g. "usdeur".
// Returns ErrCurrencyPairNotFound if no pair with the given name exists.
func (r *CurrencyPairRepository) GetCurrencyPairOnName(name string) (model.CurrencyPair, error) {
	query := `
		SELECT id, name, symbol, first_currency, second_currency,
			first_pricing_date, last_pricing_date
		FROM currency_pair
		WHERE name = ?
	`
	var p model.CurrencyPair

	err := r.getQuerier().QueryRow(query, name).Scan(
		&p.ID,
		&p.Name,
		&p.Symbol,
		&p.FirstCurrency,
		&p.SecondCurrency,
		&p.FirstPricingDate,
		&p.LastPricingDate,
	)
	if err == sql.ErrNoRows {
		return model.CurrencyPair{}, apperrors.ErrCurrencyPairNotFound
	}
	if err != nil {
		return model.CurrencyPair{}, fmt.Errorf("failed to query currency_pair: %w", err)
	}

	return p, nil
}

// CreateCurrencyPair inserts a new pair with sentinel pricing dates and returns its ID.
func (r *CurrencyPairRepository) CreateCurrencyPair(ctx context.Context, p model.CurrencyPair) (int64, error) {
	query := `
		INSERT INTO currency_pair
			(name, symbol, first_currency, second_currency, first_pricing_date, last_pricing_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.getQuerier().ExecContext(ctx, query,
		p.Name,
		p.Symbol,
		p.FirstCurrency,
		p.SecondCurrency,
		model.SentinelDate,
		model.SentinelDate,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert currency_pair: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted currency_pair id: %w", err)
	}

	return id, nil
}

// ResetPricingDates moves every pair's pricing watermarks back to the
// sentinel so the next refresh reloads full history.
func (r *CurrencyPairRepository) ResetPricingDates(ctx context.Context) error {
	query := `UPDATE currency_pair SET first_pricing_date = ?, last_pricing_date = ?`

	_, err := r.getQuerier().ExecContext(ctx, query, model.SentinelDate, model.SentinelDate)
	if err != nil {
		return fmt.Errorf("failed to reset currency_pair pricing dates: %w", err)
	}

	return nil
}

// SetPricingDates updates the pair's pricing-date bookkeeping after a load.
// FirstPricingDate is written once, when it still holds the sentinel.
func (r *CurrencyPairRepository) SetPricingDates(ctx context.Context, pairID int64, firstDate, lastDate string) error {
	query := `
		UPDATE currency_pair
		SET first_pricing_date = CASE WHEN first_pricing_date = ? THEN ? ELSE first_pricing_date END,
			last_pricing_date = ?
		WHERE id = ?
	`
	_, err := r.getQuerier().ExecContext(ctx, query, model.SentinelDate, firstDate, lastDate, pairID)
	if err != nil {
		return fmt.Errorf("failed to update currency_pair pricing dates: %w", err)
	}

	return nil
}
