package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// AssetRepository provides data access methods for the asset table.
type AssetRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewAssetRepository creates a new AssetRepository with the provided database connection.
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// WithTx returns a new AssetRepository scoped to the provided transaction.
func (r *AssetRepository) WithTx(tx *sql.Tx) *AssetRepository {
	return &AssetRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *AssetRepository) getQuerier() interface {
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

// GetAssets retrieves all assets ordered by symbol.
func (r *AssetRepository) GetAssets() ([]model.Asset, error) {
	query := `
		SELECT id, name, symbol, currency, first_pricing_date, last_pricing_date
		FROM asset
		ORDER BY symbol
	`
	rows, err := r.getQuerier().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset table: %w", err)
	}
	defer rows.Close()

	assets := []model.Asset{}

	for rows.Next() {
		var a model.Asset

		err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.Symbol,
			&a.Currency,
			&a.FirstPricingDate,
			&a.LastPricingDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset table results: %w", err)
		}

		assets = append(assets, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset table: %w", err)
	}

	return assets, nil
}

// GetAssetOnID retrieves a single asset by its ID.
// Returns ErrAssetNotFound if no asset with the given ID exists.
func (r *AssetRepository) GetAssetOnID(assetID int64) (model.Asset, error) {
	query := `
		SELECT id, name, symbol, currency, first_pricing_date, last_pricing_date
		FROM asset
		WHERE id = ?
	`
	var a model.Asset

	err := r.getQuerier().QueryRow(query, assetID).Scan(
		&a.ID,
		&a.Name,
		&a.Symbol,
		&a.Currency,
		&a.FirstPricingDate,
		&a.LastPricingDate,
	)
	if err == sql.ErrNoRows {
		return model.Asset{}, apperrors.ErrAssetNotFound
	}
	if err != nil {
		return model.Asset{}, fmt.Errorf("failed to query asset: %w", err)
	}

	return a, nil
}

// GetAssetsForUser retrieves the distinct assets referenced by the user's
// portfolio groups, ordered by symbol.
func (r *AssetRepository) GetAssetsForUser(userID int64) ([]model.Asset, error) {
	query := `
		SELECT DISTINCT asset.id, asset.name, asset.symbol, asset.currency,
			asset.first_pricing_date, asset.last_pricing_date
		FROM asset
		JOIN portfolio_group_asset ON portfolio_group_asset.asset_id = asset.id
		JOIN portfolio_group ON portfolio_group.id = portfolio_group_asset.portfolio_group_id
		WHERE portfolio_group.user_id = ?
		ORDER BY asset.symbol
	`
	rows, err := r.getQuerier().Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets for user: %w", err)
	}
	defer rows.Close()

	assets := []model.Asset{}

	for rows.Next() {
		var a model.Asset

		err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.Symbol,
			&a.Currency,
			&a.FirstPricingDate,
			&a.LastPricingDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assets for user: %w", err)
		}

		assets = append(assets, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets for user: %w", err)
	}

	return assets, nil
}

// CreateAsset inserts a new asset with sentinel pricing dates and returns its ID.
func (r *AssetRepository) CreateAsset(ctx context.Context, a model.Asset) (int64, error) {
	query := `
		INSERT INTO asset (name, symbol, currency, first_pricing_date, last_pricing_date)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.getQuerier().ExecContext(ctx, query,
		a.Name,
		a.Symbol,
		a.Currency,
		model.SentinelDate,
		model.SentinelDate,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert asset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted asset id: %w", err)
	}

	return id, nil
}

// ResetPricingDates moves every asset's pricing watermarks back to the
// sentinel so the next refresh reloads full history.
func (r *AssetRepository) ResetPricingDates(ctx context.Context) error {
	query := `UPDATE asset SET first_pricing_date = ?, last_pricing_date = ?`

	_, err := r.getQuerier().ExecContext(ctx, query, model.SentinelDate, model.SentinelDate)
	if err != nil {
		return fmt.Errorf("failed to reset asset pricing dates: %w", err)
	}

	return nil
}

// SetPricingDates updates the asset's pricing-date bookkeeping after a load.
// FirstPricingDate is written once, when it still holds the sentinel.
func (r *AssetRepository) SetPricingDates(ctx context.Context, assetID int64, firstDate, lastDate string) error {
	query := `
		UPDATE asset
		SET first_pricing_date = CASE WHEN first_pricing_date = ? THEN ? ELSE first_pricing_date END,
			last_pricing_date = ?
		WHERE id = ?
	`
	_, err := r.getQuerier().ExecContext(ctx, query, model.SentinelDate, firstDate, lastDate, assetID)
	if err != nil {
		return fmt.Errorf("failed to update asset pricing dates: %w", err)
	}

	return nil
}
