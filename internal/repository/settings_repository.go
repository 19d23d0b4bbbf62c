package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// SettingsRepository provides data access methods for the per-user settings table.
type SettingsRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSettingsRepository creates a new SettingsRepository with the provided database connection.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// WithTx returns a new SettingsRepository scoped to the provided transaction.
func (r *SettingsRepository) WithTx(tx *sql.Tx) *SettingsRepository {
	return &SettingsRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *SettingsRepository) getQuerier() interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetSettings retrieves a user's analysis settings.
// Returns ErrSettingsNotFound if the user has no settings row.
func (r *SettingsRepository) GetSettings(userID int64) (model.Settings, error) {
	query := `
		SELECT user_id, analysis_currency, ohlc_assets, ohlc_currencies
		FROM settings
		WHERE user_id = ?
	`
	var s model.Settings

	err := r.getQuerier().QueryRow(query, userID).Scan(
		&s.UserID,
		&s.AnalysisCurrency,
		&s.OHLCAssets,
		&s.OHLCCurrencies,
	)
	if err == sql.ErrNoRows {
		return model.Settings{}, apperrors.ErrSettingsNotFound
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("failed to query settings: %w", err)
	}

	return s, nil
}

// GetUserIDs lists every user that has a settings row.
func (r *SettingsRepository) GetUserIDs() ([]int64, error) {
	query := `
		SELECT user_id
		FROM settings
		ORDER BY user_id
	`
	rows, err := r.getQuerier().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings users: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan settings user: %w", err)
		}
		userIDs = append(userIDs, userID)
	}

	return userIDs, rows.Err()
}

// UpsertSettings creates or replaces a user's analysis settings.
func (r *SettingsRepository) UpsertSettings(ctx context.Context, s model.Settings) error {
	query := `
		INSERT INTO settings (user_id, analysis_currency, ohlc_assets, ohlc_currencies)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			analysis_currency = excluded.analysis_currency,
			ohlc_assets = excluded.ohlc_assets,
			ohlc_currencies = excluded.ohlc_currencies
	`
	_, err := r.getQuerier().ExecContext(ctx, query,
		s.UserID,
		s.AnalysisCurrency,
		s.OHLCAssets,
		s.OHLCCurrencies,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}

	return nil
}
