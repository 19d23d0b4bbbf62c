package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// PortfolioRepository provides data access methods for the portfolio tree:
// portfolio_aggregate, portfolio, portfolio_group and portfolio_group_asset.
type PortfolioRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPortfolioRepository creates a new PortfolioRepository with the provided database connection.
func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// WithTx returns a new PortfolioRepository scoped to the provided transaction.
func (r *PortfolioRepository) WithTx(tx *sql.Tx) *PortfolioRepository {
	return &PortfolioRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *PortfolioRepository) getQuerier() interface {
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

// GetAggregateForUser retrieves the user's portfolio aggregate.
// Returns ErrAggregateNotFound if the user has none.
func (r *PortfolioRepository) GetAggregateForUser(userID int64) (model.PortfolioAggregate, error) {
	query := `
		SELECT id, user_id, checkpoint_date
		FROM portfolio_aggregate
		WHERE user_id = ?
	`
	var a model.PortfolioAggregate

	err := r.getQuerier().QueryRow(query, userID).Scan(
		&a.ID,
		&a.UserID,
		&a.CheckpointDate,
	)
	if err == sql.ErrNoRows {
		return model.PortfolioAggregate{}, apperrors.ErrAggregateNotFound
	}
	if err != nil {
		return model.PortfolioAggregate{}, fmt.Errorf("failed to query portfolio_aggregate: %w", err)
	}

	return a, nil
}

// CreateAggregate inserts an aggregate for the user with a sentinel
// checkpoint and returns its ID.
func (r *PortfolioRepository) CreateAggregate(ctx context.Context, userID int64) (int64, error) {
	query := `
		INSERT INTO portfolio_aggregate (user_id, checkpoint_date)
		VALUES (?, ?)
	`
	result, err := r.getQuerier().ExecContext(ctx, query, userID, model.SentinelDate)
	if err != nil {
		return 0, fmt.Errorf("failed to insert portfolio_aggregate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted portfolio_aggregate id: %w", err)
	}

	return id, nil
}

// SetCheckpointDate moves the aggregate's recomputation checkpoint.
func (r *PortfolioRepository) SetCheckpointDate(ctx context.Context, aggregateID int64, date string) error {
	query := `UPDATE portfolio_aggregate SET checkpoint_date = ? WHERE id = ?`

	_, err := r.getQuerier().ExecContext(ctx, query, date, aggregateID)
	if err != nil {
		return fmt.Errorf("failed to update checkpoint date: %w", err)
	}

	return nil
}

// ResetAllCheckpoints moves every aggregate's checkpoint back to the
// sentinel so the next processing run rebuilds from scratch.
func (r *PortfolioRepository) ResetAllCheckpoints(ctx context.Context) error {
	query := `UPDATE portfolio_aggregate SET checkpoint_date = ?`

	_, err := r.getQuerier().ExecContext(ctx, query, model.SentinelDate)
	if err != nil {
		return fmt.Errorf("failed to reset checkpoints: %w", err)
	}

	return nil
}

// GetPortfoliosForAggregate retrieves the aggregate's portfolios ordered by name.
func (r *PortfolioRepository) GetPortfoliosForAggregate(aggregateID int64) ([]model.Portfolio, error) {
	query := `
		SELECT id, portfolio_aggregate_id, name
		FROM portfolio
		WHERE portfolio_aggregate_id = ?
		ORDER BY name
	`
	rows, err := r.getQuerier().Query(query, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}
	defer rows.Close()

	portfolios := []model.Portfolio{}

	for rows.Next() {
		var p model.Portfolio

		err := rows.Scan(&p.ID, &p.PortfolioAggregateID, &p.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio table results: %w", err)
		}

		portfolios = append(portfolios, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio table: %w", err)
	}

	return portfolios, nil
}

// GetPortfolioOnID retrieves a single portfolio by its ID.
// Returns ErrPortfolioNotFound if no portfolio with the given ID exists.
func (r *PortfolioRepository) GetPortfolioOnID(portfolioID int64) (model.Portfolio, error) {
	query := `
		SELECT id, portfolio_aggregate_id, name
		FROM portfolio
		WHERE id = ?
	`
	var p model.Portfolio

	err := r.getQuerier().QueryRow(query, portfolioID).Scan(&p.ID, &p.PortfolioAggregateID, &p.Name)
	if err == sql.ErrNoRows {
		return model.Portfolio{}, apperrors.ErrPortfolioNotFound
	}
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("failed to query portfolio: %w", err)
	}

	return p, nil
}

// CreatePortfolio inserts a portfolio and returns its ID.
func (r *PortfolioRepository) CreatePortfolio(ctx context.Context, p model.Portfolio) (int64, error) {
	query := `
		INSERT INTO portfolio (portfolio_aggregate_id, name)
		VALUES (?, ?)
	`
	result, err := r.getQuerier().ExecContext(ctx, query, p.PortfolioAggregateID, p.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert portfolio: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted portfolio id: %w", err)
	}

	return id, nil
}

// GetGroupsForPortfolio retrieves the portfolio's weighting groups ordered by name.
func (r *PortfolioRepository) GetGroupsForPortfolio(portfolioID int64) ([]model.PortfolioGroup, error) {
	query := `
		SELECT id, portfolio_id, user_id, name, weight
		FROM portfolio_group
		WHERE portfolio_id = ?
		ORDER BY name
	`
	return r.queryGroups(query, portfolioID)
}

// GetGroupsForUser retrieves all weighting groups across the user's portfolios.
func (r *PortfolioRepository) GetGroupsForUser(userID int64) ([]model.PortfolioGroup, error) {
	query := `
		SELECT id, portfolio_id, user_id, name, weight
		FROM portfolio_group
		WHERE user_id = ?
		ORDER BY portfolio_id, name
	`
	return r.queryGroups(query, userID)
}

func (r *PortfolioRepository) queryGroups(query string, arg any) ([]model.PortfolioGroup, error) {
	rows, err := r.getQuerier().Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio_group table: %w", err)
	}
	defer rows.Close()

	groups := []model.PortfolioGroup{}

	for rows.Next() {
		var g model.PortfolioGroup

		err := rows.Scan(&g.ID, &g.PortfolioID, &g.UserID, &g.Name, &g.Weight)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio_group table results: %w", err)
		}

		groups = append(groups, g)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio_group table: %w", err)
	}

	return groups, nil
}

// GetGroupOnID retrieves a single weighting group by its ID.
// Returns ErrPortfolioGroupNotFound if no group with the given ID exists.
func (r *PortfolioRepository) GetGroupOnID(groupID int64) (model.PortfolioGroup, error) {
	query := `
		SELECT id, portfolio_id, user_id, name, weight
		FROM portfolio_group
		WHERE id = ?
	`
	var g model.PortfolioGroup

	err := r.getQuerier().QueryRow(query, groupID).Scan(&g.ID, &g.PortfolioID, &g.UserID, &g.Name, &g.Weight)
	if err == sql.ErrNoRows {
		return model.PortfolioGroup{}, apperrors.ErrPortfolioGroupNotFound
	}
	if err != nil {
		return model.PortfolioGroup{}, fmt.Errorf("failed to query portfolio_group: %w", err)
	}

	return g, nil
}

// CreateGroup inserts a weighting group and returns its ID.
func (r *PortfolioRepository) CreateGroup(ctx context.Context, g model.PortfolioGroup) (int64, error) {
	query := `
		INSERT INTO portfolio_group (portfolio_id, user_id, name, weight)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.getQuerier().ExecContext(ctx, query, g.PortfolioID, g.UserID, g.Name, g.Weight)
	if err != nil {
		return 0, fmt.Errorf("failed to insert portfolio_group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted portfolio_group id: %w", err)
	}

	return id, nil
}

// CreateGroupAsset assigns an asset to a weighting group and returns the
// assignment's ID.
func (r *PortfolioRepository) CreateGroupAsset(ctx context.Context, ga model.PortfolioGroupAsset) (int64, error) {
	query := `
		INSERT INTO portfolio_group_asset (portfolio_group_id, asset_id)
		VALUES (?, ?)
	`
	result, err := r.getQuerier().ExecContext(ctx, query, ga.PortfolioGroupID, ga.AssetID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert portfolio_group_asset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted portfolio_group_asset id: %w", err)
	}

	return id, nil
}

// GetGroupAssetMemberships retrieves every (portfolio, group, asset) tuple of
// the user's portfolio tree, ordered for deterministic processing.
func (r *PortfolioRepository) GetGroupAssetMemberships(userID int64) ([]model.GroupAssetMembership, error) {
	query := `
		SELECT portfolio_group.portfolio_id, portfolio_group_asset.portfolio_group_id,
			portfolio_group_asset.asset_id
		FROM portfolio_group_asset
		JOIN portfolio_group ON portfolio_group.id = portfolio_group_asset.portfolio_group_id
		WHERE portfolio_group.user_id = ?
		ORDER BY portfolio_group.portfolio_id, portfolio_group_asset.portfolio_group_id,
			portfolio_group_asset.asset_id
	`
	rows, err := r.getQuerier().Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio_group_asset table: %w", err)
	}
	defer rows.Close()

	memberships := []model.GroupAssetMembership{}

	for rows.Next() {
		var m model.GroupAssetMembership

		err := rows.Scan(&m.PortfolioID, &m.PortfolioGroupID, &m.AssetID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio_group_asset table results: %w", err)
		}

		memberships = append(memberships, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio_group_asset table: %w", err)
	}

	return memberships, nil
}
