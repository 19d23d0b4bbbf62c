package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// statisticsColumns is the shared column block appended to every snapshot
// table, in insert order.
const statisticsColumns = `profit, profit_total, profit_percentage, profit_percentage_total,
	drawdown_value, drawdown_value_total, drawdown_profit, drawdown_profit_total,
	hpr, drawdown, twrr_rate_daily, twrr_rate_annualized,
	sharpe_ratio_daily, sharpe_ratio_annualized,
	sortino_ratio_daily, sortino_ratio_annualized,
	xirr_rate, xirr_rate_total`

const statisticsColumnCount = 18

func statisticsArgs(s model.Statistics) []any {
	return []any{
		s.Profit, s.ProfitTotal, s.ProfitPercentage, s.ProfitPercentageTotal,
		s.DrawdownValue, s.DrawdownValueTotal, s.DrawdownProfit, s.DrawdownProfitTotal,
		s.HPR, s.Drawdown, s.TwrrRateDaily, s.TwrrRateAnnualized,
		s.SharpeRatioDaily, s.SharpeRatioAnnualized,
		s.SortinoRatioDaily, s.SortinoRatioAnnualized,
		s.XirrRate, s.XirrRateTotal,
	}
}

func statisticsDests(s *model.Statistics) []any {
	return []any{
		&s.Profit, &s.ProfitTotal, &s.ProfitPercentage, &s.ProfitPercentageTotal,
		&s.DrawdownValue, &s.DrawdownValueTotal, &s.DrawdownProfit, &s.DrawdownProfitTotal,
		&s.HPR, &s.Drawdown, &s.TwrrRateDaily, &s.TwrrRateAnnualized,
		&s.SharpeRatioDaily, &s.SharpeRatioAnnualized,
		&s.SortinoRatioDaily, &s.SortinoRatioAnnualized,
		&s.XirrRate, &s.XirrRateTotal,
	}
}

// SnapshotRepository provides data access methods for the four snapshot
// tables: position, group, portfolio and aggregate.
type SnapshotRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// WithTx returns a new SnapshotRepository scoped to the provided transaction.
func (r *SnapshotRepository) WithTx(tx *sql.Tx) *SnapshotRepository {
	return &SnapshotRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *SnapshotRepository) getQuerier() interface {
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

// userPortfolios scopes snapshot statements to the user's portfolio tree.
const userPortfolios = `
	SELECT portfolio.id
	FROM portfolio
	JOIN portfolio_aggregate ON portfolio_aggregate.id = portfolio.portfolio_aggregate_id
	WHERE portfolio_aggregate.user_id = ?
`

// DeletePositionSnapshotsFrom removes the user's position snapshots dated at
// or after the given date.
func (r *SnapshotRepository) DeletePositionSnapshotsFrom(ctx context.Context, userID int64, date string) error {
	query := `DELETE FROM position_snapshot WHERE date >= ? AND portfolio_id IN (` + userPortfolios + `)`

	if _, err := r.getQuerier().ExecContext(ctx, query, date, userID); err != nil {
		return fmt.Errorf("failed to delete position snapshots: %w", err)
	}

	return nil
}

// DeleteGroupSnapshotsFrom removes the user's group snapshots dated at or
// after the given date.
func (r *SnapshotRepository) DeleteGroupSnapshotsFrom(ctx context.Context, userID int64, date string) error {
	query := `DELETE FROM group_snapshot WHERE date >= ? AND portfolio_id IN (` + userPortfolios + `)`

	if _, err := r.getQuerier().ExecContext(ctx, query, date, userID); err != nil {
		return fmt.Errorf("failed to delete group snapshots: %w", err)
	}

	return nil
}

// DeletePortfolioSnapshotsFrom removes the user's portfolio snapshots dated
// at or after the given date.
func (r *SnapshotRepository) DeletePortfolioSnapshotsFrom(ctx context.Context, userID int64, date string) error {
	query := `DELETE FROM portfolio_snapshot WHERE date >= ? AND portfolio_id IN (` + userPortfolios + `)`

	if _, err := r.getQuerier().ExecContext(ctx, query, date, userID); err != nil {
		return fmt.Errorf("failed to delete portfolio snapshots: %w", err)
	}

	return nil
}

// DeleteAggregateSnapshotsFrom removes the aggregate's snapshots dated at or
// after the given date.
func (r *SnapshotRepository) DeleteAggregateSnapshotsFrom(ctx context.Context, aggregateID int64, date string) error {
	query := `DELETE FROM aggregate_snapshot WHERE date >= ? AND portfolio_aggregate_id = ?`

	if _, err := r.getQuerier().ExecContext(ctx, query, date, aggregateID); err != nil {
		return fmt.Errorf("failed to delete aggregate snapshots: %w", err)
	}

	return nil
}

const positionValueColumns = `unit_price, unit_price_adj, quantity, delta_quantity,
	market_value, market_value_adj, delta_quantity_value_adj,
	invested_amount, invested_amount_total,
	asset_disposal_income, asset_disposal_income_total,
	asset_holding_income, asset_holding_income_total,
	investment_income, investment_income_total`

// InsertPositionSnapshots bulk-inserts position snapshot rows.
func (r *SnapshotRepository) InsertPositionSnapshots(ctx context.Context, snapshots []model.PositionSnapshot) error {
	const cols = 4 + 15 + statisticsColumnCount

	for start := 0; start < len(snapshots); start += insertBatchRows {
		end := min(start+insertBatchRows, len(snapshots))
		batch := snapshots[start:end]

		query := `
			INSERT INTO position_snapshot
				(portfolio_id, portfolio_group_id, asset_id, date, ` +
			positionValueColumns + `, ` + statisticsColumns + `)
			VALUES ` + placeholderRows(len(batch), cols)

		args := make([]any, 0, len(batch)*cols)
		for _, s := range batch {
			args = append(args, s.PortfolioID, s.PortfolioGroupID, s.AssetID, s.Date,
				s.UnitPrice, s.UnitPriceAdj, s.Quantity, s.DeltaQuantity,
				s.MarketValue, s.MarketValueAdj, s.DeltaQuantityValueAdj,
				s.InvestedAmount, s.InvestedAmountTotal,
				s.AssetDisposalIncome, s.AssetDisposalIncomeTotal,
				s.AssetHoldingIncome, s.AssetHoldingIncomeTotal,
				s.InvestmentIncome, s.InvestmentIncomeTotal)
			args = append(args, statisticsArgs(s.Statistics)...)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert position snapshots: %w", err)
		}
	}

	return nil
}

// GetPositionHistoryBefore retrieves the user's preserved position snapshots
// dated strictly before the given date, ordered by position then date. The
// last row per position seeds the running totals of the recomputation
// window; the whole series feeds the statistics replay.
func (r *SnapshotRepository) GetPositionHistoryBefore(userID int64, date string) ([]model.PositionSnapshot, error) {
	query := `
		SELECT id, portfolio_id, portfolio_group_id, asset_id, date, ` +
		positionValueColumns + `, ` + statisticsColumns + `
		FROM position_snapshot
		WHERE date < ? AND portfolio_id IN (` + userPortfolios + `)
		ORDER BY portfolio_id, asset_id, date
	`
	return r.queryPositionSnapshots(query, date, userID)
}

// GetPositionSeries retrieves one position's snapshots within the inclusive
// date range, ordered by date.
func (r *SnapshotRepository) GetPositionSeries(portfolioID, assetID int64, fromDate, toDate string) ([]model.PositionSnapshot, error) {
	query := `
		SELECT id, portfolio_id, portfolio_group_id, asset_id, date, ` +
		positionValueColumns + `, ` + statisticsColumns + `
		FROM position_snapshot
		WHERE portfolio_id = ? AND asset_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`
	return r.queryPositionSnapshots(query, portfolioID, assetID, fromDate, toDate)
}

func (r *SnapshotRepository) queryPositionSnapshots(query string, args ...any) ([]model.PositionSnapshot, error) {
	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query position_snapshot table: %w", err)
	}
	defer rows.Close()

	snapshots := []model.PositionSnapshot{}

	for rows.Next() {
		var s model.PositionSnapshot

		dests := []any{&s.ID, &s.PortfolioID, &s.PortfolioGroupID, &s.AssetID, &s.Date,
			&s.UnitPrice, &s.UnitPriceAdj, &s.Quantity, &s.DeltaQuantity,
			&s.MarketValue, &s.MarketValueAdj, &s.DeltaQuantityValueAdj,
			&s.InvestedAmount, &s.InvestedAmountTotal,
			&s.AssetDisposalIncome, &s.AssetDisposalIncomeTotal,
			&s.AssetHoldingIncome, &s.AssetHoldingIncomeTotal,
			&s.InvestmentIncome, &s.InvestmentIncomeTotal}
		dests = append(dests, statisticsDests(&s.Statistics)...)

		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan position_snapshot table results: %w", err)
		}

		snapshots = append(snapshots, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position_snapshot table: %w", err)
	}

	return snapshots, nil
}

const groupValueColumns = `market_value, market_value_adj, delta_quantity_value_adj,
	invested_amount, invested_amount_total,
	asset_disposal_income, asset_disposal_income_total,
	asset_holding_income, asset_holding_income_total,
	investment_income, investment_income_total`

// InsertGroupSnapshots bulk-inserts group snapshot rows.
func (r *SnapshotRepository) InsertGroupSnapshots(ctx context.Context, snapshots []model.GroupSnapshot) error {
	const cols = 3 + 11 + statisticsColumnCount

	for start := 0; start < len(snapshots); start += insertBatchRows {
		end := min(start+insertBatchRows, len(snapshots))
		batch := snapshots[start:end]

		query := `
			INSERT INTO group_snapshot
				(portfolio_group_id, portfolio_id, date, ` +
			groupValueColumns + `, ` + statisticsColumns + `)
			VALUES ` + placeholderRows(len(batch), cols)

		args := make([]any, 0, len(batch)*cols)
		for _, s := range batch {
			args = append(args, s.PortfolioGroupID, s.PortfolioID, s.Date,
				s.MarketValue, s.MarketValueAdj, s.DeltaQuantityValueAdj,
				s.InvestedAmount, s.InvestedAmountTotal,
				s.AssetDisposalIncome, s.AssetDisposalIncomeTotal,
				s.AssetHoldingIncome, s.AssetHoldingIncomeTotal,
				s.InvestmentIncome, s.InvestmentIncomeTotal)
			args = append(args, statisticsArgs(s.Statistics)...)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert group snapshots: %w", err)
		}
	}

	return nil
}

// GetGroupHistoryBefore retrieves the user's preserved group snapshots dated
// strictly before the given date, ordered by group then date.
func (r *SnapshotRepository) GetGroupHistoryBefore(userID int64, date string) ([]model.GroupSnapshot, error) {
	query := `
		SELECT id, portfolio_group_id, portfolio_id, date, ` +
		groupValueColumns + `, ` + statisticsColumns + `
		FROM group_snapshot
		WHERE date < ? AND portfolio_id IN (` + userPortfolios + `)
		ORDER BY portfolio_group_id, date
	`
	return r.queryGroupSnapshots(query, date, userID)
}

// GetGroupSeries retrieves one group's snapshots within the inclusive date
// range, ordered by date.
func (r *SnapshotRepository) GetGroupSeries(groupID int64, fromDate, toDate string) ([]model.GroupSnapshot, error) {
	query := `
		SELECT id, portfolio_group_id, portfolio_id, date, ` +
		groupValueColumns + `, ` + statisticsColumns + `
		FROM group_snapshot
		WHERE portfolio_group_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`
	return r.queryGroupSnapshots(query, groupID, fromDate, toDate)
}

func (r *SnapshotRepository) queryGroupSnapshots(query string, args ...any) ([]model.GroupSnapshot, error) {
	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query group_snapshot table: %w", err)
	}
	defer rows.Close()

	snapshots := []model.GroupSnapshot{}

	for rows.Next() {
		var s model.GroupSnapshot

		dests := []any{&s.ID, &s.PortfolioGroupID, &s.PortfolioID, &s.Date,
			&s.MarketValue, &s.MarketValueAdj, &s.DeltaQuantityValueAdj,
			&s.InvestedAmount, &s.InvestedAmountTotal,
			&s.AssetDisposalIncome, &s.AssetDisposalIncomeTotal,
			&s.AssetHoldingIncome, &s.AssetHoldingIncomeTotal,
			&s.InvestmentIncome, &s.InvestmentIncomeTotal}
		dests = append(dests, statisticsDests(&s.Statistics)...)

		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan group_snapshot table results: %w", err)
		}

		snapshots = append(snapshots, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group_snapshot table: %w", err)
	}

	return snapshots, nil
}

// GetPositionSumsByGroup sums the user's position snapshots per (group, date)
// from the given date onward. These sums are the value columns of the group
// level before its statistics are computed.
func (r *SnapshotRepository) GetPositionSumsByGroup(userID int64, fromDate string) ([]model.GroupSnapshot, error) {
	query := `
		SELECT position_snapshot.portfolio_group_id, position_snapshot.portfolio_id,
			position_snapshot.date,
			SUM(position_snapshot.market_value),
			SUM(position_snapshot.market_value_adj),
			SUM(position_snapshot.delta_quantity_value_adj),
			SUM(position_snapshot.invested_amount),
			SUM(position_snapshot.invested_amount_total),
			SUM(position_snapshot.asset_disposal_income),
			SUM(position_snapshot.asset_disposal_income_total),
			SUM(position_snapshot.asset_holding_income),
			SUM(position_snapshot.asset_holding_income_total),
			SUM(position_snapshot.investment_income),
			SUM(position_snapshot.investment_income_total)
		FROM position_snapshot
		WHERE position_snapshot.date >= ?
			AND position_snapshot.portfolio_id IN (` + userPortfolios + `)
		GROUP BY position_snapshot.portfolio_group_id, position_snapshot.date
		ORDER BY position_snapshot.portfolio_group_id, position_snapshot.date
	`
	rows, err := r.getQuerier().Query(query, fromDate, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query position sums by group: %w", err)
	}
	defer rows.Close()

	sums := []model.GroupSnapshot{}

	for rows.Next() {
		var s model.GroupSnapshot

		err := rows.Scan(
			&s.PortfolioGroupID,
			&s.PortfolioID,
			&s.Date,
			&s.MarketValue,
			&s.MarketValueAdj,
			&s.DeltaQuantityValueAdj,
			&s.InvestedAmount,
			&s.InvestedAmountTotal,
			&s.AssetDisposalIncome,
			&s.AssetDisposalIncomeTotal,
			&s.AssetHoldingIncome,
			&s.AssetHoldingIncomeTotal,
			&s.InvestmentIncome,
			&s.InvestmentIncomeTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position sums by group: %w", err)
		}

		sums = append(sums, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position sums by group: %w", err)
	}

	return sums, nil
}

const portfolioValueColumns = `market_value, market_value_adj, delta_quantity_value_adj,
	cash_balance, invested_amount, invested_amount_total,
	asset_disposal_income, asset_disposal_income_total,
	asset_holding_income, asset_holding_income_total,
	interest_income, interest_income_total,
	investment_income, investment_income_total`

// InsertPortfolioSnapshots bulk-inserts portfolio snapshot rows.
func (r *SnapshotRepository) InsertPortfolioSnapshots(ctx context.Context, snapshots []model.PortfolioSnapshot) error {
	const cols = 2 + 14 + statisticsColumnCount

	for start := 0; start < len(snapshots); start += insertBatchRows {
		end := min(start+insertBatchRows, len(snapshots))
		batch := snapshots[start:end]

		query := `
			INSERT INTO portfolio_snapshot
				(portfolio_id, date, ` + portfolioValueColumns + `, ` + statisticsColumns + `)
			VALUES ` + placeholderRows(len(batch), cols)

		args := make([]any, 0, len(batch)*cols)
		for _, s := range batch {
			args = append(args, s.PortfolioID, s.Date,
				s.MarketValue, s.MarketValueAdj, s.DeltaQuantityValueAdj,
				s.CashBalance, s.InvestedAmount, s.InvestedAmountTotal,
				s.AssetDisposalIncome, s.AssetDisposalIncomeTotal,
				s.AssetHoldingIncome, s.AssetHoldingIncomeTotal,
				s.InterestIncome, s.InterestIncomeTotal,
				s.InvestmentIncome, s.InvestmentIncomeTotal)
			args = append(args, statisticsArgs(s.Statistics)...)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert portfolio snapshots: %w", err)
		}
	}

	return nil
}

// GetPortfolioHistoryBefore retrieves the user's preserved portfolio
// snapshots dated strictly before the given date, ordered by portfolio then date.
func (r *SnapshotRepository) GetPortfolioHistoryBefore(userID int64, date string) ([]model.PortfolioSnapshot, error) {
	query := `
		SELECT id, portfolio_id, date, ` + portfolioValueColumns + `, ` + statisticsColumns + `
		FROM portfolio_snapshot
		WHERE date < ? AND portfolio_id IN (` + userPortfolios + `)
		ORDER BY portfolio_id, date
	`
	return r.queryPortfolioSnapshots(query, date, userID)
}

// GetPortfolioSeries retrieves one portfolio's snapshots within the inclusive
// date range, ordered by date.
func (r *SnapshotRepository) GetPortfolioSeries(portfolioID int64, fromDate, toDate string) ([]model.PortfolioSnapshot, error) {
	query := `
		SELECT id, portfolio_id, date, ` + portfolioValueColumns + `, ` + statisticsColumns + `
		FROM portfolio_snapshot
		WHERE portfolio_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`
	return r.queryPortfolioSnapshots(query, portfolioID, fromDate, toDate)
}

func (r *SnapshotRepository) queryPortfolioSnapshots(query string, args ...any) ([]model.PortfolioSnapshot, error) {
	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio_snapshot table: %w", err)
	}
	defer rows.Close()

	snapshots := []model.PortfolioSnapshot{}

	for rows.Next() {
		var s model.PortfolioSnapshot

		dests := []any{&s.ID, &s.PortfolioID, &s.Date,
			&s.MarketValue, &s.MarketValueAdj, &s.DeltaQuantityValueAdj,
			&s.CashBalance, &s.InvestedAmount, &s.InvestedAmountTotal,
			&s.AssetDisposalIncome, &s.AssetDisposalIncomeTotal,
			&s.AssetHoldingIncome, &s.AssetHoldingIncomeTotal,
			&s.InterestIncome, &s.InterestIncomeTotal,
			&s.InvestmentIncome, &s.InvestmentIncomeTotal}
		dests = append(dests, statisticsDests(&s.Statistics)...)

		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio_snapshot table results: %w", err)
		}

		snapshots = append(snapshots, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio_snapshot table: %w", err)
	}

	return snapshots, nil
}

// GetGroupSumsByPortfolio sums the user's group snapshots per
// (portfolio, date) from the given date onward. Cash and interest are not
// present yet; the portfolio roller adds them from the normalized
// transactions.
func (r *SnapshotRepository) GetGroupSumsByPortfolio(userID int64, fromDate string) ([]model.PortfolioSnapshot, error) {
	query := `
		SELECT group_snapshot.portfolio_id, group_snapshot.date,
			SUM(group_snapshot.market_value),
			SUM(group_snapshot.market_value_adj),
			SUM(group_snapshot.delta_quantity_value_adj),
			SUM(group_snapshot.invested_amount),
			SUM(group_snapshot.invested_amount_total),
			SUM(group_snapshot.asset_disposal_income),
			SUM(group_snapshot.asset_disposal_income_total),
			SUM(group_snapshot.asset_holding_income),
			SUM(group_snapshot.asset_holding_income_total),
			SUM(group_snapshot.investment_income),
			SUM(group_snapshot.investment_income_total)
		FROM group_snapshot
		WHERE group_snapshot.date >= ?
			AND group_snapshot.portfolio_id IN (` + userPortfolios + `)
		GROUP BY group_snapshot.portfolio_id, group_snapshot.date
		ORDER BY group_snapshot.portfolio_id, group_snapshot.date
	`
	rows, err := r.getQuerier().Query(query, fromDate, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group sums by portfolio: %w", err)
	}
	defer rows.Close()

	sums := []model.PortfolioSnapshot{}

	for rows.Next() {
		var s model.PortfolioSnapshot

		err := rows.Scan(
			&s.PortfolioID,
			&s.Date,
			&s.MarketValue,
			&s.MarketValueAdj,
			&s.DeltaQuantityValueAdj,
			&s.InvestedAmount,
			&s.InvestedAmountTotal,
			&s.AssetDisposalIncome,
			&s.AssetDisposalIncomeTotal,
			&s.AssetHoldingIncome,
			&s.AssetHoldingIncomeTotal,
			&s.InvestmentIncome,
			&s.InvestmentIncomeTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group sums by portfolio: %w", err)
		}

		sums = append(sums, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group sums by portfolio: %w", err)
	}

	return sums, nil
}

// InsertAggregateSnapshots bulk-inserts aggregate snapshot rows.
func (r *SnapshotRepository) InsertAggregateSnapshots(ctx context.Context, snapshots []model.AggregateSnapshot) error {
	const cols = 2 + 14 + statisticsColumnCount

	for start := 0; start < len(snapshots); start += insertBatchRows {
		end := min(start+insertBatchRows, len(snapshots))
		batch := snapshots[start:end]

		query := `
			INSERT INTO aggregate_snapshot
				(portfolio_aggregate_id, date, ` + portfolioValueColumns + `, ` + statisticsColumns + `)
			VALUES ` + placeholderRows(len(batch), cols)

		args := make([]any, 0, len(batch)*cols)
		for _, s := range batch {
			args = append(args, s.PortfolioAggregateID, s.Date,
				s.MarketValue, s.MarketValueAdj, s.DeltaQuantityValueAdj,
				s.CashBalance, s.InvestedAmount, s.InvestedAmountTotal,
				s.AssetDisposalIncome, s.AssetDisposalIncomeTotal,
				s.AssetHoldingIncome, s.AssetHoldingIncomeTotal,
				s.InterestIncome, s.InterestIncomeTotal,
				s.InvestmentIncome, s.InvestmentIncomeTotal)
			args = append(args, statisticsArgs(s.Statistics)...)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert aggregate snapshots: %w", err)
		}
	}

	return nil
}

// GetAggregateHistoryBefore retrieves the aggregate's preserved snapshots
// dated strictly before the given date, ordered by date.
func (r *SnapshotRepository) GetAggregateHistoryBefore(aggregateID int64, date string) ([]model.AggregateSnapshot, error) {
	query := `
		SELECT id, portfolio_aggregate_id, date, ` + portfolioValueColumns + `, ` + statisticsColumns + `
		FROM aggregate_snapshot
		WHERE portfolio_aggregate_id = ? AND date < ?
		ORDER BY date
	`
	return r.queryAggregateSnapshots(query, aggregateID, date)
}

// GetAggregateSeries retrieves the aggregate's snapshots within the inclusive
// date range, ordered by date.
func (r *SnapshotRepository) GetAggregateSeries(aggregateID int64, fromDate, toDate string) ([]model.AggregateSnapshot, error) {
	query := `
		SELECT id, portfolio_aggregate_id, date, ` + portfolioValueColumns + `, ` + statisticsColumns + `
		FROM aggregate_snapshot
		WHERE portfolio_aggregate_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`
	return r.queryAggregateSnapshots(query, aggregateID, fromDate, toDate)
}

func (r *SnapshotRepository) queryAggregateSnapshots(query string, args ...any) ([]model.AggregateSnapshot, error) {
	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregate_snapshot table: %w", err)
	}
	defer rows.Close()

	snapshots := []model.AggregateSnapshot{}

	for rows.Next() {
		var s model.AggregateSnapshot

		dests := []any{&s.ID, &s.PortfolioAggregateID, &s.Date,
			&s.MarketValue, &s.MarketValueAdj, &s.DeltaQuantityValueAdj,
			&s.CashBalance, &s.InvestedAmount, &s.InvestedAmountTotal,
			&s.AssetDisposalIncome, &s.AssetDisposalIncomeTotal,
			&s.AssetHoldingIncome, &s.AssetHoldingIncomeTotal,
			&s.InterestIncome, &s.InterestIncomeTotal,
			&s.InvestmentIncome, &s.InvestmentIncomeTotal}
		dests = append(dests, statisticsDests(&s.Statistics)...)

		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate_snapshot table results: %w", err)
		}

		snapshots = append(snapshots, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate_snapshot table: %w", err)
	}

	return snapshots, nil
}

// GetPortfolioSumsByAggregate sums the user's portfolio snapshots per date
// from the given date onward, the value columns of the aggregate level.
func (r *SnapshotRepository) GetPortfolioSumsByAggregate(aggregateID int64, fromDate string) ([]model.AggregateSnapshot, error) {
	query := `
		SELECT portfolio_snapshot.date,
			SUM(portfolio_snapshot.market_value),
			SUM(portfolio_snapshot.market_value_adj),
			SUM(portfolio_snapshot.delta_quantity_value_adj),
			SUM(portfolio_snapshot.cash_balance),
			SUM(portfolio_snapshot.invested_amount),
			SUM(portfolio_snapshot.invested_amount_total),
			SUM(portfolio_snapshot.asset_disposal_income),
			SUM(portfolio_snapshot.asset_disposal_income_total),
			SUM(portfolio_snapshot.asset_holding_income),
			SUM(portfolio_snapshot.asset_holding_income_total),
			SUM(portfolio_snapshot.interest_income),
			SUM(portfolio_snapshot.interest_income_total),
			SUM(portfolio_snapshot.investment_income),
			SUM(portfolio_snapshot.investment_income_total)
		FROM portfolio_snapshot
		JOIN portfolio ON portfolio.id = portfolio_snapshot.portfolio_id
		WHERE portfolio_snapshot.date >= ? AND portfolio.portfolio_aggregate_id = ?
		GROUP BY portfolio_snapshot.date
		ORDER BY portfolio_snapshot.date
	`
	rows, err := r.getQuerier().Query(query, fromDate, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio sums by aggregate: %w", err)
	}
	defer rows.Close()

	sums := []model.AggregateSnapshot{}

	for rows.Next() {
		s := model.AggregateSnapshot{PortfolioAggregateID: aggregateID}

		err := rows.Scan(
			&s.Date,
			&s.MarketValue,
			&s.MarketValueAdj,
			&s.DeltaQuantityValueAdj,
			&s.CashBalance,
			&s.InvestedAmount,
			&s.InvestedAmountTotal,
			&s.AssetDisposalIncome,
			&s.AssetDisposalIncomeTotal,
			&s.AssetHoldingIncome,
			&s.AssetHoldingIncomeTotal,
			&s.InterestIncome,
			&s.InterestIncomeTotal,
			&s.InvestmentIncome,
			&s.InvestmentIncomeTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio sums by aggregate: %w", err)
		}

		sums = append(sums, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio sums by aggregate: %w", err)
	}

	return sums, nil
}

// GetGroupMarketValuesAt retrieves each group of a portfolio with its model
// weight and its snapshot market value on the given date. Groups without a
// snapshot on that date report a zero market value.
func (r *SnapshotRepository) GetGroupMarketValuesAt(portfolioID int64, date string) ([]model.GroupMarketValue, error) {
	query := `
		SELECT portfolio_group.id, portfolio_group.name, portfolio_group.weight,
			COALESCE(group_snapshot.market_value, 0)
		FROM portfolio_group
		LEFT JOIN group_snapshot ON group_snapshot.portfolio_group_id = portfolio_group.id
			AND group_snapshot.date = ?
		WHERE portfolio_group.portfolio_id = ?
		ORDER BY portfolio_group.name
	`
	rows, err := r.getQuerier().Query(query, date, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group market values: %w", err)
	}
	defer rows.Close()

	values := []model.GroupMarketValue{}

	for rows.Next() {
		v := model.GroupMarketValue{Date: date}

		err := rows.Scan(&v.PortfolioGroupID, &v.PortfolioGroupName, &v.ModelWeight, &v.MarketValue)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group market values: %w", err)
		}

		values = append(values, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group market values: %w", err)
	}

	return values, nil
}

// GetPortfolioSnapshotAt retrieves the portfolio's newest snapshot dated at
// or before the given date. Returns sql.ErrNoRows when none exists.
func (r *SnapshotRepository) GetPortfolioSnapshotAt(portfolioID int64, date string) (model.PortfolioSnapshot, error) {
	query := `
		SELECT id, portfolio_id, date, ` + portfolioValueColumns + `, ` + statisticsColumns + `
		FROM portfolio_snapshot
		WHERE portfolio_id = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`
	snapshots, err := r.queryPortfolioSnapshots(query, portfolioID, date)
	if err != nil {
		return model.PortfolioSnapshot{}, err
	}
	if len(snapshots) == 0 {
		return model.PortfolioSnapshot{}, sql.ErrNoRows
	}
	return snapshots[0], nil
}

// GetAggregateSnapshotAt retrieves the aggregate's newest snapshot dated at
// or before the given date. Returns sql.ErrNoRows when none exists.
func (r *SnapshotRepository) GetAggregateSnapshotAt(aggregateID int64, date string) (model.AggregateSnapshot, error) {
	query := `
		SELECT id, portfolio_aggregate_id, date, ` + portfolioValueColumns + `, ` + statisticsColumns + `
		FROM aggregate_snapshot
		WHERE portfolio_aggregate_id = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`
	snapshots, err := r.queryAggregateSnapshots(query, aggregateID, date)
	if err != nil {
		return model.AggregateSnapshot{}, err
	}
	if len(snapshots) == 0 {
		return model.AggregateSnapshot{}, sql.ErrNoRows
	}
	return snapshots[0], nil
}

// GetLatestSnapshotDate retrieves the date of the aggregate's most recent
// snapshot, or an empty string when none exist.
func (r *SnapshotRepository) GetLatestSnapshotDate(aggregateID int64) (string, error) {
	query := `SELECT COALESCE(MAX(date), '') FROM aggregate_snapshot WHERE portfolio_aggregate_id = ?`

	var date string

	err := r.getQuerier().QueryRow(query, aggregateID).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to query latest snapshot date: %w", err)
	}

	return date, nil
}
