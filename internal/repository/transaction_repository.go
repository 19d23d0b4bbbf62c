package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// TransactionRepository provides data access methods for transaction_file,
// portfolio_transaction and adjusted_transaction.
type TransactionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a new TransactionRepository scoped to the provided transaction.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *TransactionRepository) getQuerier() interface {
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

// GetTransactionFilesForUser retrieves the user's transaction files ordered by name.
func (r *TransactionRepository) GetTransactionFilesForUser(userID int64) ([]model.TransactionFile, error) {
	query := `
		SELECT id, user_id, portfolio_id, name, currency
		FROM transaction_file
		WHERE user_id = ?
		ORDER BY name
	`
	rows, err := r.getQuerier().Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction_file table: %w", err)
	}
	defer rows.Close()

	files := []model.TransactionFile{}

	for rows.Next() {
		var f model.TransactionFile

		err := rows.Scan(&f.ID, &f.UserID, &f.PortfolioID, &f.Name, &f.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction_file table results: %w", err)
		}

		files = append(files, f)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction_file table: %w", err)
	}

	return files, nil
}

// GetTransactionFileOnID retrieves a single transaction file by its ID.
// Returns ErrTransactionFileNotFound if no file with the given ID exists.
func (r *TransactionRepository) GetTransactionFileOnID(fileID int64) (model.TransactionFile, error) {
	query := `
		SELECT id, user_id, portfolio_id, name, currency
		FROM transaction_file
		WHERE id = ?
	`
	var f model.TransactionFile

	err := r.getQuerier().QueryRow(query, fileID).Scan(&f.ID, &f.UserID, &f.PortfolioID, &f.Name, &f.Currency)
	if err == sql.ErrNoRows {
		return model.TransactionFile{}, apperrors.ErrTransactionFileNotFound
	}
	if err != nil {
		return model.TransactionFile{}, fmt.Errorf("failed to query transaction_file: %w", err)
	}

	return f, nil
}

// CreateTransactionFile inserts a transaction file and returns its ID.
func (r *TransactionRepository) CreateTransactionFile(ctx context.Context, f model.TransactionFile) (int64, error) {
	query := `
		INSERT INTO transaction_file (user_id, portfolio_id, name, currency)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.getQuerier().ExecContext(ctx, query, f.UserID, f.PortfolioID, f.Name, f.Currency)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction_file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted transaction_file id: %w", err)
	}

	return id, nil
}

// CreateTransactions bulk-inserts raw transactions into a file.
func (r *TransactionRepository) CreateTransactions(ctx context.Context, fileID int64, transactions []model.Transaction) error {
	for start := 0; start < len(transactions); start += insertBatchRows {
		end := min(start+insertBatchRows, len(transactions))
		batch := transactions[start:end]

		query := `
			INSERT INTO portfolio_transaction
				(transaction_file_id, asset_id, date, type, quantity, value, fee_amount, tax_amount)
			VALUES ` + placeholderRows(len(batch), 8)

		args := make([]any, 0, len(batch)*8)
		for _, t := range batch {
			args = append(args, fileID, nullableID(t.AssetID), t.Date, t.Type,
				t.Quantity, t.Value, t.FeeAmount, t.TaxAmount)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert transactions: %w", err)
		}
	}

	return nil
}

// GetTransactionsForFile retrieves a file's raw transactions ordered by date.
func (r *TransactionRepository) GetTransactionsForFile(fileID int64) ([]model.Transaction, error) {
	query := `
		SELECT id, transaction_file_id, asset_id, date, type, quantity, value, fee_amount, tax_amount
		FROM portfolio_transaction
		WHERE transaction_file_id = ?
		ORDER BY date, id
	`
	rows, err := r.getQuerier().Query(query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio_transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}

	for rows.Next() {
		var t model.Transaction
		var assetID sql.NullInt64

		err := rows.Scan(
			&t.ID,
			&t.TransactionFileID,
			&assetID,
			&t.Date,
			&t.Type,
			&t.Quantity,
			&t.Value,
			&t.FeeAmount,
			&t.TaxAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio_transaction table results: %w", err)
		}

		t.AssetID = assetID.Int64
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio_transaction table: %w", err)
	}

	return transactions, nil
}

// DeleteAdjustedForUser removes every normalized transaction belonging to the
// user's files. Normalization always rebuilds the full table for a user; the
// checkpoint only bounds the snapshot tables.
func (r *TransactionRepository) DeleteAdjustedForUser(ctx context.Context, userID int64) error {
	query := `
		DELETE FROM adjusted_transaction
		WHERE transaction_file_id IN (
			SELECT id FROM transaction_file WHERE user_id = ?
		)
	`
	if _, err := r.getQuerier().ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete adjusted transactions: %w", err)
	}

	return nil
}

// InsertAdjustedTransactions bulk-inserts normalized transactions.
func (r *TransactionRepository) InsertAdjustedTransactions(ctx context.Context, adjusted []model.AdjustedTransaction) error {
	const cols = 21

	for start := 0; start < len(adjusted); start += insertBatchRows {
		end := min(start+insertBatchRows, len(adjusted))
		batch := adjusted[start:end]

		query := `
			INSERT INTO adjusted_transaction
				(transaction_file_id, portfolio_id, asset_id, date, type,
				quantity, value, fee_amount, tax_amount, cash_flow,
				invested_amount, invested_amount_total,
				asset_disposal_income, asset_disposal_income_total,
				asset_holding_income, asset_holding_income_total,
				interest_income, interest_income_total,
				investment_income, investment_income_total)
			VALUES ` + placeholderRows(len(batch), cols-1)

		args := make([]any, 0, len(batch)*(cols-1))
		for _, a := range batch {
			args = append(args, a.TransactionFileID, a.PortfolioID, nullableID(a.AssetID),
				a.Date, a.Type, a.Quantity, a.Value, a.FeeAmount, a.TaxAmount, a.CashFlow,
				a.InvestedAmount, a.InvestedAmountTotal,
				a.AssetDisposalIncome, a.AssetDisposalIncomeTotal,
				a.AssetHoldingIncome, a.AssetHoldingIncomeTotal,
				a.InterestIncome, a.InterestIncomeTotal,
				a.InvestmentIncome, a.InvestmentIncomeTotal)
		}

		if _, err := r.getQuerier().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert adjusted transactions: %w", err)
		}
	}

	return nil
}

// GetFirstTransactionDates retrieves the earliest normalized transaction date
// per (portfolio, asset) position for the user.
func (r *TransactionRepository) GetFirstTransactionDates(userID int64) (map[model.PositionKey]string, error) {
	query := `
		SELECT adjusted_transaction.portfolio_id, adjusted_transaction.asset_id,
			MIN(adjusted_transaction.date)
		FROM adjusted_transaction
		JOIN transaction_file ON transaction_file.id = adjusted_transaction.transaction_file_id
		WHERE transaction_file.user_id = ? AND adjusted_transaction.asset_id IS NOT NULL
		GROUP BY adjusted_transaction.portfolio_id, adjusted_transaction.asset_id
	`
	rows, err := r.getQuerier().Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query first transaction dates: %w", err)
	}
	defer rows.Close()

	dates := map[model.PositionKey]string{}

	for rows.Next() {
		var key model.PositionKey
		var date string

		err := rows.Scan(&key.PortfolioID, &key.AssetID, &date)
		if err != nil {
			return nil, fmt.Errorf("failed to scan first transaction dates: %w", err)
		}

		dates[key] = date
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating first transaction dates: %w", err)
	}

	return dates, nil
}

// GetFirstTransactionDatePerPortfolio retrieves the earliest normalized
// transaction date per portfolio of the user, cash types included.
func (r *TransactionRepository) GetFirstTransactionDatePerPortfolio(userID int64) (map[int64]string, error) {
	query := `
		SELECT adjusted_transaction.portfolio_id, MIN(adjusted_transaction.date)
		FROM adjusted_transaction
		JOIN transaction_file ON transaction_file.id = adjusted_transaction.transaction_file_id
		WHERE transaction_file.user_id = ?
		GROUP BY adjusted_transaction.portfolio_id
	`
	rows, err := r.getQuerier().Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query first portfolio transaction dates: %w", err)
	}
	defer rows.Close()

	dates := map[int64]string{}

	for rows.Next() {
		var portfolioID int64
		var date string

		err := rows.Scan(&portfolioID, &date)
		if err != nil {
			return nil, fmt.Errorf("failed to scan first portfolio transaction dates: %w", err)
		}

		dates[portfolioID] = date
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating first portfolio transaction dates: %w", err)
	}

	return dates, nil
}

// GetPositionDeltas retrieves per-day transaction sums for every
// (portfolio, asset) position of the user from the given date onward,
// ordered by position then date.
func (r *TransactionRepository) GetPositionDeltas(userID int64, fromDate string) ([]model.PositionDelta, error) {
	query := `
		SELECT adjusted_transaction.portfolio_id, adjusted_transaction.asset_id,
			adjusted_transaction.date,
			SUM(adjusted_transaction.quantity),
			SUM(adjusted_transaction.invested_amount),
			SUM(adjusted_transaction.invested_amount_total),
			SUM(adjusted_transaction.asset_disposal_income),
			SUM(adjusted_transaction.asset_disposal_income_total),
			SUM(adjusted_transaction.asset_holding_income),
			SUM(adjusted_transaction.asset_holding_income_total),
			SUM(adjusted_transaction.investment_income),
			SUM(adjusted_transaction.investment_income_total)
		FROM adjusted_transaction
		JOIN transaction_file ON transaction_file.id = adjusted_transaction.transaction_file_id
		WHERE transaction_file.user_id = ?
			AND adjusted_transaction.asset_id IS NOT NULL
			AND adjusted_transaction.date >= ?
		GROUP BY adjusted_transaction.portfolio_id, adjusted_transaction.asset_id,
			adjusted_transaction.date
		ORDER BY adjusted_transaction.portfolio_id, adjusted_transaction.asset_id,
			adjusted_transaction.date
	`
	rows, err := r.getQuerier().Query(query, userID, fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query position deltas: %w", err)
	}
	defer rows.Close()

	deltas := []model.PositionDelta{}

	for rows.Next() {
		var d model.PositionDelta

		err := rows.Scan(
			&d.PortfolioID,
			&d.AssetID,
			&d.Date,
			&d.Quantity,
			&d.InvestedAmount,
			&d.InvestedAmountTotal,
			&d.AssetDisposalIncome,
			&d.AssetDisposalIncomeTotal,
			&d.AssetHoldingIncome,
			&d.AssetHoldingIncomeTotal,
			&d.InvestmentIncome,
			&d.InvestmentIncomeTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position deltas: %w", err)
		}

		deltas = append(deltas, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position deltas: %w", err)
	}

	return deltas, nil
}

// GetPortfolioAccountDeltas retrieves per-day invested sums of the user's
// transactions without an asset, over the full history, ordered by
// portfolio then date. Position deltas skip these rows, so the portfolio
// roll-up folds them in separately.
func (r *TransactionRepository) GetPortfolioAccountDeltas(userID int64) ([]model.PortfolioAccountDelta, error) {
	query := `
		SELECT adjusted_transaction.portfolio_id, adjusted_transaction.date,
			SUM(adjusted_transaction.invested_amount),
			SUM(adjusted_transaction.invested_amount_total)
		FROM adjusted_transaction
		JOIN transaction_file ON transaction_file.id = adjusted_transaction.transaction_file_id
		WHERE transaction_file.user_id = ? AND adjusted_transaction.asset_id IS NULL
		GROUP BY adjusted_transaction.portfolio_id, adjusted_transaction.date
		ORDER BY adjusted_transaction.portfolio_id, adjusted_transaction.date
	`
	rows, err := r.getQuerier().Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio account deltas: %w", err)
	}
	defer rows.Close()

	deltas := []model.PortfolioAccountDelta{}

	for rows.Next() {
		var d model.PortfolioAccountDelta

		err := rows.Scan(&d.PortfolioID, &d.Date, &d.InvestedAmount, &d.InvestedAmountTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio account deltas: %w", err)
		}

		deltas = append(deltas, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio account deltas: %w", err)
	}

	return deltas, nil
}

// GetPortfolioCashDeltas retrieves per-day cash flow and interest income sums
// per portfolio of the user from the given date onward, ordered by portfolio
// then date.
func (r *TransactionRepository) GetPortfolioCashDeltas(userID int64, fromDate string) ([]model.PortfolioCashDelta, error) {
	query := `
		SELECT adjusted_transaction.portfolio_id, adjusted_transaction.date,
			SUM(adjusted_transaction.cash_flow),
			SUM(adjusted_transaction.interest_income),
			SUM(adjusted_transaction.interest_income_total)
		FROM adjusted_transaction
		JOIN transaction_file ON transaction_file.id = adjusted_transaction.transaction_file_id
		WHERE transaction_file.user_id = ? AND adjusted_transaction.date >= ?
		GROUP BY adjusted_transaction.portfolio_id, adjusted_transaction.date
		ORDER BY adjusted_transaction.portfolio_id, adjusted_transaction.date
	`
	rows, err := r.getQuerier().Query(query, userID, fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio cash deltas: %w", err)
	}
	defer rows.Close()

	deltas := []model.PortfolioCashDelta{}

	for rows.Next() {
		var d model.PortfolioCashDelta

		err := rows.Scan(&d.PortfolioID, &d.Date, &d.CashFlow, &d.InterestIncome, &d.InterestIncomeTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio cash deltas: %w", err)
		}

		deltas = append(deltas, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio cash deltas: %w", err)
	}

	return deltas, nil
}
