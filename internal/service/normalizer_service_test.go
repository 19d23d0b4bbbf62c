package service_test

import (
	"context"
	"database/sql"
	"math"
	"testing"

	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/testutil"
)

type adjustedRow struct {
	Quantity                 float64
	Value                    float64
	FeeAmount                float64
	TaxAmount                float64
	CashFlow                 float64
	InvestedAmount           float64
	InvestedAmountTotal      float64
	AssetDisposalIncome      float64
	AssetDisposalIncomeTotal float64
	AssetHoldingIncome       float64
	InterestIncome           float64
	InvestmentIncome         float64
	InvestmentIncomeTotal    float64
}

func getAdjustedRow(t *testing.T, db *sql.DB, txType string) adjustedRow {
	t.Helper()

	query := `
		SELECT quantity, value, fee_amount, tax_amount, cash_flow,
			invested_amount, invested_amount_total,
			asset_disposal_income, asset_disposal_income_total,
			asset_holding_income, interest_income,
			investment_income, investment_income_total
		FROM adjusted_transaction
		WHERE type = ?
	`
	var row adjustedRow
	err := db.QueryRow(query, txType).Scan(
		&row.Quantity, &row.Value, &row.FeeAmount, &row.TaxAmount, &row.CashFlow,
		&row.InvestedAmount, &row.InvestedAmountTotal,
		&row.AssetDisposalIncome, &row.AssetDisposalIncomeTotal,
		&row.AssetHoldingIncome, &row.InterestIncome,
		&row.InvestmentIncome, &row.InvestmentIncomeTotal,
	)
	if err != nil {
		t.Fatalf("Failed to read adjusted %s row: %v", txType, err)
	}
	return row
}

func countAdjusted(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM adjusted_transaction`).Scan(&count); err != nil {
		t.Fatalf("Failed to count adjusted rows: %v", err)
	}
	return count
}

// TestNormalizerService_SignConvention tests the per-type signing and
// classification of raw transactions.
//
// WHY: Every downstream figure sums these columns, so the sign convention
// is load-bearing: money leaving the account must be negative, fees always
// reduce the total variants, and each type must land in exactly its own
// income category.
func TestNormalizerService_SignConvention(t *testing.T) {
	setup := func(t *testing.T) (*sql.DB, model.Settings, model.TransactionFile, model.Asset) {
		db := testutil.SetupTestDB(t)
		settings := testutil.CreateSettings(t, db, 1, "EUR")
		aggregate := testutil.NewAggregate().WithUserID(1).Build(t, db)
		portfolio := testutil.NewPortfolio(aggregate.ID).Build(t, db)
		file := testutil.NewTransactionFile(1, portfolio.ID).WithCurrency("EUR").Build(t, db)
		asset := testutil.NewAsset().WithCurrency("EUR").Build(t, db)
		return db, settings, file, asset
	}

	t.Run("buy is an outflow with positive quantity", func(t *testing.T) {
		db, settings, file, asset := setup(t)
		svc := testutil.NewTestNormalizerService(t, db)

		testutil.NewTransaction(file.ID).
			WithAsset(asset.ID).
			WithType(model.TransactionBuy).
			WithDate("2024-01-02").
			WithQuantity(10).
			WithValue(1000).
			WithFee(5).
			Build(t, db)

		if err := svc.NormalizeTransactions(context.Background(), 1, settings); err != nil {
			t.Fatalf("NormalizeTransactions() returned unexpected error: %v", err)
		}

		row := getAdjustedRow(t, db, model.TransactionBuy)
		if row.Quantity != 10 {
			t.Errorf("Expected quantity 10, got %f", row.Quantity)
		}
		if row.Value != -1000 {
			t.Errorf("Expected value -1000, got %f", row.Value)
		}
		if row.FeeAmount != -5 {
			t.Errorf("Expected fee -5, got %f", row.FeeAmount)
		}
		if row.CashFlow != -1005 {
			t.Errorf("Expected cash flow -1005, got %f", row.CashFlow)
		}
		if row.InvestedAmount != -1000 || row.InvestedAmountTotal != -1005 {
			t.Errorf("Expected invested -1000/-1005, got %f/%f", row.InvestedAmount, row.InvestedAmountTotal)
		}
		if row.InvestmentIncome != 0 {
			t.Errorf("Expected no investment income on a buy, got %f", row.InvestmentIncome)
		}
	})

	t.Run("sell is an inflow with negative quantity and taxed", func(t *testing.T) {
		db, settings, file, asset := setup(t)
		svc := testutil.NewTestNormalizerService(t, db)

		testutil.NewTransaction(file.ID).
			WithAsset(asset.ID).
			WithType(model.TransactionSell).
			WithDate("2024-01-10").
			WithQuantity(4).
			WithValue(500).
			WithFee(5).
			WithTax(10).
			Build(t, db)

		if err := svc.NormalizeTransactions(context.Background(), 1, settings); err != nil {
			t.Fatalf("NormalizeTransactions() returned unexpected error: %v", err)
		}

		row := getAdjustedRow(t, db, model.TransactionSell)
		if row.Quantity != -4 {
			t.Errorf("Expected quantity -4, got %f", row.Quantity)
		}
		if row.Value != 500 || row.FeeAmount != -5 || row.TaxAmount != -10 {
			t.Errorf("Expected 500/-5/-10, got %f/%f/%f", row.Value, row.FeeAmount, row.TaxAmount)
		}
		if row.AssetDisposalIncome != 500 || row.AssetDisposalIncomeTotal != 485 {
			t.Errorf("Expected disposal 500/485, got %f/%f", row.AssetDisposalIncome, row.AssetDisposalIncomeTotal)
		}
		if row.InvestmentIncome != 500 || row.InvestmentIncomeTotal != 485 {
			t.Errorf("Expected investment income 500/485, got %f/%f", row.InvestmentIncome, row.InvestmentIncomeTotal)
		}
	})

	t.Run("cash types carry no quantity", func(t *testing.T) {
		db, settings, file, _ := setup(t)
		svc := testutil.NewTestNormalizerService(t, db)

		testutil.NewTransaction(file.ID).WithType(model.TransactionDeposit).WithValue(2000).Build(t, db)
		testutil.NewTransaction(file.ID).WithType(model.TransactionWithdrawal).WithValue(300).Build(t, db)
		testutil.NewTransaction(file.ID).WithType(model.TransactionInterest).WithValue(12).WithTax(2).Build(t, db)
		testutil.NewTransaction(file.ID).WithType(model.TransactionFee).WithFee(7).Build(t, db)

		if err := svc.NormalizeTransactions(context.Background(), 1, settings); err != nil {
			t.Fatalf("NormalizeTransactions() returned unexpected error: %v", err)
		}

		deposit := getAdjustedRow(t, db, model.TransactionDeposit)
		if deposit.Value != 2000 || deposit.CashFlow != 2000 {
			t.Errorf("Expected deposit 2000 in and out, got %f/%f", deposit.Value, deposit.CashFlow)
		}
		if deposit.InvestmentIncome != 0 {
			t.Errorf("Expected deposit outside investment income, got %f", deposit.InvestmentIncome)
		}

		withdrawal := getAdjustedRow(t, db, model.TransactionWithdrawal)
		if withdrawal.Value != -300 {
			t.Errorf("Expected withdrawal -300, got %f", withdrawal.Value)
		}

		interest := getAdjustedRow(t, db, model.TransactionInterest)
		if interest.InterestIncome != 12 || interest.CashFlow != 10 {
			t.Errorf("Expected interest 12 with cash flow 10, got %f/%f", interest.InterestIncome, interest.CashFlow)
		}

		fee := getAdjustedRow(t, db, model.TransactionFee)
		if fee.Value != 0 || fee.CashFlow != -7 || fee.InvestedAmountTotal != -7 {
			t.Errorf("Expected pure fee -7 total, got value %f, cash %f, invested total %f", fee.Value, fee.CashFlow, fee.InvestedAmountTotal)
		}
		if fee.InvestedAmount != 0 {
			t.Errorf("Expected base invested untouched by fee, got %f", fee.InvestedAmount)
		}
	})

	t.Run("distribution lands in holding income", func(t *testing.T) {
		db, settings, file, asset := setup(t)
		svc := testutil.NewTestNormalizerService(t, db)

		testutil.NewTransaction(file.ID).
			WithAsset(asset.ID).
			WithType(model.TransactionDistribution).
			WithValue(40).
			WithTax(6).
			Build(t, db)

		if err := svc.NormalizeTransactions(context.Background(), 1, settings); err != nil {
			t.Fatalf("NormalizeTransactions() returned unexpected error: %v", err)
		}

		row := getAdjustedRow(t, db, model.TransactionDistribution)
		if row.AssetHoldingIncome != 40 {
			t.Errorf("Expected holding income 40, got %f", row.AssetHoldingIncome)
		}
		if row.InvestmentIncomeTotal != 34 {
			t.Errorf("Expected investment income total 34, got %f", row.InvestmentIncomeTotal)
		}
	})
}

// TestNormalizerService_CurrencyConversion tests conversion of foreign
// currency files into the analysis currency.
//
// WHY: A file in another currency must be converted at that day's exchange
// rate, while a file whose conversion pair is missing falls back to a rate
// of 1 instead of failing the whole run.
func TestNormalizerService_CurrencyConversion(t *testing.T) {
	t.Run("converts at the daily rate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		settings := testutil.CreateSettings(t, db, 1, "EUR")
		aggregate := testutil.NewAggregate().WithUserID(1).Build(t, db)
		portfolio := testutil.NewPortfolio(aggregate.ID).Build(t, db)
		file := testutil.NewTransactionFile(1, portfolio.ID).WithCurrency("USD").Build(t, db)
		asset := testutil.NewAsset().WithCurrency("USD").Build(t, db)
		pair := testutil.NewCurrencyPair().WithCurrencies("USD", "EUR").Build(t, db)
		testutil.SeedPairPrices(t, db, pair.ID, "2024-01-02", "2024-01-02", 0.9)

		testutil.NewTransaction(file.ID).
			WithAsset(asset.ID).
			WithType(model.TransactionBuy).
			WithDate("2024-01-02").
			WithQuantity(10).
			WithValue(1000).
			WithFee(5).
			Build(t, db)

		svc := testutil.NewTestNormalizerService(t, db)
		if err := svc.NormalizeTransactions(context.Background(), 1, settings); err != nil {
			t.Fatalf("NormalizeTransactions() returned unexpected error: %v", err)
		}

		row := getAdjustedRow(t, db, model.TransactionBuy)
		if math.Abs(row.Value-(-900)) > 1e-9 {
			t.Errorf("Expected value -900 after conversion, got %f", row.Value)
		}
		if math.Abs(row.FeeAmount-(-4.5)) > 1e-9 {
			t.Errorf("Expected fee -4.5 after conversion, got %f", row.FeeAmount)
		}
		if row.Quantity != 10 {
			t.Errorf("Expected quantity untouched by conversion, got %f", row.Quantity)
		}
	})

	t.Run("missing pair converts at 1", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		settings := testutil.CreateSettings(t, db, 1, "EUR")
		aggregate := testutil.NewAggregate().WithUserID(1).Build(t, db)
		portfolio := testutil.NewPortfolio(aggregate.ID).Build(t, db)
		file := testutil.NewTransactionFile(1, portfolio.ID).WithCurrency("CHF").Build(t, db)

		testutil.NewTransaction(file.ID).WithType(model.TransactionDeposit).WithValue(100).Build(t, db)

		svc := testutil.NewTestNormalizerService(t, db)
		if err := svc.NormalizeTransactions(context.Background(), 1, settings); err != nil {
			t.Fatalf("NormalizeTransactions() returned unexpected error: %v", err)
		}

		row := getAdjustedRow(t, db, model.TransactionDeposit)
		if row.Value != 100 {
			t.Errorf("Expected unconverted value 100, got %f", row.Value)
		}
	})
}

// TestNormalizerService_Rebuild tests that normalization is a full rebuild.
//
// WHY: The normalized table must stay a pure function of the raw imports.
// Running twice may not duplicate rows, and rows of other users may not be
// touched.
func TestNormalizerService_Rebuild(t *testing.T) {
	db := testutil.SetupTestDB(t)
	settings := testutil.CreateSettings(t, db, 1, "EUR")
	otherSettings := testutil.CreateSettings(t, db, 2, "EUR")

	aggregate := testutil.NewAggregate().WithUserID(1).Build(t, db)
	portfolio := testutil.NewPortfolio(aggregate.ID).Build(t, db)
	file := testutil.NewTransactionFile(1, portfolio.ID).Build(t, db)
	testutil.NewTransaction(file.ID).WithType(model.TransactionDeposit).WithValue(100).Build(t, db)

	otherAggregate := testutil.NewAggregate().WithUserID(2).Build(t, db)
	otherPortfolio := testutil.NewPortfolio(otherAggregate.ID).Build(t, db)
	otherFile := testutil.NewTransactionFile(2, otherPortfolio.ID).Build(t, db)
	testutil.NewTransaction(otherFile.ID).WithType(model.TransactionDeposit).WithValue(50).Build(t, db)

	svc := testutil.NewTestNormalizerService(t, db)

	for _, s := range []model.Settings{settings, otherSettings} {
		if err := svc.NormalizeTransactions(context.Background(), s.UserID, s); err != nil {
			t.Fatalf("NormalizeTransactions() returned unexpected error: %v", err)
		}
	}

	if count := countAdjusted(t, db); count != 2 {
		t.Fatalf("Expected 2 adjusted rows, got %d", count)
	}

	// Second run for user 1 must replace, not append, and leave user 2 alone.
	if err := svc.NormalizeTransactions(context.Background(), 1, settings); err != nil {
		t.Fatalf("NormalizeTransactions() returned unexpected error: %v", err)
	}

	if count := countAdjusted(t, db); count != 2 {
		t.Errorf("Expected 2 adjusted rows after rerun, got %d", count)
	}
}
