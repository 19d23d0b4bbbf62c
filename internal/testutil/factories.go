package testutil

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// AssetBuilder provides a fluent interface for creating test assets.
//
// Example usage:
//
//	// Simple creation with defaults
//	asset := testutil.NewAsset().Build(t, db)
//
//	// Customized asset
//	asset := testutil.NewAsset().
//	    WithSymbol("VWRL.AS").
//	    WithCurrency("EUR").
//	    Build(t, db)
type AssetBuilder struct {
	Name             string
	Symbol           string
	Currency         string
	FirstPricingDate string
	LastPricingDate  string
}

// NewAsset creates an AssetBuilder with sensible defaults.
func NewAsset() *AssetBuilder {
	return &AssetBuilder{
		Name:             "Test Asset",
		Symbol:           "TEST",
		Currency:         "USD",
		FirstPricingDate: model.SentinelDate,
		LastPricingDate:  model.SentinelDate,
	}
}

// WithName sets a custom name.
func (b *AssetBuilder) WithName(name string) *AssetBuilder {
	b.Name = name
	return b
}

// WithSymbol sets a custom symbol.
func (b *AssetBuilder) WithSymbol(symbol string) *AssetBuilder {
	b.Symbol = symbol
	return b
}

// WithCurrency sets the asset's native currency.
func (b *AssetBuilder) WithCurrency(currency string) *AssetBuilder {
	b.Currency = currency
	return b
}

// WithPricingDates sets both pricing watermarks.
func (b *AssetBuilder) WithPricingDates(first, last string) *AssetBuilder {
	b.FirstPricingDate = first
	b.LastPricingDate = last
	return b
}

// Build creates the asset in the database and returns it.
func (b *AssetBuilder) Build(t *testing.T, db *sql.DB) model.Asset {
	t.Helper()

	query := `
		INSERT INTO asset (name, symbol, currency, first_pricing_date, last_pricing_date)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, b.Name, b.Symbol, b.Currency, b.FirstPricingDate, b.LastPricingDate)
	if err != nil {
		t.Fatalf("Failed to create test asset: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test asset id: %v", err)
	}

	return model.Asset{
		ID:               id,
		Name:             b.Name,
		Symbol:           b.Symbol,
		Currency:         b.Currency,
		FirstPricingDate: b.FirstPricingDate,
		LastPricingDate:  b.LastPricingDate,
	}
}

// CurrencyPairBuilder provides a fluent interface for creating test
// currency pairs. Pair names are lowercase concatenations, e.g. "usdeur".
type CurrencyPairBuilder struct {
	Name             string
	Symbol           string
	FirstCurrency    string
	SecondCurrency   string
	FirstPricingDate string
	LastPricingDate  string
}

// NewCurrencyPair creates a CurrencyPairBuilder converting USD into EUR.
func NewCurrencyPair() *CurrencyPairBuilder {
	return &CurrencyPairBuilder{
		Name:             "usdeur",
		Symbol:           "USDEUR=X",
		FirstCurrency:    "USD",
		SecondCurrency:   "EUR",
		FirstPricingDate: model.SentinelDate,
		LastPricingDate:  model.SentinelDate,
	}
}

// WithCurrencies sets the conversion direction and derives name and symbol.
func (b *CurrencyPairBuilder) WithCurrencies(first, second string) *CurrencyPairBuilder {
	b.FirstCurrency = first
	b.SecondCurrency = second
	b.Name = strings.ToLower(first + second)
	b.Symbol = first + second + "=X"
	return b
}

// WithPricingDates sets both pricing watermarks.
func (b *CurrencyPairBuilder) WithPricingDates(first, last string) *CurrencyPairBuilder {
	b.FirstPricingDate = first
	b.LastPricingDate = last
	return b
}

// Build creates the currency pair in the database and returns it.
func (b *CurrencyPairBuilder) Build(t *testing.T, db *sql.DB) model.CurrencyPair {
	t.Helper()

	query := `
		INSERT INTO currency_pair (name, symbol, first_currency, second_currency, first_pricing_date, last_pricing_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, b.Name, b.Symbol, b.FirstCurrency, b.SecondCurrency, b.FirstPricingDate, b.LastPricingDate)
	if err != nil {
		t.Fatalf("Failed to create test currency pair: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test currency pair id: %v", err)
	}

	return model.CurrencyPair{
		ID:               id,
		Name:             b.Name,
		Symbol:           b.Symbol,
		FirstCurrency:    b.FirstCurrency,
		SecondCurrency:   b.SecondCurrency,
		FirstPricingDate: b.FirstPricingDate,
		LastPricingDate:  b.LastPricingDate,
	}
}

// AggregateBuilder creates the per-user portfolio aggregate root.
type AggregateBuilder struct {
	UserID         int64
	CheckpointDate string
}

// NewAggregate creates an AggregateBuilder for user 1 with an untouched
// checkpoint.
func NewAggregate() *AggregateBuilder {
	return &AggregateBuilder{
		UserID:         1,
		CheckpointDate: model.SentinelDate,
	}
}

// WithUserID sets the owning user.
func (b *AggregateBuilder) WithUserID(userID int64) *AggregateBuilder {
	b.UserID = userID
	return b
}

// WithCheckpointDate sets the recomputation checkpoint.
func (b *AggregateBuilder) WithCheckpointDate(date string) *AggregateBuilder {
	b.CheckpointDate = date
	return b
}

// Build creates the aggregate in the database and returns it.
func (b *AggregateBuilder) Build(t *testing.T, db *sql.DB) model.PortfolioAggregate {
	t.Helper()

	query := `
		INSERT INTO portfolio_aggregate (user_id, checkpoint_date)
		VALUES (?, ?)
	`

	result, err := db.Exec(query, b.UserID, b.CheckpointDate)
	if err != nil {
		t.Fatalf("Failed to create test aggregate: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test aggregate id: %v", err)
	}

	return model.PortfolioAggregate{
		ID:             id,
		UserID:         b.UserID,
		CheckpointDate: b.CheckpointDate,
	}
}

// PortfolioBuilder creates portfolios under an aggregate.
type PortfolioBuilder struct {
	PortfolioAggregateID int64
	Name                 string
}

// NewPortfolio creates a PortfolioBuilder under the given aggregate.
func NewPortfolio(aggregateID int64) *PortfolioBuilder {
	return &PortfolioBuilder{
		PortfolioAggregateID: aggregateID,
		Name:                 "Test Portfolio",
	}
}

// WithName sets a custom name.
func (b *PortfolioBuilder) WithName(name string) *PortfolioBuilder {
	b.Name = name
	return b
}

// Build creates the portfolio in the database and returns it.
func (b *PortfolioBuilder) Build(t *testing.T, db *sql.DB) model.Portfolio {
	t.Helper()

	query := `
		INSERT INTO portfolio (portfolio_aggregate_id, name)
		VALUES (?, ?)
	`

	result, err := db.Exec(query, b.PortfolioAggregateID, b.Name)
	if err != nil {
		t.Fatalf("Failed to create test portfolio: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test portfolio id: %v", err)
	}

	return model.Portfolio{
		ID:                   id,
		PortfolioAggregateID: b.PortfolioAggregateID,
		Name:                 b.Name,
	}
}

// GroupBuilder creates weighting groups inside a portfolio.
type GroupBuilder struct {
	PortfolioID int64
	UserID      int64
	Name        string
	Weight      float64
}

// NewGroup creates a GroupBuilder with a 100% weight.
func NewGroup(portfolioID, userID int64) *GroupBuilder {
	return &GroupBuilder{
		PortfolioID: portfolioID,
		UserID:      userID,
		Name:        "Test Group",
		Weight:      100,
	}
}

// WithName sets a custom name.
func (b *GroupBuilder) WithName(name string) *GroupBuilder {
	b.Name = name
	return b
}

// WithWeight sets the model weight percentage.
func (b *GroupBuilder) WithWeight(weight float64) *GroupBuilder {
	b.Weight = weight
	return b
}

// Build creates the group in the database and returns it.
func (b *GroupBuilder) Build(t *testing.T, db *sql.DB) model.PortfolioGroup {
	t.Helper()

	query := `
		INSERT INTO portfolio_group (portfolio_id, user_id, name, weight)
		VALUES (?, ?, ?, ?)
	`

	result, err := db.Exec(query, b.PortfolioID, b.UserID, b.Name, b.Weight)
	if err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test group id: %v", err)
	}

	return model.PortfolioGroup{
		ID:          id,
		PortfolioID: b.PortfolioID,
		UserID:      b.UserID,
		Name:        b.Name,
		Weight:      b.Weight,
	}
}

// AddGroupAsset assigns an asset to a weighting group.
func AddGroupAsset(t *testing.T, db *sql.DB, groupID, assetID int64) model.PortfolioGroupAsset {
	t.Helper()

	query := `
		INSERT INTO portfolio_group_asset (portfolio_group_id, asset_id)
		VALUES (?, ?)
	`

	result, err := db.Exec(query, groupID, assetID)
	if err != nil {
		t.Fatalf("Failed to create test group asset: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test group asset id: %v", err)
	}

	return model.PortfolioGroupAsset{
		ID:               id,
		PortfolioGroupID: groupID,
		AssetID:          assetID,
	}
}

// TransactionFileBuilder creates transaction files.
type TransactionFileBuilder struct {
	UserID      int64
	PortfolioID int64
	Name        string
	Currency    string
}

// NewTransactionFile creates a TransactionFileBuilder in EUR.
func NewTransactionFile(userID, portfolioID int64) *TransactionFileBuilder {
	return &TransactionFileBuilder{
		UserID:      userID,
		PortfolioID: portfolioID,
		Name:        "test-file.csv",
		Currency:    "EUR",
	}
}

// WithCurrency sets the file's native currency.
func (b *TransactionFileBuilder) WithCurrency(currency string) *TransactionFileBuilder {
	b.Currency = currency
	return b
}

// WithName sets a custom name.
func (b *TransactionFileBuilder) WithName(name string) *TransactionFileBuilder {
	b.Name = name
	return b
}

// Build creates the transaction file in the database and returns it.
func (b *TransactionFileBuilder) Build(t *testing.T, db *sql.DB) model.TransactionFile {
	t.Helper()

	query := `
		INSERT INTO transaction_file (user_id, portfolio_id, name, currency)
		VALUES (?, ?, ?, ?)
	`

	result, err := db.Exec(query, b.UserID, b.PortfolioID, b.Name, b.Currency)
	if err != nil {
		t.Fatalf("Failed to create test transaction file: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test transaction file id: %v", err)
	}

	return model.TransactionFile{
		ID:          id,
		UserID:      b.UserID,
		PortfolioID: b.PortfolioID,
		Name:        b.Name,
		Currency:    b.Currency,
	}
}

// TransactionBuilder creates raw transactions inside a file.
type TransactionBuilder struct {
	TransactionFileID int64
	AssetID           int64
	Date              string
	Type              string
	Quantity          float64
	Value             float64
	FeeAmount         float64
	TaxAmount         float64
}

// NewTransaction creates a TransactionBuilder with a zero-valued deposit.
// AssetID zero means a cash-only transaction.
func NewTransaction(fileID int64) *TransactionBuilder {
	return &TransactionBuilder{
		TransactionFileID: fileID,
		Date:              "2024-01-01",
		Type:              model.TransactionDeposit,
	}
}

// WithAsset sets the traded asset.
func (b *TransactionBuilder) WithAsset(assetID int64) *TransactionBuilder {
	b.AssetID = assetID
	return b
}

// WithDate sets the transaction date.
func (b *TransactionBuilder) WithDate(date string) *TransactionBuilder {
	b.Date = date
	return b
}

// WithType sets the transaction type.
func (b *TransactionBuilder) WithType(txType string) *TransactionBuilder {
	b.Type = txType
	return b
}

// WithQuantity sets the traded quantity.
func (b *TransactionBuilder) WithQuantity(quantity float64) *TransactionBuilder {
	b.Quantity = quantity
	return b
}

// WithValue sets the unsigned transaction value.
func (b *TransactionBuilder) WithValue(value float64) *TransactionBuilder {
	b.Value = value
	return b
}

// WithFee sets the unsigned fee amount.
func (b *TransactionBuilder) WithFee(fee float64) *TransactionBuilder {
	b.FeeAmount = fee
	return b
}

// WithTax sets the unsigned tax amount.
func (b *TransactionBuilder) WithTax(tax float64) *TransactionBuilder {
	b.TaxAmount = tax
	return b
}

// Build creates the transaction in the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	query := `
		INSERT INTO portfolio_transaction (transaction_file_id, asset_id, date, type, quantity, value, fee_amount, tax_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var assetID any
	if b.AssetID != 0 {
		assetID = b.AssetID
	}

	result, err := db.Exec(query, b.TransactionFileID, assetID, b.Date, b.Type, b.Quantity, b.Value, b.FeeAmount, b.TaxAmount)
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test transaction id: %v", err)
	}

	return model.Transaction{
		ID:                id,
		TransactionFileID: b.TransactionFileID,
		AssetID:           b.AssetID,
		Date:              b.Date,
		Type:              b.Type,
		Quantity:          b.Quantity,
		Value:             b.Value,
		FeeAmount:         b.FeeAmount,
		TaxAmount:         b.TaxAmount,
	}
}

// CreateSettings stores analysis settings for a user with close prices.
func CreateSettings(t *testing.T, db *sql.DB, userID int64, analysisCurrency string) model.Settings {
	t.Helper()

	s := model.Settings{
		UserID:           userID,
		AnalysisCurrency: analysisCurrency,
		OHLCAssets:       model.OHLCClose,
		OHLCCurrencies:   model.OHLCClose,
	}

	query := `
		INSERT INTO settings (user_id, analysis_currency, ohlc_assets, ohlc_currencies)
		VALUES (?, ?, ?, ?)
	`

	if _, err := db.Exec(query, s.UserID, s.AnalysisCurrency, s.OHLCAssets, s.OHLCCurrencies); err != nil {
		t.Fatalf("Failed to create test settings: %v", err)
	}

	return s
}
