package model

// Transaction types accepted in transaction files. Buy and sell carry a
// quantity; the cash-only types leave it zero.
const (
	TransactionBuy          = "buy"
	TransactionSell         = "sell"
	TransactionDeposit      = "deposit"
	TransactionWithdrawal   = "withdrawal"
	TransactionDistribution = "distribution"
	TransactionInterest     = "interest"
	TransactionFee          = "fee"
)

// TransactionFile groups imported transactions that share a native currency
// and a target portfolio.
type TransactionFile struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	PortfolioID int64  `json:"portfolioId"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
}

// Transaction is a raw imported transaction in the file's native currency.
// AssetID is zero for cash-only transaction types.
type Transaction struct {
	ID                int64   `json:"id"`
	TransactionFileID int64   `json:"transactionFileId"`
	AssetID           int64   `json:"assetId"`
	Date              string  `json:"date"`
	Type              string  `json:"type"`
	Quantity          float64 `json:"quantity"`
	Value             float64 `json:"value"`
	FeeAmount         float64 `json:"feeAmount"`
	TaxAmount         float64 `json:"taxAmount"`
}

// PositionKey identifies one asset position inside one portfolio.
type PositionKey struct {
	PortfolioID int64
	AssetID     int64
}

// PositionDelta is the per-day sum of a position's normalized transactions:
// the quantity traded that day and the day's contribution to each running
// invested and income total.
type PositionDelta struct {
	PortfolioID              int64
	AssetID                  int64
	Date                     string
	Quantity                 float64
	InvestedAmount           float64
	InvestedAmountTotal      float64
	AssetDisposalIncome      float64
	AssetDisposalIncomeTotal float64
	AssetHoldingIncome       float64
	AssetHoldingIncomeTotal  float64
	InvestmentIncome         float64
	InvestmentIncomeTotal    float64
}

// PortfolioCashDelta is the per-day sum of a portfolio's cash movements:
// the net cash flow and the interest income that has no asset to attach to.
type PortfolioCashDelta struct {
	PortfolioID         int64
	Date                string
	CashFlow            float64
	InterestIncome      float64
	InterestIncomeTotal float64
}

// PortfolioAccountDelta is the per-day sum of the invested columns of a
// portfolio's account-level transactions, the rows without an asset. Fees
// charged against the account rather than a holding surface here.
type PortfolioAccountDelta struct {
	PortfolioID         int64
	Date                string
	InvestedAmount      float64
	InvestedAmountTotal float64
}

// AdjustedTransaction is the analysis-currency normalization of one raw
// Transaction. Quantity, Value, FeeAmount and TaxAmount are signed per the
// transaction type; the income fields classify Value into the category the
// type belongs to. Base fields exclude fees and taxes, Total fields include
// them. Outflows are negative, so InvestedAmount of a buy is negative.
type AdjustedTransaction struct {
	ID                       int64
	TransactionFileID        int64
	PortfolioID              int64
	AssetID                  int64
	Date                     string
	Type                     string
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
	AssetHoldingIncomeTotal  float64
	InterestIncome           float64
	InterestIncomeTotal      float64
	InvestmentIncome         float64
	InvestmentIncomeTotal    float64
}
