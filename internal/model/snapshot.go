package model

import "database/sql"

// Statistics is the return and risk block computed identically at every
// aggregation level. Percentage and drawdown fields coalesce undefined
// divisions to zero; the ratio and rate fields stay NULL when they cannot
// be computed (single observation, zero deviation, non-convergent IRR).
type Statistics struct {
	Profit                 float64         `json:"profit"`
	ProfitTotal            float64         `json:"profitTotal"`
	ProfitPercentage       float64         `json:"profitPercentage"`
	ProfitPercentageTotal  float64         `json:"profitPercentageTotal"`
	DrawdownValue          float64         `json:"drawdownValue"`
	DrawdownValueTotal     float64         `json:"drawdownValueTotal"`
	DrawdownProfit         float64         `json:"drawdownProfit"`
	DrawdownProfitTotal    float64         `json:"drawdownProfitTotal"`
	HPR                    float64         `json:"hpr"`
	Drawdown               float64         `json:"drawdown"`
	TwrrRateDaily          float64         `json:"twrrRateDaily"`
	TwrrRateAnnualized     float64         `json:"twrrRateAnnualized"`
	SharpeRatioDaily       sql.NullFloat64 `json:"sharpeRatioDaily"`
	SharpeRatioAnnualized  sql.NullFloat64 `json:"sharpeRatioAnnualized"`
	SortinoRatioDaily      sql.NullFloat64 `json:"sortinoRatioDaily"`
	SortinoRatioAnnualized sql.NullFloat64 `json:"sortinoRatioAnnualized"`
	XirrRate               sql.NullFloat64 `json:"xirrRate"`
	XirrRateTotal          sql.NullFloat64 `json:"xirrRateTotal"`
}

// PositionSnapshot is one day of one asset held in one portfolio: running
// position totals plus the statistics block. One row per
// (portfolio, asset, date).
type PositionSnapshot struct {
	ID                       int64   `json:"id"`
	PortfolioID              int64   `json:"portfolioId"`
	PortfolioGroupID         int64   `json:"portfolioGroupId"`
	AssetID                  int64   `json:"assetId"`
	Date                     string  `json:"date"`
	UnitPrice                float64 `json:"unitPrice"`
	UnitPriceAdj             float64 `json:"unitPriceAdj"`
	Quantity                 float64 `json:"quantity"`
	DeltaQuantity            float64 `json:"deltaQuantity"`
	MarketValue              float64 `json:"marketValue"`
	MarketValueAdj           float64 `json:"marketValueAdj"`
	DeltaQuantityValueAdj    float64 `json:"deltaQuantityValueAdj"`
	InvestedAmount           float64 `json:"investedAmount"`
	InvestedAmountTotal      float64 `json:"investedAmountTotal"`
	AssetDisposalIncome      float64 `json:"assetDisposalIncome"`
	AssetDisposalIncomeTotal float64 `json:"assetDisposalIncomeTotal"`
	AssetHoldingIncome       float64 `json:"assetHoldingIncome"`
	AssetHoldingIncomeTotal  float64 `json:"assetHoldingIncomeTotal"`
	InvestmentIncome         float64 `json:"investmentIncome"`
	InvestmentIncomeTotal    float64 `json:"investmentIncomeTotal"`
	Statistics
}

// GroupSnapshot sums the position snapshots of a weighting group per date.
type GroupSnapshot struct {
	ID                       int64   `json:"id"`
	PortfolioGroupID         int64   `json:"portfolioGroupId"`
	PortfolioID              int64   `json:"portfolioId"`
	Date                     string  `json:"date"`
	MarketValue              float64 `json:"marketValue"`
	MarketValueAdj           float64 `json:"marketValueAdj"`
	DeltaQuantityValueAdj    float64 `json:"deltaQuantityValueAdj"`
	InvestedAmount           float64 `json:"investedAmount"`
	InvestedAmountTotal      float64 `json:"investedAmountTotal"`
	AssetDisposalIncome      float64 `json:"assetDisposalIncome"`
	AssetDisposalIncomeTotal float64 `json:"assetDisposalIncomeTotal"`
	AssetHoldingIncome       float64 `json:"assetHoldingIncome"`
	AssetHoldingIncomeTotal  float64 `json:"assetHoldingIncomeTotal"`
	InvestmentIncome         float64 `json:"investmentIncome"`
	InvestmentIncomeTotal    float64 `json:"investmentIncomeTotal"`
	Statistics
}

// PortfolioSnapshot sums a portfolio's group snapshots per date on a
// continuous daily axis and adds the portfolio-level cash fields. Interest
// income first appears at this level because it is not tied to an asset.
type PortfolioSnapshot struct {
	ID                       int64   `json:"id"`
	PortfolioID              int64   `json:"portfolioId"`
	Date                     string  `json:"date"`
	MarketValue              float64 `json:"marketValue"`
	MarketValueAdj           float64 `json:"marketValueAdj"`
	DeltaQuantityValueAdj    float64 `json:"deltaQuantityValueAdj"`
	CashBalance              float64 `json:"cashBalance"`
	InvestedAmount           float64 `json:"investedAmount"`
	InvestedAmountTotal      float64 `json:"investedAmountTotal"`
	AssetDisposalIncome      float64 `json:"assetDisposalIncome"`
	AssetDisposalIncomeTotal float64 `json:"assetDisposalIncomeTotal"`
	AssetHoldingIncome       float64 `json:"assetHoldingIncome"`
	AssetHoldingIncomeTotal  float64 `json:"assetHoldingIncomeTotal"`
	InterestIncome           float64 `json:"interestIncome"`
	InterestIncomeTotal      float64 `json:"interestIncomeTotal"`
	InvestmentIncome         float64 `json:"investmentIncome"`
	InvestmentIncomeTotal    float64 `json:"investmentIncomeTotal"`
	Statistics
}

// AggregateSnapshot sums all portfolio snapshots of a user's aggregate per
// date. Same shape as the portfolio level, keyed by the aggregate.
type AggregateSnapshot struct {
	ID                       int64   `json:"id"`
	PortfolioAggregateID     int64   `json:"portfolioAggregateId"`
	Date                     string  `json:"date"`
	MarketValue              float64 `json:"marketValue"`
	MarketValueAdj           float64 `json:"marketValueAdj"`
	DeltaQuantityValueAdj    float64 `json:"deltaQuantityValueAdj"`
	CashBalance              float64 `json:"cashBalance"`
	InvestedAmount           float64 `json:"investedAmount"`
	InvestedAmountTotal      float64 `json:"investedAmountTotal"`
	AssetDisposalIncome      float64 `json:"assetDisposalIncome"`
	AssetDisposalIncomeTotal float64 `json:"assetDisposalIncomeTotal"`
	AssetHoldingIncome       float64 `json:"assetHoldingIncome"`
	AssetHoldingIncomeTotal  float64 `json:"assetHoldingIncomeTotal"`
	InterestIncome           float64 `json:"interestIncome"`
	InterestIncomeTotal      float64 `json:"interestIncomeTotal"`
	InvestmentIncome         float64 `json:"investmentIncome"`
	InvestmentIncomeTotal    float64 `json:"investmentIncomeTotal"`
	Statistics
}
