package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
)

// NormalizerService converts raw imported transactions into signed,
// classified, analysis-currency rows.
type NormalizerService struct {
	transactionRepo *repository.TransactionRepository
	pairRepo        *repository.CurrencyPairRepository
	priceRepo       *repository.PriceRepository
}

// NewNormalizerService creates a new NormalizerService with the provided repository dependencies.
func NewNormalizerService(
	transactionRepo *repository.TransactionRepository,
	pairRepo *repository.CurrencyPairRepository,
	priceRepo *repository.PriceRepository,
) *NormalizerService {
	return &NormalizerService{
		transactionRepo: transactionRepo,
		pairRepo:        pairRepo,
		priceRepo:       priceRepo,
	}
}

// WithTx returns a new NormalizerService whose repositories are scoped to
// the provided transaction.
func (s *NormalizerService) WithTx(tx *sql.Tx) *NormalizerService {
	return &NormalizerService{
		transactionRepo: s.transactionRepo.WithTx(tx),
		pairRepo:        s.pairRepo.WithTx(tx),
		priceRepo:       s.priceRepo.WithTx(tx),
	}
}

// NormalizeTransactions rebuilds the user's normalized transaction rows from
// scratch: every raw transaction is signed per its type, converted into the
// analysis currency at that day's exchange rate, and classified into cash
// flow, invested amount and the income categories.
//
// The full rebuild keeps the normalized rows a pure function of the raw
// imports; only the snapshot tables are bounded by the checkpoint.
func (s *NormalizerService) NormalizeTransactions(ctx context.Context, userID int64, settings model.Settings) error {
	files, err := s.transactionRepo.GetTransactionFilesForUser(userID)
	if err != nil {
		return err
	}

	if err := s.transactionRepo.DeleteAdjustedForUser(ctx, userID); err != nil {
		return err
	}

	adjusted := []model.AdjustedTransaction{}

	for _, file := range files {
		transactions, err := s.transactionRepo.GetTransactionsForFile(file.ID)
		if err != nil {
			return err
		}
		if len(transactions) == 0 {
			continue
		}

		rates, err := s.exchangeRates(file.Currency, settings, transactions[0].Date)
		if err != nil {
			return err
		}

		for _, t := range transactions {
			rate, ok := rates[t.Date]
			if !ok || rate == 0 {
				rate = 1
			}

			adjusted = append(adjusted, normalizeTransaction(t, file.PortfolioID, rate))
		}
	}

	return s.transactionRepo.InsertAdjustedTransactions(ctx, adjusted)
}

// exchangeRates builds the per-day conversion rate from the file currency
// into the analysis currency starting at the file's earliest transaction.
// A file already in the analysis currency, or one whose pair is unknown,
// converts at 1.
func (s *NormalizerService) exchangeRates(fileCurrency string, settings model.Settings, fromDate string) (map[string]float64, error) {
	if strings.EqualFold(fileCurrency, settings.AnalysisCurrency) {
		return nil, nil
	}

	pairName := strings.ToLower(fileCurrency + settings.AnalysisCurrency)

	pair, err := s.pairRepo.GetCurrencyPairOnName(pairName)
	if err != nil {
		if errors.Is(err, apperrors.ErrCurrencyPairNotFound) {
			return nil, nil
		}
		return nil, err
	}

	curve, err := s.priceRepo.GetAdjustedPairPrices(pair.ID, fromDate)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]float64, len(curve))
	for date, bar := range curve {
		rates[date] = applyOHLCVariant(settings.OHLCCurrencies, bar)
	}

	return rates, nil
}

// normalizeTransaction signs and classifies one raw transaction at the
// given conversion rate.
func normalizeTransaction(t model.Transaction, portfolioID int64, rate float64) model.AdjustedTransaction {
	a := model.AdjustedTransaction{
		TransactionFileID: t.TransactionFileID,
		PortfolioID:       portfolioID,
		AssetID:           t.AssetID,
		Date:              t.Date,
		Type:              t.Type,
	}

	// Sign convention: money leaving the account is negative. Buys and
	// withdrawals are outflows; deposits, sales and income are inflows.
	switch t.Type {
	case model.TransactionBuy:
		a.Quantity = t.Quantity
		a.Value = -t.Value * rate
	case model.TransactionSell:
		a.Quantity = -t.Quantity
		a.Value = t.Value * rate
	case model.TransactionDeposit, model.TransactionDistribution, model.TransactionInterest:
		a.Value = t.Value * rate
	case model.TransactionWithdrawal:
		a.Value = -t.Value * rate
	}

	a.FeeAmount = -t.FeeAmount * rate

	switch t.Type {
	case model.TransactionSell, model.TransactionDistribution, model.TransactionInterest:
		a.TaxAmount = -t.TaxAmount * rate
	}

	a.CashFlow = a.Value + a.FeeAmount + a.TaxAmount

	switch t.Type {
	case model.TransactionBuy:
		a.InvestedAmount = a.Value
		a.InvestedAmountTotal = a.Value + a.FeeAmount
	case model.TransactionFee:
		a.InvestedAmountTotal = a.FeeAmount
	case model.TransactionSell:
		a.AssetDisposalIncome = a.Value
		a.AssetDisposalIncomeTotal = a.Value + a.FeeAmount + a.TaxAmount
	case model.TransactionDistribution:
		a.AssetHoldingIncome = a.Value
		a.AssetHoldingIncomeTotal = a.Value + a.FeeAmount + a.TaxAmount
	case model.TransactionInterest:
		a.InterestIncome = a.Value
		a.InterestIncomeTotal = a.Value + a.FeeAmount + a.TaxAmount
	}

	switch t.Type {
	case model.TransactionSell, model.TransactionDistribution, model.TransactionInterest:
		a.InvestmentIncome = a.Value
		a.InvestmentIncomeTotal = a.Value + a.FeeAmount + a.TaxAmount
	}

	return a
}
