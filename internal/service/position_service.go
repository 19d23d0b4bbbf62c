package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
)

// PositionService rolls daily position snapshots per (portfolio, asset)
// from the normalized transactions and the gap-filled price curves.
type PositionService struct {
	portfolioRepo   *repository.PortfolioRepository
	transactionRepo *repository.TransactionRepository
	assetRepo       *repository.AssetRepository
	pairRepo        *repository.CurrencyPairRepository
	priceRepo       *repository.PriceRepository
	snapshotRepo    *repository.SnapshotRepository
	now             func() time.Time
}

// NewPositionService creates a new PositionService with the provided repository dependencies.
func NewPositionService(
	portfolioRepo *repository.PortfolioRepository,
	transactionRepo *repository.TransactionRepository,
	assetRepo *repository.AssetRepository,
	pairRepo *repository.CurrencyPairRepository,
	priceRepo *repository.PriceRepository,
	snapshotRepo *repository.SnapshotRepository,
) *PositionService {
	return &PositionService{
		portfolioRepo:   portfolioRepo,
		transactionRepo: transactionRepo,
		assetRepo:       assetRepo,
		pairRepo:        pairRepo,
		priceRepo:       priceRepo,
		snapshotRepo:    snapshotRepo,
		now:             time.Now,
	}
}

// WithTx returns a new PositionService whose repositories are scoped to the
// provided transaction.
func (s *PositionService) WithTx(tx *sql.Tx) *PositionService {
	return &PositionService{
		portfolioRepo:   s.portfolioRepo.WithTx(tx),
		transactionRepo: s.transactionRepo.WithTx(tx),
		assetRepo:       s.assetRepo.WithTx(tx),
		pairRepo:        s.pairRepo.WithTx(tx),
		priceRepo:       s.priceRepo.WithTx(tx),
		snapshotRepo:    s.snapshotRepo.WithTx(tx),
		now:             s.now,
	}
}

// RollPositions recomputes every position snapshot of the user from the
// checkpoint through today.
//
// Running totals are seeded from the last preserved snapshot before the
// checkpoint, daily transaction sums are applied on top, and each day is
// valued at the gap-filled price converted into the analysis currency.
// Statistics replay the preserved history plus the recomputed window so
// running maxima and compounded returns stay continuous across the
// checkpoint; only rows at or after the checkpoint are written.
func (s *PositionService) RollPositions(ctx context.Context, userID int64, checkpoint string, settings model.Settings) error {
	memberships, err := s.portfolioRepo.GetGroupAssetMemberships(userID)
	if err != nil {
		return err
	}
	if len(memberships) == 0 {
		return nil
	}

	firstTxDates, err := s.transactionRepo.GetFirstTransactionDates(userID)
	if err != nil {
		return err
	}

	deltas, err := s.transactionRepo.GetPositionDeltas(userID, checkpoint)
	if err != nil {
		return err
	}

	deltasByKey := map[model.PositionKey]map[string]model.PositionDelta{}
	for _, d := range deltas {
		key := model.PositionKey{PortfolioID: d.PortfolioID, AssetID: d.AssetID}
		if deltasByKey[key] == nil {
			deltasByKey[key] = map[string]model.PositionDelta{}
		}
		deltasByKey[key][d.Date] = d
	}

	history, err := s.snapshotRepo.GetPositionHistoryBefore(userID, checkpoint)
	if err != nil {
		return err
	}

	historyByKey := map[model.PositionKey][]model.PositionSnapshot{}
	for _, h := range history {
		key := model.PositionKey{PortfolioID: h.PortfolioID, AssetID: h.AssetID}
		historyByKey[key] = append(historyByKey[key], h)
	}

	if err := s.snapshotRepo.DeletePositionSnapshotsFrom(ctx, userID, checkpoint); err != nil {
		return err
	}

	endDate := today(s.now)
	snapshots := []model.PositionSnapshot{}

	// An asset listed in more than one group of the same portfolio rolls
	// once, under the first group in membership order. Transactions carry
	// no group, so a second row would duplicate the whole position.
	seen := map[model.PositionKey]bool{}

	for _, m := range memberships {
		key := model.PositionKey{PortfolioID: m.PortfolioID, AssetID: m.AssetID}
		if seen[key] {
			continue
		}
		seen[key] = true

		firstTx, ok := firstTxDates[key]
		if !ok {
			continue
		}

		windowStart := maxDate(firstTx, checkpoint)

		rows, err := s.rollPosition(m, windowStart, endDate, settings,
			historyByKey[key], deltasByKey[key])
		if err != nil {
			return err
		}

		snapshots = append(snapshots, rows...)
	}

	return s.snapshotRepo.InsertPositionSnapshots(ctx, snapshots)
}

func (s *PositionService) rollPosition(
	m model.GroupAssetMembership,
	windowStart, endDate string,
	settings model.Settings,
	history []model.PositionSnapshot,
	dayDeltas map[string]model.PositionDelta,
) ([]model.PositionSnapshot, error) {
	if windowStart > endDate {
		return nil, nil
	}

	asset, err := s.assetRepo.GetAssetOnID(m.AssetID)
	if err != nil {
		return nil, err
	}

	assetCurve, err := s.priceRepo.GetAdjustedAssetPrices(m.AssetID, windowStart)
	if err != nil {
		return nil, err
	}

	fxRates, err := s.conversionRates(asset.Currency, settings, windowStart)
	if err != nil {
		return nil, err
	}

	// Seed the running totals from the last preserved day.
	var seed model.PositionSnapshot
	if len(history) > 0 {
		seed = history[len(history)-1]
	}

	quantity := seed.Quantity
	invested := seed.InvestedAmount
	investedTotal := seed.InvestedAmountTotal
	disposal := seed.AssetDisposalIncome
	disposalTotal := seed.AssetDisposalIncomeTotal
	holding := seed.AssetHoldingIncome
	holdingTotal := seed.AssetHoldingIncomeTotal
	income := seed.InvestmentIncome
	incomeTotal := seed.InvestmentIncomeTotal

	window := []model.PositionSnapshot{}

	for _, date := range dateRange(windowStart, endDate) {
		delta := dayDeltas[date]

		quantity += delta.Quantity
		invested += delta.InvestedAmount
		investedTotal += delta.InvestedAmountTotal
		disposal += delta.AssetDisposalIncome
		disposalTotal += delta.AssetDisposalIncomeTotal
		holding += delta.AssetHoldingIncome
		holdingTotal += delta.AssetHoldingIncomeTotal
		income += delta.InvestmentIncome
		incomeTotal += delta.InvestmentIncomeTotal

		fx, ok := fxRates[date]
		if !ok || fx == 0 {
			fx = 1
		}

		bar := assetCurve[date]
		unitPrice := applyOHLCVariant(settings.OHLCAssets, bar) * fx
		unitPriceAdj := bar.AdjClose * fx

		window = append(window, model.PositionSnapshot{
			PortfolioID:              m.PortfolioID,
			PortfolioGroupID:         m.PortfolioGroupID,
			AssetID:                  m.AssetID,
			Date:                     date,
			UnitPrice:                unitPrice,
			UnitPriceAdj:             unitPriceAdj,
			Quantity:                 quantity,
			DeltaQuantity:            delta.Quantity,
			MarketValue:              quantity * unitPrice,
			MarketValueAdj:           quantity * unitPriceAdj,
			DeltaQuantityValueAdj:    delta.Quantity * unitPriceAdj,
			InvestedAmount:           invested,
			InvestedAmountTotal:      investedTotal,
			AssetDisposalIncome:      disposal,
			AssetDisposalIncomeTotal: disposalTotal,
			AssetHoldingIncome:       holding,
			AssetHoldingIncomeTotal:  holdingTotal,
			InvestmentIncome:         income,
			InvestmentIncomeTotal:    incomeTotal,
		})
	}

	applyPositionStatistics(history, window)

	return window, nil
}

// applyPositionStatistics replays the statistics engine over the preserved
// history followed by the recomputed window and writes the resulting blocks
// into the window rows.
func applyPositionStatistics(history, window []model.PositionSnapshot) {
	engine := newStatsEngine()

	for _, h := range history {
		engine.step(positionStatsInput(h))
	}
	for i := range window {
		window[i].Statistics = engine.step(positionStatsInput(window[i]))
	}
}

func positionStatsInput(p model.PositionSnapshot) statsInput {
	return statsInput{
		Date:                     p.Date,
		MarketValue:              p.MarketValue,
		MarketValueAdj:           p.MarketValueAdj,
		DeltaQuantityValueAdj:    p.DeltaQuantityValueAdj,
		InvestedAmount:           p.InvestedAmount,
		InvestedAmountTotal:      p.InvestedAmountTotal,
		AssetDisposalIncome:      p.AssetDisposalIncome,
		AssetDisposalIncomeTotal: p.AssetDisposalIncomeTotal,
		InvestmentIncome:         p.InvestmentIncome,
		InvestmentIncomeTotal:    p.InvestmentIncomeTotal,
	}
}

// conversionRates builds the per-day rate converting the instrument currency
// into the analysis currency. Same currency, or an unknown pair, converts at 1.
func (s *PositionService) conversionRates(fromCurrency string, settings model.Settings, fromDate string) (map[string]float64, error) {
	if strings.EqualFold(fromCurrency, settings.AnalysisCurrency) {
		return nil, nil
	}

	pairName := strings.ToLower(fromCurrency + settings.AnalysisCurrency)

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
