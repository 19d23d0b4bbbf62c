package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
)

// AggregationService rolls the position snapshots up the portfolio tree:
// group level, portfolio level and the per-user aggregate level.
type AggregationService struct {
	portfolioRepo   *repository.PortfolioRepository
	transactionRepo *repository.TransactionRepository
	snapshotRepo    *repository.SnapshotRepository
	now             func() time.Time
}

// NewAggregationService creates a new AggregationService with the provided repository dependencies.
func NewAggregationService(
	portfolioRepo *repository.PortfolioRepository,
	transactionRepo *repository.TransactionRepository,
	snapshotRepo *repository.SnapshotRepository,
) *AggregationService {
	return &AggregationService{
		portfolioRepo:   portfolioRepo,
		transactionRepo: transactionRepo,
		snapshotRepo:    snapshotRepo,
		now:             time.Now,
	}
}

// WithTx returns a new AggregationService whose repositories are scoped to
// the provided transaction.
func (s *AggregationService) WithTx(tx *sql.Tx) *AggregationService {
	return &AggregationService{
		portfolioRepo:   s.portfolioRepo.WithTx(tx),
		transactionRepo: s.transactionRepo.WithTx(tx),
		snapshotRepo:    s.snapshotRepo.WithTx(tx),
		now:             s.now,
	}
}

// RollGroups recomputes group snapshots from the checkpoint onward by
// summing the position snapshots per (group, date) and replaying statistics
// over the preserved group history plus the recomputed window.
func (s *AggregationService) RollGroups(ctx context.Context, userID int64, checkpoint string) error {
	sums, err := s.snapshotRepo.GetPositionSumsByGroup(userID, checkpoint)
	if err != nil {
		return err
	}

	history, err := s.snapshotRepo.GetGroupHistoryBefore(userID, checkpoint)
	if err != nil {
		return err
	}

	historyByGroup := map[int64][]model.GroupSnapshot{}
	for _, h := range history {
		historyByGroup[h.PortfolioGroupID] = append(historyByGroup[h.PortfolioGroupID], h)
	}

	windowByGroup := map[int64][]model.GroupSnapshot{}
	groupOrder := []int64{}
	for _, row := range sums {
		if _, seen := windowByGroup[row.PortfolioGroupID]; !seen {
			groupOrder = append(groupOrder, row.PortfolioGroupID)
		}
		windowByGroup[row.PortfolioGroupID] = append(windowByGroup[row.PortfolioGroupID], row)
	}

	if err := s.snapshotRepo.DeleteGroupSnapshotsFrom(ctx, userID, checkpoint); err != nil {
		return err
	}

	snapshots := []model.GroupSnapshot{}

	for _, groupID := range groupOrder {
		window := windowByGroup[groupID]
		engine := newStatsEngine()

		for _, h := range historyByGroup[groupID] {
			engine.step(groupStatsInput(h))
		}
		for i := range window {
			window[i].Statistics = engine.step(groupStatsInput(window[i]))
		}

		snapshots = append(snapshots, window...)
	}

	return s.snapshotRepo.InsertGroupSnapshots(ctx, snapshots)
}

func groupStatsInput(g model.GroupSnapshot) statsInput {
	return statsInput{
		Date:                     g.Date,
		MarketValue:              g.MarketValue,
		MarketValueAdj:           g.MarketValueAdj,
		DeltaQuantityValueAdj:    g.DeltaQuantityValueAdj,
		InvestedAmount:           g.InvestedAmount,
		InvestedAmountTotal:      g.InvestedAmountTotal,
		AssetDisposalIncome:      g.AssetDisposalIncome,
		AssetDisposalIncomeTotal: g.AssetDisposalIncomeTotal,
		InvestmentIncome:         g.InvestmentIncome,
		InvestmentIncomeTotal:    g.InvestmentIncomeTotal,
	}
}

// RollPortfolios recomputes portfolio snapshots from the checkpoint onward.
//
// Unlike the lower levels, the portfolio axis is a continuous run of
// calendar days from the portfolio's first transaction (or the checkpoint)
// through today: days with no group rows still get a snapshot carrying the
// running cash balance. Interest income joins here because it has no asset
// to attach to, and it folds into the investment income totals.
func (s *AggregationService) RollPortfolios(ctx context.Context, userID int64, aggregateID int64, checkpoint string) error {
	portfolios, err := s.portfolioRepo.GetPortfoliosForAggregate(aggregateID)
	if err != nil {
		return err
	}

	firstTxDates, err := s.transactionRepo.GetFirstTransactionDatePerPortfolio(userID)
	if err != nil {
		return err
	}

	groupSums, err := s.snapshotRepo.GetGroupSumsByPortfolio(userID, checkpoint)
	if err != nil {
		return err
	}

	sumsByPortfolio := map[int64]map[string]model.PortfolioSnapshot{}
	for _, row := range groupSums {
		if sumsByPortfolio[row.PortfolioID] == nil {
			sumsByPortfolio[row.PortfolioID] = map[string]model.PortfolioSnapshot{}
		}
		sumsByPortfolio[row.PortfolioID][row.Date] = row
	}

	cashDeltas, err := s.transactionRepo.GetPortfolioCashDeltas(userID, checkpoint)
	if err != nil {
		return err
	}

	cashByPortfolio := map[int64]map[string]model.PortfolioCashDelta{}
	for _, d := range cashDeltas {
		if cashByPortfolio[d.PortfolioID] == nil {
			cashByPortfolio[d.PortfolioID] = map[string]model.PortfolioCashDelta{}
		}
		cashByPortfolio[d.PortfolioID][d.Date] = d
	}

	// Account-level transactions carry no asset, so their invested amounts
	// never reach the position snapshots the group sums are built from.
	// They are folded in here as a separate running sum per portfolio.
	accountDeltas, err := s.transactionRepo.GetPortfolioAccountDeltas(userID)
	if err != nil {
		return err
	}

	accountByPortfolio := map[int64][]model.PortfolioAccountDelta{}
	for _, d := range accountDeltas {
		accountByPortfolio[d.PortfolioID] = append(accountByPortfolio[d.PortfolioID], d)
	}

	history, err := s.snapshotRepo.GetPortfolioHistoryBefore(userID, checkpoint)
	if err != nil {
		return err
	}

	historyByPortfolio := map[int64][]model.PortfolioSnapshot{}
	for _, h := range history {
		historyByPortfolio[h.PortfolioID] = append(historyByPortfolio[h.PortfolioID], h)
	}

	if err := s.snapshotRepo.DeletePortfolioSnapshotsFrom(ctx, userID, checkpoint); err != nil {
		return err
	}

	endDate := today(s.now)
	snapshots := []model.PortfolioSnapshot{}

	for _, p := range portfolios {
		firstTx, ok := firstTxDates[p.ID]
		if !ok {
			continue
		}

		windowStart := maxDate(firstTx, checkpoint)
		if windowStart > endDate {
			continue
		}

		pHistory := historyByPortfolio[p.ID]

		var seed model.PortfolioSnapshot
		if len(pHistory) > 0 {
			seed = pHistory[len(pHistory)-1]
		}

		cashBalance := seed.CashBalance
		interest := seed.InterestIncome
		interestTotal := seed.InterestIncomeTotal

		var accountInvested, accountInvestedTotal float64
		accountWindow := map[string]model.PortfolioAccountDelta{}
		for _, d := range accountByPortfolio[p.ID] {
			if d.Date < windowStart {
				accountInvested += d.InvestedAmount
				accountInvestedTotal += d.InvestedAmountTotal
			} else {
				accountWindow[d.Date] = d
			}
		}

		window := []model.PortfolioSnapshot{}

		for _, date := range dateRange(windowStart, endDate) {
			row := sumsByPortfolio[p.ID][date]
			row.PortfolioID = p.ID
			row.Date = date

			delta := cashByPortfolio[p.ID][date]
			cashBalance += delta.CashFlow
			interest += delta.InterestIncome
			interestTotal += delta.InterestIncomeTotal

			account := accountWindow[date]
			accountInvested += account.InvestedAmount
			accountInvestedTotal += account.InvestedAmountTotal

			row.CashBalance = cashBalance
			row.InterestIncome = interest
			row.InterestIncomeTotal = interestTotal
			row.InvestmentIncome += interest
			row.InvestmentIncomeTotal += interestTotal
			row.InvestedAmount += accountInvested
			row.InvestedAmountTotal += accountInvestedTotal

			window = append(window, row)
		}

		engine := newStatsEngine()
		for _, h := range pHistory {
			engine.step(portfolioStatsInput(h))
		}
		for i := range window {
			window[i].Statistics = engine.step(portfolioStatsInput(window[i]))
		}

		snapshots = append(snapshots, window...)
	}

	return s.snapshotRepo.InsertPortfolioSnapshots(ctx, snapshots)
}

func portfolioStatsInput(p model.PortfolioSnapshot) statsInput {
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

// RollAggregate recomputes the per-user aggregate snapshots from the
// checkpoint onward by summing the portfolio snapshots per date.
func (s *AggregationService) RollAggregate(ctx context.Context, aggregateID int64, checkpoint string) error {
	sums, err := s.snapshotRepo.GetPortfolioSumsByAggregate(aggregateID, checkpoint)
	if err != nil {
		return err
	}

	history, err := s.snapshotRepo.GetAggregateHistoryBefore(aggregateID, checkpoint)
	if err != nil {
		return err
	}

	if err := s.snapshotRepo.DeleteAggregateSnapshotsFrom(ctx, aggregateID, checkpoint); err != nil {
		return err
	}

	engine := newStatsEngine()
	for _, h := range history {
		engine.step(aggregateStatsInput(h))
	}
	for i := range sums {
		sums[i].Statistics = engine.step(aggregateStatsInput(sums[i]))
	}

	return s.snapshotRepo.InsertAggregateSnapshots(ctx, sums)
}

func aggregateStatsInput(a model.AggregateSnapshot) statsInput {
	return statsInput{
		Date:                     a.Date,
		MarketValue:              a.MarketValue,
		MarketValueAdj:           a.MarketValueAdj,
		DeltaQuantityValueAdj:    a.DeltaQuantityValueAdj,
		InvestedAmount:           a.InvestedAmount,
		InvestedAmountTotal:      a.InvestedAmountTotal,
		AssetDisposalIncome:      a.AssetDisposalIncome,
		AssetDisposalIncomeTotal: a.AssetDisposalIncomeTotal,
		InvestmentIncome:         a.InvestmentIncome,
		InvestmentIncomeTotal:    a.InvestmentIncomeTotal,
	}
}
