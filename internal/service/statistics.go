package service

import (
	"math"

	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// statsInput is one day of an entity's value columns, the raw material of
// the statistics block. Series are fed in date order; runs over an already
// computed stretch replay it from the first row so every running figure
// (maxima, compounded returns, ratio accumulators) matches a computation
// over the full history.
type statsInput struct {
	Date                     string
	MarketValue              float64
	MarketValueAdj           float64
	DeltaQuantityValueAdj    float64
	InvestedAmount           float64
	InvestedAmountTotal      float64
	AssetDisposalIncome      float64
	AssetDisposalIncomeTotal float64
	InvestmentIncome         float64
	InvestmentIncomeTotal    float64
}

// welford accumulates mean and sample variance incrementally.
type welford struct {
	count int
	mean  float64
	m2    float64
}

func (w *welford) add(x float64) {
	w.count++
	delta := x - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (x - w.mean)
}

// stddev returns the sample standard deviation, zero while fewer than two
// observations have been seen.
func (w *welford) stddev() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count-1))
}

// statsEngine walks a value series day by day and produces the statistics
// block for each row.
type statsEngine struct {
	firstDate string
	rowN      int

	pastMaxValue       float64
	pastMaxValueTotal  float64
	pastMaxProfit      float64
	pastMaxProfitTotal float64

	prevMVAdj float64
	hasPrev   bool

	logHPRC float64
	maxHPRC float64

	returns         welford
	negativeReturns welford

	flows       []cashFlow
	flowsTotal  []cashFlow
	prevFlowSum float64
	prevFlowTot float64
}

func newStatsEngine() *statsEngine {
	return &statsEngine{
		pastMaxValue:       math.Inf(-1),
		pastMaxValueTotal:  math.Inf(-1),
		pastMaxProfit:      math.Inf(-1),
		pastMaxProfitTotal: math.Inf(-1),
		maxHPRC:            math.Inf(-1),
	}
}

// step consumes the next day of the series and returns its statistics.
func (e *statsEngine) step(in statsInput) model.Statistics {
	if e.rowN == 0 {
		e.firstDate = in.Date
	}
	e.rowN++

	var s model.Statistics

	s.Profit = in.MarketValue + in.InvestedAmount + in.InvestmentIncome
	s.ProfitTotal = in.MarketValue + in.InvestedAmountTotal + in.InvestmentIncomeTotal

	s.ProfitPercentage = safeDivide(s.Profit, math.Abs(in.InvestedAmount))
	s.ProfitPercentageTotal = safeDivide(s.ProfitTotal, math.Abs(in.InvestedAmountTotal))

	realized := in.MarketValue + in.AssetDisposalIncome
	realizedTotal := in.MarketValue + in.AssetDisposalIncomeTotal

	e.pastMaxValue = math.Max(e.pastMaxValue, realized)
	e.pastMaxValueTotal = math.Max(e.pastMaxValueTotal, realizedTotal)
	e.pastMaxProfit = math.Max(e.pastMaxProfit, s.Profit)
	e.pastMaxProfitTotal = math.Max(e.pastMaxProfitTotal, s.ProfitTotal)

	if e.pastMaxValue != 0 && !math.IsInf(e.pastMaxValue, -1) {
		s.DrawdownValue = realized/e.pastMaxValue - 1
	}
	if e.pastMaxValueTotal != 0 && !math.IsInf(e.pastMaxValueTotal, -1) {
		s.DrawdownValueTotal = realizedTotal/e.pastMaxValueTotal - 1
	}

	// The profit drawdown divides by the value maximum, keeping the figure a
	// share of peak portfolio size instead of an unstable profit ratio.
	if e.pastMaxValue != 0 && !math.IsInf(e.pastMaxValue, -1) {
		s.DrawdownProfit = (s.Profit - e.pastMaxProfit) / e.pastMaxValue
	}
	if e.pastMaxValueTotal != 0 && !math.IsInf(e.pastMaxValueTotal, -1) {
		s.DrawdownProfitTotal = (s.ProfitTotal - e.pastMaxProfitTotal) / e.pastMaxValueTotal
	}

	if e.hasPrev && e.prevMVAdj != 0 {
		s.HPR = (in.MarketValueAdj-in.DeltaQuantityValueAdj)/e.prevMVAdj - 1
	}
	e.prevMVAdj = in.MarketValueAdj
	e.hasPrev = true

	// Compound in log space; a day that wipes out the position or worse
	// cannot be compounded and is skipped.
	if 1+s.HPR > 0 {
		e.logHPRC += math.Log(1 + s.HPR)
	}
	hprc := math.Exp(e.logHPRC)
	e.maxHPRC = math.Max(e.maxHPRC, hprc)

	s.Drawdown = hprc/e.maxHPRC - 1
	s.TwrrRateDaily = hprc - 1
	s.TwrrRateAnnualized = math.Pow(hprc, 365/float64(e.rowN)) - 1

	if s.HPR != 0 {
		e.returns.add(s.HPR)
	}
	if s.HPR < 0 {
		e.negativeReturns.add(s.HPR)
	}

	if sd := e.returns.stddev(); e.returns.count >= 2 && sd != 0 {
		daily := e.returns.mean / sd
		s.SharpeRatioDaily = nullFloat(daily)
		s.SharpeRatioAnnualized = nullFloat(daily * math.Sqrt(float64(e.returns.count)*365/float64(e.rowN)))
	}
	if sd := e.negativeReturns.stddev(); e.negativeReturns.count >= 2 && sd != 0 {
		daily := e.returns.mean / sd
		s.SortinoRatioDaily = nullFloat(daily)
		s.SortinoRatioAnnualized = nullFloat(daily * math.Sqrt(float64(e.returns.count)*365/float64(e.rowN)))
	}

	dayIndex := daysBetween(e.firstDate, in.Date)

	flowSum := in.InvestedAmount + in.InvestmentIncome
	if delta := flowSum - e.prevFlowSum; delta != 0 {
		e.flows = append(e.flows, cashFlow{Days: dayIndex, Amount: delta})
	}
	e.prevFlowSum = flowSum

	flowTot := in.InvestedAmountTotal + in.InvestmentIncomeTotal
	if delta := flowTot - e.prevFlowTot; delta != 0 {
		e.flowsTotal = append(e.flowsTotal, cashFlow{Days: dayIndex, Amount: delta})
	}
	e.prevFlowTot = flowTot

	s.XirrRate = xirr(e.flows, cashFlow{Days: dayIndex, Amount: in.MarketValue})
	s.XirrRateTotal = xirr(e.flowsTotal, cashFlow{Days: dayIndex, Amount: in.MarketValue})

	return s
}

// computeStatistics replays a full value series and returns one statistics
// block per row.
func computeStatistics(series []statsInput) []model.Statistics {
	engine := newStatsEngine()

	stats := make([]model.Statistics, len(series))
	for i, in := range series {
		stats[i] = engine.step(in)
	}

	return stats
}

func safeDivide(num, denom float64) float64 {
	if denom == 0 {
		return 0
	}
	return num / denom
}
