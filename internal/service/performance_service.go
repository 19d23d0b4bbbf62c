package service

import (
	"math"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
)

// openDateRange bounds an unconstrained series query.
const (
	rangeStart = "0001-01-01"
	rangeEnd   = "9999-12-31"
)

// PerformanceService reads computed snapshot series and derives reports
// from them.
type PerformanceService struct {
	portfolioRepo *repository.PortfolioRepository
	snapshotRepo  *repository.SnapshotRepository
}

// NewPerformanceService creates a new PerformanceService with the provided repository dependencies.
func NewPerformanceService(
	portfolioRepo *repository.PortfolioRepository,
	snapshotRepo *repository.SnapshotRepository,
) *PerformanceService {
	return &PerformanceService{
		portfolioRepo: portfolioRepo,
		snapshotRepo:  snapshotRepo,
	}
}

// normalizeRange fills empty bounds with the open range and validates the
// rest. Returns ErrInvalidDate on a malformed bound.
func normalizeRange(fromDate, toDate string) (string, string, error) {
	if fromDate == "" {
		fromDate = rangeStart
	} else if _, err := repository.ParseTime(fromDate); err != nil {
		return "", "", apperrors.ErrInvalidDate
	}

	if toDate == "" {
		toDate = rangeEnd
	} else if _, err := repository.ParseTime(toDate); err != nil {
		return "", "", apperrors.ErrInvalidDate
	}

	return fromDate, toDate, nil
}

// GetPositionSeries retrieves one position's daily snapshots, optionally
// bounded by an inclusive date range.
func (s *PerformanceService) GetPositionSeries(portfolioID, assetID int64, fromDate, toDate string) ([]model.PositionSnapshot, error) {
	fromDate, toDate, err := normalizeRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return s.snapshotRepo.GetPositionSeries(portfolioID, assetID, fromDate, toDate)
}

// GetGroupSeries retrieves one weighting group's daily snapshots, optionally
// bounded by an inclusive date range.
func (s *PerformanceService) GetGroupSeries(groupID int64, fromDate, toDate string) ([]model.GroupSnapshot, error) {
	fromDate, toDate, err := normalizeRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}

	if _, err := s.portfolioRepo.GetGroupOnID(groupID); err != nil {
		return nil, err
	}

	return s.snapshotRepo.GetGroupSeries(groupID, fromDate, toDate)
}

// GetPortfolioSeries retrieves one portfolio's daily snapshots, optionally
// bounded by an inclusive date range.
func (s *PerformanceService) GetPortfolioSeries(portfolioID int64, fromDate, toDate string) ([]model.PortfolioSnapshot, error) {
	fromDate, toDate, err := normalizeRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}

	if _, err := s.portfolioRepo.GetPortfolioOnID(portfolioID); err != nil {
		return nil, err
	}

	return s.snapshotRepo.GetPortfolioSeries(portfolioID, fromDate, toDate)
}

// GetAggregateSeries retrieves the user's aggregate daily snapshots,
// optionally bounded by an inclusive date range.
func (s *PerformanceService) GetAggregateSeries(userID int64, fromDate, toDate string) ([]model.AggregateSnapshot, error) {
	fromDate, toDate, err := normalizeRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}

	aggregate, err := s.portfolioRepo.GetAggregateForUser(userID)
	if err != nil {
		return nil, err
	}

	return s.snapshotRepo.GetAggregateSeries(aggregate.ID, fromDate, toDate)
}

// GetGroupWeights reports each group's actual share of the portfolio market
// value on a date against its model weight. Shares are percentages; a
// portfolio with no market value reports zero shares.
func (s *PerformanceService) GetGroupWeights(portfolioID int64, date string) ([]model.GroupWeight, error) {
	if _, err := repository.ParseTime(date); err != nil {
		return nil, apperrors.ErrInvalidDate
	}

	if _, err := s.portfolioRepo.GetPortfolioOnID(portfolioID); err != nil {
		return nil, err
	}

	values, err := s.snapshotRepo.GetGroupMarketValuesAt(portfolioID, date)
	if err != nil {
		return nil, err
	}

	var totalValue, totalWeight float64
	for _, v := range values {
		totalValue += v.MarketValue
		totalWeight += v.ModelWeight
	}

	// Deviations are only meaningful against a complete model allocation.
	if len(values) > 0 && math.Abs(totalWeight-100) > 1e-9 {
		return nil, apperrors.ErrInvalidWeights
	}

	weights := make([]model.GroupWeight, len(values))
	for i, v := range values {
		actual := 0.0
		if totalValue != 0 {
			actual = v.MarketValue / totalValue * 100
		}

		weights[i] = model.GroupWeight{
			PortfolioGroupID:   v.PortfolioGroupID,
			PortfolioGroupName: v.PortfolioGroupName,
			Date:               date,
			ModelWeight:        v.ModelWeight,
			Weight:             actual,
			WeightDeviation:    actual - v.ModelWeight,
		}
	}

	return weights, nil
}

// GetPortfolioSnapshotAt retrieves the portfolio's newest snapshot at or
// before the given date.
func (s *PerformanceService) GetPortfolioSnapshotAt(portfolioID int64, date string) (model.PortfolioSnapshot, error) {
	if _, err := repository.ParseTime(date); err != nil {
		return model.PortfolioSnapshot{}, apperrors.ErrInvalidDate
	}

	if _, err := s.portfolioRepo.GetPortfolioOnID(portfolioID); err != nil {
		return model.PortfolioSnapshot{}, err
	}

	return s.snapshotRepo.GetPortfolioSnapshotAt(portfolioID, date)
}

// GetAggregateSnapshotAt retrieves the user's newest aggregate snapshot at
// or before the given date.
func (s *PerformanceService) GetAggregateSnapshotAt(userID int64, date string) (model.AggregateSnapshot, error) {
	if _, err := repository.ParseTime(date); err != nil {
		return model.AggregateSnapshot{}, apperrors.ErrInvalidDate
	}

	aggregate, err := s.portfolioRepo.GetAggregateForUser(userID)
	if err != nil {
		return model.AggregateSnapshot{}, err
	}

	return s.snapshotRepo.GetAggregateSnapshotAt(aggregate.ID, date)
}

// GetStatus reports the user's recomputation checkpoint and the date of the
// newest aggregate snapshot.
func (s *PerformanceService) GetStatus(userID int64) (model.PerformanceStatus, error) {
	aggregate, err := s.portfolioRepo.GetAggregateForUser(userID)
	if err != nil {
		return model.PerformanceStatus{}, err
	}

	latest, err := s.snapshotRepo.GetLatestSnapshotDate(aggregate.ID)
	if err != nil {
		return model.PerformanceStatus{}, err
	}

	return model.PerformanceStatus{
		UserID:             userID,
		CheckpointDate:     aggregate.CheckpointDate,
		LatestSnapshotDate: latest,
	}, nil
}
