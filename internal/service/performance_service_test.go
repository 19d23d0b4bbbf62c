package service_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/testutil"
)

// TestPerformanceService_Series tests snapshot series retrieval and range
// bounds.
//
// WHY: The series endpoints serve chart data; an omitted bound must mean an
// open range, bounds must be inclusive, and a malformed date must fail fast
// instead of silently returning everything.
func TestPerformanceService_Series(t *testing.T) {
	f := setupFixture(t)
	if err := testutil.NewTestProcessingService(t, f.db).Run(context.Background(), 1); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	svc := testutil.NewTestPerformanceService(t, f.db)

	t.Run("open range returns the full series", func(t *testing.T) {
		series, err := svc.GetPositionSeries(f.portfolio.ID, f.asset.ID, "", "")
		if err != nil {
			t.Fatalf("GetPositionSeries() returned unexpected error: %v", err)
		}
		if len(series) != 21 {
			t.Errorf("Expected 21 rows, got %d", len(series))
		}
	})

	t.Run("range bounds are inclusive", func(t *testing.T) {
		series, err := svc.GetPortfolioSeries(f.portfolio.ID, testutil.DaysAgo(5), testutil.DaysAgo(3))
		if err != nil {
			t.Fatalf("GetPortfolioSeries() returned unexpected error: %v", err)
		}
		if len(series) != 3 {
			t.Fatalf("Expected 3 rows, got %d", len(series))
		}
		if series[0].Date != testutil.DaysAgo(5) || series[2].Date != testutil.DaysAgo(3) {
			t.Errorf("Expected rows from %s to %s, got %s to %s",
				testutil.DaysAgo(5), testutil.DaysAgo(3), series[0].Date, series[2].Date)
		}
	})

	t.Run("malformed bound is rejected", func(t *testing.T) {
		_, err := svc.GetAggregateSeries(1, "last tuesday", "")
		if !errors.Is(err, apperrors.ErrInvalidDate) {
			t.Errorf("Expected ErrInvalidDate, got %v", err)
		}
	})

	t.Run("unknown group is rejected", func(t *testing.T) {
		_, err := svc.GetGroupSeries(9999, "", "")
		if !errors.Is(err, apperrors.ErrPortfolioGroupNotFound) {
			t.Errorf("Expected ErrPortfolioGroupNotFound, got %v", err)
		}
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		_, err := svc.GetAggregateSeries(42, "", "")
		if !errors.Is(err, apperrors.ErrAggregateNotFound) {
			t.Errorf("Expected ErrAggregateNotFound, got %v", err)
		}
	})
}

// TestPerformanceService_GetGroupWeights tests the weight deviation report.
//
// WHY: The report compares actual allocation against model weights so users
// can rebalance; group shares must sum to 100 and groups without snapshots
// on the date must still appear at zero.
func TestPerformanceService_GetGroupWeights(t *testing.T) {
	f := setupFixture(t)

	// Second group holding a second asset: 300 at 60/40 model weights.
	if _, err := f.db.Exec(`UPDATE portfolio_group SET weight = 60 WHERE id = ?`, f.group.ID); err != nil {
		t.Fatalf("Failed to reweight group: %v", err)
	}
	second := testutil.NewGroup(f.portfolio.ID, 1).WithName("Bonds").WithWeight(40).Build(t, f.db)
	bond := testutil.NewAsset().
		WithSymbol("BOND").
		WithCurrency("EUR").
		WithPricingDates(testutil.DaysAgo(20), testutil.DaysAgo(1)).
		Build(t, f.db)
	testutil.AddGroupAsset(t, f.db, second.ID, bond.ID)
	testutil.SeedAssetPrices(t, f.db, bond.ID, testutil.DaysAgo(20), testutil.Today(), 50)

	file := testutil.NewTransactionFile(1, f.portfolio.ID).Build(t, f.db)
	testutil.NewTransaction(file.ID).
		WithAsset(bond.ID).
		WithType(model.TransactionBuy).
		WithDate(testutil.DaysAgo(20)).
		WithQuantity(6).
		WithValue(300).
		Build(t, f.db)

	if err := testutil.NewTestProcessingService(t, f.db).Run(context.Background(), 1); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	svc := testutil.NewTestPerformanceService(t, f.db)

	t.Run("reports actual shares against model weights", func(t *testing.T) {
		// Equity position: 5 units at 120 = 600. Bonds: 6 units at 50 = 300.
		weights, err := svc.GetGroupWeights(f.portfolio.ID, testutil.DaysAgo(2))
		if err != nil {
			t.Fatalf("GetGroupWeights() returned unexpected error: %v", err)
		}
		if len(weights) != 2 {
			t.Fatalf("Expected 2 groups, got %d", len(weights))
		}

		byID := map[int64]int{}
		for i, w := range weights {
			byID[w.PortfolioGroupID] = i
		}

		equity := weights[byID[f.group.ID]]
		if math.Abs(equity.Weight-600.0/900.0*100) > 1e-9 {
			t.Errorf("Expected equity share %f, got %f", 600.0/900.0*100, equity.Weight)
		}
		if math.Abs(equity.WeightDeviation-(600.0/900.0*100-60)) > 1e-9 {
			t.Errorf("Expected equity deviation %f, got %f", 600.0/900.0*100-60, equity.WeightDeviation)
		}

		bonds := weights[byID[second.ID]]
		if math.Abs(bonds.Weight+equity.Weight-100) > 1e-9 {
			t.Errorf("Expected shares to sum to 100, got %f", bonds.Weight+equity.Weight)
		}
	})

	t.Run("date before any snapshot reports zero shares", func(t *testing.T) {
		weights, err := svc.GetGroupWeights(f.portfolio.ID, "2000-01-01")
		if err != nil {
			t.Fatalf("GetGroupWeights() returned unexpected error: %v", err)
		}
		for _, w := range weights {
			if w.Weight != 0 {
				t.Errorf("Expected zero share for group %d, got %f", w.PortfolioGroupID, w.Weight)
			}
		}
	})

	t.Run("malformed date is rejected", func(t *testing.T) {
		_, err := svc.GetGroupWeights(f.portfolio.ID, "yesterday")
		if !errors.Is(err, apperrors.ErrInvalidDate) {
			t.Errorf("Expected ErrInvalidDate, got %v", err)
		}
	})

	t.Run("rejects an incomplete model allocation", func(t *testing.T) {
		if _, err := f.db.Exec(`UPDATE portfolio_group SET weight = 30 WHERE id = ?`, second.ID); err != nil {
			t.Fatalf("Failed to reweight group: %v", err)
		}

		_, err := svc.GetGroupWeights(f.portfolio.ID, testutil.DaysAgo(2))
		if !errors.Is(err, apperrors.ErrInvalidWeights) {
			t.Errorf("Expected ErrInvalidWeights, got %v", err)
		}
	})
}

// TestPerformanceService_SnapshotAt tests point-in-time snapshot reads.
//
// WHY: "Value as of a date" must fall back to the newest earlier snapshot,
// mirroring how a statement works for a date the market was closed.
func TestPerformanceService_SnapshotAt(t *testing.T) {
	f := setupFixture(t)
	if err := testutil.NewTestProcessingService(t, f.db).Run(context.Background(), 1); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	svc := testutil.NewTestPerformanceService(t, f.db)

	t.Run("exact date", func(t *testing.T) {
		snap, err := svc.GetPortfolioSnapshotAt(f.portfolio.ID, testutil.DaysAgo(5))
		if err != nil {
			t.Fatalf("GetPortfolioSnapshotAt() returned unexpected error: %v", err)
		}
		if snap.Date != testutil.DaysAgo(5) {
			t.Errorf("Expected snapshot dated %s, got %s", testutil.DaysAgo(5), snap.Date)
		}
	})

	t.Run("future date falls back to the newest snapshot", func(t *testing.T) {
		snap, err := svc.GetAggregateSnapshotAt(1, "2999-01-01")
		if err != nil {
			t.Fatalf("GetAggregateSnapshotAt() returned unexpected error: %v", err)
		}
		if snap.Date != testutil.Today() {
			t.Errorf("Expected newest snapshot dated %s, got %s", testutil.Today(), snap.Date)
		}
	})
}

// TestPerformanceService_GetStatus tests the status report.
func TestPerformanceService_GetStatus(t *testing.T) {
	f := setupFixture(t)
	if err := testutil.NewTestProcessingService(t, f.db).Run(context.Background(), 1); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	status, err := testutil.NewTestPerformanceService(t, f.db).GetStatus(1)
	if err != nil {
		t.Fatalf("GetStatus() returned unexpected error: %v", err)
	}
	if status.CheckpointDate != testutil.DaysAgo(1) {
		t.Errorf("Expected checkpoint %s, got %s", testutil.DaysAgo(1), status.CheckpointDate)
	}
	if status.LatestSnapshotDate != testutil.Today() {
		t.Errorf("Expected latest snapshot %s, got %s", testutil.Today(), status.LatestSnapshotDate)
	}
}
