package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
)

// ResetService discards derived data so the next refresh and processing
// runs rebuild it from the raw imports.
type ResetService struct {
	db              *sql.DB
	portfolioRepo   *repository.PortfolioRepository
	transactionRepo *repository.TransactionRepository
	snapshotRepo    *repository.SnapshotRepository
	assetRepo       *repository.AssetRepository
	pairRepo        *repository.CurrencyPairRepository
	priceRepo       *repository.PriceRepository
}

// NewResetService creates a new ResetService with the provided repository dependencies.
func NewResetService(
	db *sql.DB,
	portfolioRepo *repository.PortfolioRepository,
	transactionRepo *repository.TransactionRepository,
	snapshotRepo *repository.SnapshotRepository,
	assetRepo *repository.AssetRepository,
	pairRepo *repository.CurrencyPairRepository,
	priceRepo *repository.PriceRepository,
) *ResetService {
	return &ResetService{
		db:              db,
		portfolioRepo:   portfolioRepo,
		transactionRepo: transactionRepo,
		snapshotRepo:    snapshotRepo,
		assetRepo:       assetRepo,
		pairRepo:        pairRepo,
		priceRepo:       priceRepo,
	}
}

// ResetPricing moves every instrument's pricing watermarks and every
// checkpoint back to the sentinel and drops the gap-filled curves, so the
// next refresh reloads full price history and the next run recomputes
// everything. Raw price bars stay and are refreshed in place.
func (s *ResetService) ResetPricing(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin pricing reset transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.assetRepo.WithTx(tx).ResetPricingDates(ctx); err != nil {
		return err
	}
	if err := s.pairRepo.WithTx(tx).ResetPricingDates(ctx); err != nil {
		return err
	}
	if err := s.priceRepo.WithTx(tx).DeleteAllAdjustedPrices(ctx); err != nil {
		return err
	}
	if err := s.portfolioRepo.WithTx(tx).ResetAllCheckpoints(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pricing reset transaction: %w", err)
	}

	log.Printf("reset pricing watermarks and checkpoints")

	return nil
}

// Reset deletes the user's normalized transactions and all four snapshot
// levels and moves the checkpoint back to the sentinel, atomically. Raw
// imports and loaded prices stay.
func (s *ResetService) Reset(ctx context.Context, userID int64) error {
	aggregate, err := s.portfolioRepo.GetAggregateForUser(userID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	snapshotRepo := s.snapshotRepo.WithTx(tx)

	if err := s.transactionRepo.WithTx(tx).DeleteAdjustedForUser(ctx, userID); err != nil {
		return err
	}
	if err := snapshotRepo.DeletePositionSnapshotsFrom(ctx, userID, model.SentinelDate); err != nil {
		return err
	}
	if err := snapshotRepo.DeleteGroupSnapshotsFrom(ctx, userID, model.SentinelDate); err != nil {
		return err
	}
	if err := snapshotRepo.DeletePortfolioSnapshotsFrom(ctx, userID, model.SentinelDate); err != nil {
		return err
	}
	if err := snapshotRepo.DeleteAggregateSnapshotsFrom(ctx, aggregate.ID, model.SentinelDate); err != nil {
		return err
	}
	if err := s.portfolioRepo.WithTx(tx).SetCheckpointDate(ctx, aggregate.ID, model.SentinelDate); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}

	log.Printf("reset derived data for user %d", userID)

	return nil
}
