package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
)

// ProcessingService orchestrates a full performance computation run:
// normalize transactions, roll positions, roll the three aggregation
// levels and advance the checkpoint, all inside one database transaction.
type ProcessingService struct {
	db                 *sql.DB
	settingsRepo       *repository.SettingsRepository
	portfolioRepo      *repository.PortfolioRepository
	assetRepo          *repository.AssetRepository
	pairRepo           *repository.CurrencyPairRepository
	normalizerService  *NormalizerService
	positionService    *PositionService
	aggregationService *AggregationService

	// runs collapses concurrent runs for the same user into one.
	runs singleflight.Group
}

// NewProcessingService creates a new ProcessingService with the provided dependencies.
func NewProcessingService(
	db *sql.DB,
	settingsRepo *repository.SettingsRepository,
	portfolioRepo *repository.PortfolioRepository,
	assetRepo *repository.AssetRepository,
	pairRepo *repository.CurrencyPairRepository,
	normalizerService *NormalizerService,
	positionService *PositionService,
	aggregationService *AggregationService,
) *ProcessingService {
	return &ProcessingService{
		db:                 db,
		settingsRepo:       settingsRepo,
		portfolioRepo:      portfolioRepo,
		assetRepo:          assetRepo,
		pairRepo:           pairRepo,
		normalizerService:  normalizerService,
		positionService:    positionService,
		aggregationService: aggregationService,
	}
}

// Run executes a performance computation run for the user. Concurrent calls
// for the same user share a single run; the whole pipeline commits or rolls
// back as one transaction.
func (s *ProcessingService) Run(ctx context.Context, userID int64) error {
	_, err, _ := s.runs.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		return nil, s.run(ctx, userID)
	})
	return err
}

func (s *ProcessingService) run(ctx context.Context, userID int64) error {
	runID := uuid.New().String()
	started := time.Now()

	log.Printf("run %s: starting performance computation for user %d", runID, userID)

	settings, err := s.settingsRepo.GetSettings(userID)
	if err != nil {
		return err
	}
	if err := ValidateOHLCVariant(settings.OHLCAssets); err != nil {
		return fmt.Errorf("asset OHLC variant %q: %w", settings.OHLCAssets, err)
	}
	if err := ValidateOHLCVariant(settings.OHLCCurrencies); err != nil {
		return fmt.Errorf("currency OHLC variant %q: %w", settings.OHLCCurrencies, err)
	}

	aggregate, err := s.portfolioRepo.GetAggregateForUser(userID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin run transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	checkpoint := aggregate.CheckpointDate

	if err := s.normalizerService.WithTx(tx).NormalizeTransactions(ctx, userID, settings); err != nil {
		return fmt.Errorf("run %s: normalize: %w", runID, err)
	}

	if err := s.positionService.WithTx(tx).RollPositions(ctx, userID, checkpoint, settings); err != nil {
		return fmt.Errorf("run %s: positions: %w", runID, err)
	}

	aggregation := s.aggregationService.WithTx(tx)

	if err := aggregation.RollGroups(ctx, userID, checkpoint); err != nil {
		return fmt.Errorf("run %s: groups: %w", runID, err)
	}

	if err := aggregation.RollPortfolios(ctx, userID, aggregate.ID, checkpoint); err != nil {
		return fmt.Errorf("run %s: portfolios: %w", runID, err)
	}

	if err := aggregation.RollAggregate(ctx, aggregate.ID, checkpoint); err != nil {
		return fmt.Errorf("run %s: aggregate: %w", runID, err)
	}

	newCheckpoint, err := s.computeCheckpoint(tx, userID, settings)
	if err != nil {
		return fmt.Errorf("run %s: checkpoint: %w", runID, err)
	}

	if err := s.portfolioRepo.WithTx(tx).SetCheckpointDate(ctx, aggregate.ID, newCheckpoint); err != nil {
		return fmt.Errorf("run %s: checkpoint: %w", runID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run transaction: %w", err)
	}

	log.Printf("run %s: completed in %s, checkpoint %s -> %s",
		runID, time.Since(started).Round(time.Millisecond), checkpoint, newCheckpoint)

	return nil
}

// computeCheckpoint derives the next recomputation checkpoint: the earliest
// pricing watermark across the user's assets and their conversion pairs.
// Days beyond it lack a complete price basis and must be recomputed next
// run. A user with no assets keeps the sentinel, so the next run rebuilds
// everything.
func (s *ProcessingService) computeCheckpoint(tx *sql.Tx, userID int64, settings model.Settings) (string, error) {
	assets, err := s.assetRepo.WithTx(tx).GetAssetsForUser(userID)
	if err != nil {
		return "", err
	}
	if len(assets) == 0 {
		return model.SentinelDate, nil
	}

	pairRepo := s.pairRepo.WithTx(tx)

	checkpoint := ""
	for _, a := range assets {
		watermark := a.LastPricingDate

		if !strings.EqualFold(a.Currency, settings.AnalysisCurrency) {
			pairName := strings.ToLower(a.Currency + settings.AnalysisCurrency)

			pair, err := pairRepo.GetCurrencyPairOnName(pairName)
			if err == nil {
				watermark = minDate(watermark, pair.LastPricingDate)
			} else if !errors.Is(err, apperrors.ErrCurrencyPairNotFound) {
				return "", err
			}
		}

		if checkpoint == "" {
			checkpoint = watermark
		} else {
			checkpoint = minDate(checkpoint, watermark)
		}
	}

	return checkpoint, nil
}
