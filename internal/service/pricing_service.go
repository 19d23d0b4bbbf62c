package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
	"github.com/quantfolio/portfolio-performance-backend/internal/pricefeed"
	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
)

// PricingService loads daily prices from the feed and maintains the
// gap-filled price curves of assets and currency pairs.
type PricingService struct {
	assetRepo *repository.AssetRepository
	pairRepo  *repository.CurrencyPairRepository
	priceRepo *repository.PriceRepository
	feed      pricefeed.Feed
	now       func() time.Time
}

// NewPricingService creates a new PricingService with the provided dependencies.
func NewPricingService(
	assetRepo *repository.AssetRepository,
	pairRepo *repository.CurrencyPairRepository,
	priceRepo *repository.PriceRepository,
	feed pricefeed.Feed,
) *PricingService {
	return &PricingService{
		assetRepo: assetRepo,
		pairRepo:  pairRepo,
		priceRepo: priceRepo,
		feed:      feed,
		now:       time.Now,
	}
}

// RefreshAllPrices loads new bars for every known asset and currency pair
// and rebuilds their gap-filled curves through today.
//
// A symbol the feed cannot price is logged and skipped so one delisted
// ticker does not starve the rest. An unreachable feed aborts the whole
// refresh. Returns ErrNothingToPrice when no instruments exist.
func (s *PricingService) RefreshAllPrices(ctx context.Context) error {
	assets, err := s.assetRepo.GetAssets()
	if err != nil {
		return err
	}

	pairs, err := s.pairRepo.GetCurrencyPairs()
	if err != nil {
		return err
	}

	if len(assets) == 0 && len(pairs) == 0 {
		return apperrors.ErrNothingToPrice
	}

	for _, a := range assets {
		if err := s.refreshAsset(ctx, a); err != nil {
			if errors.Is(err, apperrors.ErrPriceFeedUnavailable) {
				return err
			}
			log.Printf("skipping asset %s: %v", a.Symbol, err)
		}
	}

	for _, p := range pairs {
		if err := s.refreshPair(ctx, p); err != nil {
			if errors.Is(err, apperrors.ErrPriceFeedUnavailable) {
				return err
			}
			log.Printf("skipping currency pair %s: %v", p.Name, err)
		}
	}

	return nil
}

func (s *PricingService) refreshAsset(ctx context.Context, a model.Asset) error {
	bars, err := s.fetchSince(ctx, a.Symbol, a.LastPricingDate)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	if err := s.priceRepo.UpsertAssetPrices(ctx, a.ID, bars); err != nil {
		return err
	}

	firstLoaded := bars[0].Date
	lastLoaded := maxDate(a.LastPricingDate, bars[len(bars)-1].Date)

	firstDate := a.FirstPricingDate
	if firstDate == model.SentinelDate {
		firstDate = firstLoaded
	}

	// Rebuild the curve from the pre-load watermark so already filled days
	// stay untouched while the freshly priced stretch is replaced.
	rebuildFrom := maxDate(firstDate, a.LastPricingDate)
	if a.LastPricingDate == model.SentinelDate {
		rebuildFrom = firstDate
	}

	raw, err := s.priceRepo.GetAssetPrices(a.ID)
	if err != nil {
		return err
	}

	curve := buildPriceCurve(raw, rebuildFrom, today(s.now))

	if err := s.priceRepo.DeleteAdjustedAssetPricesFrom(ctx, a.ID, rebuildFrom); err != nil {
		return err
	}

	if err := s.priceRepo.InsertAdjustedAssetPrices(ctx, a.ID, curve); err != nil {
		return err
	}

	// Advance the watermark only once the curve holds the loaded days, so a
	// failed rebuild is retried from the old watermark on the next run.
	return s.assetRepo.SetPricingDates(ctx, a.ID, firstLoaded, lastLoaded)
}

func (s *PricingService) refreshPair(ctx context.Context, p model.CurrencyPair) error {
	bars, err := s.fetchSince(ctx, p.Symbol, p.LastPricingDate)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	if err := s.priceRepo.UpsertPairPrices(ctx, p.ID, bars); err != nil {
		return err
	}

	firstLoaded := bars[0].Date
	lastLoaded := maxDate(p.LastPricingDate, bars[len(bars)-1].Date)

	firstDate := p.FirstPricingDate
	if firstDate == model.SentinelDate {
		firstDate = firstLoaded
	}

	rebuildFrom := maxDate(firstDate, p.LastPricingDate)
	if p.LastPricingDate == model.SentinelDate {
		rebuildFrom = firstDate
	}

	raw, err := s.priceRepo.GetPairPrices(p.ID)
	if err != nil {
		return err
	}

	curve := buildPriceCurve(raw, rebuildFrom, today(s.now))

	if err := s.priceRepo.DeleteAdjustedPairPricesFrom(ctx, p.ID, rebuildFrom); err != nil {
		return err
	}

	if err := s.priceRepo.InsertAdjustedPairPrices(ctx, p.ID, curve); err != nil {
		return err
	}

	return s.pairRepo.SetPricingDates(ctx, p.ID, firstLoaded, lastLoaded)
}

// fetchSince pulls bars from the instrument's load watermark through today.
// A never-priced instrument fetches its full available history.
func (s *PricingService) fetchSince(ctx context.Context, symbol, lastPricingDate string) ([]model.PriceBar, error) {
	start := time.Unix(0, 0).UTC()
	if lastPricingDate != model.SentinelDate {
		parsed, err := repository.ParseTime(lastPricingDate)
		if err != nil {
			return nil, fmt.Errorf("invalid last pricing date for %s: %w", symbol, err)
		}
		start = parsed
	}

	return s.feed.FetchDailyBars(ctx, symbol, start, s.now().UTC())
}

// buildPriceCurve fills a raw observation series out to one bar per
// calendar day from first to last inclusive. A day without an observation
// carries the most recent earlier bar forward; a day before the first
// observation is zero-valued. Raw bars must be ordered by date.
func buildPriceCurve(raw []model.PriceBar, first, last string) []model.PriceBar {
	if first > last {
		return nil
	}

	curve := []model.PriceBar{}
	idx := 0
	var carried *model.PriceBar

	for date := first; date <= last; date = nextDay(date) {
		for idx < len(raw) && raw[idx].Date <= date {
			carried = &raw[idx]
			idx++
		}

		bar := model.PriceBar{Date: date}
		if carried != nil {
			bar = *carried
			bar.Date = date
		}

		curve = append(curve, bar)
	}

	return curve
}
