package service

import (
	"slices"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// ValidateOHLCVariant checks that the name is one of the accepted variants.
func ValidateOHLCVariant(variant string) error {
	if !slices.Contains(model.OHLCVariants, variant) {
		return apperrors.ErrInvalidOHLCVariant
	}
	return nil
}

// applyOHLCVariant collapses a daily bar into a single price per the chosen
// variant. Unknown variants fall back to the close.
func applyOHLCVariant(variant string, bar model.PriceBar) float64 {
	switch variant {
	case model.OHLCOpen:
		return bar.Open
	case model.OHLCHigh:
		return bar.High
	case model.OHLCLow:
		return bar.Low
	case model.OHLCAverage:
		return (bar.Open + bar.High + bar.Low + bar.Close) / 4
	case model.OHLCTypical:
		return (bar.High + bar.Low + bar.Close) / 3
	case model.OHLCWeightedClose:
		return (bar.High + bar.Low + 2*bar.Close) / 4
	default:
		return bar.Close
	}
}
