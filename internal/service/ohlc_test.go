package service

import (
	"errors"
	"testing"

	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
	"github.com/quantfolio/portfolio-performance-backend/internal/model"
)

// TestValidateOHLCVariant tests variant name validation.
//
// WHY: The variant comes from user settings and an unknown name must be
// rejected before a run starts, not silently priced at the close.
func TestValidateOHLCVariant(t *testing.T) {
	t.Run("accepts every known variant", func(t *testing.T) {
		for _, variant := range model.OHLCVariants {
			if err := ValidateOHLCVariant(variant); err != nil {
				t.Errorf("Expected %q to validate, got %v", variant, err)
			}
		}
	})

	t.Run("rejects unknown variant", func(t *testing.T) {
		err := ValidateOHLCVariant("median")
		if !errors.Is(err, apperrors.ErrInvalidOHLCVariant) {
			t.Errorf("Expected ErrInvalidOHLCVariant, got %v", err)
		}
	})
}

// TestApplyOHLCVariant tests the bar-to-price collapse for each variant.
func TestApplyOHLCVariant(t *testing.T) {
	bar := model.PriceBar{Open: 10, High: 14, Low: 8, Close: 12}

	cases := map[string]float64{
		model.OHLCOpen:          10,
		model.OHLCHigh:          14,
		model.OHLCLow:           8,
		model.OHLCClose:         12,
		model.OHLCAverage:       (10 + 14 + 8 + 12) / 4.0,
		model.OHLCTypical:       (14 + 8 + 12) / 3.0,
		model.OHLCWeightedClose: (14 + 8 + 2*12) / 4.0,
	}

	for variant, expected := range cases {
		t.Run(variant, func(t *testing.T) {
			if got := applyOHLCVariant(variant, bar); got != expected {
				t.Errorf("Expected %f, got %f", expected, got)
			}
		})
	}
}
