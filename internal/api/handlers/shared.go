package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quantfolio/portfolio-performance-backend/internal/api/response"
	"github.com/quantfolio/portfolio-performance-backend/internal/apperrors"
)

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	response.JSON(w, status, data)
}

// respondServiceError maps service errors onto HTTP status codes with the
// shared error/detail body shape.
func respondServiceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperrors.ErrAssetNotFound),
		errors.Is(err, apperrors.ErrCurrencyPairNotFound),
		errors.Is(err, apperrors.ErrPortfolioNotFound),
		errors.Is(err, apperrors.ErrPortfolioGroupNotFound),
		errors.Is(err, apperrors.ErrAggregateNotFound),
		errors.Is(err, apperrors.ErrSettingsNotFound),
		errors.Is(err, apperrors.ErrTransactionFileNotFound),
		errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidDate),
		errors.Is(err, apperrors.ErrInvalidOHLCVariant),
		errors.Is(err, apperrors.ErrInvalidWeights),
		errors.Is(err, apperrors.ErrEmptyID):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNothingToPrice):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrPriceFeedUnavailable):
		status = http.StatusBadGateway
	}

	response.Error(w, status, message, err.Error())
}

// pathID parses a numeric URL parameter. A missing or malformed value
// reports ErrEmptyID.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, apperrors.ErrEmptyID
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.ErrEmptyID
	}

	return id, nil
}
