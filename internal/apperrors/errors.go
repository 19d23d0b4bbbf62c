package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrAssetNotFound indicates that an asset with the given id or symbol does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrCurrencyPairNotFound indicates that a currency pair does not exist.
	ErrCurrencyPairNotFound = errors.New("currency pair not found")

	// ErrPortfolioNotFound indicates that a portfolio with the given id does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrPortfolioGroupNotFound indicates that a portfolio group does not exist.
	ErrPortfolioGroupNotFound = errors.New("portfolio group not found")

	// ErrAggregateNotFound indicates that the user has no portfolio aggregate.
	ErrAggregateNotFound = errors.New("portfolio aggregate not found")

	// ErrSettingsNotFound indicates that the user has no settings row.
	ErrSettingsNotFound = errors.New("settings not found")

	// ErrTransactionFileNotFound indicates that a transaction file does not exist.
	ErrTransactionFileNotFound = errors.New("transaction file not found")
)

// Business logic errors represent validation failures or constraint
// violations surfaced to callers as 4xx responses.
var (
	// ErrNothingToPrice indicates a pricing download was requested with no
	// assets or currencies resolvable from the user's settings.
	ErrNothingToPrice = errors.New("no assets or currencies to download prices for")

	// ErrInvalidOHLCVariant indicates an unknown OHLC variant name in settings.
	ErrInvalidOHLCVariant = errors.New("invalid OHLC variant")

	// ErrInvalidDate indicates a date parameter that is not an ISO calendar day.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidWeights indicates portfolio group weights that do not sum to 100.
	ErrInvalidWeights = errors.New("portfolio group weights must sum to 100")

	// ErrEmptyID indicates that a required id parameter is empty or missing.
	ErrEmptyID = errors.New("id cannot be empty")
)

// Operation failure errors represent system-level failures when the price
// feed or storage misbehaves for a whole batch.
var (
	// ErrPriceFeedUnavailable indicates the external feed failed for the
	// entire batch; no pricing state was advanced.
	ErrPriceFeedUnavailable = errors.New("price feed unavailable")
)
