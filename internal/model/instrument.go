package model

// SentinelDate marks an instrument that has never been priced and an
// aggregate whose derived data has never been computed. All date columns
// store ISO "2006-01-02" strings, which order correctly under string
// comparison.
const SentinelDate = "1900-01-01"

// Asset represents a priceable security referenced by portfolio groups.
type Asset struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	Currency         string `json:"currency"`
	FirstPricingDate string `json:"firstPricingDate"`
	LastPricingDate  string `json:"lastPricingDate"`
}

// CurrencyPair represents an FX instrument converting FirstCurrency into
// SecondCurrency. Pairs are keyed by name, e.g. "usdeur".
type CurrencyPair struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	FirstCurrency    string `json:"firstCurrency"`
	SecondCurrency   string `json:"secondCurrency"`
	FirstPricingDate string `json:"firstPricingDate"`
	LastPricingDate  string `json:"lastPricingDate"`
}

// PriceBar is a raw daily OHLC observation as returned by the price feed.
// AdjClose is zero for currency pairs.
type PriceBar struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
}

// AdjustedPrice is one day of the gap-filled price curve for an instrument.
// Unlike PriceBar rows, adjusted rows exist for every calendar day between
// the instrument's anchor date and today.
type AdjustedPrice struct {
	ID           int64
	InstrumentID int64
	Date         string
	Open         float64
	High         float64
	Low          float64
	Close        float64
	AdjClose     float64
}
