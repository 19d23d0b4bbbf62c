package model

// OHLC variant names a user can pick for converting a daily bar into a
// single price. The last three are derived: average = (O+H+L+C)/4,
// typical price = (H+L+C)/3, weighted close price = (H+L+2C)/4.
const (
	OHLCOpen          = "open"
	OHLCHigh          = "high"
	OHLCLow           = "low"
	OHLCClose         = "close"
	OHLCAverage       = "average"
	OHLCTypical       = "typical price"
	OHLCWeightedClose = "weighted close price"
)

// OHLCVariants lists the accepted variant names.
var OHLCVariants = []string{
	OHLCOpen,
	OHLCHigh,
	OHLCLow,
	OHLCClose,
	OHLCAverage,
	OHLCTypical,
	OHLCWeightedClose,
}

// Settings holds a user's analysis configuration, read-only input to the
// engine: the currency everything is converted into and which OHLC variant
// prices assets and exchange rates.
type Settings struct {
	UserID           int64  `json:"userId"`
	AnalysisCurrency string `json:"analysisCurrency"`
	OHLCAssets       string `json:"ohlcAssets"`
	OHLCCurrencies   string `json:"ohlcCurrencies"`
}
