package model

// PortfolioAggregate is the per-user root of the portfolio tree and the
// owner of the recomputation checkpoint. Snapshot rows dated before
// CheckpointDate are immutable history; rows at or after it are deleted and
// recomputed on every processing run.
type PortfolioAggregate struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"userId"`
	CheckpointDate string `json:"checkpointDate"`
}

// Portfolio belongs to an aggregate and contains weighting groups.
type Portfolio struct {
	ID                   int64  `json:"id"`
	PortfolioAggregateID int64  `json:"portfolioAggregateId"`
	Name                 string `json:"name"`
}

// PortfolioGroup is a weighting bucket inside a portfolio. Weights are
// percentages and must sum to 100 across a portfolio's groups.
type PortfolioGroup struct {
	ID          int64   `json:"id"`
	PortfolioID int64   `json:"portfolioId"`
	UserID      int64   `json:"userId"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
}

// PortfolioGroupAsset assigns an asset to a weighting group.
type PortfolioGroupAsset struct {
	ID               int64 `json:"id"`
	PortfolioGroupID int64 `json:"portfolioGroupId"`
	AssetID          int64 `json:"assetId"`
}

// PerformanceStatus reports how far a user's derived data reaches: the
// recomputation checkpoint and the date of the newest aggregate snapshot.
type PerformanceStatus struct {
	UserID             int64  `json:"userId"`
	CheckpointDate     string `json:"checkpointDate"`
	LatestSnapshotDate string `json:"latestSnapshotDate"`
}

// GroupAssetMembership is one (portfolio, group, asset) tuple of a user's
// portfolio tree, the unit the position roller works through.
type GroupAssetMembership struct {
	PortfolioID      int64 `json:"portfolioId"`
	PortfolioGroupID int64 `json:"portfolioGroupId"`
	AssetID          int64 `json:"assetId"`
}

// GroupMarketValue pairs a weighting group's model weight with its snapshot
// market value on one date, the input to the group weight report.
type GroupMarketValue struct {
	PortfolioGroupID   int64
	PortfolioGroupName string
	Date               string
	ModelWeight        float64
	MarketValue        float64
}

// GroupWeight is one row of the group weight report: the group's actual
// share of the portfolio market value on a date against its model weight.
type GroupWeight struct {
	PortfolioGroupID   int64   `json:"portfolioGroupId"`
	PortfolioGroupName string  `json:"portfolioGroupName"`
	Date               string  `json:"date"`
	ModelWeight        float64 `json:"modelWeight"`
	Weight             float64 `json:"weight"`
	WeightDeviation    float64 `json:"weightDeviation"`
}
