package state

import "time"

// AssetType distinguishes watch-item kinds.
const (
	AssetTypeStock  = "stock"
	AssetTypeCrypto = "crypto"
)

// User is the authenticated account record.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Quote is the last known snapshot for a symbol (the "current stock" a view
// is displaying).
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Currency      string    `json:"currency"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WatchItem is a single tracked symbol in the watchlist.
// TargetPrice/TargetDirection are optional price alerts.
type WatchItem struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	AssetType       string    `json:"asset_type"`
	Note            string    `json:"note,omitempty"`
	AddedAt         time.Time `json:"added_at"`
	TargetPrice     *float64  `json:"target_price,omitempty"`
	TargetDirection string    `json:"target_direction,omitempty"` // "above" or "below"
}

// Holding is a single position in one of the per-market portfolios.
type Holding struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AvgCost     float64 `json:"avg_cost"`
	MarketValue float64 `json:"market_value"`
	Currency    string  `json:"currency"`
}

// PortfolioSummary aggregates across markets. Computed by the backend;
// this layer only carries it.
type PortfolioSummary struct {
	TotalValue  float64 `json:"total_value"`
	TotalCost   float64 `json:"total_cost"`
	TotalGain   float64 `json:"total_gain"`
	GainPercent float64 `json:"gain_percent"`
}

// Portfolio holds per-market positions and the overall summary.
type Portfolio struct {
	TW      []Holding         `json:"tw"`
	US      []Holding         `json:"us"`
	Summary *PortfolioSummary `json:"summary,omitempty"`
}

// PortfolioPatch carries partial portfolio fields for a shallow merge.
// Nil fields are left untouched on the existing portfolio.
type PortfolioPatch struct {
	TW      []Holding
	US      []Holding
	Summary *PortfolioSummary
}

// Tag labels watch-items. The item-tag relation is kept server-side and
// looked up by id, not embedded here.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// MarketIndex is one dashboard index row (S&P 500, TAIEX, ...).
type MarketIndex struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}
