package models

import (
	"time"

	"gorm.io/datatypes"
)

// TradeSide is the direction of a simulated trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// TradeStatus tracks simulated positions. The demo only ever opens trades;
// closing is a bookkeeping field kept for parity with the portfolio view.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// Trade is a single simulated buy or sell against the user's virtual balance.
type Trade struct {
	BaseModel

	UserID string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Symbol string    `gorm:"not null;index" json:"symbol"`
	Side   TradeSide `gorm:"type:varchar(10);not null" json:"side"`

	Quantity    float64 `gorm:"not null" json:"quantity"`
	Price       float64 `gorm:"not null" json:"price"`
	TotalAmount float64 `gorm:"not null" json:"total_amount"`

	Status   TradeStatus `gorm:"type:varchar(10);default:open" json:"status"`
	ClosedAt *time.Time  `json:"closed_at"`
}

// PortfolioPosition aggregates a user's holdings per symbol. Quantity and
// average price are maintained inside the trade transaction.
type PortfolioPosition struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_portfolio_user_symbol" json:"user_id"`
	Symbol string `gorm:"not null;uniqueIndex:idx_portfolio_user_symbol" json:"symbol"`

	Quantity     float64 `gorm:"not null;default:0" json:"quantity"`
	AveragePrice float64 `gorm:"not null;default:0" json:"average_price"`
}

// MarketPrice is the current simulated quote for a symbol. Sparkline holds
// the recent price history the dashboard renders.
type MarketPrice struct {
	BaseModel

	Symbol string `gorm:"uniqueIndex;not null" json:"symbol"`
	Name   string `json:"name"`

	Price            float64 `gorm:"not null" json:"price"`
	ChangePercent24h float64 `gorm:"column:change_percent_24h" json:"change_percent_24h"`
	Volume24h        float64 `gorm:"column:volume_24h" json:"volume_24h"`

	Sparkline datatypes.JSON `json:"sparkline,omitempty"`
}
