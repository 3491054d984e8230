package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio holds the simulated cash balance. The application seeds exactly
// one at startup, but every operation takes an explicit portfolio ID.
type Portfolio struct {
	ID          int64           `json:"id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Holding is the current position in one instrument. Quantity is always
// positive; a sale that zeroes it deletes the row.
type Holding struct {
	ID            int64           `json:"id"`
	PortfolioID   int64           `json:"portfolio_id"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	FirstBoughtAt time.Time       `json:"first_bought_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Snapshot records total portfolio value once per calendar day.
type Snapshot struct {
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolio_id"`
	Date        string          `json:"date"` // YYYY-MM-DD
	TotalValue  decimal.Decimal `json:"total_value"`
	CreatedAt   time.Time       `json:"created_at"`
}

// HoldingValuation is one holding marked to market.
// Stale means the provider was unreachable and the last cached price was
// used. Excluded means no price was ever seen for the symbol, so the
// holding contributes nothing to the total.
type HoldingValuation struct {
	Symbol      string              `json:"symbol"`
	Name        string              `json:"name"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Price       decimal.NullDecimal `json:"price"`
	MarketValue decimal.Decimal     `json:"market_value"`
	Stale       bool                `json:"stale"`
	Excluded    bool                `json:"excluded"`
}

// Valuation is the portfolio marked to market: cash plus every holding at
// its current (or last known) price.
type Valuation struct {
	PortfolioID   int64              `json:"portfolio_id"`
	CashBalance   decimal.Decimal    `json:"cash_balance"`
	HoldingsValue decimal.Decimal    `json:"holdings_value"`
	TotalValue    decimal.Decimal    `json:"total_value"`
	GainLossPct   decimal.Decimal    `json:"gain_loss_pct"`
	Holdings      []HoldingValuation `json:"holdings"`
}
