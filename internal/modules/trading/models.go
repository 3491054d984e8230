package trading

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of an executed trade
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// IsValid checks whether the side is one of the known values
func (s TradeSide) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// SideFromString parses a trade side, case insensitive
func SideFromString(s string) (TradeSide, error) {
	side := TradeSide(strings.ToUpper(strings.TrimSpace(s)))
	if !side.IsValid() {
		return "", fmt.Errorf("invalid trade side %q", s)
	}
	return side, nil
}

// Trade is one immutable row in the trade ledger
type Trade struct {
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Side        TradeSide       `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	OrderID     string          `json:"order_id"`
	ExecutedAt  time.Time       `json:"executed_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks ledger invariants before a trade is written
func (t *Trade) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("trade symbol is required")
	}
	if !t.Side.IsValid() {
		return fmt.Errorf("invalid trade side %q", t.Side)
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("trade quantity must be positive, got %s", t.Quantity)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("trade price must be positive, got %s", t.Price)
	}
	return nil
}

// Cost is the cash value of the trade, rounded to cents
func (t *Trade) Cost() decimal.Decimal {
	return t.Quantity.Mul(t.Price).Round(2)
}

// Receipt is returned to the caller after a trade executes
type Receipt struct {
	OrderID         string          `json:"order_id"`
	Symbol          string          `json:"symbol"`
	Side            TradeSide       `json:"side"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Total           decimal.Decimal `json:"total"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
	HoldingQuantity decimal.Decimal `json:"holding_quantity"`
	ExecutedAt      time.Time       `json:"executed_at"`
}
