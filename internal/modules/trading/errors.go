package trading

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned for zero, negative or unparseable quantities.
	ErrInvalidQuantity = errors.New("quantity must be a positive number")

	// ErrWholeSharesOnly is returned when a sell asks for a fractional
	// quantity and fractional sells are disabled.
	ErrWholeSharesOnly = errors.New("sell quantity must be a whole number of shares")

	// ErrPriceUnavailable is returned when no live quote could be fetched
	// for the trade. Trades never execute on cached prices.
	ErrPriceUnavailable = errors.New("live price unavailable")

	// ErrNotOwned is returned when selling a symbol with no open position.
	ErrNotOwned = errors.New("no position in this instrument")
)

// InsufficientFundsError reports a buy that costs more than the available cash
type InsufficientFundsError struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: have %s, need %s", e.Available.StringFixed(2), e.Required.StringFixed(2))
}

// InsufficientSharesError reports a sell larger than the open position.
// The message includes the owned quantity so the caller can correct the order.
type InsufficientSharesError struct {
	Symbol    string
	Owned     decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of %s: own %s, tried to sell %s", e.Symbol, e.Owned, e.Requested)
}
