// Package yahoo adapts Yahoo Finance to the quote-provider contract the rest
// of the application depends on: a current quote and a daily closing-price
// history per symbol. Connectivity failures are surfaced as *ProviderError,
// never retried here - callers decide what a failed quote means for them.
package yahoo

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// validPeriods are the history ranges Yahoo Finance accepts.
var validPeriods = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// DefaultHistoryPeriod is used when a caller does not specify a range.
const DefaultHistoryPeriod = "1mo"

// Quote is a point-in-time price for one symbol.
type Quote struct {
	Symbol        string
	CurrentPrice  decimal.Decimal
	PreviousClose decimal.NullDecimal
}

// DailyClose is one day of closing-price history.
type DailyClose struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Close decimal.Decimal
}

// ProviderError wraps any failure to reach the quote provider or to get a
// usable price out of it.
type ProviderError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("quote provider: %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidPeriod reports whether Yahoo Finance accepts the given history range.
func ValidPeriod(period string) bool {
	return validPeriods[period]
}

// Client is a Yahoo Finance quote client built on go-yfinance
type Client struct {
	log zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// GetQuote fetches the current price and previous close for a symbol.
// Prices are rounded to 2 decimal places.
func (c *Client) GetQuote(symbol string) (*Quote, error) {
	sym := NormalizeSymbol(symbol)

	t, err := ticker.New(sym)
	if err != nil {
		return nil, &ProviderError{Symbol: sym, Op: "quote", Err: err}
	}
	defer t.Close()

	// Quote first (faster), Info as fallback for the current price and as
	// the source of the previous close.
	var current float64
	quote, qerr := t.Quote()
	if qerr == nil && quote != nil {
		switch {
		case quote.RegularMarketPrice > 0:
			current = quote.RegularMarketPrice
		case quote.PostMarketPrice > 0:
			current = quote.PostMarketPrice
		case quote.PreMarketPrice > 0:
			current = quote.PreMarketPrice
		}
	}

	var previousClose decimal.NullDecimal
	info, ierr := t.Info()
	if ierr == nil && info != nil {
		if current == 0 && info.CurrentPrice > 0 {
			current = info.CurrentPrice
		}
		if info.RegularMarketPreviousClose > 0 {
			previousClose = decimal.NewNullDecimal(
				decimal.NewFromFloat(info.RegularMarketPreviousClose).Round(2))
		}
	}

	if current == 0 {
		cause := qerr
		if cause == nil {
			cause = ierr
		}
		if cause == nil {
			cause = fmt.Errorf("no usable price in response")
		}
		return nil, &ProviderError{Symbol: sym, Op: "quote", Err: cause}
	}

	c.log.Debug().Str("symbol", sym).Float64("price", current).Msg("Fetched quote")

	return &Quote{
		Symbol:        sym,
		CurrentPrice:  decimal.NewFromFloat(current).Round(2),
		PreviousClose: previousClose,
	}, nil
}

// GetHistory fetches daily closing prices for a symbol over the given period,
// oldest first. Days with no usable close are skipped.
func (c *Client) GetHistory(symbol, period string) ([]DailyClose, error) {
	sym := NormalizeSymbol(symbol)

	if period == "" {
		period = DefaultHistoryPeriod
	}
	if !ValidPeriod(period) {
		return nil, &ProviderError{Symbol: sym, Op: "history",
			Err: fmt.Errorf("unsupported period %q", period)}
	}

	t, err := ticker.New(sym)
	if err != nil {
		return nil, &ProviderError{Symbol: sym, Op: "history", Err: err}
	}
	defer t.Close()

	bars, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, &ProviderError{Symbol: sym, Op: "history", Err: err}
	}

	closes := make([]DailyClose, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		closes = append(closes, DailyClose{
			Date:  bar.Date.Format("2006-01-02"),
			Close: decimal.NewFromFloat(bar.Close).Round(2),
		})
	}

	c.log.Debug().
		Str("symbol", sym).
		Str("period", period).
		Int("count", len(closes)).
		Msg("Fetched price history")

	return closes, nil
}
