package instruments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is a tradable security identified by its ticker symbol.
// CurrentPrice is a cache of the last quote seen for the symbol; it is
// invalid until the first successful fetch.
type Instrument struct {
	Symbol         string              `json:"symbol"`
	Name           string              `json:"name"`
	CurrentPrice   decimal.NullDecimal `json:"current_price"`
	PriceUpdatedAt *time.Time          `json:"price_updated_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// SeedInstrument is one entry of the default universe created at startup.
type SeedInstrument struct {
	Symbol string
	Name   string
}

// DefaultSeed is the initial instrument universe.
var DefaultSeed = []SeedInstrument{
	{Symbol: "AAPL", Name: "Apple"},
	{Symbol: "TSLA", Name: "Tesla"},
	{Symbol: "MSFT", Name: "Microsoft"},
}
