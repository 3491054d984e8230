package portfolio

import (
	"context"

	"github.com/aristath/paper-trader/internal/clients/yahoo"
	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/modules/instruments"
)

// InstrumentSource supplies instrument metadata and fresh quotes for
// valuation. Implemented by instruments.Service.
type InstrumentSource interface {
	// RefreshPrice fetches a live quote and updates the price cache
	RefreshPrice(ctx context.Context, symbol string) (*yahoo.Quote, error)
	// Lookup returns the stored instrument including the cached price
	Lookup(ctx context.Context, symbol string) (*instruments.Instrument, error)
}

// TradePurger deletes the trade ledger of a portfolio during reset.
// Implemented by the trading repository. Defined here so the reset flow does
// not import the trading package.
type TradePurger interface {
	DeleteAll(ctx context.Context, q database.DBTX, portfolioID int64) error
}
