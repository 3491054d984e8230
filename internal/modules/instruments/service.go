package instruments

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/clients/yahoo"
	"github.com/aristath/paper-trader/pkg/formulas"
)

// QuoteProvider is the slice of the quote client this module needs.
// Defined here so tests can substitute a mock.
type QuoteProvider interface {
	GetQuote(symbol string) (*yahoo.Quote, error)
	GetHistory(symbol, period string) ([]yahoo.DailyClose, error)
}

// smaLength is the moving-average window drawn on detail charts.
const smaLength = 20

// PriceHistory is the chart payload for one instrument.
type PriceHistory struct {
	Symbol string            `json:"symbol"`
	Period string            `json:"period"`
	Dates  []string          `json:"dates"`
	Closes []decimal.Decimal `json:"closes"`
	SMA20  []*float64        `json:"sma20"`
}

// Service owns price-cache refreshes and history lookups for the universe.
// Refreshing the cached price is an explicit operation, separate from trade
// execution, so read paths and the trade engine share one policy.
type Service struct {
	repo   *Repository
	quotes QuoteProvider
	log    zerolog.Logger
}

// NewService creates a new instrument service
func NewService(repo *Repository, quotes QuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		quotes: quotes,
		log:    log.With().Str("service", "instruments").Logger(),
	}
}

// Repo exposes the repository for read-only listing in handlers.
func (s *Service) Repo() *Repository {
	return s.repo
}

// Lookup returns one stored instrument by symbol
func (s *Service) Lookup(ctx context.Context, symbol string) (*Instrument, error) {
	return s.repo.GetBySymbol(ctx, symbol)
}

// RefreshPrice fetches a fresh quote and updates the instrument's cached
// price. The quote is returned even if persisting the cache fails - a stale
// cache must not block a trade that has a good price in hand.
func (s *Service) RefreshPrice(ctx context.Context, symbol string) (*yahoo.Quote, error) {
	quote, err := s.quotes.GetQuote(symbol)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePrice(ctx, symbol, quote.CurrentPrice); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist cached price")
	}

	return quote, nil
}

// RefreshAllPrices refreshes the cached price of every instrument.
// Individual provider failures are logged and skipped.
func (s *Service) RefreshAllPrices(ctx context.Context) (int, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list instruments: %w", err)
	}

	refreshed := 0
	for _, inst := range all {
		if _, err := s.RefreshPrice(ctx, inst.Symbol); err != nil {
			s.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("Price refresh failed")
			continue
		}
		refreshed++
	}

	return refreshed, nil
}

// History returns the daily closing-price series for a known instrument,
// oldest first, with a 20-day moving average overlay.
func (s *Service) History(ctx context.Context, symbol, period string) (*PriceHistory, error) {
	inst, err := s.repo.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	closes, err := s.quotes.GetHistory(inst.Symbol, period)
	if err != nil {
		return nil, err
	}

	if period == "" {
		period = yahoo.DefaultHistoryPeriod
	}

	history := &PriceHistory{
		Symbol: inst.Symbol,
		Period: period,
		Dates:  make([]string, 0, len(closes)),
		Closes: make([]decimal.Decimal, 0, len(closes)),
	}

	values := make([]float64, 0, len(closes))
	for _, dc := range closes {
		history.Dates = append(history.Dates, dc.Date)
		history.Closes = append(history.Closes, dc.Close)
		values = append(values, dc.Close.InexactFloat64())
	}
	history.SMA20 = formulas.SMASeries(values, smaLength)

	return history, nil
}

// Seed creates any missing instruments from the given list
func (s *Service) Seed(ctx context.Context, seeds []SeedInstrument) error {
	for _, seed := range seeds {
		created, err := s.repo.GetOrCreate(ctx, seed.Symbol, seed.Name)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", seed.Symbol, err)
		}
		if created {
			s.log.Info().Str("symbol", seed.Symbol).Str("name", seed.Name).Msg("Seeded instrument")
		}
	}
	return nil
}
