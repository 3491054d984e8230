package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/database"
)

// Service owns portfolio valuation, daily snapshots and reset
type Service struct {
	db          *database.DB
	portfolios  *PortfolioRepository
	holdings    *HoldingRepository
	snapshots   *SnapshotRepository
	instruments InstrumentSource
	trades      TradePurger
	portfolioID int64
	initialCash decimal.Decimal
	log         zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	db *database.DB,
	portfolios *PortfolioRepository,
	holdings *HoldingRepository,
	snapshots *SnapshotRepository,
	instruments InstrumentSource,
	trades TradePurger,
	portfolioID int64,
	initialCash decimal.Decimal,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:          db,
		portfolios:  portfolios,
		holdings:    holdings,
		snapshots:   snapshots,
		instruments: instruments,
		trades:      trades,
		portfolioID: portfolioID,
		initialCash: initialCash,
		log:         log.With().Str("service", "portfolio").Logger(),
	}
}

// PortfolioID returns the ID of the active portfolio
func (s *Service) PortfolioID() int64 {
	return s.portfolioID
}

// Holdings returns the current positions without pricing them
func (s *Service) Holdings(ctx context.Context) ([]Holding, error) {
	return s.holdings.GetAll(ctx, s.portfolioID)
}

// ComputeValuation prices every holding at a fresh quote and sums the
// portfolio. When the provider fails for a symbol the last cached price is
// used and the line is marked stale. Holdings that have never been priced
// are excluded from the total.
func (s *Service) ComputeValuation(ctx context.Context) (*Valuation, error) {
	p, err := s.portfolios.Get(ctx, s.portfolioID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.holdings.GetAll(ctx, s.portfolioID)
	if err != nil {
		return nil, err
	}

	v := &Valuation{
		PortfolioID: s.portfolioID,
		CashBalance: p.CashBalance,
		Holdings:    make([]HoldingValuation, 0, len(holdings)),
	}

	holdingsValue := decimal.Zero
	for _, h := range holdings {
		hv := s.priceHolding(ctx, h)
		if !hv.Excluded {
			holdingsValue = holdingsValue.Add(hv.MarketValue)
		}
		v.Holdings = append(v.Holdings, hv)
	}

	v.HoldingsValue = holdingsValue.Round(2)
	v.TotalValue = p.CashBalance.Add(holdingsValue).Round(2)
	v.GainLossPct = GainLossPercent(v.TotalValue, s.initialCash)

	return v, nil
}

func (s *Service) priceHolding(ctx context.Context, h Holding) HoldingValuation {
	hv := HoldingValuation{
		Symbol:   h.Symbol,
		Quantity: h.Quantity,
	}

	inst, err := s.instruments.Lookup(ctx, h.Symbol)
	if err == nil {
		hv.Name = inst.Name
	}

	quote, err := s.instruments.RefreshPrice(ctx, h.Symbol)
	if err == nil {
		hv.Price = decimal.NewNullDecimal(quote.CurrentPrice)
		hv.MarketValue = h.Quantity.Mul(quote.CurrentPrice).Round(2)
		return hv
	}

	s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Quote unavailable, falling back to cached price")

	if inst != nil && inst.CurrentPrice.Valid {
		hv.Price = inst.CurrentPrice
		hv.MarketValue = h.Quantity.Mul(inst.CurrentPrice.Decimal).Round(2)
		hv.Stale = true
		return hv
	}

	hv.MarketValue = decimal.Zero
	hv.Excluded = true
	return hv
}

// GainLossPercent returns the percentage change of total against the
// starting cash, rounded to two decimal places.
func GainLossPercent(total, initial decimal.Decimal) decimal.Decimal {
	if initial.IsZero() {
		return decimal.Zero
	}
	return total.Sub(initial).Div(initial).Mul(decimal.NewFromInt(100)).Round(2)
}

// RecordSnapshot stores an already-computed total value under today's date.
// The first snapshot of a date wins, so calling this more than once per day
// is harmless. Returns whether a new snapshot row was written.
func (s *Service) RecordSnapshot(ctx context.Context, totalValue decimal.Decimal) (bool, error) {
	date := time.Now().UTC().Format("2006-01-02")
	created, err := s.snapshots.Record(ctx, s.portfolioID, date, totalValue)
	if err != nil {
		return false, err
	}

	if created {
		s.log.Info().Str("date", date).Str("total_value", totalValue.String()).Msg("Recorded daily snapshot")
	}
	return created, nil
}

// RecordDailySnapshot values the portfolio and stores today's snapshot
func (s *Service) RecordDailySnapshot(ctx context.Context) (bool, error) {
	v, err := s.ComputeValuation(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to value portfolio for snapshot: %w", err)
	}
	return s.RecordSnapshot(ctx, v.TotalValue)
}

// Snapshots returns the full snapshot history in date order
func (s *Service) Snapshots(ctx context.Context) ([]Snapshot, error) {
	return s.snapshots.GetAll(ctx, s.portfolioID)
}

// Reset restores the starting cash balance and wipes holdings and the trade
// ledger in one transaction. Snapshot history survives a reset.
func (s *Service) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.portfolios.SetCashBalance(ctx, tx, s.portfolioID, s.initialCash); err != nil {
		return fmt.Errorf("failed to restore cash balance: %w", err)
	}
	if err := s.holdings.DeleteAll(ctx, tx, s.portfolioID); err != nil {
		return err
	}
	if err := s.trades.DeleteAll(ctx, tx, s.portfolioID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	s.log.Info().Int64("portfolio_id", s.portfolioID).Str("cash", s.initialCash.String()).Msg("Portfolio reset")
	return nil
}

// CashBalance returns the current cash balance
func (s *Service) CashBalance(ctx context.Context) (decimal.Decimal, error) {
	p, err := s.portfolios.Get(ctx, s.portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CashBalance, nil
}
