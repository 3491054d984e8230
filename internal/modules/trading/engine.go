package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/clients/yahoo"
	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/modules/instruments"
	"github.com/aristath/paper-trader/internal/modules/portfolio"
)

// InstrumentSource supplies instrument lookups and live quotes for trade
// execution. Implemented by instruments.Service.
type InstrumentSource interface {
	RefreshPrice(ctx context.Context, symbol string) (*yahoo.Quote, error)
	Lookup(ctx context.Context, symbol string) (*instruments.Instrument, error)
}

// Engine executes simulated trades. Every trade runs in one database
// transaction: the funds or shares check, the cash movement, the holding
// update and the ledger append commit together or not at all.
type Engine struct {
	db                   *database.DB
	portfolios           *portfolio.PortfolioRepository
	holdings             *portfolio.HoldingRepository
	trades               *TradeRepository
	instruments          InstrumentSource
	portfolioID          int64
	allowFractionalSells bool
	log                  zerolog.Logger
}

// EngineConfig wires the engine's collaborators
type EngineConfig struct {
	DB                   *database.DB
	Portfolios           *portfolio.PortfolioRepository
	Holdings             *portfolio.HoldingRepository
	Trades               *TradeRepository
	Instruments          InstrumentSource
	PortfolioID          int64
	AllowFractionalSells bool
}

// NewEngine creates a new trade engine
func NewEngine(cfg EngineConfig, log zerolog.Logger) *Engine {
	return &Engine{
		db:                   cfg.DB,
		portfolios:           cfg.Portfolios,
		holdings:             cfg.Holdings,
		trades:               cfg.Trades,
		instruments:          cfg.Instruments,
		portfolioID:          cfg.PortfolioID,
		allowFractionalSells: cfg.AllowFractionalSells,
		log:                  log.With().Str("service", "trading").Logger(),
	}
}

// Buy purchases a quantity of an instrument at the current live price.
// Fractional quantities are allowed and rounded to four decimal places.
func (e *Engine) Buy(ctx context.Context, symbol string, quantity decimal.Decimal) (*Receipt, error) {
	quantity = quantity.Round(4)
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	symbol, price, err := e.livePrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin trade transaction: %w", err)
	}
	defer tx.Rollback()

	cash, err := e.portfolios.GetCashBalance(ctx, tx, e.portfolioID)
	if err != nil {
		return nil, err
	}

	cost := quantity.Mul(price).Round(2)
	if cash.LessThan(cost) {
		return nil, &InsufficientFundsError{Available: cash, Required: cost}
	}

	newCash := cash.Sub(cost)
	if err := e.portfolios.SetCashBalance(ctx, tx, e.portfolioID, newCash); err != nil {
		return nil, err
	}

	newQuantity := quantity
	holding, err := e.holdings.GetBySymbol(ctx, tx, e.portfolioID, symbol)
	switch {
	case errors.Is(err, portfolio.ErrHoldingNotFound):
		if err := e.holdings.Create(ctx, tx, e.portfolioID, symbol, quantity); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		newQuantity = holding.Quantity.Add(quantity).Round(4)
		if err := e.holdings.SetQuantity(ctx, tx, e.portfolioID, symbol, newQuantity); err != nil {
			return nil, err
		}
	}

	trade := &Trade{
		PortfolioID: e.portfolioID,
		Symbol:      symbol,
		Side:        SideBuy,
		Quantity:    quantity,
		Price:       price,
	}
	if err := e.trades.Create(ctx, tx, trade); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit trade: %w", err)
	}

	e.log.Info().
		Str("symbol", symbol).
		Str("side", string(SideBuy)).
		Str("quantity", quantity.String()).
		Str("price", price.String()).
		Str("order_id", trade.OrderID).
		Msg("Trade executed")

	return &Receipt{
		OrderID:         trade.OrderID,
		Symbol:          symbol,
		Side:            SideBuy,
		Quantity:        quantity,
		Price:           price,
		Total:           cost,
		CashBalance:     newCash,
		HoldingQuantity: newQuantity,
		ExecutedAt:      trade.ExecutedAt,
	}, nil
}

// Sell disposes of a quantity of an open position at the current live price.
// Sells are whole shares only unless fractional sells are enabled.
func (e *Engine) Sell(ctx context.Context, symbol string, quantity decimal.Decimal) (*Receipt, error) {
	quantity = quantity.Round(4)
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if !e.allowFractionalSells && !quantity.IsInteger() {
		return nil, ErrWholeSharesOnly
	}

	symbol, price, err := e.livePrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin trade transaction: %w", err)
	}
	defer tx.Rollback()

	holding, err := e.holdings.GetBySymbol(ctx, tx, e.portfolioID, symbol)
	if errors.Is(err, portfolio.ErrHoldingNotFound) {
		return nil, ErrNotOwned
	}
	if err != nil {
		return nil, err
	}

	if holding.Quantity.LessThan(quantity) {
		return nil, &InsufficientSharesError{Symbol: symbol, Owned: holding.Quantity, Requested: quantity}
	}

	proceeds := quantity.Mul(price).Round(2)
	cash, err := e.portfolios.GetCashBalance(ctx, tx, e.portfolioID)
	if err != nil {
		return nil, err
	}
	newCash := cash.Add(proceeds)
	if err := e.portfolios.SetCashBalance(ctx, tx, e.portfolioID, newCash); err != nil {
		return nil, err
	}

	remaining := holding.Quantity.Sub(quantity).Round(4)
	if remaining.IsZero() {
		if err := e.holdings.Delete(ctx, tx, e.portfolioID, symbol); err != nil {
			return nil, err
		}
	} else {
		if err := e.holdings.SetQuantity(ctx, tx, e.portfolioID, symbol, remaining); err != nil {
			return nil, err
		}
	}

	trade := &Trade{
		PortfolioID: e.portfolioID,
		Symbol:      symbol,
		Side:        SideSell,
		Quantity:    quantity,
		Price:       price,
	}
	if err := e.trades.Create(ctx, tx, trade); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit trade: %w", err)
	}

	e.log.Info().
		Str("symbol", symbol).
		Str("side", string(SideSell)).
		Str("quantity", quantity.String()).
		Str("price", price.String()).
		Str("order_id", trade.OrderID).
		Msg("Trade executed")

	return &Receipt{
		OrderID:         trade.OrderID,
		Symbol:          symbol,
		Side:            SideSell,
		Quantity:        quantity,
		Price:           price,
		Total:           proceeds,
		CashBalance:     newCash,
		HoldingQuantity: remaining,
		ExecutedAt:      trade.ExecutedAt,
	}, nil
}

// History returns the most recent trades first, enriched with instrument
// names where known.
func (e *Engine) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	trades, err := e.trades.GetHistory(ctx, e.portfolioID, limit)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	entries := make([]HistoryEntry, 0, len(trades))
	for _, t := range trades {
		name, ok := names[t.Symbol]
		if !ok {
			if inst, err := e.instruments.Lookup(ctx, t.Symbol); err == nil {
				name = inst.Name
			}
			names[t.Symbol] = name
		}
		entries = append(entries, HistoryEntry{Trade: t, Name: name})
	}

	return entries, nil
}

// HistoryEntry is one ledger row with the instrument's display name
type HistoryEntry struct {
	Trade
	Name string `json:"name"`
}

// livePrice resolves the instrument and fetches a fresh quote. The canonical
// symbol from the instrument record is returned so holdings and ledger rows
// never carry a caller's spelling. The cached price is refreshed as a side
// effect even when the trade later fails its funds or shares check.
func (e *Engine) livePrice(ctx context.Context, symbol string) (string, decimal.Decimal, error) {
	inst, err := e.instruments.Lookup(ctx, symbol)
	if err != nil {
		return "", decimal.Zero, err
	}

	quote, err := e.instruments.RefreshPrice(ctx, inst.Symbol)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	price := quote.CurrentPrice.Round(2)
	if !price.IsPositive() {
		return "", decimal.Zero, ErrPriceUnavailable
	}

	return inst.Symbol, price, nil
}
