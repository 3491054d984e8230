package trading

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paper-trader/internal/clients/yahoo"
	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/modules/instruments"
	"github.com/aristath/paper-trader/internal/modules/portfolio"
)

// stubInstruments serves fixed prices without touching the network. Lookups
// uppercase the symbol the same way the real repository does.
type stubInstruments struct {
	prices   map[string]decimal.Decimal
	quoteErr error
}

func (s *stubInstruments) Lookup(ctx context.Context, symbol string) (*instruments.Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := s.prices[symbol]; !ok {
		return nil, instruments.ErrNotFound
	}
	return &instruments.Instrument{Symbol: symbol, Name: symbol + " Inc."}, nil
}

func (s *stubInstruments) RefreshPrice(ctx context.Context, symbol string) (*yahoo.Quote, error) {
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	price, ok := s.prices[symbol]
	if !ok {
		return nil, instruments.ErrNotFound
	}
	return &yahoo.Quote{Symbol: symbol, CurrentPrice: price}, nil
}

type testEnv struct {
	db          *database.DB
	engine      *Engine
	portfolios  *portfolio.PortfolioRepository
	holdings    *portfolio.HoldingRepository
	trades      *TradeRepository
	quotes      *stubInstruments
	portfolioID int64
}

func newTestEnv(t *testing.T, allowFractionalSells bool) *testEnv {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return buildTestEnv(t, db, allowFractionalSells)
}

// newFileTestEnv backs the environment with an on-disk database so the
// connection pool allows genuinely concurrent transactions.
func newFileTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "trades.db"),
		Profile: database.ProfileLedger,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return buildTestEnv(t, db, false)
}

func buildTestEnv(t *testing.T, db *database.DB, allowFractionalSells bool) *testEnv {
	t.Helper()

	log := zerolog.Nop()
	ctx := context.Background()

	instRepo := instruments.NewRepository(db.Conn(), log)
	for _, symbol := range []string{"AAPL", "TSLA", "MSFT"} {
		_, err := instRepo.GetOrCreate(ctx, symbol, symbol+" Inc.")
		require.NoError(t, err)
	}

	portfolios := portfolio.NewPortfolioRepository(db.Conn(), log)
	portfolioID, err := portfolios.EnsureDefault(ctx, decimal.NewFromInt(10000))
	require.NoError(t, err)

	holdings := portfolio.NewHoldingRepository(db.Conn(), log)
	trades := NewTradeRepository(db.Conn(), log)
	quotes := &stubInstruments{prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(100),
		"TSLA": decimal.NewFromInt(250),
		"MSFT": decimal.NewFromInt(400),
	}}

	engine := NewEngine(EngineConfig{
		DB:                   db,
		Portfolios:           portfolios,
		Holdings:             holdings,
		Trades:               trades,
		Instruments:          quotes,
		PortfolioID:          portfolioID,
		AllowFractionalSells: allowFractionalSells,
	}, log)

	return &testEnv{
		db:          db,
		engine:      engine,
		portfolios:  portfolios,
		holdings:    holdings,
		trades:      trades,
		quotes:      quotes,
		portfolioID: portfolioID,
	}
}

func (env *testEnv) cash(t *testing.T) decimal.Decimal {
	t.Helper()
	cash, err := env.portfolios.GetCashBalance(context.Background(), env.db.Conn(), env.portfolioID)
	require.NoError(t, err)
	return cash
}

func TestBuyDebitsCashAndCreatesHolding(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	receipt, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.Equal(t, SideBuy, receipt.Side)
	assert.True(t, receipt.Total.Equal(decimal.NewFromInt(1000)), "total was %s", receipt.Total)
	assert.True(t, receipt.CashBalance.Equal(decimal.NewFromInt(9000)), "cash was %s", receipt.CashBalance)
	assert.NotEmpty(t, receipt.OrderID)

	assert.True(t, env.cash(t).Equal(decimal.NewFromInt(9000)))

	holding, err := env.holdings.GetBySymbol(ctx, env.db.Conn(), env.portfolioID, "AAPL")
	require.NoError(t, err)
	assert.True(t, holding.Quantity.Equal(decimal.NewFromInt(10)))

	history, err := env.trades.GetHistory(ctx, env.portfolioID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, SideBuy, history[0].Side)
	assert.True(t, history[0].Price.Equal(decimal.NewFromInt(100)))
}

func TestBuyAccumulatesExistingHolding(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(10))
	require.NoError(t, err)

	receipt, err := env.engine.Buy(ctx, "AAPL", decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.True(t, receipt.HoldingQuantity.Equal(decimal.RequireFromString("12.5")))
}

func TestBuyInsufficientFunds(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "MSFT", decimal.NewFromInt(100))

	var fundsErr *InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.True(t, fundsErr.Required.Equal(decimal.NewFromInt(40000)))

	// Nothing moved.
	assert.True(t, env.cash(t).Equal(decimal.NewFromInt(10000)))
	_, err = env.holdings.GetBySymbol(ctx, env.db.Conn(), env.portfolioID, "MSFT")
	assert.ErrorIs(t, err, portfolio.ErrHoldingNotFound)
}

func TestBuyInvalidQuantity(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "AAPL", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestBuyUnknownSymbol(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.engine.Buy(context.Background(), "NOPE", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, instruments.ErrNotFound)
}

func TestBuyPriceUnavailable(t *testing.T) {
	env := newTestEnv(t, false)
	env.quotes.quoteErr = &yahoo.ProviderError{Symbol: "AAPL", Op: "quote", Err: errors.New("timeout")}

	_, err := env.engine.Buy(context.Background(), "AAPL", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrPriceUnavailable)
	assert.True(t, env.cash(t).Equal(decimal.NewFromInt(10000)))
}

func TestSellCreditsCashAndReducesHolding(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(10))
	require.NoError(t, err)

	receipt, err := env.engine.Sell(ctx, "AAPL", decimal.NewFromInt(5))
	require.NoError(t, err)

	assert.True(t, receipt.Total.Equal(decimal.NewFromInt(500)))
	assert.True(t, receipt.CashBalance.Equal(decimal.NewFromInt(9500)), "cash was %s", receipt.CashBalance)
	assert.True(t, receipt.HoldingQuantity.Equal(decimal.NewFromInt(5)))

	holding, err := env.holdings.GetBySymbol(ctx, env.db.Conn(), env.portfolioID, "AAPL")
	require.NoError(t, err)
	assert.True(t, holding.Quantity.Equal(decimal.NewFromInt(5)))

	history, err := env.trades.GetHistory(ctx, env.portfolioID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, SideSell, history[0].Side)
}

func TestSellEntirePositionDeletesHolding(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(3))
	require.NoError(t, err)

	_, err = env.engine.Sell(ctx, "AAPL", decimal.NewFromInt(3))
	require.NoError(t, err)

	_, err = env.holdings.GetBySymbol(ctx, env.db.Conn(), env.portfolioID, "AAPL")
	assert.ErrorIs(t, err, portfolio.ErrHoldingNotFound)
}

func TestSellNotOwned(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.engine.Sell(context.Background(), "TSLA", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotOwned)
}

func TestSellMoreThanOwnedReportsPosition(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(2))
	require.NoError(t, err)

	_, err = env.engine.Sell(ctx, "AAPL", decimal.NewFromInt(5))

	var sharesErr *InsufficientSharesError
	require.ErrorAs(t, err, &sharesErr)
	assert.True(t, sharesErr.Owned.Equal(decimal.NewFromInt(2)))
	assert.Contains(t, err.Error(), "own 2")

	// The failed sell left the position alone.
	holding, err := env.holdings.GetBySymbol(ctx, env.db.Conn(), env.portfolioID, "AAPL")
	require.NoError(t, err)
	assert.True(t, holding.Quantity.Equal(decimal.NewFromInt(2)))
}

func TestSellFractionalBlockedByDefault(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(5))
	require.NoError(t, err)

	_, err = env.engine.Sell(ctx, "AAPL", decimal.RequireFromString("1.5"))
	assert.ErrorIs(t, err, ErrWholeSharesOnly)
}

func TestSellFractionalAllowedWhenEnabled(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(5))
	require.NoError(t, err)

	receipt, err := env.engine.Sell(ctx, "AAPL", decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.True(t, receipt.HoldingQuantity.Equal(decimal.RequireFromString("3.5")))
}

func TestHistoryIncludesInstrumentNames(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = env.engine.Buy(ctx, "TSLA", decimal.NewFromInt(1))
	require.NoError(t, err)

	entries, err := env.engine.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "TSLA Inc.", entries[0].Name)
	assert.Equal(t, "AAPL Inc.", entries[1].Name)
}

func TestHistoryLimit(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	entries, err := env.engine.History(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestBuyNormalizesSymbol(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	receipt, err := env.engine.Buy(ctx, "aapl", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", receipt.Symbol)

	// The holding and ledger row carry the canonical symbol, not the
	// caller's spelling.
	holding, err := env.holdings.GetBySymbol(ctx, env.db.Conn(), env.portfolioID, "AAPL")
	require.NoError(t, err)
	assert.True(t, holding.Quantity.Equal(decimal.NewFromInt(10)))

	history, err := env.trades.GetHistory(ctx, env.portfolioID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "AAPL", history[0].Symbol)
}

func TestSellNormalizesSymbol(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(10))
	require.NoError(t, err)

	receipt, err := env.engine.Sell(ctx, " aapl ", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", receipt.Symbol)
	assert.True(t, receipt.HoldingQuantity.Equal(decimal.NewFromInt(5)))
}

func TestConcurrentBuysBothCommit(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.Buy(ctx, "AAPL", decimal.NewFromInt(1))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.True(t, env.cash(t).Equal(decimal.NewFromInt(9800)), "cash was %s", env.cash(t))

	history, err := env.trades.GetHistory(ctx, env.portfolioID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
