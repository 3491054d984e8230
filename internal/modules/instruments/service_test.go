package instruments

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paper-trader/internal/clients/yahoo"
	"github.com/aristath/paper-trader/internal/database"
)

type mockQuotes struct {
	prices  map[string]decimal.Decimal
	history []yahoo.DailyClose
	err     error
}

func (m *mockQuotes) GetQuote(symbol string) (*yahoo.Quote, error) {
	if m.err != nil {
		return nil, m.err
	}
	price, ok := m.prices[symbol]
	if !ok {
		return nil, &yahoo.ProviderError{Symbol: symbol, Op: "quote", Err: errors.New("no data")}
	}
	return &yahoo.Quote{Symbol: symbol, CurrentPrice: price}, nil
}

func (m *mockQuotes) GetHistory(symbol, period string) ([]yahoo.DailyClose, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

func newTestService(t *testing.T, quotes *mockQuotes) (*Service, *Repository) {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db.Conn(), zerolog.Nop())
	return NewService(repo, quotes, zerolog.Nop()), repo
}

func TestRefreshPricePersistsCache(t *testing.T) {
	quotes := &mockQuotes{prices: map[string]decimal.Decimal{"AAPL": decimal.RequireFromString("187.34")}}
	svc, repo := newTestService(t, quotes)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "AAPL", "Apple")
	require.NoError(t, err)

	quote, err := svc.RefreshPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, quote.CurrentPrice.Equal(decimal.RequireFromString("187.34")))

	inst, err := repo.GetBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, inst.CurrentPrice.Valid)
	assert.True(t, inst.CurrentPrice.Decimal.Equal(decimal.RequireFromString("187.34")))
}

func TestRefreshAllPricesSkipsFailures(t *testing.T) {
	quotes := &mockQuotes{prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(100),
		"MSFT": decimal.NewFromInt(400),
	}}
	svc, repo := newTestService(t, quotes)
	ctx := context.Background()

	for _, seed := range DefaultSeed {
		_, err := repo.GetOrCreate(ctx, seed.Symbol, seed.Name)
		require.NoError(t, err)
	}

	// TSLA has no quote; the other two still refresh.
	refreshed, err := svc.RefreshAllPrices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed)

	inst, err := repo.GetBySymbol(ctx, "TSLA")
	require.NoError(t, err)
	assert.False(t, inst.CurrentPrice.Valid)
}

func TestHistoryUnknownSymbol(t *testing.T) {
	svc, _ := newTestService(t, &mockQuotes{})

	_, err := svc.History(context.Background(), "NOPE", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryBuildsMovingAverage(t *testing.T) {
	closes := make([]yahoo.DailyClose, 0, 25)
	for i := 0; i < 25; i++ {
		closes = append(closes, yahoo.DailyClose{
			Date:  "2026-08-01",
			Close: decimal.NewFromInt(int64(100 + i)),
		})
	}
	quotes := &mockQuotes{history: closes}
	svc, repo := newTestService(t, quotes)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "AAPL", "Apple")
	require.NoError(t, err)

	history, err := svc.History(ctx, "AAPL", "")
	require.NoError(t, err)

	assert.Equal(t, yahoo.DefaultHistoryPeriod, history.Period)
	assert.Len(t, history.Closes, 25)
	require.Len(t, history.SMA20, 25)
	assert.Nil(t, history.SMA20[18])
	assert.NotNil(t, history.SMA20[19])
	assert.NotNil(t, history.SMA20[24])
}

func TestSeedCreatesMissingOnly(t *testing.T) {
	svc, repo := newTestService(t, &mockQuotes{})
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, DefaultSeed))
	require.NoError(t, svc.Seed(ctx, DefaultSeed))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
