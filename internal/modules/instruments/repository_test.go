package instruments

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paper-trader/internal/database"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.GetOrCreate(ctx, "AAPL", "Apple")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.GetOrCreate(ctx, "AAPL", "Apple Computer")
	require.NoError(t, err)
	assert.False(t, created)

	// First write wins for the name too.
	inst, err := repo.GetBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple", inst.Name)
}

func TestGetBySymbolNormalizesInput(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "aapl ", "Apple")
	require.NoError(t, err)

	inst, err := repo.GetBySymbol(ctx, " aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", inst.Symbol)
}

func TestGetBySymbolNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetBySymbol(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePrice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "AAPL", "Apple")
	require.NoError(t, err)

	inst, err := repo.GetBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, inst.CurrentPrice.Valid)

	err = repo.UpdatePrice(ctx, "AAPL", decimal.RequireFromString("187.345"))
	require.NoError(t, err)

	inst, err = repo.GetBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, inst.CurrentPrice.Valid)
	assert.True(t, inst.CurrentPrice.Decimal.Equal(decimal.RequireFromString("187.35")))
	assert.NotNil(t, inst.PriceUpdatedAt)
}

func TestUpdatePriceUnknownSymbol(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdatePrice(context.Background(), "NOPE", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAllOrdersBySymbol(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, seed := range DefaultSeed {
		_, err := repo.GetOrCreate(ctx, seed.Symbol, seed.Name)
		require.NoError(t, err)
	}

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "AAPL", all[0].Symbol)
	assert.Equal(t, "MSFT", all[1].Symbol)
	assert.Equal(t, "TSLA", all[2].Symbol)
}
