package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/database"
)

// ErrHoldingNotFound is returned when a holding row does not exist.
var ErrHoldingNotFound = errors.New("holding not found")

const holdingColumns = `id, portfolio_id, symbol, quantity, first_bought_at, updated_at`

// HoldingRepository handles holding database operations
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// GetAll returns all holdings of a portfolio ordered by symbol
func (r *HoldingRepository) GetAll(ctx context.Context, portfolioID int64) ([]Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE portfolio_id = ? ORDER BY symbol ASC`

	rows, err := r.db.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}

	return holdings, rows.Err()
}

// GetBySymbol returns the holding for one symbol, optionally inside a
// transaction. Returns ErrHoldingNotFound when the position does not exist.
func (r *HoldingRepository) GetBySymbol(ctx context.Context, q database.DBTX, portfolioID int64, symbol string) (*Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE portfolio_id = ? AND symbol = ?`

	row := q.QueryRowContext(ctx, query, portfolioID, symbol)
	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHoldingNotFound
	}
	if err != nil {
		return nil, err
	}

	return h, nil
}

// Create inserts a new holding row
func (r *HoldingRepository) Create(ctx context.Context, q database.DBTX, portfolioID int64, symbol string, quantity decimal.Decimal) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := q.ExecContext(ctx,
		`INSERT INTO holdings (portfolio_id, symbol, quantity, first_bought_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		portfolioID, symbol, quantity.Round(4).String(), now, now)
	if err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}

	return nil
}

// SetQuantity updates the quantity of an existing holding
func (r *HoldingRepository) SetQuantity(ctx context.Context, q database.DBTX, portfolioID int64, symbol string, quantity decimal.Decimal) error {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := q.ExecContext(ctx,
		`UPDATE holdings SET quantity = ?, updated_at = ? WHERE portfolio_id = ? AND symbol = ?`,
		quantity.Round(4).String(), now, portfolioID, symbol)
	if err != nil {
		return fmt.Errorf("failed to update holding quantity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrHoldingNotFound
	}

	return nil
}

// Delete removes one holding row. Used when a sell closes a position.
func (r *HoldingRepository) Delete(ctx context.Context, q database.DBTX, portfolioID int64, symbol string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM holdings WHERE portfolio_id = ? AND symbol = ?`,
		portfolioID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	return nil
}

// DeleteAll removes all holdings of a portfolio. Used by reset.
func (r *HoldingRepository) DeleteAll(ctx context.Context, q database.DBTX, portfolioID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM holdings WHERE portfolio_id = ?`, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to delete holdings: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(row scanner) (*Holding, error) {
	var (
		h             Holding
		quantity      string
		firstBoughtAt string
		updatedAt     string
	)

	err := row.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &quantity, &firstBoughtAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	h.Quantity, err = decimal.NewFromString(quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid stored quantity %q: %w", quantity, err)
	}

	if ts, err := time.Parse(time.RFC3339, firstBoughtAt); err == nil {
		h.FirstBoughtAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		h.UpdatedAt = ts
	}

	return &h, nil
}
