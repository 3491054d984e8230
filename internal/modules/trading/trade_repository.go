package trading

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paper-trader/internal/database"
)

// TradeRepository appends to and reads from the trade ledger. Ledger rows
// are never updated.
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "trades").Logger(),
	}
}

// Create appends one trade to the ledger inside the caller's transaction and
// fills in the generated order ID and timestamps.
func (r *TradeRepository) Create(ctx context.Context, q database.DBTX, trade *Trade) error {
	if err := trade.Validate(); err != nil {
		return err
	}

	trade.OrderID = uuid.New().String()
	now := time.Now().UTC()
	trade.ExecutedAt = now
	trade.CreatedAt = now

	res, err := q.ExecContext(ctx,
		`INSERT INTO trades (portfolio_id, symbol, side, quantity, price, order_id, executed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.PortfolioID, trade.Symbol, string(trade.Side),
		trade.Quantity.Round(4).String(), trade.Price.Round(2).String(),
		trade.OrderID, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}

	trade.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read trade id: %w", err)
	}

	return nil
}

// GetHistory returns the most recent trades first. A limit of zero or less
// returns the whole ledger.
func (r *TradeRepository) GetHistory(ctx context.Context, portfolioID int64, limit int) ([]Trade, error) {
	query := `SELECT id, portfolio_id, symbol, side, quantity, price, order_id, executed_at, created_at
	          FROM trades WHERE portfolio_id = ? ORDER BY executed_at DESC, id DESC`
	args := []interface{}{portfolioID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var (
			t          Trade
			side       string
			quantity   string
			price      string
			executedAt string
			createdAt  string
		)
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.Symbol, &side, &quantity, &price, &t.OrderID, &executedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		t.Side = TradeSide(side)
		t.Quantity, err = decimal.NewFromString(quantity)
		if err != nil {
			return nil, fmt.Errorf("invalid stored quantity %q: %w", quantity, err)
		}
		t.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
		}
		if ts, err := time.Parse(time.RFC3339, executedAt); err == nil {
			t.ExecutedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			t.CreatedAt = ts
		}

		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// DeleteAll wipes the ledger of a portfolio. Only the reset flow calls this.
func (r *TradeRepository) DeleteAll(ctx context.Context, q database.DBTX, portfolioID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM trades WHERE portfolio_id = ?`, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to delete trades: %w", err)
	}
	return nil
}
