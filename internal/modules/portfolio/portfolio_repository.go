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

// ErrPortfolioNotFound is returned for an unknown portfolio ID.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// PortfolioRepository handles portfolio database operations
type PortfolioRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Get returns one portfolio by ID
func (r *PortfolioRepository) Get(ctx context.Context, id int64) (*Portfolio, error) {
	query := `SELECT id, cash_balance, created_at, updated_at FROM portfolios WHERE id = ?`

	var (
		p         Portfolio
		cash      string
		createdAt string
		updatedAt string
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &cash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	p.CashBalance, err = decimal.NewFromString(cash)
	if err != nil {
		return nil, fmt.Errorf("invalid stored cash balance %q: %w", cash, err)
	}

	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = ts
	}

	return &p, nil
}

// EnsureDefault creates the portfolio row on first startup and returns its
// ID. Subsequent calls return the existing first portfolio untouched.
func (r *PortfolioRepository) EnsureDefault(ctx context.Context, initialCash decimal.Decimal) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM portfolios ORDER BY id ASC LIMIT 1`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up default portfolio: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolios (cash_balance, created_at, updated_at) VALUES (?, ?, ?)`,
		initialCash.Round(2).String(), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create default portfolio: %w", err)
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read portfolio id: %w", err)
	}

	r.log.Info().Int64("portfolio_id", id).Str("cash", initialCash.String()).Msg("Created default portfolio")
	return id, nil
}

// GetCashBalance reads the cash balance, optionally inside a transaction.
// The trade engine calls this on its own tx so the funds check and the debit
// see the same balance.
func (r *PortfolioRepository) GetCashBalance(ctx context.Context, q database.DBTX, id int64) (decimal.Decimal, error) {
	var cash string
	err := q.QueryRowContext(ctx, `SELECT cash_balance FROM portfolios WHERE id = ?`, id).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrPortfolioNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get cash balance: %w", err)
	}

	balance, err := decimal.NewFromString(cash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored cash balance %q: %w", cash, err)
	}

	return balance, nil
}

// SetCashBalance writes a new cash balance, optionally inside a transaction
func (r *PortfolioRepository) SetCashBalance(ctx context.Context, q database.DBTX, id int64, balance decimal.Decimal) error {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := q.ExecContext(ctx,
		`UPDATE portfolios SET cash_balance = ?, updated_at = ? WHERE id = ?`,
		balance.Round(2).String(), now, id)
	if err != nil {
		return fmt.Errorf("failed to set cash balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPortfolioNotFound
	}

	return nil
}
