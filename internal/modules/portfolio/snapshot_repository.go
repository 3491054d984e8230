package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SnapshotRepository handles daily value snapshot database operations
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Record stores a snapshot for one date. The first value recorded for a date
// wins; later writes for the same date are ignored. Returns whether a row was
// actually inserted.
func (r *SnapshotRepository) Record(ctx context.Context, portfolioID int64, date string, totalValue decimal.Decimal) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO snapshots (portfolio_id, date, total_value, created_at) VALUES (?, ?, ?, ?)`,
		portfolioID, date, totalValue.Round(2).String(), now)
	if err != nil {
		return false, fmt.Errorf("failed to record snapshot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// GetAll returns all snapshots of a portfolio in date order
func (r *SnapshotRepository) GetAll(ctx context.Context, portfolioID int64) ([]Snapshot, error) {
	query := `SELECT id, portfolio_id, date, total_value, created_at
	          FROM snapshots WHERE portfolio_id = ? ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var (
			s          Snapshot
			totalValue string
			createdAt  string
		)
		if err := rows.Scan(&s.ID, &s.PortfolioID, &s.Date, &totalValue, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		s.TotalValue, err = decimal.NewFromString(totalValue)
		if err != nil {
			return nil, fmt.Errorf("invalid stored snapshot value %q: %w", totalValue, err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			s.CreatedAt = ts
		}

		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// GetLatest returns the most recent snapshot or nil when none exist
func (r *SnapshotRepository) GetLatest(ctx context.Context, portfolioID int64) (*Snapshot, error) {
	query := `SELECT id, portfolio_id, date, total_value, created_at
	          FROM snapshots WHERE portfolio_id = ? ORDER BY date DESC LIMIT 1`

	var (
		s          Snapshot
		totalValue string
		createdAt  string
	)

	err := r.db.QueryRowContext(ctx, query, portfolioID).Scan(&s.ID, &s.PortfolioID, &s.Date, &totalValue, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	s.TotalValue, err = decimal.NewFromString(totalValue)
	if err != nil {
		return nil, fmt.Errorf("invalid stored snapshot value %q: %w", totalValue, err)
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		s.CreatedAt = ts
	}

	return &s, nil
}
