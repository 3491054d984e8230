package instruments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a symbol does not exist in the universe.
var ErrNotFound = errors.New("instrument not found")

// instrumentColumns is the list of columns for the instruments table.
// Used to avoid SELECT * which can break when the schema changes.
const instrumentColumns = `symbol, name, current_price, price_updated_at, created_at, updated_at`

// Repository handles instrument database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new instrument repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "instruments").Logger(),
	}
}

// GetAll returns all instruments ordered by symbol
func (r *Repository) GetAll(ctx context.Context) ([]Instrument, error) {
	query := "SELECT " + instrumentColumns + " FROM instruments ORDER BY symbol ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	var result []Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		result = append(result, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instruments: %w", err)
	}

	return result, nil
}

// GetBySymbol returns one instrument, or ErrNotFound
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*Instrument, error) {
	query := "SELECT " + instrumentColumns + " FROM instruments WHERE symbol = ?"

	rows, err := r.db.QueryContext(ctx, query, normalize(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to query instrument: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query instrument: %w", err)
		}
		return nil, ErrNotFound
	}

	inst, err := scanInstrument(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan instrument: %w", err)
	}

	return &inst, nil
}

// GetOrCreate inserts an instrument if the symbol is new.
// Returns true when a row was created.
func (r *Repository) GetOrCreate(ctx context.Context, symbol, name string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO instruments (symbol, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query, normalize(symbol), name, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to create instrument: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// UpdatePrice refreshes the cached price for a symbol.
// The cache is deliberately non-transactional: a trade that later fails
// validation still leaves the fresher price behind.
func (r *Repository) UpdatePrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		UPDATE instruments
		SET current_price = ?, price_updated_at = ?, updated_at = ?
		WHERE symbol = ?
	`

	res, err := r.db.ExecContext(ctx, query, price.Round(2).String(), now, now, normalize(symbol))
	if err != nil {
		return fmt.Errorf("failed to update cached price: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInstrument(s scanner) (Instrument, error) {
	var (
		inst           Instrument
		price          sql.NullString
		priceUpdatedAt sql.NullString
		createdAt      string
		updatedAt      string
	)

	if err := s.Scan(&inst.Symbol, &inst.Name, &price, &priceUpdatedAt, &createdAt, &updatedAt); err != nil {
		return Instrument{}, err
	}

	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			return Instrument{}, fmt.Errorf("invalid stored price %q: %w", price.String, err)
		}
		inst.CurrentPrice = decimal.NewNullDecimal(d)
	}

	if priceUpdatedAt.Valid {
		if ts, err := time.Parse(time.RFC3339, priceUpdatedAt.String); err == nil {
			inst.PriceUpdatedAt = &ts
		}
	}

	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		inst.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		inst.UpdatedAt = ts
	}

	return inst, nil
}
