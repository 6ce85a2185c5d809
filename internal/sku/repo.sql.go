package sku

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the counter in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// The counter lives in a single row; the upsert makes increment-and-read atomic.
const counterRowID = 1

// Increment bumps the counter exactly once and returns the resulting state.
// A missing row is created at value 1 with the supplied prefix.
func (r *Repository) Increment(ctx context.Context, defaultPrefix string) (Counter, error) {
	if r == nil {
		return Counter{}, errors.New("sku repository not initialised")
	}
	var counter Counter
	err := r.pool.QueryRow(ctx, `INSERT INTO sku_counters (id, prefix, value)
VALUES ($1, $2, 1)
ON CONFLICT (id) DO UPDATE SET value = sku_counters.value + 1
RETURNING prefix, value`, counterRowID, defaultPrefix).Scan(&counter.Prefix, &counter.Value)
	if err != nil {
		return Counter{}, err
	}
	return counter, nil
}

// Get returns the current counter without incrementing it.
func (r *Repository) Get(ctx context.Context) (Counter, error) {
	if r == nil {
		return Counter{}, errors.New("sku repository not initialised")
	}
	var counter Counter
	err := r.pool.QueryRow(ctx, `SELECT prefix, value FROM sku_counters WHERE id=$1`, counterRowID).
		Scan(&counter.Prefix, &counter.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Counter{}, nil
		}
		return Counter{}, err
	}
	return counter, nil
}

// SetPrefix changes formatting for future SKUs; the value is untouched.
func (r *Repository) SetPrefix(ctx context.Context, prefix string) error {
	if r == nil {
		return errors.New("sku repository not initialised")
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO sku_counters (id, prefix, value)
VALUES ($1, $2, 0)
ON CONFLICT (id) DO UPDATE SET prefix = EXCLUDED.prefix`, counterRowID, prefix)
	return err
}
