package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/potdraw/potdraw/internal/settlement"
)

// schema is applied on startup. Settlements are append-only; the only write
// after insert is the retention delete.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    identity     TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    last_seen    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS settlements (
    id           UUID PRIMARY KEY,
    tier         TEXT NOT NULL,
    round        BIGINT NOT NULL,
    participants TEXT[] NOT NULL,
    winner       TEXT NOT NULL,
    prize_atoms  BIGINT NOT NULL,
    receipt      TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    expires_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS settlements_expires_at_idx ON settlements (expires_at);
`

// Postgres backs the store with a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool. Callers own the pool's lifecycle.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens a pool for the given DSN, verifies connectivity, and applies
// the schema.
func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	pg := NewPostgres(pool)
	if err := pg.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pg, nil
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Upsert implements Accounts.
func (p *Postgres) Upsert(ctx context.Context, identity, displayName string, seenAt time.Time) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO accounts (identity, display_name, last_seen)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity)
		DO UPDATE SET display_name = EXCLUDED.display_name, last_seen = EXCLUDED.last_seen`,
		identity, displayName, seenAt)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", identity, err)
	}
	return nil
}

// Record implements settlement.Recorder.
func (p *Postgres) Record(ctx context.Context, rec settlement.Record) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO settlements (id, tier, round, participants, winner, prize_atoms, receipt, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Tier, rec.Round, rec.Participants, rec.Winner,
		int64(rec.Prize), rec.Receipt, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert settlement for tier %s round %d: %w", rec.Tier, rec.Round, err)
	}
	return nil
}

// DeleteExpired implements Settlements.
func (p *Postgres) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM settlements WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired settlements: %w", err)
	}
	return tag.RowsAffected(), nil
}
