package store

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS receipt_kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres stores keys in the receipt_kv table. Update locks the row, so
// sequencers in different processes never issue the same number.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the table exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	s := NewPostgresFromPool(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresFromPool wraps an existing pool. The caller owns the pool.
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the receipt_kv table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "ensure receipt_kv")
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM receipt_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "get key")
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	const query = `
INSERT INTO receipt_kv (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := p.pool.Exec(ctx, query, key, value); err != nil {
		return errors.Wrap(err, "set key")
	}
	return nil
}

// Update runs fn while holding a row lock on key.
func (p *Postgres) Update(ctx context.Context, key string, fn func(value string, ok bool) (string, error)) error {
	return withTx(ctx, p.pool, func(tx pgx.Tx) error {
		var value string
		ok := true
		err := tx.QueryRow(ctx, `SELECT value FROM receipt_kv WHERE key = $1 FOR UPDATE`, key).Scan(&value)
		if errors.Is(err, pgx.ErrNoRows) {
			// Insert a placeholder so a concurrent first writer blocks on the row too.
			if _, err := tx.Exec(ctx, `INSERT INTO receipt_kv (key, value) VALUES ($1, '') ON CONFLICT (key) DO NOTHING`, key); err != nil {
				return errors.Wrap(err, "insert placeholder")
			}
			err = tx.QueryRow(ctx, `SELECT value FROM receipt_kv WHERE key = $1 FOR UPDATE`, key).Scan(&value)
			ok = value != ""
		}
		if err != nil {
			return errors.Wrap(err, "lock key")
		}

		next, err := fn(value, ok)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE receipt_kv SET value = $2, updated_at = NOW() WHERE key = $1`, key, next); err != nil {
			return errors.Wrap(err, "update key")
		}
		return nil
	})
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
