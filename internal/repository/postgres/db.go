package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// DB is a connection pool that caps the number of concurrent operations.
type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB opens and pings a Postgres connection pool.
func NewDB(cfg config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return Wrap(db, cfg.MaxConcurrent), nil
}

// Wrap adapts an existing sqlx handle. maxConcurrent below 1 means 1.
func Wrap(db *sqlx.DB, maxConcurrent int64) *DB {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &DB{DB: db, sem: semaphore.NewWeighted(maxConcurrent)}
}

func (db *DB) acquire(ctx context.Context) (func(), error) {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("could not acquire semaphore: %w", err)
	}
	return func() { db.sem.Release(1) }, nil
}

// WithTx executes fn within a transaction.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	release, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// EnsureSchema creates the sales and stock tables when missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range SchemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}

// SchemaStatements create the tables read by the repositories.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sale_events (
		id           BIGSERIAL PRIMARY KEY,
		store_id     TEXT NOT NULL,
		sale_date    DATE NOT NULL,
		product_id   TEXT NOT NULL,
		product_name TEXT,
		category     TEXT,
		quantity     INTEGER NOT NULL CHECK (quantity >= 0),
		unit_price   NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
		discount     NUMERIC(5,4) NOT NULL DEFAULT 0 CHECK (discount BETWEEN 0 AND 1),
		revenue      NUMERIC(14,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_events_store_date ON sale_events (store_id, sale_date)`,
	`CREATE TABLE IF NOT EXISTS stock_snapshots (
		store_id       TEXT NOT NULL,
		snapshot_date  DATE NOT NULL,
		product_id     TEXT NOT NULL,
		name           TEXT NOT NULL DEFAULT '',
		category       TEXT,
		supplier       TEXT,
		current_stock  INTEGER NOT NULL CHECK (current_stock >= 0),
		min_required   INTEGER NOT NULL DEFAULT 0 CHECK (min_required >= 0),
		lead_time_days INTEGER NOT NULL DEFAULT 0 CHECK (lead_time_days >= 0),
		price          NUMERIC(12,2) NOT NULL DEFAULT 0,
		PRIMARY KEY (store_id, snapshot_date, product_id)
	)`,
}
