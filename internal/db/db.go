package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// RunMigrations creates the warikan tables if they do not exist yet.
func (db *DB) RunMigrations(ctx context.Context) error {
	// claims.line_item_id has no foreign key: a claim survives deletion of its item
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS warikan_line_items (
			id BIGSERIAL PRIMARY KEY,
			group_id TEXT NOT NULL,
			name TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL CHECK (quantity >= 0),
			unit_price DOUBLE PRECISION NOT NULL CHECK (unit_price >= 0),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_warikan_line_items_group_id ON warikan_line_items(group_id);

		CREATE TABLE IF NOT EXISTS warikan_claims (
			id BIGSERIAL PRIMARY KEY,
			group_id TEXT NOT NULL,
			participant_id TEXT NOT NULL,
			line_item_id BIGINT,
			name TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL CHECK (kind IN ('manual', 'even')),
			quantity DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			unit_price DOUBLE PRECISION NOT NULL CHECK (unit_price >= 0),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_warikan_claims_group_participant ON warikan_claims(group_id, participant_id);

		CREATE TABLE IF NOT EXISTS warikan_payments (
			id BIGSERIAL PRIMARY KEY,
			group_id TEXT NOT NULL,
			participant_id TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL CHECK (amount >= 0),
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_warikan_payments_group_id ON warikan_payments(group_id);
	`)
	return err
}
