package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=lotwise sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id                           UUID PRIMARY KEY,
		source                       TEXT NOT NULL DEFAULT '',
		type                         TEXT NOT NULL,
		transaction_amount_fiat      NUMERIC NOT NULL,
		transaction_amount_fiat_unit TEXT NOT NULL,
		fee                          NUMERIC NOT NULL DEFAULT 0,
		fee_unit                     TEXT NOT NULL DEFAULT '',
		asset_amount                 NUMERIC NOT NULL,
		asset_unit                   TEXT NOT NULL,
		asset_value_fiat             NUMERIC NOT NULL DEFAULT 0,
		asset_value_fiat_unit        TEXT NOT NULL DEFAULT '',
		occurred_at                  TIMESTAMPTZ NOT NULL,
		address                      TEXT NOT NULL DEFAULT '',
		notes                        TEXT NOT NULL DEFAULT '',
		filed_with_irs               BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_candidates
		ON transactions (type, asset_unit, occurred_at);
`

// Migrate creates the transactions table if it does not exist
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
