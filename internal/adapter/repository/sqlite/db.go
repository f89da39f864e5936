package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// DB wraps the SQLite connection
type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the SQLite file at path
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id                           TEXT PRIMARY KEY,
		source                       TEXT NOT NULL DEFAULT '',
		type                         TEXT NOT NULL,
		transaction_amount_fiat      TEXT NOT NULL,
		transaction_amount_fiat_unit TEXT NOT NULL,
		fee                          TEXT NOT NULL DEFAULT '0',
		fee_unit                     TEXT NOT NULL DEFAULT '',
		asset_amount                 TEXT NOT NULL,
		asset_unit                   TEXT NOT NULL,
		asset_value_fiat             TEXT NOT NULL DEFAULT '0',
		asset_value_fiat_unit        TEXT NOT NULL DEFAULT '',
		occurred_at                  TEXT NOT NULL,
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
