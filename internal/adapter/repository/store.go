package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simaogato/lotwise-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/lotwise-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/lotwise-backend/internal/config"
	"github.com/simaogato/lotwise-backend/internal/domain"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// database is what both SQL backends expose
type database interface {
	Migrate(ctx context.Context) error
	Close() error
}

// Store is an opened and migrated transaction store
type Store struct {
	Transactions domain.TransactionRepository
	Driver       string

	db database
}

// Open connects to the backend selected by cfg.DBDriver and migrates its schema.
// Postgres connections are retried a few times since the database often starts
// alongside the server.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	store := &Store{Driver: cfg.DBDriver}

	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.NewDB(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store.db = db
		store.Transactions = sqlite.NewTransactionRepository(db)

	case config.DriverPostgres:
		db, err := connectPostgres(ctx, cfg.DBConnStr, logger)
		if err != nil {
			return nil, err
		}
		store.db = db
		store.Transactions = postgres.NewTransactionRepository(db)

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if err := store.db.Migrate(ctx); err != nil {
		store.db.Close()
		return nil, err
	}

	logger.Info("Transaction store ready", "driver", cfg.DBDriver)
	return store, nil
}

func connectPostgres(ctx context.Context, connStr string, logger *slog.Logger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := postgres.NewDB(connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err

		logger.Warn("Database not ready, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, lastErr)
}

// Close closes the underlying connection
func (s *Store) Close() error {
	return s.db.Close()
}
