package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionFilter narrows a transaction listing.
// Empty slices and nil dates mean "no constraint".
type TransactionFilter struct {
	Types     []TransactionType
	Assets    []string   // Asset units, compared after NormalizeUnit
	StartDate *time.Time // Inclusive
	EndDate   *time.Time // Exclusive
}

// TransactionRepository defines the interface for transaction persistence operations
type TransactionRepository interface {
	// GetByID retrieves a transaction by its ID
	// Returns an error wrapping ErrTransactionNotFound if it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// List retrieves the transactions matching the filter, ordered by timestamp ascending
	List(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)

	// Update persists the full record
	// Returns an error wrapping ErrTransactionNotFound if it does not exist
	Update(ctx context.Context, tx *Transaction) error

	// Create creates a new transaction
	Create(ctx context.Context, tx *Transaction) error
}
