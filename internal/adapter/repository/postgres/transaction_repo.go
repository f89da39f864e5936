package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/simaogato/lotwise-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

const selectColumns = `
	SELECT id, source, type,
		transaction_amount_fiat, transaction_amount_fiat_unit,
		fee, fee_unit,
		asset_amount, asset_unit,
		asset_value_fiat, asset_value_fiat_unit,
		occurred_at, address, notes, filed_with_irs
	FROM transactions
`

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)

	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}

	return tx, nil
}

// List retrieves transactions matching the filter, oldest first
// Empty filter fields are passed as NULL so each predicate short-circuits
func (r *transactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	query := selectColumns + `
		WHERE ($1::text[] IS NULL OR type = ANY($1))
		  AND ($2::text[] IS NULL OR asset_unit = ANY($2))
		  AND ($3::timestamptz IS NULL OR occurred_at >= $3)
		  AND ($4::timestamptz IS NULL OR occurred_at < $4)
		ORDER BY occurred_at ASC, id ASC
	`

	var types, assets []string
	for _, t := range filter.Types {
		types = append(types, string(t))
	}
	for _, a := range filter.Assets {
		assets = append(assets, domain.NormalizeUnit(a))
	}

	rows, err := r.db.QueryContext(ctx, query,
		pq.Array(types),
		pq.Array(assets),
		boundArg(filter.StartDate),
		boundArg(filter.EndDate),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// Update persists every column of the transaction
func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions SET
			source = $2, type = $3,
			transaction_amount_fiat = $4, transaction_amount_fiat_unit = $5,
			fee = $6, fee_unit = $7,
			asset_amount = $8, asset_unit = $9,
			asset_value_fiat = $10, asset_value_fiat_unit = $11,
			occurred_at = $12, address = $13, notes = $14, filed_with_irs = $15
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, transactionArgs(tx)...)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, domain.ErrTransactionNotFound)
	}

	return nil
}

// Create creates a new transaction
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, source, type,
			transaction_amount_fiat, transaction_amount_fiat_unit,
			fee, fee_unit,
			asset_amount, asset_unit,
			asset_value_fiat, asset_value_fiat_unit,
			occurred_at, address, notes, filed_with_irs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	if _, err := r.db.ExecContext(ctx, query, transactionArgs(tx)...); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// transactionArgs flattens a transaction into the column order used by Create and Update
// storedTime is t at the microsecond precision TIMESTAMPTZ keeps.
// Postgres rounds to the nearest microsecond, which could move a lot past its sell.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// boundArg rounds a filter bound up to the next stored microsecond, so
// "occurred_at >= start" and "occurred_at < end" select the same rows as the
// nanosecond bound would.
func boundArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	bound := storedTime(*t)
	if bound.Before(*t) {
		bound = bound.Add(time.Microsecond)
	}
	return bound
}

func transactionArgs(tx *domain.Transaction) []interface{} {
	return []interface{}{
		tx.ID,
		tx.Source,
		string(tx.Type),
		tx.TransactionAmountFiat.Amount.String(), domain.NormalizeUnit(tx.TransactionAmountFiat.Unit),
		tx.Fee.Amount.String(), domain.NormalizeUnit(tx.Fee.Unit),
		tx.AssetAmount.Amount.String(), domain.NormalizeUnit(tx.AssetAmount.Unit),
		tx.AssetValueFiat.Amount.String(), domain.NormalizeUnit(tx.AssetValueFiat.Unit),
		storedTime(tx.Timestamp),
		tx.Address,
		tx.Notes,
		tx.FiledWithIRS,
	}
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var txType string
	var fiatStr, feeStr, assetStr, valueStr string
	var fiatUnit, feeUnit, assetUnit, valueUnit string

	err := s.Scan(
		&tx.ID,
		&tx.Source,
		&txType,
		&fiatStr, &fiatUnit,
		&feeStr, &feeUnit,
		&assetStr, &assetUnit,
		&valueStr, &valueUnit,
		&tx.Timestamp,
		&tx.Address,
		&tx.Notes,
		&tx.FiledWithIRS,
	)
	if err != nil {
		return nil, err
	}

	tx.Type = domain.TransactionType(txType)
	tx.Timestamp = tx.Timestamp.UTC()

	// Parse NUMERIC columns (DECIMAL)
	amounts := []struct {
		raw    string
		unit   string
		target *domain.MonetaryValue
		column string
	}{
		{fiatStr, fiatUnit, &tx.TransactionAmountFiat, "transaction_amount_fiat"},
		{feeStr, feeUnit, &tx.Fee, "fee"},
		{assetStr, assetUnit, &tx.AssetAmount, "asset_amount"},
		{valueStr, valueUnit, &tx.AssetValueFiat, "asset_value_fiat"},
	}
	for _, a := range amounts {
		amount, err := decimal.NewFromString(a.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", a.column, err)
		}
		*a.target = domain.NewMonetaryValue(amount, a.unit)
	}

	return &tx, nil
}
