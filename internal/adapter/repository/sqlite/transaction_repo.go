package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/lotwise-backend/internal/domain"
)

// timeLayout is fixed width and always UTC, so text order equals time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

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
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id.String())

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
func (r *transactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var where []string
	var args []interface{}

	if len(filter.Types) > 0 {
		where = append(where, "type IN ("+placeholders(len(filter.Types))+")")
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if len(filter.Assets) > 0 {
		where = append(where, "asset_unit IN ("+placeholders(len(filter.Assets))+")")
		for _, a := range filter.Assets {
			args = append(args, domain.NormalizeUnit(a))
		}
	}
	if filter.StartDate != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, formatTime(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "occurred_at < ?")
		args = append(args, formatTime(*filter.EndDate))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
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
			source = ?, type = ?,
			transaction_amount_fiat = ?, transaction_amount_fiat_unit = ?,
			fee = ?, fee_unit = ?,
			asset_amount = ?, asset_unit = ?,
			asset_value_fiat = ?, asset_value_fiat_unit = ?,
			occurred_at = ?, address = ?, notes = ?, filed_with_irs = ?
		WHERE id = ?
	`

	args := transactionArgs(tx)
	args = append(args[1:], args[0])

	result, err := r.db.ExecContext(ctx, query, args...)
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, transactionArgs(tx)...); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// transactionArgs flattens a transaction into column order, id first
func transactionArgs(tx *domain.Transaction) []interface{} {
	return []interface{}{
		tx.ID.String(),
		tx.Source,
		string(tx.Type),
		tx.TransactionAmountFiat.Amount.String(), domain.NormalizeUnit(tx.TransactionAmountFiat.Unit),
		tx.Fee.Amount.String(), domain.NormalizeUnit(tx.Fee.Unit),
		tx.AssetAmount.Amount.String(), domain.NormalizeUnit(tx.AssetAmount.Unit),
		tx.AssetValueFiat.Amount.String(), domain.NormalizeUnit(tx.AssetValueFiat.Unit),
		formatTime(tx.Timestamp),
		tx.Address,
		tx.Notes,
		tx.FiledWithIRS,
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var idStr, txType, occurredAt string
	var fiatStr, feeStr, assetStr, valueStr string
	var fiatUnit, feeUnit, assetUnit, valueUnit string

	err := s.Scan(
		&idStr,
		&tx.Source,
		&txType,
		&fiatStr, &fiatUnit,
		&feeStr, &feeUnit,
		&assetStr, &assetUnit,
		&valueStr, &valueUnit,
		&occurredAt,
		&tx.Address,
		&tx.Notes,
		&tx.FiledWithIRS,
	)
	if err != nil {
		return nil, err
	}

	tx.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id %q: %w", idStr, err)
	}
	tx.Type = domain.TransactionType(txType)

	tx.Timestamp, err = time.Parse(timeLayout, occurredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse occurred_at %q: %w", occurredAt, err)
	}

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
