package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of normalized transaction
type TransactionType string

const (
	TransactionTypeBuy          TransactionType = "BUY"
	TransactionTypeSell         TransactionType = "SELL"
	TransactionTypeDeposit      TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal   TransactionType = "WITHDRAWAL"
	TransactionTypeBrokerCredit TransactionType = "BROKER_CREDIT"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeBuy, TransactionTypeSell, TransactionTypeDeposit,
		TransactionTypeWithdrawal, TransactionTypeBrokerCredit:
		return true
	}
	return false
}

// Transaction represents a normalized exchange transaction in the domain layer.
// Records are produced by ingestion and are immutable here except for FiledWithIRS,
// which flips once a committed report has consumed the transaction.
type Transaction struct {
	ID                    uuid.UUID
	Source                string
	Type                  TransactionType
	TransactionAmountFiat MonetaryValue // Total fiat paid (BUY) or received (SELL), fees excluded
	Fee                   MonetaryValue // Fiat fee charged on this transaction
	AssetAmount           MonetaryValue // Quantity of the traded asset; its unit names the asset
	AssetValueFiat        MonetaryValue // Per-unit fiat price of the asset at execution
	Timestamp             time.Time
	Address               string
	Notes                 string
	FiledWithIRS          bool
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	if t.ID == uuid.Nil {
		return errors.New("transaction id cannot be empty")
	}

	if !t.Type.Valid() {
		return errors.New("transaction type must be BUY, SELL, DEPOSIT, WITHDRAWAL or BROKER_CREDIT")
	}

	if NormalizeUnit(t.AssetAmount.Unit) == "" {
		return errors.New("asset amount must have a unit")
	}

	if t.AssetAmount.Amount.IsNegative() ||
		t.TransactionAmountFiat.Amount.IsNegative() ||
		t.Fee.Amount.IsNegative() {
		return errors.New("transaction amounts must not be negative")
	}

	// Fiat fields must agree so cost basis arithmetic never mixes currencies
	if !t.TransactionAmountFiat.SameUnit(t.Fee) && !t.Fee.IsZero() {
		return errors.New("fee must be in the same currency as the transaction amount")
	}

	if t.Timestamp.IsZero() {
		return errors.New("transaction timestamp cannot be empty")
	}

	return nil
}

// Asset returns the normalized unit of the traded asset (e.g. "BTC")
func (t *Transaction) Asset() string {
	return NormalizeUnit(t.AssetAmount.Unit)
}

// CostOfAcquisition returns the total fiat spent on the lot, fee included
func (t *Transaction) CostOfAcquisition() (MonetaryValue, error) {
	if t.Fee.IsZero() {
		return NewMonetaryValue(t.TransactionAmountFiat.Amount, t.TransactionAmountFiat.Unit), nil
	}
	return t.TransactionAmountFiat.Add(t.Fee)
}

// MarkFiled returns a copy of the transaction with FiledWithIRS set
func (t *Transaction) MarkFiled() *Transaction {
	filed := *t
	filed.FiledWithIRS = true
	return &filed
}
