package calculator

import (
	"github.com/google/uuid"
	"github.com/simaogato/lotwise-backend/internal/domain"
)

// TransactionTracker is the per-batch lot ledger: it remembers how much of each
// buy lot the sells of one report have already consumed.
//
// A tracker is created empty for each report, shared by every sell in that
// report, and discarded afterwards. It is not safe for concurrent use.
type TransactionTracker struct {
	consumed map[uuid.UUID]domain.MonetaryValue
}

// NewTransactionTracker creates an empty ledger
func NewTransactionTracker() *TransactionTracker {
	return &TransactionTracker{
		consumed: make(map[uuid.UUID]domain.MonetaryValue),
	}
}

// Consumed returns how much of the lot has been recorded so far (zero if untouched)
func (t *TransactionTracker) Consumed(buyID uuid.UUID, unit string) domain.MonetaryValue {
	if used, ok := t.consumed[buyID]; ok {
		return used
	}
	return domain.ZeroOf(unit)
}

// AvailableAmount returns max(0, lot size - consumed) in the lot's asset unit
func (t *TransactionTracker) AvailableAmount(buy *domain.Transaction) domain.MonetaryValue {
	used := t.Consumed(buy.ID, buy.AssetAmount.Unit)

	// Amounts are compared as plain decimals: a lot is only ever consumed in its own unit
	available := buy.AssetAmount.Amount.Sub(used.Amount)
	if !available.IsPositive() {
		return domain.ZeroOf(buy.AssetAmount.Unit)
	}
	return domain.NewMonetaryValue(available, buy.AssetAmount.Unit)
}

// RecordConsumption adds amount to the lot's consumed total.
// Repeated calls accumulate; they never overwrite.
func (t *TransactionTracker) RecordConsumption(buyID uuid.UUID, amount domain.MonetaryValue) {
	used, ok := t.consumed[buyID]
	if !ok {
		t.consumed[buyID] = domain.NewMonetaryValue(amount.Amount, amount.Unit)
		return
	}
	t.consumed[buyID] = domain.NewMonetaryValue(used.Amount.Add(amount.Amount), used.Unit)
}
