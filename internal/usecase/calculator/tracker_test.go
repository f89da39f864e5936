package calculator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/simaogato/lotwise-backend/internal/domain"
)

func TestTransactionTracker_UntouchedLotIsFullyAvailable(t *testing.T) {
	tracker := NewTransactionTracker()
	buy := newBuy("1.0", "30000", "0", day(1))

	assertAmount(t, "1.0", "BTC", tracker.AvailableAmount(buy))
	assertAmount(t, "0", "BTC", tracker.Consumed(buy.ID, "BTC"))
}

func TestTransactionTracker_RecordConsumptionIsAdditive(t *testing.T) {
	tracker := NewTransactionTracker()
	buy := newBuy("1.0", "30000", "0", day(1))

	tracker.RecordConsumption(buy.ID, domain.MustParseMonetaryValue("0.25", "BTC"))
	tracker.RecordConsumption(buy.ID, domain.MustParseMonetaryValue("0.25", "BTC"))

	assertAmount(t, "0.5", "BTC", tracker.Consumed(buy.ID, "BTC"))
	assertAmount(t, "0.5", "BTC", tracker.AvailableAmount(buy))
}

func TestTransactionTracker_AvailableNeverNegativeAndNeverIncreases(t *testing.T) {
	tracker := NewTransactionTracker()
	buy := newBuy("1.0", "30000", "0", day(1))

	previous := tracker.AvailableAmount(buy)
	for _, step := range []string{"0.4", "0.4", "0.4", "1"} {
		tracker.RecordConsumption(buy.ID, domain.MustParseMonetaryValue(step, "BTC"))

		current := tracker.AvailableAmount(buy)
		assert.False(t, current.Amount.IsNegative(), "available must never be negative")
		assert.True(t, current.Amount.LessThanOrEqual(previous.Amount), "available must never increase")
		previous = current
	}

	assertAmount(t, "0", "BTC", tracker.AvailableAmount(buy))
}

func TestTransactionTracker_LotsAreIndependent(t *testing.T) {
	tracker := NewTransactionTracker()
	first := newBuy("1.0", "30000", "0", day(1))
	second := newBuy("2.0", "60000", "0", day(2))

	tracker.RecordConsumption(first.ID, domain.MustParseMonetaryValue("1.0", "BTC"))

	assertAmount(t, "0", "BTC", tracker.AvailableAmount(first))
	assertAmount(t, "2.0", "BTC", tracker.AvailableAmount(second))
	assertAmount(t, "0", "BTC", tracker.Consumed(uuid.New(), "BTC"))
}

// Fixture helpers shared by the calculator tests

var epoch = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return epoch.AddDate(0, 0, n)
}

func newBuy(amount, fiat, fee string, at time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:                    uuid.New(),
		Type:                  domain.TransactionTypeBuy,
		TransactionAmountFiat: domain.MustParseMonetaryValue(fiat, "USD"),
		Fee:                   domain.MustParseMonetaryValue(fee, "USD"),
		AssetAmount:           domain.MustParseMonetaryValue(amount, "BTC"),
		Timestamp:             at,
	}
}

func newSell(amount, fiat string, at time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:                    uuid.New(),
		Type:                  domain.TransactionTypeSell,
		TransactionAmountFiat: domain.MustParseMonetaryValue(fiat, "USD"),
		Fee:                   domain.ZeroOf("USD"),
		AssetAmount:           domain.MustParseMonetaryValue(amount, "BTC"),
		Timestamp:             at,
	}
}

func assertAmount(t *testing.T, want, unit string, got domain.MonetaryValue) {
	t.Helper()
	expected := domain.MustParseMonetaryValue(want, unit)
	assert.True(t, expected.Amount.Equal(got.Amount), "expected %s, got %s", expected, got)
	assert.Equal(t, expected.Unit, got.Unit)
}
