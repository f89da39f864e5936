package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/lotwise-backend/internal/domain"
)

// Epsilon is the asset quantity below which a remainder counts as fully covered
var Epsilon = decimal.New(1, -4)

// TaxCalculator allocates cost basis from buy lots to a sell
type TaxCalculator struct{}

// NewTaxCalculator creates a new TaxCalculator instance
func NewTaxCalculator() *TaxCalculator {
	return &TaxCalculator{}
}

// Match drains the candidate buy lots, in the order given, until the sell is covered.
// Logic:
//  1. remaining = sell asset amount
//  2. For each lot: take min(remaining, available in tracker); skip empty lots
//  3. Cost basis of the slice = (slice / lot size) * (lot fiat + lot fee)
//  4. Classify the slice by holding period, record it in the tracker
//  5. Stop once remaining <= Epsilon; anything left over is the uncovered amount,
//     valued pro rata at the sell's fiat amount
//  6. Gain = proceeds - total cost basis (the uncovered slice has zero basis)
//
// Running out of lots is not an error: it is reported as UncoveredSellAmount.
// The only error is a unit mismatch between the sell and a lot.
func (c *TaxCalculator) Match(
	sell *domain.Transaction,
	buys []*domain.Transaction,
	tracker *TransactionTracker,
) (*domain.TaxableEventResult, error) {
	assetUnit := sell.AssetAmount.Unit
	fiatUnit := sell.TransactionAmountFiat.Unit

	remaining := domain.NewMonetaryValue(sell.AssetAmount.Amount, assetUnit)
	totalCostBasis := domain.ZeroOf(fiatUnit)
	usedLots := make([]domain.UsedBuyTransaction, 0)

	for _, buy := range buys {
		if !remaining.IsPositive() {
			break
		}

		if !buy.AssetAmount.SameUnit(remaining) {
			return nil, fmt.Errorf("buy %s: %w", buy.ID, &domain.UnitMismatchError{
				Op: "match", Left: remaining.Unit, Right: buy.AssetAmount.Unit,
			})
		}

		available := tracker.AvailableAmount(buy)
		if !available.IsPositive() {
			continue
		}

		use := domain.NewMonetaryValue(decimal.Min(remaining.Amount, available.Amount), assetUnit)

		costBasis, err := sliceCostBasis(buy, use)
		if err != nil {
			return nil, fmt.Errorf("buy %s: %w", buy.ID, err)
		}

		totalCostBasis, err = totalCostBasis.Add(costBasis)
		if err != nil {
			return nil, fmt.Errorf("buy %s: %w", buy.ID, err)
		}

		usedLots = append(usedLots, domain.UsedBuyTransaction{
			TransactionID:       buy.ID,
			AmountUsed:          use,
			CostBasis:           costBasis,
			TaxType:             domain.ClassifyHolding(buy.Timestamp, sell.Timestamp),
			OriginalTransaction: buy,
		})
		tracker.RecordConsumption(buy.ID, use)

		remaining = domain.NewMonetaryValue(remaining.Amount.Sub(use.Amount), assetUnit)
		if remaining.Amount.LessThanOrEqual(Epsilon) {
			break
		}
	}

	uncovered := domain.ZeroOf(assetUnit)
	if remaining.Amount.GreaterThan(Epsilon) {
		uncovered = remaining
	}

	uncoveredValue := domain.ZeroOf(fiatUnit)
	if uncovered.IsPositive() && !sell.AssetAmount.IsZero() {
		uncoveredValue = domain.NewMonetaryValue(
			sell.TransactionAmountFiat.Amount.Mul(uncovered.Amount).Div(sell.AssetAmount.Amount),
			fiatUnit,
		)
	}

	proceeds := domain.NewMonetaryValue(sell.TransactionAmountFiat.Amount, fiatUnit)
	gain, err := proceeds.Sub(totalCostBasis)
	if err != nil {
		return nil, err
	}

	return &domain.TaxableEventResult{
		SellTransactionID:   sell.ID,
		Proceeds:            proceeds,
		CostBasis:           totalCostBasis,
		Gain:                gain,
		SellTransaction:     sell,
		UsedBuyTransactions: usedLots,
		UncoveredSellAmount: uncovered,
		UncoveredSellValue:  uncoveredValue,
	}, nil
}

// sliceCostBasis attributes the lot's acquisition cost (fee included) to the used slice.
// Multiplying before dividing keeps whole-lot slices exact.
func sliceCostBasis(buy *domain.Transaction, use domain.MonetaryValue) (domain.MonetaryValue, error) {
	cost, err := buy.CostOfAcquisition()
	if err != nil {
		return domain.MonetaryValue{}, err
	}
	if use.Amount.Equal(buy.AssetAmount.Amount) {
		return cost, nil
	}
	return domain.NewMonetaryValue(cost.Amount.Mul(use.Amount).Div(buy.AssetAmount.Amount), cost.Unit), nil
}
