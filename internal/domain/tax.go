package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxTreatment selects which buy lots fund a sell
type TaxTreatment string

const (
	TaxTreatmentFIFO      TaxTreatment = "FIFO"       // Oldest lots first
	TaxTreatmentLIFO      TaxTreatment = "LIFO"       // Newest lots first
	TaxTreatmentMaxProfit TaxTreatment = "MAX_PROFIT" // Cheapest lots first
	TaxTreatmentMinProfit TaxTreatment = "MIN_PROFIT" // Priciest lots first
	TaxTreatmentCustom    TaxTreatment = "CUSTOM"     // Caller-supplied lots, in the given order
)

// Valid reports whether t is one of the five supported treatments
func (t TaxTreatment) Valid() bool {
	switch t {
	case TaxTreatmentFIFO, TaxTreatmentLIFO, TaxTreatmentMaxProfit, TaxTreatmentMinProfit, TaxTreatmentCustom:
		return true
	}
	return false
}

// ParseTaxTreatment parses a treatment name case-insensitively
func ParseTaxTreatment(s string) (TaxTreatment, error) {
	t := TaxTreatment(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTaxTreatment, s)
	}
	return t, nil
}

// TaxType classifies a holding period
type TaxType string

const (
	TaxTypeShortTerm TaxType = "SHORT_TERM"
	TaxTypeLongTerm  TaxType = "LONG_TERM"
)

// LongTermHoldingDays is the minimum number of whole days held for LONG_TERM treatment
const LongTermHoldingDays = 365

// ClassifyHolding returns LONG_TERM when the asset was held at least 365 whole days
func ClassifyHolding(bought, sold time.Time) TaxType {
	days := int(sold.Sub(bought) / (24 * time.Hour))
	if days >= LongTermHoldingDays {
		return TaxTypeLongTerm
	}
	return TaxTypeShortTerm
}

// TaxableEventParameters describes one sell to be matched.
// BuyTransactionIDs is only meaningful for CUSTOM.
type TaxableEventParameters struct {
	SellID            uuid.UUID
	TaxTreatment      TaxTreatment
	BuyTransactionIDs []uuid.UUID
}

// UsedBuyTransaction is one slice of a buy lot allocated to a sell
type UsedBuyTransaction struct {
	TransactionID       uuid.UUID
	AmountUsed          MonetaryValue // Asset unit
	CostBasis           MonetaryValue // Fiat unit
	TaxType             TaxType
	OriginalTransaction *Transaction
}

// TaxableEventResult is the outcome of matching one sell.
// Gain = Proceeds - CostBasis, and UncoveredSellAmount plus every AmountUsed adds up
// to the sell's asset amount.
type TaxableEventResult struct {
	SellTransactionID   uuid.UUID
	Proceeds            MonetaryValue
	CostBasis           MonetaryValue
	Gain                MonetaryValue
	SellTransaction     *Transaction
	UsedBuyTransactions []UsedBuyTransaction
	UncoveredSellAmount MonetaryValue
	UncoveredSellValue  MonetaryValue
}

// TaxReportRequest is an ordered batch of sells to match
type TaxReportRequest struct {
	Events []TaxableEventParameters
}

// TaxReportResult holds one result per requested event, in request order
type TaxReportResult struct {
	Events []TaxableEventResult
}

// TransactionIDs returns the distinct ids touched by the report (each sell and
// every buy lot it used), in first-seen order
func (r *TaxReportResult) TransactionIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0)

	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, event := range r.Events {
		add(event.SellTransactionID)
		for _, used := range event.UsedBuyTransactions {
			add(used.TransactionID)
		}
	}

	return ids
}

// ReportTotals summarizes a report for one fiat currency
type ReportTotals struct {
	Currency       string
	Proceeds       decimal.Decimal
	CostBasis      decimal.Decimal
	Gain           decimal.Decimal
	ShortTermGain  decimal.Decimal
	LongTermGain   decimal.Decimal
	UncoveredValue decimal.Decimal
}

// Totals sums proceeds, cost basis and gain per fiat currency.
// Each slice's gain is its share of the covered proceeds minus its cost basis, and
// lands in the short- or long-term bucket by its tax type. Uncovered value counts as
// short-term gain. ShortTermGain + LongTermGain always equals Gain.
func (r *TaxReportResult) Totals() []ReportTotals {
	byCurrency := make(map[string]*ReportTotals)
	order := make([]string, 0)

	for _, event := range r.Events {
		currency := NormalizeUnit(event.Proceeds.Unit)
		totals, ok := byCurrency[currency]
		if !ok {
			totals = &ReportTotals{Currency: currency}
			byCurrency[currency] = totals
			order = append(order, currency)
		}

		totals.Proceeds = totals.Proceeds.Add(event.Proceeds.Amount)
		totals.CostBasis = totals.CostBasis.Add(event.CostBasis.Amount)
		totals.Gain = totals.Gain.Add(event.Gain.Amount)
		totals.UncoveredValue = totals.UncoveredValue.Add(event.UncoveredSellValue.Amount)
		totals.ShortTermGain = totals.ShortTermGain.Add(event.UncoveredSellValue.Amount)

		// Proceeds not attributed to the uncovered remainder are spread over the
		// slices by amount used; the last slice takes what rounding left over.
		covered := event.Proceeds.Amount.Sub(event.UncoveredSellValue.Amount)
		usedTotal := decimal.Zero
		for _, used := range event.UsedBuyTransactions {
			usedTotal = usedTotal.Add(used.AmountUsed.Amount)
		}

		if len(event.UsedBuyTransactions) == 0 {
			totals.ShortTermGain = totals.ShortTermGain.Add(covered.Sub(event.CostBasis.Amount))
			continue
		}

		assigned := decimal.Zero
		last := len(event.UsedBuyTransactions) - 1
		for i, used := range event.UsedBuyTransactions {
			share := covered.Sub(assigned)
			if i < last && !usedTotal.IsZero() {
				share = covered.Mul(used.AmountUsed.Amount).Div(usedTotal)
			}
			assigned = assigned.Add(share)

			sliceGain := share.Sub(used.CostBasis.Amount)
			if used.TaxType == TaxTypeLongTerm {
				totals.LongTermGain = totals.LongTermGain.Add(sliceGain)
			} else {
				totals.ShortTermGain = totals.ShortTermGain.Add(sliceGain)
			}
		}
	}

	result := make([]ReportTotals, 0, len(order))
	for _, currency := range order {
		result = append(result, *byCurrency[currency])
	}
	return result
}
