package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSellNotFound        = errors.New("sell transaction not found")
	ErrBuyNotFound         = errors.New("buy transaction not found")
	ErrNotABuyTransaction  = errors.New("transaction is not a buy")
	ErrMissingBuyIDs       = errors.New("custom tax treatment requires buy transaction ids")
	ErrBuyAfterSell        = errors.New("buy transaction must precede the sell")
	ErrUnitMismatch        = errors.New("unit mismatch")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTaxTreatment = errors.New("invalid tax treatment")
	ErrSubmitterClosed     = errors.New("submitter is shut down")
)

// TaxReportProcessingError reports the first taxable event that failed in a batch.
// It carries the event's parameters and its position in the request.
type TaxReportProcessingError struct {
	Index  int
	Params TaxableEventParameters
	Err    error
}

func (e *TaxReportProcessingError) Error() string {
	return fmt.Sprintf("failed to process taxable event %d (sell %s, %s): %v",
		e.Index, e.Params.SellID, e.Params.TaxTreatment, e.Err)
}

func (e *TaxReportProcessingError) Unwrap() error {
	return e.Err
}
