package grpc

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/lotwise-backend/internal/domain"
)

// Field names used on the wire
const (
	fieldEvents            = "events"
	fieldSellID            = "sellId"
	fieldTaxTreatment      = "taxTreatment"
	fieldBuyTransactionIDs = "buyTransactionIds"
	fieldSubmissionID      = "submissionId"
)

// NewTaxReportRequest encodes report parameters as a ProcessTaxReport/SubmitTaxReport body
func NewTaxReportRequest(events []domain.TaxableEventParameters) (*structpb.Struct, error) {
	list := make([]interface{}, 0, len(events))
	for _, e := range events {
		buyIDs := make([]interface{}, 0, len(e.BuyTransactionIDs))
		for _, id := range e.BuyTransactionIDs {
			buyIDs = append(buyIDs, id.String())
		}
		list = append(list, map[string]interface{}{
			fieldSellID:            e.SellID.String(),
			fieldTaxTreatment:      string(e.TaxTreatment),
			fieldBuyTransactionIDs: buyIDs,
		})
	}
	return structpb.NewStruct(map[string]interface{}{fieldEvents: list})
}

// NewSubmissionRequest encodes a GetSubmissionStatus/WatchSubmission body
func NewSubmissionRequest(id uuid.UUID) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{fieldSubmissionID: id.String()})
}

// parseTaxReportRequest decodes a request body.
// Errors name the offending field and index.
func parseTaxReportRequest(req *structpb.Struct) (domain.TaxReportRequest, error) {
	eventsValue, ok := req.GetFields()[fieldEvents]
	if !ok {
		return domain.TaxReportRequest{}, fmt.Errorf("%s is required", fieldEvents)
	}
	list := eventsValue.GetListValue()
	if list == nil {
		return domain.TaxReportRequest{}, fmt.Errorf("%s must be a list", fieldEvents)
	}

	events := make([]domain.TaxableEventParameters, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		if v.GetStructValue() == nil {
			return domain.TaxReportRequest{}, fmt.Errorf("%s[%d] must be an object", fieldEvents, i)
		}
		fields := v.GetStructValue().GetFields()

		sellID, err := uuid.Parse(fields[fieldSellID].GetStringValue())
		if err != nil {
			return domain.TaxReportRequest{}, fmt.Errorf("%s[%d].%s: invalid id: %v", fieldEvents, i, fieldSellID, err)
		}

		treatment, err := domain.ParseTaxTreatment(fields[fieldTaxTreatment].GetStringValue())
		if err != nil {
			return domain.TaxReportRequest{}, fmt.Errorf("%s[%d].%s: %w", fieldEvents, i, fieldTaxTreatment, err)
		}

		params := domain.TaxableEventParameters{SellID: sellID, TaxTreatment: treatment}
		for j, idValue := range fields[fieldBuyTransactionIDs].GetListValue().GetValues() {
			buyID, err := uuid.Parse(idValue.GetStringValue())
			if err != nil {
				return domain.TaxReportRequest{}, fmt.Errorf("%s[%d].%s[%d]: invalid id: %v", fieldEvents, i, fieldBuyTransactionIDs, j, err)
			}
			params.BuyTransactionIDs = append(params.BuyTransactionIDs, buyID)
		}

		events = append(events, params)
	}

	return domain.TaxReportRequest{Events: events}, nil
}

// parseSubmissionID reads the submissionId field
func parseSubmissionID(req *structpb.Struct) (uuid.UUID, error) {
	raw := req.GetFields()[fieldSubmissionID].GetStringValue()
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldSubmissionID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: invalid id: %v", fieldSubmissionID, err)
	}
	return id, nil
}

func moneyToMap(m domain.MonetaryValue) map[string]interface{} {
	return map[string]interface{}{
		"amount": m.Amount.String(),
		"unit":   m.Unit,
	}
}

func transactionToMap(tx *domain.Transaction) interface{} {
	if tx == nil {
		return nil
	}
	return map[string]interface{}{
		"id":                    tx.ID.String(),
		"source":                tx.Source,
		"type":                  string(tx.Type),
		"transactionAmountFiat": moneyToMap(tx.TransactionAmountFiat),
		"fee":                   moneyToMap(tx.Fee),
		"assetAmount":           moneyToMap(tx.AssetAmount),
		"assetValueFiat":        moneyToMap(tx.AssetValueFiat),
		"timestamp":             tx.Timestamp.UTC().Format(time.RFC3339Nano),
		"address":               tx.Address,
		"notes":                 tx.Notes,
		"filedWithIrs":          tx.FiledWithIRS,
	}
}

func eventResultToMap(e domain.TaxableEventResult) map[string]interface{} {
	used := make([]interface{}, 0, len(e.UsedBuyTransactions))
	for _, u := range e.UsedBuyTransactions {
		used = append(used, map[string]interface{}{
			"transactionId":       u.TransactionID.String(),
			"amountUsed":          moneyToMap(u.AmountUsed),
			"costBasis":           moneyToMap(u.CostBasis),
			"taxType":             string(u.TaxType),
			"originalTransaction": transactionToMap(u.OriginalTransaction),
		})
	}

	return map[string]interface{}{
		"sellTransactionId":   e.SellTransactionID.String(),
		"proceeds":            moneyToMap(e.Proceeds),
		"costBasis":           moneyToMap(e.CostBasis),
		"gain":                moneyToMap(e.Gain),
		"sellTransaction":     transactionToMap(e.SellTransaction),
		"usedBuyTransactions": used,
		"uncoveredSellAmount": moneyToMap(e.UncoveredSellAmount),
		"uncoveredSellValue":  moneyToMap(e.UncoveredSellValue),
	}
}

func totalsToList(totals []domain.ReportTotals) []interface{} {
	list := make([]interface{}, 0, len(totals))
	for _, t := range totals {
		list = append(list, map[string]interface{}{
			"currency":       t.Currency,
			"proceeds":       t.Proceeds.String(),
			"costBasis":      t.CostBasis.String(),
			"gain":           t.Gain.String(),
			"shortTermGain":  t.ShortTermGain.String(),
			"longTermGain":   t.LongTermGain.String(),
			"uncoveredValue": t.UncoveredValue.String(),
		})
	}
	return list
}

// ReportToMap renders a report as plain JSON-compatible values
func ReportToMap(r *domain.TaxReportResult) map[string]interface{} {
	events := make([]interface{}, 0, len(r.Events))
	for _, e := range r.Events {
		events = append(events, eventResultToMap(e))
	}
	return map[string]interface{}{
		fieldEvents: events,
		"totals":    totalsToList(r.Totals()),
	}
}

// SubmissionStateToMap renders a submission snapshot as plain JSON-compatible values
func SubmissionStateToMap(s domain.SubmissionState) map[string]interface{} {
	return map[string]interface{}{
		fieldSubmissionID: s.ID.String(),
		"status":          string(s.Status),
		"reason":          s.Reason,
		"updatedAt":       s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ParseSubmissionState decodes a GetSubmissionStatus/WatchSubmission response
func ParseSubmissionState(s *structpb.Struct) (domain.SubmissionState, error) {
	fields := s.GetFields()

	id, err := parseSubmissionID(s)
	if err != nil {
		return domain.SubmissionState{}, err
	}

	state := domain.SubmissionState{
		ID:     id,
		Status: domain.SubmissionStatus(fields["status"].GetStringValue()),
		Reason: fields["reason"].GetStringValue(),
	}

	if raw := fields["updatedAt"].GetStringValue(); raw != "" {
		state.UpdatedAt, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.SubmissionState{}, fmt.Errorf("updatedAt: %w", err)
		}
	}

	return state, nil
}
