package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/lotwise-backend/internal/domain"
	"github.com/simaogato/lotwise-backend/internal/usecase/calculator"
)

// TaxReportGenerator turns a batch of sells into taxable event results
type TaxReportGenerator struct {
	TransactionRepo domain.TransactionRepository
	Calculator      *calculator.TaxCalculator
	Logger          *slog.Logger
}

// NewTaxReportGenerator creates a new TaxReportGenerator instance
func NewTaxReportGenerator(transactionRepo domain.TransactionRepository, logger *slog.Logger) *TaxReportGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaxReportGenerator{
		TransactionRepo: transactionRepo,
		Calculator:      calculator.NewTaxCalculator(),
		Logger:          logger,
	}
}

// ProcessTaxReport matches every requested sell against its candidate buy lots
// Logic:
//  1. Create one TransactionTracker for the whole batch
//  2. For each event, in request order:
//     - Resolve the sell (must exist and be a SELL)
//     - Resolve and order the candidate buys for the event's tax treatment
//     - Match the sell against the candidates using the shared tracker
//  3. The first failing event aborts the batch with a TaxReportProcessingError
//
// Request order matters: an earlier event has priority over a later one for the
// same buy lot because both drain the same tracker.
func (g *TaxReportGenerator) ProcessTaxReport(ctx context.Context, req domain.TaxReportRequest) (*domain.TaxReportResult, error) {
	tracker := calculator.NewTransactionTracker()
	results := make([]domain.TaxableEventResult, 0, len(req.Events))

	for i, params := range req.Events {
		if err := ctx.Err(); err != nil {
			return nil, &domain.TaxReportProcessingError{Index: i, Params: params, Err: err}
		}

		result, err := g.processEvent(ctx, params, tracker)
		if err != nil {
			g.Logger.Warn("Tax report aborted",
				"event", i,
				"sellId", params.SellID,
				"taxTreatment", params.TaxTreatment,
				"error", err)
			return nil, &domain.TaxReportProcessingError{Index: i, Params: params, Err: err}
		}

		g.Logger.Debug("Taxable event matched",
			"sellId", result.SellTransactionID,
			"lots", len(result.UsedBuyTransactions),
			"costBasis", result.CostBasis.String(),
			"uncovered", result.UncoveredSellAmount.String())

		results = append(results, *result)
	}

	g.Logger.Info("Tax report processed", "events", len(results))

	return &domain.TaxReportResult{Events: results}, nil
}

// processEvent runs a single event through resolve sell -> resolve candidates -> match
func (g *TaxReportGenerator) processEvent(
	ctx context.Context,
	params domain.TaxableEventParameters,
	tracker *calculator.TransactionTracker,
) (*domain.TaxableEventResult, error) {
	if !params.TaxTreatment.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTaxTreatment, params.TaxTreatment)
	}

	sell, err := g.resolveSell(ctx, params.SellID)
	if err != nil {
		return nil, err
	}

	candidates, err := g.resolveCandidates(ctx, sell, params)
	if err != nil {
		return nil, err
	}

	return g.Calculator.Match(sell, candidates, tracker)
}

// resolveSell fetches the sell and checks its type
func (g *TaxReportGenerator) resolveSell(ctx context.Context, sellID uuid.UUID) (*domain.Transaction, error) {
	sell, err := g.TransactionRepo.GetByID(ctx, sellID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSellNotFound, sellID)
		}
		return nil, fmt.Errorf("failed to get sell %s: %w", sellID, err)
	}

	if sell.Type != domain.TransactionTypeSell {
		return nil, fmt.Errorf("%w: %s is a %s", domain.ErrSellNotFound, sellID, sell.Type)
	}

	return sell, nil
}

// resolveCandidates returns the buy lots for the event, already in consumption order
func (g *TaxReportGenerator) resolveCandidates(
	ctx context.Context,
	sell *domain.Transaction,
	params domain.TaxableEventParameters,
) ([]*domain.Transaction, error) {
	if params.TaxTreatment == domain.TaxTreatmentCustom {
		return g.customBuys(ctx, sell, params.BuyTransactionIDs)
	}

	lots, err := g.unfiledBuysBefore(ctx, sell)
	if err != nil {
		return nil, err
	}

	orderCandidates(params.TaxTreatment, lots)
	return lots, nil
}

// unfiledBuysBefore lists BUY lots of the sell's asset that are not yet filed and
// strictly precede the sell
func (g *TaxReportGenerator) unfiledBuysBefore(ctx context.Context, sell *domain.Transaction) ([]*domain.Transaction, error) {
	cutoff := sell.Timestamp
	all, err := g.TransactionRepo.List(ctx, domain.TransactionFilter{
		Types:   []domain.TransactionType{domain.TransactionTypeBuy},
		Assets:  []string{sell.Asset()},
		EndDate: &cutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list buy candidates for %s: %w", sell.Asset(), err)
	}

	// Filed lots and lots at the sell's own instant are never candidates
	lots := make([]*domain.Transaction, 0, len(all))
	for _, tx := range all {
		if tx.Type != domain.TransactionTypeBuy || tx.FiledWithIRS {
			continue
		}
		if tx.Asset() != sell.Asset() || !tx.Timestamp.Before(sell.Timestamp) {
			continue
		}
		lots = append(lots, tx)
	}

	return lots, nil
}

// customBuys resolves caller-chosen lots in the order given
func (g *TaxReportGenerator) customBuys(ctx context.Context, sell *domain.Transaction, ids []uuid.UUID) ([]*domain.Transaction, error) {
	if len(ids) == 0 {
		return nil, domain.ErrMissingBuyIDs
	}

	lots := make([]*domain.Transaction, 0, len(ids))
	for _, id := range ids {
		buy, err := g.TransactionRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrTransactionNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrBuyNotFound, id)
			}
			return nil, fmt.Errorf("failed to get buy %s: %w", id, err)
		}

		if buy.Type != domain.TransactionTypeBuy {
			return nil, fmt.Errorf("%w: %s is a %s", domain.ErrNotABuyTransaction, id, buy.Type)
		}

		if !buy.Timestamp.Before(sell.Timestamp) {
			return nil, fmt.Errorf("%w: buy %s at %s, sell %s at %s", domain.ErrBuyAfterSell,
				id, buy.Timestamp.Format(time.RFC3339),
				sell.ID, sell.Timestamp.Format(time.RFC3339))
		}

		lots = append(lots, buy)
	}

	return lots, nil
}

// orderCandidates sorts automatically selected lots for the treatment.
// Only the order differs between treatments; allocation itself is shared.
func orderCandidates(treatment domain.TaxTreatment, lots []*domain.Transaction) {
	var less func(a, b *domain.Transaction) bool

	switch treatment {
	case domain.TaxTreatmentFIFO:
		less = func(a, b *domain.Transaction) bool {
			return a.Timestamp.Before(b.Timestamp)
		}
	case domain.TaxTreatmentLIFO:
		less = func(a, b *domain.Transaction) bool {
			return a.Timestamp.After(b.Timestamp)
		}
	case domain.TaxTreatmentMaxProfit:
		// Cheapest per-unit price first; ties go to the older lot
		less = func(a, b *domain.Transaction) bool {
			if c := a.AssetValueFiat.Amount.Cmp(b.AssetValueFiat.Amount); c != 0 {
				return c < 0
			}
			return a.Timestamp.Before(b.Timestamp)
		}
	case domain.TaxTreatmentMinProfit:
		// Priciest per-unit price first; ties go to the older lot
		less = func(a, b *domain.Transaction) bool {
			if c := a.AssetValueFiat.Amount.Cmp(b.AssetValueFiat.Amount); c != 0 {
				return c > 0
			}
			return a.Timestamp.Before(b.Timestamp)
		}
	default:
		return
	}

	sort.SliceStable(lots, func(i, j int) bool {
		return less(lots[i], lots[j])
	})
}
