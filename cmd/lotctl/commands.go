package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	grpcadapter "github.com/simaogato/lotwise-backend/internal/adapter/grpc"
	"github.com/simaogato/lotwise-backend/internal/adapter/repository"
	"github.com/simaogato/lotwise-backend/internal/config"
	"github.com/simaogato/lotwise-backend/internal/domain"
	"github.com/simaogato/lotwise-backend/internal/logger"
	"github.com/simaogato/lotwise-backend/internal/usecase/report"
	"github.com/simaogato/lotwise-backend/internal/usecase/submission"
)

// Globals are flags shared by every command
type Globals struct {
	Verbose bool          `help:"Log to stderr at debug level." short:"v"`
	Timeout time.Duration `help:"Give up after this long." default:"2m"`
}

func (g *Globals) newLogger(ctx *kong.Context) *slog.Logger {
	if g.Verbose {
		return logger.New(ctx.Stderr, "debug")
	}
	return logger.Discard()
}

func (g *Globals) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.Timeout)
}

// openStore loads config from the environment and opens the configured store
func openStore(ctx context.Context, l *slog.Logger) (*repository.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	store, err := repository.Open(ctx, cfg, l)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type ReportCmd struct {
	Sell      []string `help:"Sell transaction id; repeat for a batch processed in order." required:""`
	Treatment string   `help:"FIFO, LIFO, MAX_PROFIT, MIN_PROFIT or CUSTOM." default:"FIFO"`
	Buy       []string `help:"Buy lot ids in consumption order (CUSTOM only, applies to every sell)."`
	Submit    bool     `help:"Mark every transaction used by the report as filed."`
}

func (cmd *ReportCmd) request() (domain.TaxReportRequest, error) {
	treatment, err := domain.ParseTaxTreatment(cmd.Treatment)
	if err != nil {
		return domain.TaxReportRequest{}, err
	}

	buyIDs := make([]uuid.UUID, 0, len(cmd.Buy))
	for _, raw := range cmd.Buy {
		id, err := uuid.Parse(raw)
		if err != nil {
			return domain.TaxReportRequest{}, fmt.Errorf("invalid --buy %q: %w", raw, err)
		}
		buyIDs = append(buyIDs, id)
	}

	req := domain.TaxReportRequest{}
	for _, raw := range cmd.Sell {
		sellID, err := uuid.Parse(raw)
		if err != nil {
			return domain.TaxReportRequest{}, fmt.Errorf("invalid --sell %q: %w", raw, err)
		}
		req.Events = append(req.Events, domain.TaxableEventParameters{
			SellID:            sellID,
			TaxTreatment:      treatment,
			BuyTransactionIDs: buyIDs,
		})
	}
	return req, nil
}

func (cmd *ReportCmd) Run(ctx *kong.Context, globals *Globals) error {
	req, err := cmd.request()
	if err != nil {
		return err
	}

	runCtx, cancel := globals.withTimeout()
	defer cancel()

	l := globals.newLogger(ctx)
	store, cfg, err := openStore(runCtx, l)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := report.NewTaxReportGenerator(store.Transactions, l).ProcessTaxReport(runCtx, req)
	if err != nil {
		return err
	}

	out := grpcadapter.ReportToMap(result)
	if !cmd.Submit {
		return printJSON(ctx.Stdout, out)
	}

	submitter := submission.NewTaxReportSubmitter(store.Transactions,
		submission.WithLogger(l),
		submission.WithShutdownGrace(cfg.SubmissionShutdownGrace),
	)
	defer submitter.Shutdown(context.Background())

	id, err := submitter.Submit(result)
	if err != nil {
		return err
	}
	sub, ok := submitter.Status(id)
	if !ok {
		return fmt.Errorf("submission %s not tracked", id)
	}

	state, err := sub.Wait(runCtx)
	if err != nil {
		return fmt.Errorf("submission %s still %s: %w", id, state.Status, err)
	}

	out["submission"] = grpcadapter.SubmissionStateToMap(state)
	if err := printJSON(ctx.Stdout, out); err != nil {
		return err
	}
	if state.Status == domain.SubmissionStatusFailed {
		return fmt.Errorf("submission failed: %s", state.Reason)
	}
	return nil
}

type WatchCmd struct {
	ID    string `arg:"" help:"Submission id returned by SubmitTaxReport."`
	Addr  string `help:"Server address." default:"localhost:8080"`
	Token string `help:"API token." env:"API_TOKEN" default:"dev-token"`
}

func (cmd *WatchCmd) Run(ctx *kong.Context, globals *Globals) error {
	id, err := uuid.Parse(cmd.ID)
	if err != nil {
		return fmt.Errorf("invalid submission id %q: %w", cmd.ID, err)
	}

	conn, err := grpc.NewClient(cmd.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cmd.Addr, err)
	}
	defer conn.Close()

	runCtx, cancel := globals.withTimeout()
	defer cancel()
	runCtx = metadata.AppendToOutgoingContext(runCtx, "authorization", cmd.Token)

	req, err := grpcadapter.NewSubmissionRequest(id)
	if err != nil {
		return err
	}

	watcher, err := grpcadapter.NewTaxReportClient(conn).WatchSubmission(runCtx, req)
	if err != nil {
		return err
	}

	var last domain.SubmissionState
	for {
		msg, err := watcher.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		last, err = grpcadapter.ParseSubmissionState(msg)
		if err != nil {
			return err
		}
		if err := printJSON(ctx.Stdout, grpcadapter.SubmissionStateToMap(last)); err != nil {
			return err
		}
	}

	if last.Status == domain.SubmissionStatusFailed {
		return fmt.Errorf("submission failed: %s", last.Reason)
	}
	return nil
}

type MigrateCmd struct{}

func (cmd *MigrateCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, cancel := globals.withTimeout()
	defer cancel()

	store, _, err := openStore(runCtx, globals.newLogger(ctx))
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = fmt.Fprintf(ctx.Stdout, "migrated %s store\n", store.Driver)
	return err
}
