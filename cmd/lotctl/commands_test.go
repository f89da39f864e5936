package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/lotwise-backend/internal/adapter/repository"
	"github.com/simaogato/lotwise-backend/internal/config"
	"github.com/simaogato/lotwise-backend/internal/domain"
	"github.com/simaogato/lotwise-backend/internal/logger"
)

// run parses args against a fresh command tree and executes the selected command
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var cli CLI
	var out bytes.Buffer
	parser, err := kong.New(&cli, append(options(&cli), kong.Writers(&out, &out))...)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	if err != nil {
		return out.String(), err
	}
	err = kctx.Run()
	return out.String(), err
}

// sqliteEnv points config.Load at a fresh sqlite file and returns its config
func sqliteEnv(t *testing.T) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lotctl.db")
	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("DB_CONN_STR", "")
	t.Setenv("SUBMISSION_SHUTDOWN_GRACE", "")
	t.Setenv("SUBMISSION_STATUS_TTL", "")

	return &config.Config{DBDriver: config.DriverSQLite, SQLitePath: path}
}

func seed(t *testing.T, cfg *config.Config, txs ...*domain.Transaction) {
	t.Helper()

	store, err := repository.Open(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer store.Close()

	for _, tx := range txs {
		require.NoError(t, store.Transactions.Create(context.Background(), tx))
	}
}

func lot(kind domain.TransactionType, amount, fiat string, ts time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:                    uuid.New(),
		Type:                  kind,
		TransactionAmountFiat: domain.MustParseMonetaryValue(fiat, "USD"),
		Fee:                   domain.ZeroOf("USD"),
		AssetAmount:           domain.MustParseMonetaryValue(amount, "ETH"),
		AssetValueFiat:        domain.MustParseMonetaryValue(fiat, "USD"),
		Timestamp:             ts,
	}
}

func TestReportCmd_Request(t *testing.T) {
	sellID := uuid.New()
	buyID := uuid.New()

	tests := []struct {
		name    string
		cmd     ReportCmd
		wantErr string
	}{
		{"valid custom", ReportCmd{Sell: []string{sellID.String()}, Treatment: "custom", Buy: []string{buyID.String()}}, ""},
		{"bad treatment", ReportCmd{Sell: []string{sellID.String()}, Treatment: "HIFO"}, "invalid tax treatment"},
		{"bad sell", ReportCmd{Sell: []string{"x"}, Treatment: "FIFO"}, "invalid --sell"},
		{"bad buy", ReportCmd{Sell: []string{sellID.String()}, Treatment: "CUSTOM", Buy: []string{"y"}}, "invalid --buy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.cmd.request()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, req.Events, 1)
			assert.Equal(t, sellID, req.Events[0].SellID)
			assert.Equal(t, domain.TaxTreatmentCustom, req.Events[0].TaxTreatment)
			assert.Equal(t, []uuid.UUID{buyID}, req.Events[0].BuyTransactionIDs)
		})
	}
}

func TestReportCmd_PrintsAndSubmits(t *testing.T) {
	cfg := sqliteEnv(t)

	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	b1 := lot(domain.TransactionTypeBuy, "2", "2000", base)
	b2 := lot(domain.TransactionTypeBuy, "2", "6000", base.AddDate(0, 0, 10))
	s := lot(domain.TransactionTypeSell, "3", "9000", base.AddDate(0, 0, 20))
	seed(t, cfg, b1, b2, s)

	out, err := run(t, "report", "--sell", s.ID.String(), "--treatment", "lifo")
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	events := report["events"].([]interface{})
	require.Len(t, events, 1)
	event := events[0].(map[string]interface{})
	// LIFO: 2 ETH from b2 (6000) then 1 ETH from b1 (1000)
	assert.Equal(t, "7000", event["costBasis"].(map[string]interface{})["amount"])
	assert.Equal(t, "2000", event["gain"].(map[string]interface{})["amount"])
	assert.NotContains(t, report, "submission")

	out, err = run(t, "report", "--sell", s.ID.String(), "--treatment", "LIFO", "--submit")
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal([]byte(out), &report))
	sub := report["submission"].(map[string]interface{})
	assert.Equal(t, string(domain.SubmissionStatusCompleted), sub["status"])

	store, err := repository.Open(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer store.Close()
	for _, tx := range []*domain.Transaction{b1, b2, s} {
		got, err := store.Transactions.GetByID(context.Background(), tx.ID)
		require.NoError(t, err)
		assert.True(t, got.FiledWithIRS, "transaction %s should be filed", tx.ID)
	}
}

func TestReportCmd_UnknownSell(t *testing.T) {
	sqliteEnv(t)

	_, err := run(t, "report", "--sell", uuid.New().String())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSellNotFound)
}

func TestMigrateCmd(t *testing.T) {
	sqliteEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrated sqlite store\n", out)
}
