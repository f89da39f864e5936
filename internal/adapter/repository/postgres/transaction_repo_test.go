//go:build integration
// +build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/lotwise-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRepo connects to DB_CONN_STR, migrates, and truncates the table
func setupRepo(t *testing.T) domain.TransactionRepository {
	t.Helper()

	connStr := os.Getenv("DB_CONN_STR")
	if connStr == "" {
		t.Skip("DB_CONN_STR not set, skipping postgres integration test")
	}

	db, err := NewDB(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	_, err = db.ExecContext(ctx, "TRUNCATE transactions")
	require.NoError(t, err)

	return NewTransactionRepository(db)
}

func newTx(kind domain.TransactionType, asset, amount, fiat string, ts time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:                    uuid.New(),
		Source:                "coinbase",
		Type:                  kind,
		TransactionAmountFiat: domain.MustParseMonetaryValue(fiat, "USD"),
		Fee:                   domain.MustParseMonetaryValue("1.5", "USD"),
		AssetAmount:           domain.MustParseMonetaryValue(amount, asset),
		AssetValueFiat:        domain.MustParseMonetaryValue(fiat, "USD"),
		Timestamp:             ts,
		Notes:                 "imported",
	}
}

func TestTransactionRepository_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	tx := newTx(domain.TransactionTypeBuy, "BTC", "0.12345678", "4000.10", time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, tx))

	got, err := repo.GetByID(ctx, tx.ID)
	require.NoError(t, err)

	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, domain.TransactionTypeBuy, got.Type)
	assert.True(t, tx.AssetAmount.Amount.Equal(got.AssetAmount.Amount))
	assert.Equal(t, "BTC", got.AssetAmount.Unit)
	assert.True(t, tx.Fee.Amount.Equal(got.Fee.Amount))
	assert.True(t, tx.Timestamp.Equal(got.Timestamp))
	assert.False(t, got.FiledWithIRS)
}

func TestTransactionRepository_GetByID_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionRepository_Update(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	tx := newTx(domain.TransactionTypeSell, "ETH", "2", "3000", time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, tx))

	require.NoError(t, repo.Update(ctx, tx.MarkFiled()))

	got, err := repo.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.FiledWithIRS)

	missing := newTx(domain.TransactionTypeSell, "ETH", "1", "1", time.Now())
	assert.ErrorIs(t, repo.Update(ctx, missing), domain.ErrTransactionNotFound)
}

func TestTransactionRepository_List(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	late := newTx(domain.TransactionTypeBuy, "BTC", "1", "20000", base.Add(48*time.Hour))
	early := newTx(domain.TransactionTypeBuy, "BTC", "1", "10000", base)
	eth := newTx(domain.TransactionTypeBuy, "ETH", "1", "1000", base.Add(24*time.Hour))
	sell := newTx(domain.TransactionTypeSell, "BTC", "1", "30000", base.Add(72*time.Hour))
	for _, tx := range []*domain.Transaction{late, early, eth, sell} {
		require.NoError(t, repo.Create(ctx, tx))
	}

	all, err := repo.List(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, early.ID, all[0].ID)
	assert.Equal(t, sell.ID, all[3].ID)

	end := sell.Timestamp
	buys, err := repo.List(ctx, domain.TransactionFilter{
		Types:   []domain.TransactionType{domain.TransactionTypeBuy},
		Assets:  []string{"btc"},
		EndDate: &end,
	})
	require.NoError(t, err)
	require.Len(t, buys, 2)
	assert.Equal(t, early.ID, buys[0].ID)
	assert.Equal(t, late.ID, buys[1].ID)

	start := late.Timestamp
	window, err := repo.List(ctx, domain.TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, late.ID, window[0].ID)
}
