package boltstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/txn-webhooks/internal/domain/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "transactions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTransaction(transactionID string) *models.Transaction {
	return &models.Transaction{
		TransactionID:      transactionID,
		SourceAccount:      "ACC001",
		DestinationAccount: "ACC002",
		Amount:             decimal.RequireFromString("100.50"),
		Currency:           "USD",
		State:              models.StatePending,
		CreatedAt:          time.Now().UTC(),
	}
}

func TestInsertIfAbsent(t *testing.T) {
	store := newTestStore(t)

	created, err := store.InsertIfAbsent(context.Background(), newTransaction("tx-1"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.InsertIfAbsent(context.Background(), newTransaction("tx-1"))
	require.NoError(t, err)
	assert.False(t, created)

	transaction, err := store.GetByTransactionID(context.Background(), "tx-1")
	require.NoError(t, err)
	require.NotNil(t, transaction)
	assert.Equal(t, "tx-1", transaction.TransactionID)
	assert.Equal(t, models.StatePending, transaction.State)
	assert.True(t, transaction.Amount.Equal(decimal.RequireFromString("100.50")))
	assert.Nil(t, transaction.CompletedAt)
}

func TestInsertIfAbsentConcurrent(t *testing.T) {
	store := newTestStore(t)

	const attempts = 20
	results := make(chan bool, attempts)

	var wg sync.WaitGroup
	wg.Add(attempts)
	for n := 0; n < attempts; n++ {
		go func() {
			defer wg.Done()
			created, err := store.InsertIfAbsent(context.Background(), newTransaction("tx-race"))
			require.NoError(t, err)
			results <- created
		}()
	}
	wg.Wait()
	close(results)

	var createdCount int
	for created := range results {
		if created {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)
}

func TestGetAbsentReturnsNil(t *testing.T) {
	store := newTestStore(t)

	transaction, err := store.GetByTransactionID(context.Background(), "tx-missing")
	require.NoError(t, err)
	assert.Nil(t, transaction)
}

func TestMarkCompletedOnlyOnce(t *testing.T) {
	store := newTestStore(t)

	_, err := store.InsertIfAbsent(context.Background(), newTransaction("tx-1"))
	require.NoError(t, err)

	completedAt := time.Now().UTC()
	applied, err := store.MarkCompleted(context.Background(), "tx-1", completedAt)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.MarkCompleted(context.Background(), "tx-1", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, applied)

	transaction, err := store.GetByTransactionID(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, transaction.State)
	require.NotNil(t, transaction.CompletedAt)
	assert.True(t, transaction.CompletedAt.Equal(completedAt))
}

func TestMarkCompletedAbsentRecord(t *testing.T) {
	store := newTestStore(t)

	applied, err := store.MarkCompleted(context.Background(), "tx-missing", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestListPendingOlderThan(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	oldest := newTransaction("tx-oldest")
	oldest.CreatedAt = now.Add(-20 * time.Minute)
	older := newTransaction("tx-older")
	older.CreatedAt = now.Add(-10 * time.Minute)
	fresh := newTransaction("tx-fresh")
	finished := newTransaction("tx-finished")
	finished.CreatedAt = now.Add(-30 * time.Minute)

	for _, transaction := range []*models.Transaction{oldest, older, fresh, finished} {
		_, err := store.InsertIfAbsent(context.Background(), transaction)
		require.NoError(t, err)
	}
	applied, err := store.MarkCompleted(context.Background(), "tx-finished", now)
	require.NoError(t, err)
	require.True(t, applied)

	ids, err := store.ListPendingOlderThan(context.Background(), now.Add(-5*time.Minute), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-oldest", "tx-older"}, ids)

	ids, err = store.ListPendingOlderThan(context.Background(), now.Add(-5*time.Minute), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-oldest"}, ids)
}
