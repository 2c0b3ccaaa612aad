package interactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/txn-webhooks/internal/infrastructure/database/memstore"
)

func TestReconcileReenqueuesStalePending(t *testing.T) {
	store := memstore.New()

	stale := pendingTransaction("tx-stale")
	stale.CreatedAt = time.Now().UTC().Add(-10 * time.Minute)
	_, err := store.InsertIfAbsent(context.Background(), stale)
	require.NoError(t, err)

	fresh := pendingTransaction("tx-fresh")
	_, err = store.InsertIfAbsent(context.Background(), fresh)
	require.NoError(t, err)

	done := pendingTransaction("tx-old-done")
	done.CreatedAt = time.Now().UTC().Add(-10 * time.Minute)
	_, err = store.InsertIfAbsent(context.Background(), done)
	require.NoError(t, err)
	applied, err := store.MarkCompleted(context.Background(), "tx-old-done", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, applied)

	dispatcher := &captureDispatcher{}
	c := NewReconcileInteractor(store, dispatcher, 5*time.Minute, 100)

	require.NoError(t, c.Execute(context.Background()))

	// only the stale PENDING record goes back on the queue
	assert.Equal(t, []string{"tx-stale"}, dispatcher.enqueued())
}

func TestReconcileNothingStale(t *testing.T) {
	store := memstore.New()
	_, err := store.InsertIfAbsent(context.Background(), pendingTransaction("tx-fresh"))
	require.NoError(t, err)

	dispatcher := &captureDispatcher{}
	c := NewReconcileInteractor(store, dispatcher, 5*time.Minute, 100)

	require.NoError(t, c.Execute(context.Background()))
	assert.Empty(t, dispatcher.enqueued())
}

func TestReconcileHonorsBatchLimit(t *testing.T) {
	store := memstore.New()
	for _, id := range []string{"tx-a", "tx-b", "tx-c"} {
		transaction := pendingTransaction(id)
		transaction.CreatedAt = time.Now().UTC().Add(-10 * time.Minute)
		_, err := store.InsertIfAbsent(context.Background(), transaction)
		require.NoError(t, err)
	}

	dispatcher := &captureDispatcher{}
	c := NewReconcileInteractor(store, dispatcher, 5*time.Minute, 2)

	require.NoError(t, c.Execute(context.Background()))
	assert.Len(t, dispatcher.enqueued(), 2)
}
