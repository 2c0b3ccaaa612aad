// Package memstore implements the transaction record store on a plain map,
// for tests and local runs. It honors the same insert-if-absent and
// conditional-update contract as the durable stores.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mkravets/txn-webhooks/internal/domain/models"
)

type Store struct {
	mu           sync.RWMutex
	transactions map[string]models.Transaction
}

func New() *Store {
	return &Store{
		transactions: make(map[string]models.Transaction),
	}
}

// InsertIfAbsent inserts the record unless the transaction id is already taken.
func (s *Store) InsertIfAbsent(ctx context.Context, transaction *models.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[transaction.TransactionID]; ok {
		return false, nil
	}
	s.transactions[transaction.TransactionID] = *transaction
	return true, nil
}

// GetByTransactionID returns a copy of the record or (nil, nil) when absent.
func (s *Store) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transaction, ok := s.transactions[transactionID]
	if !ok {
		return nil, nil
	}
	cp := transaction
	if transaction.CompletedAt != nil {
		completedAt := *transaction.CompletedAt
		cp.CompletedAt = &completedAt
	}
	return &cp, nil
}

// MarkCompleted transitions the record to COMPLETED only while still PENDING.
func (s *Store) MarkCompleted(ctx context.Context, transactionID string, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	transaction, ok := s.transactions[transactionID]
	if !ok || transaction.State != models.StatePending {
		return false, nil
	}

	transaction.State = models.StateCompleted
	transaction.CompletedAt = &completedAt
	s.transactions[transactionID] = transaction
	return true, nil
}

// ListPendingOlderThan returns ids of records still PENDING created before
// cutoff, oldest first.
func (s *Store) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type stale struct {
		id        string
		createdAt time.Time
	}
	var found []stale
	for id, transaction := range s.transactions {
		if transaction.State == models.StatePending && transaction.CreatedAt.Before(cutoff) {
			found = append(found, stale{id: id, createdAt: transaction.CreatedAt})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].createdAt.Before(found[j].createdAt) })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	ids := make([]string, 0, len(found))
	for _, s := range found {
		ids = append(ids, s.id)
	}
	return ids, nil
}
