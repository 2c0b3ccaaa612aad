// Package boltstore implements the transaction record store on top of an
// embedded BoltDB file, for single-binary deployments without Postgres.
// Bolt serializes all writes through one Update transaction at a time, which
// gives the insert-if-absent and conditional-update operations the same
// atomicity the SQL store gets from single statements.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/mkravets/txn-webhooks/internal/domain/models"
)

const bucketName = "transactions"

type Store struct {
	db *bolt.DB
}

// New opens (or creates) the database file and ensures the transactions
// bucket exists.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertIfAbsent inserts the record unless the transaction id is already
// taken. The existence check and the put happen inside one bolt write
// transaction, so concurrent submissions of the same id cannot both create.
func (s *Store) InsertIfAbsent(ctx context.Context, transaction *models.Transaction) (bool, error) {
	created := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b.Get([]byte(transaction.TransactionID)) != nil {
			return nil
		}

		data, err := json.Marshal(transaction)
		if err != nil {
			return err
		}

		created = true
		return b.Put([]byte(transaction.TransactionID), data)
	})
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}

	return created, nil
}

// GetByTransactionID returns the record or (nil, nil) when absent.
func (s *Store) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var transaction *models.Transaction

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get([]byte(transactionID))
		if v == nil {
			return nil
		}
		transaction = &models.Transaction{}
		return json.Unmarshal(v, transaction)
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	return transaction, nil
}

// MarkCompleted transitions the record to COMPLETED only while it is still
// PENDING. Losing the race to another finalizer is not an error; the caller
// sees applied=false.
func (s *Store) MarkCompleted(ctx context.Context, transactionID string, completedAt time.Time) (bool, error) {
	applied := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get([]byte(transactionID))
		if v == nil {
			return nil
		}

		var transaction models.Transaction
		if err := json.Unmarshal(v, &transaction); err != nil {
			return err
		}
		if transaction.State != models.StatePending {
			return nil
		}

		transaction.State = models.StateCompleted
		transaction.CompletedAt = &completedAt

		data, err := json.Marshal(&transaction)
		if err != nil {
			return err
		}

		applied = true
		return b.Put([]byte(transactionID), data)
	})
	if err != nil {
		return false, fmt.Errorf("complete transaction: %w", err)
	}

	return applied, nil
}

// ListPendingOlderThan returns ids of records still PENDING created before
// cutoff, oldest first.
func (s *Store) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	type stale struct {
		id        string
		createdAt time.Time
	}
	var found []stale

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.ForEach(func(k, v []byte) error {
			var transaction models.Transaction
			if err := json.Unmarshal(v, &transaction); err != nil {
				return err
			}
			if transaction.State == models.StatePending && transaction.CreatedAt.Before(cutoff) {
				found = append(found, stale{id: transaction.TransactionID, createdAt: transaction.CreatedAt})
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
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
