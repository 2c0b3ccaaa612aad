package repositories

import (
	"context"
	"time"

	"github.com/mkravets/txn-webhooks/internal/domain/models"
)

const (
	UniqueViolationError = "23505"
)

// TransactionRepository is the shared durable record store. All coordination
// between intake and finalization goes through its two atomic write
// operations; implementations must never expose a check-then-write gap.
type TransactionRepository interface {
	// InsertIfAbsent atomically inserts the record unless one with the same
	// transaction id already exists. Returns true when this call created the
	// record, false when it already existed.
	InsertIfAbsent(ctx context.Context, transaction *models.Transaction) (bool, error)

	// GetByTransactionID returns the record or (nil, nil) when absent.
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)

	// MarkCompleted atomically transitions the record to COMPLETED with the
	// given timestamp, only if it is still PENDING. Returns true when the
	// update was applied, false when the record was absent or already
	// completed.
	MarkCompleted(ctx context.Context, transactionID string, completedAt time.Time) (bool, error)

	// ListPendingOlderThan returns ids of records still PENDING that were
	// created before cutoff, oldest first, at most limit of them.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}
