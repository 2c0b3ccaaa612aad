package interactor

import (
	"context"
	"fmt"
	"time"

	"github.com/mkravets/txn-webhooks/internal/domain/repositories"
)

// FinalizeResult reports how a finalize request was resolved.
type FinalizeResult string

const (
	FinalizeCompleted        FinalizeResult = "completed"
	FinalizeSkippedNotFound  FinalizeResult = "skipped: not found"
	FinalizeSkippedProcessed FinalizeResult = "skipped: already processed"
)

type FinalizeInteractor struct {
	transactionRepository repositories.TransactionRepository
	delay                 time.Duration
}

func NewFinalizeInteractor(transactionRepository repositories.TransactionRepository, delay time.Duration) *FinalizeInteractor {
	return &FinalizeInteractor{
		transactionRepository: transactionRepository,
		delay:                 delay,
	}
}

// Execute processes one delivered finalize request. Safe to run any number
// of times for the same id, concurrently or after redelivery: the
// conditional update lets exactly one invocation apply the
// PENDING -> COMPLETED transition. A non-nil error means a transient store
// failure; the delivery should be left unacked for redelivery.
func (i *FinalizeInteractor) Execute(ctx context.Context, transactionID string) (FinalizeResult, error) {
	transaction, err := i.transactionRepository.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return "", fmt.Errorf("lookup transaction: %w", err)
	}
	if transaction == nil {
		// stale or misrouted request; nothing to retry
		return FinalizeSkippedNotFound, nil
	}
	if transaction.State.Terminal() {
		return FinalizeSkippedProcessed, nil
	}

	// Simulated settlement work. No store lock is held across the wait;
	// only the update below has to be atomic. Cancellation here leaves the
	// record PENDING and safe to reprocess.
	timer := time.NewTimer(i.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	applied, err := i.transactionRepository.MarkCompleted(ctx, transactionID, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("mark completed: %w", err)
	}
	if !applied {
		// lost the race against a concurrent delivery of the same id
		return FinalizeSkippedProcessed, nil
	}

	return FinalizeCompleted, nil
}
