package interactor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkravets/txn-webhooks/internal/domain/repositories"
	apperrors "github.com/mkravets/txn-webhooks/internal/errors"
	"github.com/mkravets/txn-webhooks/pkg/log"
)

const reconcileTimeout = 5 * time.Second

// ReconcileInteractor re-enqueues finalize requests for records that stayed
// PENDING past the expected processing window, closing the gap left when an
// enqueue failed after a successful insert. Re-enqueueing a record whose
// request is merely still in flight is harmless: finalization is idempotent.
type ReconcileInteractor struct {
	transactionRepository repositories.TransactionRepository
	dispatcher            FinalizeDispatcher
	age                   time.Duration
	batch                 int
	logger                *zerolog.Logger
}

func NewReconcileInteractor(transactionRepository repositories.TransactionRepository, dispatcher FinalizeDispatcher, age time.Duration, batch int) *ReconcileInteractor {
	l := log.GetLogger()
	return &ReconcileInteractor{
		transactionRepository: transactionRepository,
		dispatcher:            dispatcher,
		age:                   age,
		batch:                 batch,
		logger:                &l,
	}
}

// Execute runs one reconciliation sweep.
func (c *ReconcileInteractor) Execute(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	cutoff := time.Now().UTC().Add(-c.age)
	ids, err := c.transactionRepository.ListPendingOlderThan(ctx, cutoff, c.batch)
	if err != nil {
		c.logger.Error().Err(err).Msg(apperrors.ErrFailedReenqueuePending)
		return err
	}

	for _, id := range ids {
		if err = c.dispatcher.Enqueue(ctx, id); err != nil {
			c.logger.Error().Err(err).Str("transaction_id", id).Msg(apperrors.ErrFailedReenqueuePending)
			return err
		}
	}

	if len(ids) > 0 {
		c.logger.Info().Int("count", len(ids)).Msg("Re-enqueued stale pending transactions")
	}

	return nil
}
