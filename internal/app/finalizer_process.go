package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mkravets/txn-webhooks/internal/errors"
	"github.com/mkravets/txn-webhooks/internal/infrastructure/queue"
	"github.com/mkravets/txn-webhooks/internal/usecases/interactor"
	"github.com/mkravets/txn-webhooks/pkg/log"
)

// FinalizeHandler resolves one delivered finalize request.
type FinalizeHandler interface {
	Execute(ctx context.Context, transactionID string) (interactor.FinalizeResult, error)
}

// FinalizeConsumer is the worker side of the dispatcher.
type FinalizeConsumer interface {
	Consume(ctx context.Context) (queue.Delivery, error)
	Ack(token string)
	Nack(token string)
}

// FinalizerProcess runs a pool of workers that pull finalize requests from
// the dispatcher. Deliveries resolved by the handler are acked; transient
// failures leave the delivery to be redelivered, which is safe because the
// handler is idempotent.
type FinalizerProcess struct {
	consumer FinalizeConsumer
	handler  FinalizeHandler
	workers  int
	logger   *zerolog.Logger
}

func NewFinalizerProcess(consumer FinalizeConsumer, handler FinalizeHandler, workers int) *FinalizerProcess {
	if workers <= 0 {
		workers = 1
	}
	l := log.GetLogger()
	return &FinalizerProcess{
		consumer: consumer,
		handler:  handler,
		workers:  workers,
		logger:   &l,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled or the
// dispatcher is closed.
func (p *FinalizerProcess) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func(worker int) {
			defer wg.Done()
			p.work(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (p *FinalizerProcess) work(ctx context.Context, worker int) {
	for {
		delivery, err := p.consumer.Consume(ctx)
		if err != nil {
			return
		}

		result, err := p.handler.Execute(ctx, delivery.TransactionID)
		if err != nil {
			// No state change has been applied; redelivery re-runs the
			// request from the top.
			p.consumer.Nack(delivery.Token)
			if ctx.Err() != nil {
				return
			}
			p.logger.Error().Err(err).
				Str("transaction_id", delivery.TransactionID).
				Int("attempt", delivery.Attempt).
				Msg(errors.ErrFailedFinalizeTransaction)
			continue
		}

		p.consumer.Ack(delivery.Token)
		p.logger.Info().
			Str("transaction_id", delivery.TransactionID).
			Int("worker", worker).
			Int("attempt", delivery.Attempt).
			Str("result", string(result)).
			Msg("Finalize request handled")
	}
}
