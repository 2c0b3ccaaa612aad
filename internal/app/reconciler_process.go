package app

import (
	"context"
	"time"
)

// ReconcileHandler runs one reconciliation sweep.
type ReconcileHandler interface {
	Execute(ctx context.Context) error
}

// ReconcilerProcess periodically re-enqueues finalize requests for records
// stuck in PENDING, covering enqueue failures that happened after a
// committed insert.
type ReconcilerProcess struct {
	handler  ReconcileHandler
	interval time.Duration
}

func NewReconcilerProcess(handler ReconcileHandler, interval time.Duration) *ReconcilerProcess {
	return &ReconcilerProcess{handler: handler, interval: interval}
}

// Run runs the reconciliation sweep until ctx is cancelled. Sweep failures
// are logged by the handler and do not stop the loop.
func (p *ReconcilerProcess) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.handler.Execute(ctx)
		}
	}
}
