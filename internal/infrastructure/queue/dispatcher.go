package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mkravets/txn-webhooks/pkg/log"
)

// ErrClosed is returned by Enqueue and Consume after the dispatcher is closed.
var ErrClosed = errors.New("dispatcher closed")

// Delivery is a single at-least-once delivery of a finalize request. Token
// identifies this delivery attempt; redeliveries of the same transaction id
// carry a fresh token.
type Delivery struct {
	Token         string
	TransactionID string
	Attempt       int
}

type inflight struct {
	delivery Delivery
	deadline time.Time
}

// MemoryDispatcher is an in-process at-least-once delivery channel between
// the intake path and the finalizer workers. A consumed delivery that is not
// acked within the visibility window is delivered again, so consumers must be
// idempotent. Ordering across transaction ids is not guaranteed.
type MemoryDispatcher struct {
	ch         chan Delivery
	visibility time.Duration

	mu      sync.Mutex
	pending map[string]inflight
	closed  bool

	done   chan struct{}
	logger *zerolog.Logger
}

// NewMemoryDispatcher creates a dispatcher with the given queue capacity and
// visibility window, and starts its redelivery loop.
func NewMemoryDispatcher(size int, visibility time.Duration) *MemoryDispatcher {
	if size <= 0 {
		size = 1
	}
	l := log.GetLogger()
	d := &MemoryDispatcher{
		ch:         make(chan Delivery, size),
		visibility: visibility,
		pending:    make(map[string]inflight),
		done:       make(chan struct{}),
		logger:     &l,
	}
	go d.redeliverLoop()
	return d
}

// Enqueue queues a finalize request for the given transaction id. Blocks
// while the queue is full until ctx is done.
func (d *MemoryDispatcher) Enqueue(ctx context.Context, transactionID string) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrClosed
	}

	delivery := Delivery{
		Token:         uuid.NewString(),
		TransactionID: transactionID,
		Attempt:       1,
	}

	select {
	case d.ch <- delivery:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrClosed
	}
}

// Consume blocks until a delivery is available, registers it as in flight
// and returns it. The caller must Ack or Nack the delivery token.
func (d *MemoryDispatcher) Consume(ctx context.Context) (Delivery, error) {
	select {
	case delivery := <-d.ch:
		d.mu.Lock()
		d.pending[delivery.Token] = inflight{
			delivery: delivery,
			deadline: time.Now().Add(d.visibility),
		}
		d.mu.Unlock()
		return delivery, nil
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	case <-d.done:
		return Delivery{}, ErrClosed
	}
}

// Ack marks the delivery as handled; it will not be delivered again.
func (d *MemoryDispatcher) Ack(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, token)
}

// Nack requeues the delivery immediately. With the queue full it falls back
// to the redelivery loop.
func (d *MemoryDispatcher) Nack(token string) {
	d.mu.Lock()
	item, ok := d.pending[token]
	if ok {
		delete(d.pending, token)
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	next := Delivery{
		Token:         uuid.NewString(),
		TransactionID: item.delivery.TransactionID,
		Attempt:       item.delivery.Attempt + 1,
	}
	select {
	case d.ch <- next:
	default:
		d.mu.Lock()
		item.deadline = time.Time{}
		d.pending[token] = item
		d.mu.Unlock()
	}
}

// Close stops the redelivery loop and unblocks all producers and consumers.
// Deliveries already queued or in flight are dropped.
func (d *MemoryDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.done)
}

// redeliverLoop requeues in-flight deliveries whose visibility window has
// expired. A full queue leaves the delivery in flight for the next tick.
func (d *MemoryDispatcher) redeliverLoop() {
	tick := d.visibility / 4
	if tick < 5*time.Millisecond {
		tick = 5 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.redeliverExpired()
		}
	}
}

func (d *MemoryDispatcher) redeliverExpired() {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	for token, item := range d.pending {
		if item.deadline.After(now) {
			continue
		}
		next := Delivery{
			Token:         uuid.NewString(),
			TransactionID: item.delivery.TransactionID,
			Attempt:       item.delivery.Attempt + 1,
		}
		select {
		case d.ch <- next:
			delete(d.pending, token)
			d.logger.Warn().
				Str("transaction_id", next.TransactionID).
				Int("attempt", next.Attempt).
				Msg("finalize request redelivered")
		default:
			item.deadline = now.Add(d.visibility)
			d.pending[token] = item
		}
	}
}
