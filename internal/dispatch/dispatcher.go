// Package dispatch serializes inbound updates per identity.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
	"github.com/capitalize-ai/ds-assistant/pkg/metrics"
)

// DefaultQueueSize bounds the pending updates of one identity.
const DefaultQueueSize = 32

// ErrStopTimeout is returned when queued work does not drain in time.
var ErrStopTimeout = errors.New("timeout waiting for dispatch queues to drain")

// Handler processes one update.
type Handler func(ctx context.Context, u model.Update)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize bounds each identity's queue.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// Dispatcher runs updates of one identity in arrival order, one at a time,
// while different identities proceed concurrently. A queue and its goroutine
// exist only while the identity has work.
type Dispatcher struct {
	ctx       context.Context
	handler   Handler
	logger    *logger.Logger
	queueSize int

	mu     sync.Mutex
	queues map[string]chan model.Update
	closed bool
	wg     sync.WaitGroup
}

// New creates a dispatcher. Handlers run with ctx.
func New(ctx context.Context, handler Handler, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ctx:       ctx,
		handler:   handler,
		logger:    log,
		queueSize: DefaultQueueSize,
		queues:    make(map[string]chan model.Update),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit queues u behind earlier updates of the same identity. It returns
// false when the dispatcher is closed or the identity's queue is full.
func (d *Dispatcher) Submit(u model.Update) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}

	q, ok := d.queues[u.Identity]
	if !ok {
		q = make(chan model.Update, d.queueSize)
		d.queues[u.Identity] = q
		metrics.DispatchQueues.Set(float64(len(d.queues)))

		d.wg.Add(1)
		go d.drain(u.Identity, q)
	}

	select {
	case q <- u:
		return true
	default:
		d.logger.Warn("dispatch queue full, update dropped",
			zap.String("identity", u.Identity),
			zap.Int("queue_size", d.queueSize),
		)
		return false
	}
}

// drain processes q until it is empty, then retires it. Sends happen under
// d.mu, so an empty queue cannot gain work between the check and the delete.
func (d *Dispatcher) drain(identity string, q chan model.Update) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(q) == 0 {
			delete(d.queues, identity)
			metrics.DispatchQueues.Set(float64(len(d.queues)))
			d.mu.Unlock()
			return
		}
		u := <-q
		d.mu.Unlock()

		d.run(u)
	}
}

func (d *Dispatcher) run(u model.Update) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordUpdate("panic")
			d.logger.Error("update handler panicked",
				zap.String("correlation_id", u.ID),
				zap.String("identity", u.Identity),
				zap.Any("panic", r),
			)
		}
	}()
	d.handler(d.ctx, u)
}

// Active returns the number of identities with queued or running work.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Close stops intake. Queued updates are still processed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// Wait blocks until all queued updates are processed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stop closes the dispatcher and waits for queued work until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.Close()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrStopTimeout
	}
}
