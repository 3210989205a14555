// Package auditlog buffers usage events and writes them to an append-only sink.
package auditlog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
	"github.com/capitalize-ai/ds-assistant/pkg/metrics"
)

const (
	// DefaultMaxSize is the buffer length that forces a flush.
	DefaultMaxSize = 20

	// DefaultInterval is the periodic flush interval.
	DefaultInterval = 5 * time.Minute

	// shutdownTimeout bounds the final flush when Run stops.
	shutdownTimeout = 30 * time.Second
)

// Flush triggers, used as metric labels.
const (
	triggerTimer    = "timer"
	triggerSize     = "size"
	triggerShutdown = "shutdown"
	triggerManual   = "manual"
)

// Sink persists audit events.
type Sink interface {
	Append(ctx context.Context, events []model.AuditEvent) error
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithMaxSize sets the length at which a flush is forced.
func WithMaxSize(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.maxSize = n
		}
	}
}

// WithInterval sets the periodic flush interval.
func WithInterval(d time.Duration) Option {
	return func(b *Buffer) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithClock replaces the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		b.now = now
	}
}

// Buffer accumulates audit events in memory.
//
// Record never blocks on the sink. A single consumer, Run, owns every write:
// it flushes on a timer and whenever Record signals that the buffer is full.
// Flushing swaps the pending slice out under the mutex and writes it outside,
// so events recorded during a write are kept for the next one.
type Buffer struct {
	sink     Sink
	logger   *logger.Logger
	maxSize  int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending []model.AuditEvent

	// full has capacity one; extra signals collapse into the pending one.
	full chan struct{}
}

// NewBuffer creates a buffer writing to sink.
func NewBuffer(sink Sink, log *logger.Logger, opts ...Option) *Buffer {
	b := &Buffer{
		sink:     sink,
		logger:   log,
		maxSize:  DefaultMaxSize,
		interval: DefaultInterval,
		now:      time.Now,
		full:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Record appends an event for identity.
func (b *Buffer) Record(identity, action string) {
	event := model.AuditEvent{
		Timestamp: b.now(),
		Identity:  identity,
		Action:    action,
	}

	b.mu.Lock()
	b.pending = append(b.pending, event)
	n := len(b.pending)
	b.mu.Unlock()

	metrics.AuditBufferDepth.Set(float64(n))

	if n >= b.maxSize {
		select {
		case b.full <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of events waiting for a flush.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Run flushes on the timer and on size signals until ctx is done, then
// flushes once more.
func (b *Buffer) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			_ = b.flush(shutdownCtx, triggerShutdown)
			cancel()
			return

		case <-ticker.C:
			_ = b.flush(ctx, triggerTimer)

		case <-b.full:
			// The signal may be stale if a timer flush already drained the buffer.
			if b.Len() >= b.maxSize {
				_ = b.flush(ctx, triggerSize)
			}
		}
	}
}

// Flush writes all pending events now. On failure they stay buffered.
func (b *Buffer) Flush(ctx context.Context) error {
	return b.flush(ctx, triggerManual)
}

func (b *Buffer) flush(ctx context.Context, trigger string) error {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	metrics.AuditBufferDepth.Set(0)

	if err := b.sink.Append(ctx, batch); err != nil {
		b.mu.Lock()
		// Failed events go back ahead of anything recorded during the write.
		b.pending = append(batch, b.pending...)
		n := len(b.pending)
		b.mu.Unlock()

		metrics.AuditBufferDepth.Set(float64(n))
		metrics.RecordAuditFlush(trigger, "error", len(batch))
		b.logger.Warn("audit flush failed, events kept for retry",
			zap.String("trigger", trigger),
			zap.Int("events", len(batch)),
			zap.Int("buffered", n),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordAuditFlush(trigger, "success", len(batch))
	b.logger.Debug("audit events flushed",
		zap.String("trigger", trigger),
		zap.Int("events", len(batch)),
	)
	return nil
}
