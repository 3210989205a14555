// Package ratelimit provides per-identity sliding window admission control.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/capitalize-ai/ds-assistant/pkg/metrics"
)

const (
	// DefaultCapacity is the number of requests admitted per window.
	DefaultCapacity = 5

	// DefaultWindow is the length of the sliding window.
	DefaultWindow = 10 * time.Second
)

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// Limiter admits at most capacity requests per identity in any window.
//
// Each identity keeps the timestamps of its admitted requests. Rejected
// attempts are not recorded, so a throttled client regains access as soon as
// its oldest admitted request leaves the window.
type Limiter struct {
	capacity int
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
}

// New creates a limiter.
func New(capacity int, window time.Duration, opts ...Option) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{
		capacity: capacity,
		window:   window,
		now:      time.Now,
		windows:  make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit reports whether a request from identity may proceed now.
func (l *Limiter) Admit(identity string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := prune(l.windows[identity], now, l.window)
	if len(stamps) >= l.capacity {
		l.windows[identity] = stamps
		return false
	}

	l.windows[identity] = append(stamps, now)
	return true
}

// Sweep drops identities whose window has fully expired.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, stamps := range l.windows {
		if len(prune(stamps, now, l.window)) == 0 {
			delete(l.windows, id)
			removed++
		}
	}
	metrics.RateLimitedIdentities.Set(float64(len(l.windows)))
	return removed
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Run sweeps expired identities every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// prune removes timestamps at or beyond the window. Stamps are ordered, so it
// only needs to find the first one still inside.
func prune(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(stamps) && now.Sub(stamps[i]) >= window {
		i++
	}
	if i == 0 {
		return stamps
	}
	// Copy so the dropped prefix can be collected.
	return append(stamps[:0:0], stamps[i:]...)
}
