package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
)

type recorder struct {
	mu   sync.Mutex
	seen map[string][]string
}

func (r *recorder) handle(_ context.Context, u model.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = map[string][]string{}
	}
	r.seen[u.Identity] = append(r.seen[u.Identity], u.Text)
}

func TestDispatcherKeepsPerIdentityOrder(t *testing.T) {
	rec := &recorder{}
	d := New(context.Background(), rec.handle, logger.NewNop(), WithQueueSize(200))

	for i := 0; i < 100; i++ {
		for _, id := range []string{"a", "b", "c"} {
			require.True(t, d.Submit(model.Update{Identity: id, Text: fmt.Sprint(i)}))
		}
	}
	d.Close()
	d.Wait()

	for _, id := range []string{"a", "b", "c"} {
		got := rec.seen[id]
		require.Len(t, got, 100, id)
		for i, text := range got {
			assert.Equal(t, fmt.Sprint(i), text, id)
		}
	}
	assert.Equal(t, 0, d.Active())
}

func TestDispatcherSerializesOneIdentity(t *testing.T) {
	var running, overlap atomic.Int32
	handler := func(_ context.Context, _ model.Update) {
		if running.Add(1) > 1 {
			overlap.Add(1)
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
	}
	d := New(context.Background(), handler, logger.NewNop(), WithQueueSize(50))

	for i := 0; i < 20; i++ {
		require.True(t, d.Submit(model.Update{Identity: "same"}))
	}
	d.Close()
	d.Wait()

	assert.Zero(t, overlap.Load())
}

func TestDispatcherRunsIdentitiesConcurrently(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 2)
	handler := func(_ context.Context, u model.Update) {
		started <- u.Identity
		<-release
	}
	d := New(context.Background(), handler, logger.NewNop())

	require.True(t, d.Submit(model.Update{Identity: "a"}))
	require.True(t, d.Submit(model.Update{Identity: "b"}))

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("identities did not run concurrently")
		}
	}
	assert.Equal(t, 2, d.Active())

	close(release)
	d.Close()
	d.Wait()
	assert.Equal(t, 0, d.Active())
}

func TestDispatcherRejectsWhenFullOrClosed(t *testing.T) {
	release := make(chan struct{})
	handler := func(_ context.Context, _ model.Update) { <-release }
	d := New(context.Background(), handler, logger.NewNop(), WithQueueSize(1))

	require.True(t, d.Submit(model.Update{Identity: "a", Text: "1"}))
	// The first update may still be queued or already running.
	accepted := 0
	for i := 0; i < 3; i++ {
		if d.Submit(model.Update{Identity: "a"}) {
			accepted++
		}
	}
	assert.LessOrEqual(t, accepted, 1)

	d.Close()
	assert.False(t, d.Submit(model.Update{Identity: "b"}))

	close(release)
	d.Wait()
}

func TestDispatcherRecoversFromPanics(t *testing.T) {
	var calls atomic.Int32
	handler := func(_ context.Context, u model.Update) {
		calls.Add(1)
		if u.Text == "boom" {
			panic("boom")
		}
	}
	d := New(context.Background(), handler, logger.NewNop())

	require.True(t, d.Submit(model.Update{Identity: "a", Text: "boom"}))
	require.True(t, d.Submit(model.Update{Identity: "a", Text: "ok"}))
	d.Close()
	d.Wait()

	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcherStopTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	d := New(context.Background(), func(_ context.Context, _ model.Update) { <-release }, logger.NewNop())
	require.True(t, d.Submit(model.Update{Identity: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, d.Stop(ctx), ErrStopTimeout)
}
