package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-bot/internal/model"
)

func TestRegistry_DispatchCreatesPerIdentity(t *testing.T) {
	h := newHarness(t)
	r := NewRegistry(h.deps, time.Minute)

	require.NoError(t, r.Dispatch(context.Background(), TextSubmission{From: "a", Chat: 1, Text: testSource}))
	require.NoError(t, r.Dispatch(context.Background(), SessionReset{From: "b", Chat: 2}))

	assert.Equal(t, 2, r.Len())

	a, ok := r.lookup("a")
	require.True(t, ok)
	assert.Equal(t, model.StateAwaitingFormat, a.State())

	b, ok := r.lookup("b")
	require.True(t, ok)
	assert.Equal(t, model.StateAwaitingSource, b.State())

	_, ok = r.lookup("c")
	assert.False(t, ok)
}

func TestRegistry_IdentitiesRunInParallel(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.prober.fn = func(ctx context.Context, source string) (model.ProbeResult, error) {
		<-release
		return model.ProbeResult{Title: "T"}, nil
	}
	r := NewRegistry(h.deps, time.Minute)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, r.Dispatch(context.Background(), TextSubmission{From: id, Chat: 1, Text: testSource}))
		}(id)
	}

	// All three probes are in flight at once
	waitFor(t, func() bool { return h.prober.calls.Load() == 3 })
	close(release)
	wg.Wait()

	for _, id := range []string{"a", "b", "c"} {
		m, ok := r.lookup(id)
		require.True(t, ok)
		assert.Equal(t, model.StateAwaitingFormat, m.State())
	}
}

func TestRegistry_Evict(t *testing.T) {
	h := newHarness(t)
	r := NewRegistry(h.deps, 30*time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	require.NoError(t, r.Dispatch(context.Background(), SessionReset{From: "old", Chat: 1}))
	now = now.Add(20 * time.Minute)
	require.NoError(t, r.Dispatch(context.Background(), SessionReset{From: "fresh", Chat: 2}))

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, r.Evict())

	_, ok := r.lookup("old")
	assert.False(t, ok)
	_, ok = r.lookup("fresh")
	assert.True(t, ok)
}

func TestRegistry_EvictSkipsBusy(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.prober.fn = func(ctx context.Context, source string) (model.ProbeResult, error) {
		<-release
		return model.ProbeResult{Title: "T"}, nil
	}
	r := NewRegistry(h.deps, time.Minute)
	now := time.Now()
	r.now = func() time.Time { return now }

	done := make(chan error, 1)
	go func() { done <- r.Dispatch(context.Background(), TextSubmission{From: "a", Chat: 1, Text: testSource}) }()
	waitFor(t, func() bool {
		m, ok := r.lookup("a")
		return ok && m.Busy()
	})

	now = now.Add(time.Hour)
	assert.Equal(t, 0, r.Evict())

	close(release)
	require.NoError(t, <-done)
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	r := NewRegistry(h.deps, time.Nanosecond)
	require.NoError(t, r.Dispatch(context.Background(), SessionReset{From: "a", Chat: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx, 5*time.Millisecond)
		close(stopped)
	}()

	waitFor(t, func() bool { return r.Len() == 0 })
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestRegistry_ShutdownCancelsFetch(t *testing.T) {
	h := newHarness(t)
	h.fetcher.fn = func(ctx context.Context, _ string, _ model.Format, _ string) model.FetchOutcome {
		<-ctx.Done()
		return model.FetchOutcome{Err: ctx.Err()}
	}
	r := NewRegistry(h.deps, time.Minute)

	require.NoError(t, r.Dispatch(context.Background(), TextSubmission{From: "a", Chat: 1, Text: testSource}))
	prompt, _ := h.transport.lastPrompt()

	done := make(chan error, 1)
	go func() {
		done <- r.Dispatch(context.Background(), ButtonChoice{From: "a", Chat: 1, Message: prompt.Ref, Tag: "format_video"})
	}()
	waitFor(t, func() bool { return h.store.Live() == 1 })

	r.Shutdown()

	assert.ErrorIs(t, <-done, context.Canceled)
	m, _ := r.lookup("a")
	assert.Equal(t, model.StateAwaitingSource, m.State())
	h.assertNoSessionDirs(t)
}
