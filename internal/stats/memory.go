package stats

import (
	"context"
	"sync"
	"time"
)

// MemoryTracker keeps statistics in process memory. Data is lost on restart.
type MemoryTracker struct {
	limit int
	now   func() time.Time

	mu        sync.Mutex
	users     map[string]*UserStats
	window    map[string][]time.Time
	lastPrune time.Time
}

// NewMemoryTracker creates a tracker allowing limit downloads per hour; zero
// or negative disables the limit
func NewMemoryTracker(limit int) *MemoryTracker {
	return &MemoryTracker{
		limit:  limit,
		now:    time.Now,
		users:  make(map[string]*UserStats),
		window: make(map[string][]time.Time),
	}
}

// Allow implements Tracker
func (t *MemoryTracker) Allow(_ context.Context, identity string) error {
	if t.limit <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-RateWindow)
	if now.Sub(t.lastPrune) >= RateWindow {
		t.pruneLocked(cutoff)
		t.lastPrune = now
	}

	kept := t.window[identity][:0]
	for _, ts := range t.window[identity] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= t.limit {
		t.window[identity] = kept
		return ErrRateLimited
	}
	t.window[identity] = append(kept, now)
	return nil
}

// pruneLocked forgets identities whose attempts all predate cutoff
func (t *MemoryTracker) pruneLocked(cutoff time.Time) {
	for id, attempts := range t.window {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(cutoff) {
			delete(t.window, id)
		}
	}
}

// Record implements Tracker
func (t *MemoryTracker) Record(_ context.Context, identity string, d Download) error {
	if d.At.IsZero() {
		d.At = t.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.users[identity]
	if !ok {
		u = &UserStats{}
		t.users[identity] = u
	}
	u.add(d)
	return nil
}

// User implements Tracker
func (t *MemoryTracker) User(_ context.Context, identity string) (UserStats, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.users[identity]
	if !ok {
		return UserStats{}, false, nil
	}
	return *u, true, nil
}

// Global implements Tracker
func (t *MemoryTracker) Global(_ context.Context) (GlobalStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := GlobalStats{Users: len(t.users)}
	for _, u := range t.users {
		g.Downloads += u.Downloads
		g.TotalBytes += u.TotalBytes
	}
	return g, nil
}

// Close implements Tracker
func (t *MemoryTracker) Close() error {
	return nil
}
