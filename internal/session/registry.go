package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Eviction defaults
const (
	DefaultIdleHorizon     = 30 * time.Minute
	DefaultJanitorInterval = time.Minute
)

// Registry owns one Machine per identity. Machines are created on first
// contact and evicted once idle beyond the horizon; a machine with a running
// operation is never evicted.
type Registry struct {
	deps Deps
	idle time.Duration
	log  zerolog.Logger
	now  func() time.Time

	mu       sync.Mutex
	machines map[string]*Machine
}

// NewRegistry creates an empty registry
func NewRegistry(deps Deps, idle time.Duration) *Registry {
	if idle <= 0 {
		idle = DefaultIdleHorizon
	}
	deps = deps.withDefaults()
	return &Registry{
		deps:     deps,
		idle:     idle,
		log:      deps.Log.With().Str("component", "registry").Logger(),
		now:      time.Now,
		machines: make(map[string]*Machine),
	}
}

// Dispatch routes ev to the machine of its identity and blocks until the
// transition completes
func (r *Registry) Dispatch(ctx context.Context, ev Event) error {
	m := r.machine(ev.Identity())
	err := m.Handle(ctx, ev)
	if err != nil {
		r.log.Debug().Err(err).Str("identity", ev.Identity()).Str("event", eventName(ev)).Msg("event handled with error")
	}
	return err
}

// machine returns the identity's machine, creating it if needed. The machine
// is touched under the registry lock so a concurrent Evict cannot drop it.
func (r *Registry) machine(identity string) *Machine {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[identity]
	if !ok {
		m = NewMachine(identity, r.deps)
		m.now = r.now
		r.machines[identity] = m
		r.log.Debug().Str("identity", identity).Msg("session created")
	}
	m.touch()
	return m
}

// lookup returns the machine of identity without creating it
func (r *Registry) lookup(identity string) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[identity]
	return m, ok
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

// Evict drops sessions idle beyond the horizon and returns how many
func (r *Registry) Evict() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	evicted := 0
	for id, m := range r.machines {
		if m.Busy() || m.State().OwnsWorkDir() || m.LastSeen().After(cutoff) {
			continue
		}
		delete(r.machines, id)
		evicted++
	}

	if evicted > 0 {
		r.log.Info().Int("evicted", evicted).Int("live", len(r.machines)).Msg("idle sessions evicted")
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict()
		}
	}
}

// Shutdown cancels every running operation. The goroutines running them
// release their work directories before returning.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	machines := make([]*Machine, 0, len(r.machines))
	for _, m := range r.machines {
		machines = append(machines, m)
	}
	r.mu.Unlock()

	for _, m := range machines {
		m.Cancel()
	}
	r.log.Info().Int("sessions", len(machines)).Msg("sessions cancelled")
}

func eventName(ev Event) string {
	switch ev.(type) {
	case TextSubmission:
		return "text"
	case ButtonChoice:
		return "button"
	case SessionReset:
		return "reset"
	default:
		return "unknown"
	}
}
