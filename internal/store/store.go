// Package store owns the process-wide temporary root and the per-session work
// directories created beneath it. Every acquired directory is removed exactly
// once, whichever exit path releases it.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ytget/yt-bot/internal/platform"
)

// Directory naming
const (
	SessionDirPrefix   = "session_"
	SessionDirPerm     = 0700
	maxIdentityNameLen = 64
)

// CleanupHook is invoked when removing a work directory fails
type CleanupHook func(path string, err error)

// Store hands out uniquely named session directories under a shared root
type Store struct {
	root      string
	log       zerolog.Logger
	now       func() time.Time
	onCleanup CleanupHook

	mu   sync.Mutex
	live map[string]*WorkDir
}

// New creates the root directory if absent and returns a Store over it
func New(root string, log zerolog.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("store root is empty")
	}
	if err := platform.CreateDirectoryIfNotExists(root); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", root, err)
	}

	return &Store{
		root: root,
		log:  log.With().Str("component", "store").Logger(),
		now:  time.Now,
		live: make(map[string]*WorkDir),
	}, nil
}

// SetCleanupHook registers a callback for failed removals
func (s *Store) SetCleanupHook(hook CleanupHook) {
	s.onCleanup = hook
}

// Root returns the shared temporary root
func (s *Store) Root() string {
	return s.root
}

// Acquire creates a fresh, exclusively owned directory for identity. The name
// combines the identity, a coarse timestamp and a UUIDv7 so neither
// concurrent identities nor rapid re-entry by one identity can collide.
func (s *Store) Acquire(identity string) (*WorkDir, error) {
	name := fmt.Sprintf("%s%s_%d_%s", SessionDirPrefix, sanitizeIdentity(identity), s.now().Unix(), newDirToken())
	path := filepath.Join(s.root, name)

	// Mkdir (not MkdirAll) fails if the name already exists
	if err := os.Mkdir(path, SessionDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	w := &WorkDir{path: path, identity: identity, store: s}

	s.mu.Lock()
	s.live[path] = w
	s.mu.Unlock()

	s.log.Debug().Str("identity", identity).Str("work_dir", path).Msg("session directory acquired")
	return w, nil
}

// Live returns the number of directories acquired and not yet released
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Sweep removes session directories under root that no live WorkDir owns,
// e.g. leftovers from a previous process that was killed mid-fetch.
func (s *Store) Sweep() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read store root: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), SessionDirPrefix) {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		if _, owned := s.live[path]; owned {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			s.log.Warn().Err(err).Str("work_dir", path).Msg("failed to sweep stale session directory")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("swept stale session directories")
	}
	return removed, nil
}

// Close releases every live directory. Used on process shutdown.
func (s *Store) Close() {
	s.mu.Lock()
	dirs := make([]*WorkDir, 0, len(s.live))
	for _, w := range s.live {
		dirs = append(dirs, w)
	}
	s.mu.Unlock()

	for _, w := range dirs {
		_ = w.Release()
	}
}

func (s *Store) forget(path string) {
	s.mu.Lock()
	delete(s.live, path)
	s.mu.Unlock()
}

// sanitizeIdentity keeps identity safe for use in a single path element
func sanitizeIdentity(identity string) string {
	var b strings.Builder
	for _, r := range identity {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('x')
		}
		if b.Len() >= maxIdentityNameLen {
			break
		}
	}
	if b.Len() == 0 {
		return "anon"
	}
	return b.String()
}

// newDirToken returns a time-ordered unique token
func newDirToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
