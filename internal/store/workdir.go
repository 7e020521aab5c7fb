package store

import (
	"os"
	"sync"
)

// WorkDir is a session-exclusive directory. Release is idempotent and removes
// the directory recursively on its first call only.
type WorkDir struct {
	path     string
	identity string
	store    *Store

	once     sync.Once
	released bool
	mu       sync.Mutex
	err      error
}

// Path returns the absolute or root-relative directory path
func (w *WorkDir) Path() string {
	return w.path
}

// Identity returns the owner of the directory
func (w *WorkDir) Identity() string {
	return w.identity
}

// Release removes the directory and everything in it. Failures are logged and
// returned but never retried.
func (w *WorkDir) Release() error {
	w.once.Do(func() {
		err := os.RemoveAll(w.path)

		w.mu.Lock()
		w.released = true
		w.err = err
		w.mu.Unlock()

		w.store.forget(w.path)
		if err != nil {
			w.store.log.Warn().Err(err).Str("identity", w.identity).Str("work_dir", w.path).Msg("failed to remove session directory")
			if w.store.onCleanup != nil {
				w.store.onCleanup(w.path, err)
			}
			return
		}
		w.store.log.Debug().Str("identity", w.identity).Str("work_dir", w.path).Msg("session directory removed")
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
