// Package session runs the per-user conversation: it owns the state of one
// identity's request, drives probe, fetch and delivery, and guarantees the
// session work directory is torn down on every exit path.
package session
