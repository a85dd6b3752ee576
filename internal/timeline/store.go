// Package timeline holds the per-turn protocol step log: an append-only
// record of every pipeline stage, with point lookups and live watches.
package timeline

import (
	"context"
	"sync"

	"github.com/parley-io/parley/internal/watch"
	"github.com/parley-io/parley/pkg/protocol"
)

// Store keeps one append-only step sequence per turn id. Append is the
// only mutation primitive; steps are never removed or updated. Turns
// live for the lifetime of the process.
type Store struct {
	mu    sync.Mutex
	turns map[string]*protocol.Turn
	hub   *watch.Hub[*protocol.Turn]
}

// NewStore creates an empty timeline store.
func NewStore() *Store {
	return &Store{
		turns: make(map[string]*protocol.Turn),
		hub:   watch.NewHub[*protocol.Turn](),
	}
}

// Ensure creates an empty timeline for the turn if absent. Idempotent.
func (s *Store) Ensure(turnID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(turnID)
}

func (s *Store) ensureLocked(turnID string) *protocol.Turn {
	t, ok := s.turns[turnID]
	if !ok {
		t = &protocol.Turn{ID: turnID}
		s.turns[turnID] = t
	}
	return t
}

// Append adds a step to the end of the turn's sequence, creating the
// timeline first if missing, and notifies watchers of that turn only.
func (s *Store) Append(turnID string, step protocol.ProtocolStep) {
	s.mu.Lock()
	t := s.ensureLocked(turnID)
	t.Steps = append(t.Steps, step)
	snap := snapshot(t)
	s.hub.Publish(turnID, snap)
	s.mu.Unlock()
}

// Get returns a snapshot of the turn, or nil if it was never created.
func (s *Store) Get(turnID string) *protocol.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.turns[turnID]
	if !ok {
		return nil
	}
	return snapshot(t)
}

// Len returns the number of turns the store has seen.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Watch yields the current turn snapshot (if the turn exists) followed
// by a snapshot after every subsequent append, in append order. The
// channel closes when ctx is cancelled. Watching a turn that does not
// exist yet is allowed; the first value arrives on creation.
func (s *Store) Watch(ctx context.Context, turnID string) <-chan *protocol.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	var initial **protocol.Turn
	if t, ok := s.turns[turnID]; ok {
		snap := snapshot(t)
		initial = &snap
	}
	return s.hub.Subscribe(ctx, turnID, initial)
}

// snapshot copies a turn so callers can read it without holding the lock.
func snapshot(t *protocol.Turn) *protocol.Turn {
	steps := make([]protocol.ProtocolStep, len(t.Steps))
	copy(steps, t.Steps)
	return &protocol.Turn{ID: t.ID, Steps: steps}
}
