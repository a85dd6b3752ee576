package conversation

import (
	"context"
	"sort"
	"sync"

	"github.com/parley-io/parley/internal/watch"
	"github.com/parley-io/parley/pkg/protocol"
)

// Roster is the owned, explicitly-passed map of agent descriptors with
// live state. Writers are the pipeline stages of whichever turn is
// active for an agent; concurrent turns on one agent are
// last-writer-wins by design.
type Roster struct {
	mu     sync.Mutex
	agents map[string]*protocol.AgentDescriptor
	order  []string
	hub    *watch.Hub[protocol.AgentDescriptor]
}

// NewRoster creates a roster from the given descriptors, preserving
// their order for listing. All agents start idle.
func NewRoster(agents []protocol.AgentDescriptor) *Roster {
	r := &Roster{
		agents: make(map[string]*protocol.AgentDescriptor, len(agents)),
		hub:    watch.NewHub[protocol.AgentDescriptor](),
	}
	for _, a := range agents {
		a := a
		if a.State.Status == "" {
			a.State.Status = protocol.AgentIdle
		}
		r.agents[a.ID] = &a
		r.order = append(r.order, a.ID)
	}
	return r
}

// Get returns the agent descriptor, or false if unknown.
func (r *Roster) Get(id string) (protocol.AgentDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return protocol.AgentDescriptor{}, false
	}
	return *a, true
}

// List returns all agents in registration order.
func (r *Roster) List() []protocol.AgentDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]protocol.AgentDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.agents[id])
	}
	return out
}

// SetStatus updates an agent's live state and notifies watchers of that
// agent. Unknown ids are ignored.
func (r *Roster) SetStatus(id string, status protocol.AgentStatus, note string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return
	}
	a.State = protocol.AgentState{Status: status, Note: note}
	r.hub.Publish(id, *a)
}

// Watch yields the agent's current descriptor followed by every state
// change, in order. The channel closes when ctx is cancelled.
func (r *Roster) Watch(ctx context.Context, id string) <-chan protocol.AgentDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	var initial *protocol.AgentDescriptor
	if a, ok := r.agents[id]; ok {
		cp := *a
		initial = &cp
	}
	return r.hub.Subscribe(ctx, id, initial)
}

// IDs returns the registered agent ids, sorted.
func (r *Roster) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}
