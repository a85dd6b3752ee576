// Package conversation holds conversations and the live agent roster.
// Both are in-memory for the lifetime of the process and are mutated
// only by the turn pipeline.
package conversation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parley-io/parley/internal/watch"
	"github.com/parley-io/parley/pkg/protocol"
)

// Store holds conversations keyed by id. The only mutations are
// creating a conversation and appending messages.
type Store struct {
	mu    sync.Mutex
	convs map[string]*protocol.Conversation
	hub   *watch.Hub[*protocol.Conversation]
	now   func() time.Time
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{
		convs: make(map[string]*protocol.Conversation),
		hub:   watch.NewHub[*protocol.Conversation](),
		now:   time.Now,
	}
}

// Create registers a new conversation assigned to the given agent and
// returns its snapshot.
func (s *Store) Create(title, agentID string) *protocol.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := &protocol.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		AgentID:   agentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.convs[c.ID] = c
	snap := snapshot(c)
	s.hub.Publish(c.ID, snap)
	return snap
}

// Ensure returns the conversation with the given id, creating it with
// that id if absent. Used by connectors that map external chat ids to
// conversations.
func (s *Store) Ensure(id, title, agentID string) *protocol.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.convs[id]; ok {
		return snapshot(c)
	}
	now := s.now()
	c := &protocol.Conversation{
		ID:        id,
		Title:     title,
		AgentID:   agentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.convs[id] = c
	snap := snapshot(c)
	s.hub.Publish(id, snap)
	return snap
}

// Append adds a message to the conversation and bumps its UpdatedAt.
func (s *Store) Append(conversationID string, msg protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return fmt.Errorf("conversation: append: unknown conversation %q", conversationID)
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = s.now()
	s.hub.Publish(conversationID, snapshot(c))
	return nil
}

// Get returns a snapshot of the conversation, or nil if unknown.
func (s *Store) Get(conversationID string) *protocol.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok {
		return nil
	}
	return snapshot(c)
}

// List returns snapshots of all conversations, most recently updated first.
func (s *Store) List() []*protocol.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*protocol.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, snapshot(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Watch yields the current conversation snapshot (if it exists)
// followed by a snapshot after every mutation, in order. The channel
// closes when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, conversationID string) <-chan *protocol.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var initial **protocol.Conversation
	if c, ok := s.convs[conversationID]; ok {
		snap := snapshot(c)
		initial = &snap
	}
	return s.hub.Subscribe(ctx, conversationID, initial)
}

func snapshot(c *protocol.Conversation) *protocol.Conversation {
	msgs := make([]protocol.Message, len(c.Messages))
	copy(msgs, c.Messages)
	out := *c
	out.Messages = msgs
	return &out
}
