package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/parley-io/parley/pkg/protocol"
)

func TestCreateAndAppend(t *testing.T) {
	s := NewStore()
	c := s.Create("About RAG", "researcher")
	if c.ID == "" {
		t.Fatal("expected generated conversation id")
	}
	if c.AgentID != "researcher" {
		t.Errorf("expected agent researcher, got %s", c.AgentID)
	}

	before := s.Get(c.ID).UpdatedAt
	err := s.Append(c.ID, protocol.Message{
		ID:      "m-1",
		Role:    protocol.RoleUser,
		Content: "hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := s.Get(c.ID)
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got.Messages))
	}
	if got.UpdatedAt.Before(before) {
		t.Error("expected UpdatedAt to advance")
	}
}

func TestAppendUnknownConversation(t *testing.T) {
	s := NewStore()
	if err := s.Append("missing", protocol.Message{ID: "m-1"}); err == nil {
		t.Error("expected error for unknown conversation")
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	s := NewStore()
	first := s.Ensure("chat-42", "Telegram chat", "writer")
	second := s.Ensure("chat-42", "ignored", "ignored")

	if first.ID != "chat-42" || second.ID != "chat-42" {
		t.Fatal("expected both calls to return chat-42")
	}
	if second.Title != "Telegram chat" {
		t.Errorf("expected original title preserved, got %q", second.Title)
	}
	if len(s.List()) != 1 {
		t.Errorf("expected 1 conversation, got %d", len(s.List()))
	}
}

func TestListOrdersByRecency(t *testing.T) {
	s := NewStore()
	older := s.Create("older", "planner")
	newer := s.Create("newer", "planner")

	// Appending to the older conversation makes it most recent.
	time.Sleep(time.Millisecond)
	if err := s.Append(older.ID, protocol.Message{ID: "m-1", Role: protocol.RoleUser}); err != nil {
		t.Fatal(err)
	}

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(list))
	}
	if list[0].ID != older.ID {
		t.Errorf("expected recently-appended conversation first, got %s", list[0].ID)
	}
	if list[1].ID != newer.ID {
		t.Errorf("expected %s second, got %s", newer.ID, list[1].ID)
	}
}

func TestWatchSeesAppends(t *testing.T) {
	s := NewStore()
	c := s.Create("watched", "researcher")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Watch(ctx, c.ID)

	if err := s.Append(c.ID, protocol.Message{ID: "m-1", Role: protocol.RoleUser}); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if len(snap.Messages) == 1 && snap.Messages[0].ID == "m-1" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for appended message")
		}
	}
}
