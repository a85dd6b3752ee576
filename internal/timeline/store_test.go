package timeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/parley-io/parley/pkg/protocol"
)

func TestEnsureIdempotent(t *testing.T) {
	s := NewStore()
	s.Ensure("t-1")
	s.Ensure("t-1")

	if s.Len() != 1 {
		t.Fatalf("expected 1 turn, got %d", s.Len())
	}
	turn := s.Get("t-1")
	if turn == nil {
		t.Fatal("expected turn to exist")
	}
	if len(turn.Steps) != 0 {
		t.Errorf("expected empty timeline, got %d steps", len(turn.Steps))
	}
}

func TestGetUnknownTurn(t *testing.T) {
	s := NewStore()
	if s.Get("missing") != nil {
		t.Error("expected nil for unknown turn")
	}
}

func TestAppendCreatesAndPreservesOrder(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		s.Append("t-1", protocol.ProtocolStep{
			ID:   fmt.Sprintf("s-%d", i),
			Kind: protocol.StepPlan,
		})
	}

	turn := s.Get("t-1")
	if len(turn.Steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(turn.Steps))
	}
	for i, step := range turn.Steps {
		if step.ID != fmt.Sprintf("s-%d", i) {
			t.Errorf("step %d out of order: got %s", i, step.ID)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	s.Append("t-1", protocol.ProtocolStep{ID: "s-0", Kind: protocol.StepPlan})

	snap := s.Get("t-1")
	s.Append("t-1", protocol.ProtocolStep{ID: "s-1", Kind: protocol.StepRoute})

	if len(snap.Steps) != 1 {
		t.Errorf("snapshot mutated by later append: %d steps", len(snap.Steps))
	}
}

func TestWatchDeliversAppendsInOrder(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Watch(ctx, "t-1")

	for i := 0; i < 3; i++ {
		s.Append("t-1", protocol.ProtocolStep{
			ID:   fmt.Sprintf("s-%d", i),
			Kind: protocol.StepRetrieve,
		})
	}

	// Each delivered snapshot must be a strict extension of the last.
	seen := 0
	deadline := time.After(2 * time.Second)
	for seen < 3 {
		select {
		case turn := <-ch:
			if len(turn.Steps) <= seen-1 {
				t.Fatalf("snapshot went backwards: %d steps after %d", len(turn.Steps), seen)
			}
			seen = len(turn.Steps)
			for i, step := range turn.Steps {
				if step.ID != fmt.Sprintf("s-%d", i) {
					t.Fatalf("step %d out of order: %s", i, step.ID)
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshots, saw %d steps", seen)
		}
	}
}

func TestWatchScopedToTurn(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Watch(ctx, "t-1")
	s.Append("t-2", protocol.ProtocolStep{ID: "other", Kind: protocol.StepPlan})
	s.Append("t-1", protocol.ProtocolStep{ID: "mine", Kind: protocol.StepPlan})

	select {
	case turn := <-ch:
		if turn.ID != "t-1" {
			t.Fatalf("received snapshot for wrong turn: %s", turn.ID)
		}
		if turn.Steps[0].ID != "mine" {
			t.Fatalf("received step from wrong turn: %s", turn.Steps[0].ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for own-turn snapshot")
	}
}

func TestWatchExistingTurnYieldsInitialValue(t *testing.T) {
	s := NewStore()
	s.Append("t-1", protocol.ProtocolStep{ID: "s-0", Kind: protocol.StepPlan})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	select {
	case turn := <-s.Watch(ctx, "t-1"):
		if len(turn.Steps) != 1 {
			t.Errorf("expected initial snapshot with 1 step, got %d", len(turn.Steps))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Watch(ctx, "t-1")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// Drain a possible in-flight value, then expect close.
			if _, ok := <-ch; ok {
				t.Error("expected channel to close after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
