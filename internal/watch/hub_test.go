package watch

import (
	"context"
	"testing"
	"time"
)

func collect(t *testing.T, ch <-chan int, n int) []int {
	t.Helper()
	out := make([]int, 0, n)
	deadline := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case v := <-ch:
			out = append(out, v)
		case <-deadline:
			t.Fatalf("timed out after %d of %d values", len(out), n)
		}
	}
	return out
}

func TestPublishOrder(t *testing.T) {
	h := NewHub[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.Subscribe(ctx, "k", nil)
	for i := 1; i <= 4; i++ {
		h.Publish("k", i)
	}

	got := collect(t, ch, 4)
	for i, v := range got {
		if v != i+1 {
			t.Errorf("value %d: expected %d, got %d", i, i+1, v)
		}
	}
}

func TestInitialValueFirst(t *testing.T) {
	h := NewHub[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial := 99
	ch := h.Subscribe(ctx, "k", &initial)
	h.Publish("k", 1)

	got := collect(t, ch, 2)
	if got[0] != 99 || got[1] != 1 {
		t.Errorf("expected [99 1], got %v", got)
	}
}

func TestKeyIsolation(t *testing.T) {
	h := NewHub[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.Subscribe(ctx, "a", nil)
	h.Publish("b", 7)
	h.Publish("a", 1)

	got := collect(t, ch, 1)
	if got[0] != 1 {
		t.Errorf("expected only key-a value, got %v", got)
	}
}

func TestUnsubscribeOnCancel(t *testing.T) {
	h := NewHub[int]()
	ctx, cancel := context.WithCancel(context.Background())

	ch := h.Subscribe(ctx, "k", nil)
	if h.SubscriberCount("k") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.SubscriberCount("k"))
	}

	cancel()
	for range ch {
	}

	// Removal happens after the run loop exits.
	deadline := time.After(2 * time.Second)
	for h.SubscriberCount("k") != 0 {
		select {
		case <-deadline:
			t.Fatal("subscriber never removed after cancel")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
