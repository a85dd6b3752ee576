// Package watch provides a keyed publish/subscribe hub used by the
// stores to broadcast snapshots to live observers. Subscribers receive
// every value published after subscription, in publish order, for
// their key only.
package watch

import (
	"context"
	"sync"
)

// Hub fans values out to per-key subscribers.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[string][]*subscriber[T]
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[string][]*subscriber[T])}
}

// Publish delivers v to every subscriber of key. It never blocks:
// values queue per subscriber until the consumer drains them.
func (h *Hub[T]) Publish(key string, v T) {
	h.mu.Lock()
	for _, sub := range h.subs[key] {
		sub.push(v)
	}
	h.mu.Unlock()
}

// Subscribe registers a subscriber for key. If initial is non-nil it is
// queued first, before any value published after this call. The
// returned channel closes when ctx is cancelled.
func (h *Hub[T]) Subscribe(ctx context.Context, key string, initial *T) <-chan T {
	sub := newSubscriber[T]()

	h.mu.Lock()
	if initial != nil {
		sub.push(*initial)
	}
	h.subs[key] = append(h.subs[key], sub)
	h.mu.Unlock()

	go func() {
		sub.run(ctx)
		h.mu.Lock()
		h.removeLocked(key, sub)
		h.mu.Unlock()
	}()

	return sub.out
}

// SubscriberCount returns the number of live subscribers for key.
func (h *Hub[T]) SubscriberCount(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

func (h *Hub[T]) removeLocked(key string, sub *subscriber[T]) {
	subs := h.subs[key]
	for i, cand := range subs {
		if cand == sub {
			h.subs[key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
}

// subscriber buffers values so Publish never blocks on a slow consumer
// while still delivering every value in order.
type subscriber[T any] struct {
	mu    sync.Mutex
	queue []T
	wake  chan struct{}
	out   chan T
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
	}
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) run(ctx context.Context) {
	defer close(s.out)
	for {
		s.mu.Lock()
		pending := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, v := range pending {
			select {
			case s.out <- v:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			return
		}
	}
}
