// Package logbuf captures recent slog output in a fixed-size ring so
// the API can serve it without touching process stdout.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   slog.Level     `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Ring is a thread-safe fixed-capacity log buffer. Once full, the
// oldest entry is overwritten.
type Ring struct {
	mu    sync.Mutex
	buf   []Entry
	next  int
	count int
}

// NewRing creates a ring holding up to capacity entries.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]Entry, capacity)}
}

// Add appends an entry, evicting the oldest when full.
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.mu.Unlock()
}

// Recent returns up to limit entries at or above minLevel recorded
// since the given time, oldest first. A zero since means all retained
// entries; limit <= 0 means no cap.
func (r *Ring) Recent(since time.Time, minLevel slog.Level, limit int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := 0
	if r.count == len(r.buf) {
		start = r.next
	}

	var out []Entry
	for i := 0; i < r.count; i++ {
		e := r.buf[(start+i)%len(r.buf)]
		if e.Level < minLevel {
			continue
		}
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len returns the number of retained entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
