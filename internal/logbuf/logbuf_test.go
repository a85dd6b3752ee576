package logbuf

import (
	"bytes"
	"log/slog"
	"testing"
	"time"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		r.Add(Entry{Time: base.Add(time.Duration(i) * time.Second), Message: string(rune('a' + i))})
	}

	if r.Len() != 3 {
		t.Fatalf("expected 3 retained entries, got %d", r.Len())
	}
	got := r.Recent(time.Time{}, slog.LevelDebug, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Message != "c" || got[2].Message != "e" {
		t.Errorf("expected oldest-first c..e, got %s..%s", got[0].Message, got[2].Message)
	}
}

func TestRecentFilters(t *testing.T) {
	r := NewRing(10)
	base := time.Now()
	r.Add(Entry{Time: base, Level: slog.LevelDebug, Message: "debug"})
	r.Add(Entry{Time: base.Add(time.Second), Level: slog.LevelWarn, Message: "warn"})
	r.Add(Entry{Time: base.Add(2 * time.Second), Level: slog.LevelError, Message: "error"})

	t.Run("by level", func(t *testing.T) {
		got := r.Recent(time.Time{}, slog.LevelWarn, 0)
		if len(got) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(got))
		}
	})

	t.Run("by time", func(t *testing.T) {
		got := r.Recent(base.Add(2*time.Second), slog.LevelDebug, 0)
		if len(got) != 1 || got[0].Message != "error" {
			t.Fatalf("expected only the newest entry, got %v", got)
		}
	})

	t.Run("by limit keeps newest", func(t *testing.T) {
		got := r.Recent(time.Time{}, slog.LevelDebug, 1)
		if len(got) != 1 || got[0].Message != "error" {
			t.Fatalf("expected newest entry, got %v", got)
		}
	})
}

func TestHandlerCapturesAndForwards(t *testing.T) {
	ring := NewRing(10)
	var out bytes.Buffer
	inner := slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(NewHandler(inner, ring))

	logger.Debug("quiet", "k", "v")
	logger.Error("loud", "err", "boom")

	// The ring keeps everything regardless of the inner level filter.
	entries := ring.Recent(time.Time{}, slog.LevelDebug, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 captured entries, got %d", len(entries))
	}
	if entries[0].Fields["k"] != "v" {
		t.Errorf("attrs not captured: %v", entries[0].Fields)
	}

	// The inner handler only saw the error.
	if !bytes.Contains(out.Bytes(), []byte("loud")) {
		t.Error("inner handler missed the error record")
	}
	if bytes.Contains(out.Bytes(), []byte("quiet")) {
		t.Error("inner handler should have filtered the debug record")
	}
}

func TestHandlerGroupsPrefixKeys(t *testing.T) {
	ring := NewRing(10)
	logger := slog.New(NewHandler(slog.NewTextHandler(bytes.NewBuffer(nil), nil), ring))

	logger.WithGroup("turn").Info("staged", "kind", "plan")

	entries := ring.Recent(time.Time{}, slog.LevelDebug, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Fields["turn.kind"] != "plan" {
		t.Errorf("expected grouped key, got %v", entries[0].Fields)
	}
}
