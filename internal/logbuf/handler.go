package logbuf

import (
	"context"
	"log/slog"
)

// Handler is an slog.Handler that records every entry into a Ring and
// forwards to an inner handler at that handler's own level filter.
type Handler struct {
	inner slog.Handler
	ring  *Ring
	attrs []slog.Attr
	scope string
}

// NewHandler wraps inner so that every record is also captured in ring.
func NewHandler(inner slog.Handler, ring *Ring) *Handler {
	return &Handler{inner: inner, ring: ring}
}

// Enabled always reports true so the ring retains every level; the
// inner handler applies its own filter in Handle.
func (h *Handler) Enabled(context.Context, slog.Level) bool { return true }

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	fields := make(map[string]any, len(h.attrs)+rec.NumAttrs())
	for _, a := range h.attrs {
		fields[h.key(a.Key)] = flatten(a.Value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		fields[h.key(a.Key)] = flatten(a.Value)
		return true
	})
	if len(fields) == 0 {
		fields = nil
	}

	h.ring.Add(Entry{
		Time:    rec.Time,
		Level:   rec.Level,
		Message: rec.Message,
		Fields:  fields,
	})

	if h.inner.Enabled(ctx, rec.Level) {
		return h.inner.Handle(ctx, rec)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		inner: h.inner.WithAttrs(attrs),
		ring:  h.ring,
		attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		scope: h.scope,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	scope := name
	if h.scope != "" {
		scope = h.scope + "." + name
	}
	return &Handler{
		inner: h.inner.WithGroup(name),
		ring:  h.ring,
		attrs: h.attrs,
		scope: scope,
	}
}

func (h *Handler) key(k string) string {
	if h.scope == "" {
		return k
	}
	return h.scope + "." + k
}

// flatten converts slog values to JSON-safe types; errors become their
// string form so they don't serialize as empty objects.
func flatten(v slog.Value) any {
	v = v.Resolve()
	raw := v.Any()
	if err, ok := raw.(error); ok {
		return err.Error()
	}
	return raw
}
