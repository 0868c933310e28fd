package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor pulls an attribute out of a context. It returns false
// when the context carries nothing to log.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// contextHandler appends the attributes found by its extractors to every
// record before passing it on.
type contextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

// WithExtractors wraps h so that every record also carries the
// attributes the extractors find in the record's context. Nil extractors
// are skipped; with none left h is returned unchanged.
func WithExtractors(h slog.Handler, extractors ...ContextExtractor) slog.Handler {
	var kept []ContextExtractor
	for _, ex := range extractors {
		if ex != nil {
			kept = append(kept, ex)
		}
	}

	if len(kept) == 0 {
		return h
	}
	return &contextHandler{next: h, extractors: kept}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.extractors))
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			attrs = append(attrs, attr)
		}
	}

	if len(attrs) > 0 {
		rec = rec.Clone()
		rec.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
