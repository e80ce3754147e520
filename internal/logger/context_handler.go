package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/line-foodfinder/internal/ctxutil"
)

// ContextHandler wraps another handler and copies tracing values
// (user, chat, request, event, message IDs) from the context onto every
// record, so call sites only need to pass ctx.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler creates a new ContextHandler that wraps the provided handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds the non-empty tracing values and delegates.
// Canceling ctx does not affect record processing (per slog.Handler contract).
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		addIfSet(&r, "user_id", ctxutil.GetUserID(ctx))
		addIfSet(&r, "chat_id", ctxutil.GetChatID(ctx))
		if requestID, ok := ctxutil.GetRequestID(ctx); ok {
			addIfSet(&r, "request_id", requestID)
		}
		addIfSet(&r, "event_id", ctxutil.GetEventID(ctx))
		addIfSet(&r, "message_id", ctxutil.GetMessageID(ctx))
	}
	return h.handler.Handle(ctx, r)
}

func addIfSet(r *slog.Record, key, value string) {
	if value != "" {
		r.AddAttrs(slog.String(key, value))
	}
}

// WithAttrs returns a new ContextHandler wrapping handler.WithAttrs.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new ContextHandler wrapping handler.WithGroup.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
