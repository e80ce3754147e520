package ctxutil

import (
	"context"
	"testing"
)

func TestUserIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		if userID := GetUserID(context.Background()); userID != "" {
			t.Errorf("Expected empty string, got %s", userID)
		}
	})

	t.Run("with user ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithUserID(context.Background(), "U1234567890")
		if userID := GetUserID(ctx); userID != "U1234567890" {
			t.Errorf("Expected userID U1234567890, got %s", userID)
		}
	})
}

func TestChatIDContext(t *testing.T) {
	t.Parallel()

	if chatID := GetChatID(context.Background()); chatID != "" {
		t.Errorf("Expected empty string, got %s", chatID)
	}

	ctx := WithChatID(context.Background(), "C1234567890")
	if chatID := GetChatID(ctx); chatID != "C1234567890" {
		t.Errorf("Expected chatID C1234567890, got %s", chatID)
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	if requestID, ok := GetRequestID(context.Background()); ok || requestID != "" {
		t.Error("Expected GetRequestID to return empty string and false for empty context")
	}

	ctx := WithRequestID(context.Background(), "req-12345")
	requestID, ok := GetRequestID(ctx)
	if !ok || requestID != "req-12345" {
		t.Errorf("Expected requestID req-12345, got %s (ok=%v)", requestID, ok)
	}
}

func TestContextChaining(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctx = WithUserID(ctx, "U123")
	ctx = WithChatID(ctx, "C456")
	ctx = WithRequestID(ctx, "req-789")
	ctx = WithEventID(ctx, "01H000EVENT")
	ctx = WithMessageID(ctx, "468789")

	if userID := GetUserID(ctx); userID != "U123" {
		t.Error("UserID not preserved in chained context")
	}
	if chatID := GetChatID(ctx); chatID != "C456" {
		t.Error("ChatID not preserved in chained context")
	}
	if requestID, ok := GetRequestID(ctx); !ok || requestID != "req-789" {
		t.Error("RequestID not preserved in chained context")
	}
	if eventID := GetEventID(ctx); eventID != "01H000EVENT" {
		t.Error("EventID not preserved in chained context")
	}
	if messageID := GetMessageID(ctx); messageID != "468789" {
		t.Error("MessageID not preserved in chained context")
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	t.Run("preserves all tracing values", func(t *testing.T) {
		t.Parallel()
		parentCtx := context.Background()
		parentCtx = WithUserID(parentCtx, "user123")
		parentCtx = WithChatID(parentCtx, "chat456")
		parentCtx = WithRequestID(parentCtx, "req789")
		parentCtx = WithEventID(parentCtx, "event-1")
		parentCtx = WithMessageID(parentCtx, "msg-1")

		detachedCtx := PreserveTracing(parentCtx)

		if userID := GetUserID(detachedCtx); userID != "user123" {
			t.Errorf("Expected userID 'user123', got %q", userID)
		}
		if chatID := GetChatID(detachedCtx); chatID != "chat456" {
			t.Errorf("Expected chatID 'chat456', got %q", chatID)
		}
		if requestID, ok := GetRequestID(detachedCtx); !ok || requestID != "req789" {
			t.Errorf("Expected requestID 'req789', got %q (ok=%v)", requestID, ok)
		}
		if eventID := GetEventID(detachedCtx); eventID != "event-1" {
			t.Errorf("Expected eventID 'event-1', got %q", eventID)
		}
		if messageID := GetMessageID(detachedCtx); messageID != "msg-1" {
			t.Errorf("Expected messageID 'msg-1', got %q", messageID)
		}
	})

	t.Run("handles partial values", func(t *testing.T) {
		t.Parallel()
		detached := PreserveTracing(WithUserID(context.Background(), "user_only"))

		if userID := GetUserID(detached); userID != "user_only" {
			t.Errorf("Expected userID 'user_only', got %q", userID)
		}
		if chatID := GetChatID(detached); chatID != "" {
			t.Errorf("Expected empty chatID, got %q", chatID)
		}
		if _, ok := GetRequestID(detached); ok {
			t.Error("Expected no requestID")
		}
	})

	t.Run("creates independent context (cancellation)", func(t *testing.T) {
		t.Parallel()
		cancelCtx, cancel := context.WithCancel(WithUserID(context.Background(), "user_cancel"))
		detached := PreserveTracing(cancelCtx)

		cancel()

		if err := cancelCtx.Err(); err == nil {
			t.Error("Expected parent context to be canceled")
		}
		if err := detached.Err(); err != nil {
			t.Errorf("Expected detached context to be active, got error: %v", err)
		}
		if userID := GetUserID(detached); userID != "user_cancel" {
			t.Errorf("Expected userID 'user_cancel', got %q", userID)
		}
	})
}
