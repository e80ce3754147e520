package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/garyellow/line-foodfinder/internal/ctxutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Warn("quota low")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "warning", entries[0]["level"])
	assert.Equal(t, "quota low", entries[0]["message"])
	assert.Contains(t, entries[0], "timestamp")
	assert.NotContains(t, entries[0], "msg")
	assert.NotContains(t, entries[0], "time")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info("hidden")
	log.Debug("hidden")
	log.Error("shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["level"])
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithModule("recommend").
		WithRequestID("req-1").
		WithError(errors.New("boom")).
		WithFields(map[string]any{"radius": 1000}).
		WithField("keyword", "พิซซ่า").
		Infof("found %d places", 3)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "recommend", e["module"])
	assert.Equal(t, "req-1", e["request_id"])
	assert.Equal(t, "boom", e["error"])
	assert.EqualValues(t, 1000, e["radius"])
	assert.Equal(t, "พิซซ่า", e["keyword"])
	assert.Equal(t, "found 3 places", e["message"])
}

func TestLogger_ContextValues(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithUserID(context.Background(), "U123")
	ctx = ctxutil.WithChatID(ctx, "C456")
	ctx = ctxutil.WithEventID(ctx, "evt-1")

	log.InfoContext(ctx, "handled")
	log.InfoContext(context.Background(), "no tracing")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "U123", entries[0]["user_id"])
	assert.Equal(t, "C456", entries[0]["chat_id"])
	assert.Equal(t, "evt-1", entries[0]["event_id"])
	assert.NotContains(t, entries[0], "request_id")
	assert.NotContains(t, entries[1], "user_id")
}

func TestLogger_ShutdownWithoutRemote(t *testing.T) {
	log := New("info")
	assert.False(t, log.RemoteEnabled())
	assert.NoError(t, log.Shutdown(context.Background()))

	var nilLogger *Logger
	assert.NoError(t, nilLogger.Shutdown(context.Background()))
}

// recordingHandler collects messages for assertions.
type recordingHandler struct {
	mu    sync.Mutex
	level slog.Level
	msgs  []string
	attrs []slog.Attr
	err   error
	delay time.Duration
}

func (h *recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return h.err
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

func TestMultiHandler(t *testing.T) {
	a := &recordingHandler{level: slog.LevelDebug}
	b := &recordingHandler{level: slog.LevelError, err: errors.New("sink down")}
	h := NewMultiHandler(a, nil, b)

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	log := slog.New(h)
	log.Info("info only")
	log.Error("both")

	assert.Equal(t, []string{"info only", "both"}, a.messages())
	assert.Equal(t, []string{"both"}, b.messages())

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "direct", 0))
	assert.EqualError(t, err, "sink down")

	h.WithAttrs([]slog.Attr{slog.String("service", "foodfinder")})
	assert.Len(t, a.attrs, 1)
	assert.Len(t, b.attrs, 1)
}

func TestAsyncHandler_FlushOnShutdown(t *testing.T) {
	inner := &recordingHandler{level: slog.LevelInfo, delay: time.Millisecond}
	h := NewAsyncHandler(inner, AsyncOptions{BufferSize: 64})

	log := slog.New(h)
	for range 10 {
		log.Info("ship")
	}
	log.Debug("filtered before enqueue")

	require.NoError(t, h.Shutdown(context.Background()))
	assert.Len(t, inner.messages(), 10)
	assert.Zero(t, h.Dropped())

	// Second shutdown is a no-op and later records are ignored.
	require.NoError(t, h.Shutdown(context.Background()))
	log.Info("after close")
	assert.Len(t, inner.messages(), 10)
}

func TestAsyncHandler_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := &blockingHandler{release: block}
	h := NewAsyncHandler(inner, AsyncOptions{BufferSize: 1})

	log := slog.New(h)
	for range 20 {
		log.Info("burst")
	}
	close(block)
	require.NoError(t, h.Shutdown(context.Background()))

	assert.Positive(t, h.Dropped())
}

type blockingHandler struct {
	release chan struct{}
}

func (h *blockingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *blockingHandler) Handle(context.Context, slog.Record) error {
	<-h.release
	return nil
}
func (h *blockingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *blockingHandler) WithGroup(string) slog.Handler      { return h }
