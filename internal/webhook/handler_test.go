package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/line-foodfinder/internal/config"
	"github.com/garyellow/line-foodfinder/internal/logger"
	"github.com/garyellow/line-foodfinder/internal/metrics"
)

const testSecret = "test-channel-secret"

type fakeProcessor struct {
	mu       sync.Mutex
	texts    []string
	messages int
}

func (f *fakeProcessor) ProcessMessage(_ context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if text, ok := event.Message.(webhook.TextMessageContent); ok {
		f.texts = append(f.texts, text.Text)
	}
	msgs := make([]messaging_api.MessageInterface, f.messages)
	for i := range msgs {
		msgs[i] = &messaging_api.TextMessage{Text: fmt.Sprintf("m%d", i)}
	}
	return msgs, nil
}

func (f *fakeProcessor) WillReply(webhook.MessageEvent) bool {
	return f.messages > 0
}

func (f *fakeProcessor) ProcessPostback(context.Context, webhook.PostbackEvent) ([]messaging_api.MessageInterface, error) {
	return nil, nil
}

func (f *fakeProcessor) ProcessFollow(webhook.FollowEvent) ([]messaging_api.MessageInterface, error) {
	return []messaging_api.MessageInterface{&messaging_api.TextMessage{Text: "welcome"}}, nil
}

func (f *fakeProcessor) ProcessJoin(webhook.JoinEvent) ([]messaging_api.MessageInterface, error) {
	return nil, errors.New("join failed")
}

type recorder struct {
	mu       sync.Mutex
	replies  []*messaging_api.ReplyMessageRequest
	loadings []*messaging_api.ShowLoadingAnimationRequest
	replyErr error
}

func (r *recorder) reply(req *messaging_api.ReplyMessageRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, req)
	return r.replyErr
}

func (r *recorder) loading(req *messaging_api.ShowLoadingAnimationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadings = append(r.loadings, req)
	return nil
}

func setupTestHandler(t *testing.T, proc *fakeProcessor) (*Handler, *recorder, *metrics.Metrics) {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	h, err := NewHandler(HandlerConfig{
		ChannelSecret: testSecret,
		ChannelToken:  "test-token",
		BotConfig: &config.BotConfig{
			WebhookTimeout:      25 * time.Second,
			GlobalRateRPS:       100,
			MaxMessagesPerReply: 5,
			MaxEventsPerWebhook: 2,
			MinReplyTokenLength: 10,
		},
		Metrics:   m,
		Logger:    logger.New("error"),
		Processor: proc,
	})
	require.NoError(t, err)

	rec := &recorder{}
	h.reply = rec.reply
	h.showLoading = rec.loading
	return h, rec, m
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func textEventJSON(source, replyToken, text string) string {
	return fmt.Sprintf(`{"type":"message","mode":"active","timestamp":1700000000000,`+
		`"source":%s,"webhookEventId":"01HEVENT","deliveryContext":{"isRedelivery":false},`+
		`"replyToken":%q,"message":{"type":"text","id":"1","quoteToken":"q","text":%q}}`, source, replyToken, text)
}

func serve(t *testing.T, h *Handler, body string, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/webhook", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Header.Set("X-Line-Signature", signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func drain(t *testing.T, h *Handler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))
}

func TestHandle_InvalidSignature(t *testing.T) {
	t.Parallel()
	proc := &fakeProcessor{messages: 1}
	h, rec, _ := setupTestHandler(t, proc)

	body := `{"destination":"x","events":[]}`
	w := serve(t, h, body, "bad-signature")
	drain(t, h)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.replies)
}

func TestHandle_RepliesOncePerEvent(t *testing.T) {
	t.Parallel()
	proc := &fakeProcessor{messages: 2}
	h, rec, _ := setupTestHandler(t, proc)

	body := `{"destination":"x","events":[` + textEventJSON(`{"type":"user","userId":"U1"}`, "reply-token-0001", "สุ่มมา") + `]}`
	w := serve(t, h, body, sign([]byte(body)))
	drain(t, h)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"สุ่มมา"}, proc.texts)
	require.Len(t, rec.replies, 1)
	assert.Equal(t, "reply-token-0001", rec.replies[0].ReplyToken)
	assert.Len(t, rec.replies[0].Messages, 2)

	require.Len(t, rec.loadings, 1)
	assert.Equal(t, "U1", rec.loadings[0].ChatId)
	assert.Equal(t, int32(25), rec.loadings[0].LoadingSeconds)
}

func TestHandle_GroupHasNoLoadingAnimation(t *testing.T) {
	t.Parallel()
	proc := &fakeProcessor{messages: 1}
	h, rec, _ := setupTestHandler(t, proc)

	body := `{"destination":"x","events":[` + textEventJSON(`{"type":"group","groupId":"G1","userId":"U1"}`, "reply-token-0002", "แดกไร") + `]}`
	serve(t, h, body, sign([]byte(body)))
	drain(t, h)

	assert.Len(t, rec.replies, 1)
	assert.Empty(t, rec.loadings)
}

func TestHandle_NoReplyWhenNothingToSay(t *testing.T) {
	t.Parallel()
	proc := &fakeProcessor{messages: 0}
	h, rec, _ := setupTestHandler(t, proc)

	body := `{"destination":"x","events":[` + textEventJSON(`{"type":"user","userId":"U1"}`, "reply-token-0003", "hello") + `]}`
	serve(t, h, body, sign([]byte(body)))
	drain(t, h)

	assert.Equal(t, []string{"hello"}, proc.texts)
	assert.Empty(t, rec.replies)
	assert.Empty(t, rec.loadings, "ignored 1:1 text must not start a loading indicator")
}

func TestHandle_TruncatesEventsAndMessages(t *testing.T) {
	t.Parallel()
	proc := &fakeProcessor{messages: 7}
	h, rec, _ := setupTestHandler(t, proc)

	events := make([]string, 3)
	for i := range events {
		events[i] = textEventJSON(`{"type":"user","userId":"U1"}`, fmt.Sprintf("reply-token-%04d", i), fmt.Sprintf("t%d", i))
	}
	body := `{"destination":"x","events":[` + strings.Join(events, ",") + `]}`
	serve(t, h, body, sign([]byte(body)))
	drain(t, h)

	assert.Equal(t, []string{"t0", "t1"}, proc.texts)
	require.Len(t, rec.replies, 2)
	for _, r := range rec.replies {
		assert.Len(t, r.Messages, 5)
	}
}

func TestHandle_ShortReplyTokenSkipped(t *testing.T) {
	t.Parallel()
	proc := &fakeProcessor{messages: 1}
	h, rec, _ := setupTestHandler(t, proc)

	body := `{"destination":"x","events":[` + textEventJSON(`{"type":"user","userId":"U1"}`, "short", "สุ่มมา") + `]}`
	serve(t, h, body, sign([]byte(body)))
	drain(t, h)

	assert.Empty(t, rec.replies)
}

func TestHandle_ReplyFailureIsCountedNotRetried(t *testing.T) {
	t.Parallel()
	proc := &fakeProcessor{messages: 1}
	h, rec, m := setupTestHandler(t, proc)
	rec.replyErr = errors.New("Invalid reply token")

	body := `{"destination":"x","events":[` + textEventJSON(`{"type":"user","userId":"U1"}`, "reply-token-0004", "สุ่มมา") + `]}`
	serve(t, h, body, sign([]byte(body)))
	drain(t, h)

	assert.Len(t, rec.replies, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReplyErrorsTotal.WithLabelValues("invalid_token")), 0)
}

func TestLoadingSecondsFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int32(5), loadingSecondsFor(time.Second))
	assert.Equal(t, int32(25), loadingSecondsFor(25*time.Second))
	assert.Equal(t, int32(30), loadingSecondsFor(26*time.Second))
	assert.Equal(t, int32(60), loadingSecondsFor(5*time.Minute))
}

func TestGetChatID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "G1", getChatID(webhook.MessageEvent{Source: webhook.GroupSource{GroupId: "G1", UserId: "U1"}}))
	assert.Equal(t, "R1", getChatID(webhook.PostbackEvent{Source: webhook.RoomSource{RoomId: "R1"}}))
	assert.Equal(t, "U1", getChatID(webhook.FollowEvent{Source: webhook.UserSource{UserId: "U1"}}))
	assert.Empty(t, getChatID(webhook.UnfollowEvent{}))
	assert.Equal(t, "tok", getReplyToken(webhook.JoinEvent{ReplyToken: "tok"}))
}

func TestHandlerShutdown_ContextCanceled(t *testing.T) {
	t.Parallel()
	h, _, _ := setupTestHandler(t, &fakeProcessor{})

	block := make(chan struct{})
	h.wg.Go(func() { <-block })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Shutdown(ctx), context.Canceled)
	close(block)
}
