// Package webhook receives LINE webhook callbacks, hands each event to the
// bot processor and sends the reply.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/line-foodfinder/internal/bot"
	"github.com/garyellow/line-foodfinder/internal/config"
	"github.com/garyellow/line-foodfinder/internal/ctxutil"
	domerrors "github.com/garyellow/line-foodfinder/internal/errors"
	"github.com/garyellow/line-foodfinder/internal/logger"
	"github.com/garyellow/line-foodfinder/internal/metrics"
	"github.com/garyellow/line-foodfinder/internal/ratelimit"
	"github.com/garyellow/line-foodfinder/internal/sentry"
)

// Processor turns one event into reply messages.
type Processor interface {
	WillReply(event webhook.MessageEvent) bool
	ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error)
	ProcessPostback(ctx context.Context, event webhook.PostbackEvent) ([]messaging_api.MessageInterface, error)
	ProcessFollow(event webhook.FollowEvent) ([]messaging_api.MessageInterface, error)
	ProcessJoin(event webhook.JoinEvent) ([]messaging_api.MessageInterface, error)
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	metrics       *metrics.Metrics
	logger        *logger.Logger
	processor     Processor
	rateLimiter   *ratelimit.Limiter // Global rate limiter for API calls
	wg            sync.WaitGroup     // WaitGroup for async event processing

	reply       func(*messaging_api.ReplyMessageRequest) error
	showLoading func(*messaging_api.ShowLoadingAnimationRequest) error

	// LINE API constraints (from config.BotConfig)
	maxMessagesPerReply int
	maxEventsPerWebhook int
	minReplyTokenLength int
	loadingSeconds      int32
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret string
	ChannelToken  string
	BotConfig     *config.BotConfig
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
	Processor     Processor
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	client, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}

	h := &Handler{
		channelSecret: cfg.ChannelSecret,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		processor:     cfg.Processor,
		reply: func(req *messaging_api.ReplyMessageRequest) error {
			_, err := client.ReplyMessage(req)
			return err
		},
		showLoading: func(req *messaging_api.ShowLoadingAnimationRequest) error {
			_, err := client.ShowLoadingAnimation(req)
			return err
		},
		maxMessagesPerReply: cfg.BotConfig.MaxMessagesPerReply,
		maxEventsPerWebhook: cfg.BotConfig.MaxEventsPerWebhook,
		minReplyTokenLength: cfg.BotConfig.MinReplyTokenLength,
		loadingSeconds:      loadingSecondsFor(cfg.BotConfig.WebhookTimeout),
	}

	h.rateLimiter = ratelimit.New(cfg.BotConfig.GlobalRateRPS, cfg.BotConfig.GlobalRateRPS)

	return h, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	// 1. Parse request
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// 2. Return 200 OK immediately (LINE requirement)
	c.Status(http.StatusOK)

	// 3. Process events asynchronously
	start := time.Now()
	h.metrics.RecordWebhook("batch", "received", 0)

	if len(cb.Events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEventsPerWebhook]
	}

	// Copy events to avoid race condition after HTTP response completes
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	batchCtx := context.Background()
	if requestID, ok := ctxutil.GetRequestID(c.Request.Context()); ok {
		batchCtx = ctxutil.WithRequestID(batchCtx, requestID)
	}

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
				sentry.RecoverWithContext(batchCtx, r)
			}
		}()

		for _, event := range events {
			h.processEvent(batchCtx, event, start)
		}
	})
}

// processEvent handles a single webhook event asynchronously
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface, webhookStart time.Time) {
	eventStart := time.Now()
	var messages []messaging_api.MessageInterface
	var eventType string
	var err error

	eventID, eventTimestamp, isRedelivery := extractEventMeta(event)
	if eventID != "" {
		ctx = ctxutil.WithEventID(ctx, eventID)
	}

	log := h.logger
	if eventID != "" {
		log = log.WithField("event_id", eventID)
	}
	if isRedelivery != nil {
		log = log.WithField("is_redelivery", *isRedelivery)
	}
	if eventTimestamp > 0 {
		log = log.WithField("event_timestamp_ms", eventTimestamp)
	}

	if h.shouldShowLoading(event) {
		if loadErr := h.showLoadingAnimation(event); loadErr != nil {
			log.WithError(loadErr).Warn("Failed to show loading animation")
		}
	}

	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType = "message"
		messages, err = h.processor.ProcessMessage(ctx, e)
	case webhook.PostbackEvent:
		eventType = "postback"
		messages, err = h.processor.ProcessPostback(ctx, e)
	case webhook.FollowEvent:
		eventType = "follow"
		messages, err = h.processor.ProcessFollow(e)
	case webhook.JoinEvent:
		eventType = "join"
		messages, err = h.processor.ProcessJoin(e)
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	eventDuration := time.Since(eventStart)
	status := "success"
	if err != nil {
		status = "error"
		log.WithError(err).WithField("event_type", eventType).Error("Failed to handle event")
	}
	h.metrics.RecordWebhook(eventType, status, eventDuration.Seconds())

	if len(messages) > 0 && err == nil {
		if replyErr := h.sendReply(ctx, event, messages, log); replyErr != nil {
			h.metrics.RecordWebhook(eventType, "reply_error", time.Since(eventStart).Seconds())
		}
	}

	log.WithField("event_type", eventType).
		WithField("event_duration_ms", eventDuration.Milliseconds()).
		WithField("batch_duration_ms", time.Since(webhookStart).Milliseconds()).
		Info("Event processed")
}

// sendReply makes the single reply attempt for an event. Failures are
// logged and counted, never retried: a reply token is single-use.
func (h *Handler) sendReply(ctx context.Context, event webhook.EventInterface, messages []messaging_api.MessageInterface, log *logger.Logger) error {
	if len(messages) > h.maxMessagesPerReply {
		log.WithField("message_count", len(messages)).
			WithField("limit", h.maxMessagesPerReply).
			Warn("Message count exceeds limit; truncating")
		messages = messages[:h.maxMessagesPerReply]
	}

	replyToken := getReplyToken(event)
	if replyToken == "" {
		log.Debug("Empty reply token, skipping reply")
		return nil
	}
	if len(replyToken) < h.minReplyTokenLength {
		log.WithField("token_length", len(replyToken)).Debug("Invalid reply token format")
		return nil
	}

	if !h.rateLimiter.Allow() {
		log.Warn("Global rate limit exceeded; waiting")
		h.metrics.RecordRateLimiterDrop("global")
		if err := h.rateLimiter.Wait(ctx); err != nil {
			return h.replyFailed(fmt.Errorf("%w: %w: %w", domerrors.ErrReplyDelivery, domerrors.ErrRateLimitExceeded, err), "rate_limited", log)
		}
	}

	err := h.reply(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err == nil {
		return nil
	}

	err = fmt.Errorf("%w: %w", domerrors.ErrReplyDelivery, err)
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "Invalid reply token"):
		return h.replyFailed(err, "invalid_token", log.WithField("reply_token", tokenPrefix(replyToken)))
	case strings.Contains(errMsg, "rate limit"):
		return h.replyFailed(err, "rate_limited", log)
	default:
		return h.replyFailed(err, "api_error", log.WithField("reply_token", tokenPrefix(replyToken)))
	}
}

func (h *Handler) replyFailed(err error, reason string, log *logger.Logger) error {
	if reason == "invalid_token" {
		log.WithError(err).Debug("Reply token already used or invalid")
	} else {
		log.WithError(err).WithField("reason", reason).Error("Failed to send reply")
	}
	h.metrics.RecordReplyError(reason)
	return err
}

func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8] + "..."
	}
	return token
}

func extractEventMeta(event webhook.EventInterface) (string, int64, *bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.PostbackEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.FollowEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.JoinEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	default:
		return "", 0, nil
	}
}

func boolPtr(ctx *webhook.DeliveryContext) *bool {
	if ctx == nil {
		return nil
	}
	val := ctx.IsRedelivery
	return &val
}

// shouldShowLoading reports whether the event is a 1:1 message the
// processor will answer. Ignored chatter gets no indicator.
func (h *Handler) shouldShowLoading(event webhook.EventInterface) bool {
	e, ok := event.(webhook.MessageEvent)
	if !ok || !bot.IsPersonalChat(e.Source) {
		return false
	}
	return h.processor.WillReply(e)
}

// showLoadingAnimation shows a loading circle animation in a 1:1 chat.
func (h *Handler) showLoadingAnimation(event webhook.EventInterface) error {
	chatID := getChatID(event)
	if chatID == "" {
		return nil
	}

	req := &messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: h.loadingSeconds,
	}
	if err := h.showLoading(req); err != nil {
		return fmt.Errorf("failed to show loading animation: %w", err)
	}
	return nil
}

// loadingSecondsFor rounds timeout up to the 5-60s steps LINE accepts.
func loadingSecondsFor(timeout time.Duration) int32 {
	secs := int32((timeout + 5*time.Second - 1) / (5 * time.Second) * 5)
	return min(max(secs, 5), 60)
}

// getReplyToken extracts reply token from event
func getReplyToken(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.ReplyToken
	case webhook.PostbackEvent:
		return e.ReplyToken
	case webhook.FollowEvent:
		return e.ReplyToken
	case webhook.JoinEvent:
		return e.ReplyToken
	default:
		return ""
	}
}

// getChatID extracts chat ID from event
func getChatID(event webhook.EventInterface) string {
	var source webhook.SourceInterface

	switch e := event.(type) {
	case webhook.MessageEvent:
		source = e.Source
	case webhook.PostbackEvent:
		source = e.Source
	case webhook.FollowEvent:
		source = e.Source
	case webhook.JoinEvent:
		source = e.Source
	default:
		return ""
	}

	return bot.GetChatID(source)
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
