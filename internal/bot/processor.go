package bot

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/line-foodfinder/internal/config"
	"github.com/garyellow/line-foodfinder/internal/ctxutil"
	"github.com/garyellow/line-foodfinder/internal/lineutil"
	"github.com/garyellow/line-foodfinder/internal/logger"
	"github.com/garyellow/line-foodfinder/internal/ratelimit"
	"github.com/garyellow/line-foodfinder/internal/recommend"
)

// helpKeywords are the keywords that trigger the usage message
var helpKeywords = []string{"help", "วิธีใช้", "ช่วยด้วย"}

const (
	usageText = "🍜 วิธีใช้\n\n" +
		"• พิมพ์ \"สุ่มมา\" ให้สุ่มร้านอาหาร\n" +
		"• พิมพ์ \"สุ่มพิซซ่ามา\" ให้สุ่มร้านตามที่อยากกิน\n" +
		"• แชร์โลเคชั่นมา จะหาร้านใกล้ๆ ให้\n" +
		"• พิมพ์ \"แดกไร\" ให้ช่วยคิดเมนู\n" +
		"• พิมพ์ \"โควต้า\" ดูจำนวนค้นหาที่เหลือวันนี้"

	welcomeText     = "สวัสดี! หิวเมื่อไหร่เรียกได้เลย 🍽️"
	userLimitText   = "⏳ ส่งข้อความถี่เกินไป รอสักครู่แล้วลองใหม่นะ"
	searchBurstText = "⏳ ค้นหาถี่เกินไป รออีกสักนาทีนะ"
	searchDailyText = "🙅 วันนี้ค้นหาครบ %d ครั้งแล้ว พรุ่งนี้ค่อยมาใหม่นะ"
	tooLongText     = "❌ ข้อความยาวเกินไป ลองพิมพ์ให้สั้นลงนะ"
)

// Processor handles the core logic of processing LINE events.
// It orchestrates rate limiting, search quota and dispatching to handlers.
type Processor struct {
	registry      *Registry
	nearby        LocationHandler
	userLimiter   *ratelimit.KeyedLimiter
	searchLimiter *ratelimit.KeyedLimiter
	logger        *logger.Logger
	run           HandlerFunc

	// Configuration
	webhookTimeout   time.Duration
	maxMessageLength int
}

// ProcessorConfig holds configuration for creating a new Processor.
type ProcessorConfig struct {
	Registry      *Registry
	Nearby        LocationHandler // nil disables location shares
	UserLimiter   *ratelimit.KeyedLimiter
	SearchLimiter *ratelimit.KeyedLimiter // nil disables the search quota
	Logger        *logger.Logger
	BotConfig     *config.BotConfig
}

// NewProcessor creates a new event processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{
		registry:         cfg.Registry,
		nearby:           cfg.Nearby,
		userLimiter:      cfg.UserLimiter,
		searchLimiter:    cfg.SearchLimiter,
		logger:           cfg.Logger,
		run:              Chain(invoke, RecoveryMiddleware(cfg.Logger), LoggingMiddleware(cfg.Logger)),
		webhookTimeout:   cfg.BotConfig.WebhookTimeout,
		maxMessageLength: cfg.BotConfig.MaxMessageLength,
	}
}

// ProcessMessage handles a message event. Text goes through the trigger
// table, location shares go to the nearby handler, everything else is
// ignored.
func (p *Processor) ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	chatID := GetChatID(event.Source)
	userID := GetUserID(event.Source)

	ctx = ctxutil.WithChatID(ctx, chatID)
	ctx = ctxutil.WithUserID(ctx, userID)

	switch msg := event.Message.(type) {
	case webhook.TextMessageContent:
		ctx = ctxutil.WithMessageID(ctx, msg.Id)
		return p.processText(ctx, event.Source, msg.Text), nil
	case webhook.LocationMessageContent:
		ctx = ctxutil.WithMessageID(ctx, msg.Id)
		return p.processLocation(ctx, event.Source, msg), nil
	default:
		return nil, nil
	}
}

// WillReply reports whether ProcessMessage would answer the event: a help
// keyword or trigger match for text, or a location share with a nearby
// handler configured. Limits are not consulted.
func (p *Processor) WillReply(event webhook.MessageEvent) bool {
	switch msg := event.Message.(type) {
	case webhook.TextMessageContent:
		text := Normalize(msg.Text)
		if text == "" {
			return false
		}
		return slices.Contains(helpKeywords, text) || p.registry.Match(text) != nil
	case webhook.LocationMessageContent:
		return p.nearby != nil
	default:
		return false
	}
}

func (p *Processor) processText(ctx context.Context, source webhook.SourceInterface, raw string) []messaging_api.MessageInterface {
	if len(raw) == 0 {
		return nil
	}

	text := Normalize(raw)
	if text == "" {
		return nil
	}

	if slices.Contains(helpKeywords, text) {
		if allowed, msgs := p.checkUserRateLimit(source); !allowed {
			return msgs
		}
		p.logger.Info("User requested usage")
		return usageMessages()
	}

	h := p.registry.Match(text)
	if h == nil {
		return nil
	}

	// Only matched messages count against the per-chat limit.
	if allowed, msgs := p.checkUserRateLimit(source); !allowed {
		return msgs
	}

	if p.maxMessageLength > 0 && len([]rune(raw)) > p.maxMessageLength {
		p.logger.Warnf("Text message too long: %d characters", len([]rune(raw)))
		return []messaging_api.MessageInterface{lineutil.NewTextMessage(tooLongText)}
	}

	if spendsQuota(h) {
		if allowed, msgs := p.checkSearchQuota(source); !allowed {
			return msgs
		}
	}

	processCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), p.webhookTimeout)
	defer cancel()

	return p.run(processCtx, h, inputFor(source, text))
}

func (p *Processor) processLocation(ctx context.Context, source webhook.SourceInterface, loc webhook.LocationMessageContent) []messaging_api.MessageInterface {
	if p.nearby == nil {
		return nil
	}

	if allowed, msgs := p.checkUserRateLimit(source); !allowed {
		return msgs
	}
	if allowed, msgs := p.checkSearchQuota(source); !allowed {
		return msgs
	}

	processCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), p.webhookTimeout)
	defer cancel()

	p.logger.WithField("module", p.nearby.Name()).Debug("Location share received")
	return p.nearby.HandleLocation(processCtx, inputFor(source, ""), loc.Latitude, loc.Longitude)
}

// ProcessPostback handles a postback event. The only postback the bot
// emits is the "no website" placeholder action, which needs no reply.
func (p *Processor) ProcessPostback(_ context.Context, event webhook.PostbackEvent) ([]messaging_api.MessageInterface, error) {
	data := event.Postback.Data
	if data == recommend.NoWebsitePostback {
		return nil, nil
	}

	p.logger.WithField("data_length", len(data)).Debug("Ignoring unknown postback")
	return nil, nil
}

// ProcessFollow handles a follow event.
func (p *Processor) ProcessFollow(_ webhook.FollowEvent) ([]messaging_api.MessageInterface, error) {
	p.logger.Info("New user followed the bot")
	return welcomeMessages(), nil
}

// ProcessJoin handles the bot joining a group or room.
func (p *Processor) ProcessJoin(_ webhook.JoinEvent) ([]messaging_api.MessageInterface, error) {
	p.logger.Info("Bot joined a chat")
	return welcomeMessages(), nil
}

// checkUserRateLimit checks if the chat has exceeded its message rate limit.
func (p *Processor) checkUserRateLimit(source webhook.SourceInterface) (bool, []messaging_api.MessageInterface) {
	chatID := GetChatID(source)
	if chatID == "" || p.userLimiter == nil {
		return true, nil
	}

	if p.userLimiter.Allow(chatID) {
		return true, nil
	}

	p.logger.WithField("chat_id", shortID(chatID)).Warn("User rate limit exceeded")

	if IsPersonalChat(source) {
		return false, []messaging_api.MessageInterface{lineutil.NewTextMessage(userLimitText)}
	}
	return false, nil
}

// checkSearchQuota charges one search to the chat.
func (p *Processor) checkSearchQuota(source webhook.SourceInterface) (bool, []messaging_api.MessageInterface) {
	chatID := GetChatID(source)
	if chatID == "" || p.searchLimiter == nil {
		return true, nil
	}

	var text string
	switch p.searchLimiter.Reserve(chatID) {
	case ratelimit.Allowed:
		return true, nil
	case ratelimit.DeniedDaily:
		text = fmt.Sprintf(searchDailyText, p.searchLimiter.DailyLimit())
	default:
		text = searchBurstText
	}

	p.logger.WithField("chat_id", shortID(chatID)).Warn("Search quota exceeded")
	return false, []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithQuickReply(text, lineutil.QuickReplyHelp()),
	}
}

func usageMessages() []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithQuickReply(usageText,
			lineutil.QuickReplyRandom(),
			lineutil.QuickReplyShareLocation(),
		),
	}
}

func welcomeMessages() []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		lineutil.NewTextMessage(welcomeText),
		lineutil.NewTextMessageWithQuickReply(usageText,
			lineutil.QuickReplyRandom(),
			lineutil.QuickReplyShareLocation(),
		),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
