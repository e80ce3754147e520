// Package usage implements the quota query module for the LINE bot.
// It tells a chat how many searches it has left.
package usage

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/line-foodfinder/internal/bot"
	"github.com/garyellow/line-foodfinder/internal/lineutil"
	"github.com/garyellow/line-foodfinder/internal/logger"
	"github.com/garyellow/line-foodfinder/internal/ratelimit"
)

// ModuleName identifies the module in logs.
const ModuleName = "usage"

// Keyword definitions for quota queries
var (
	usageKeywords = []string{"โควต้า", "quota"}
	usageRegex    = bot.BuildKeywordRegex(usageKeywords)
)

// Handler handles quota queries.
type Handler struct {
	searchLimiter *ratelimit.KeyedLimiter
	logger        *logger.Logger
}

// NewHandler creates a new usage handler.
func NewHandler(searchLimiter *ratelimit.KeyedLimiter, logger *logger.Logger) *Handler {
	return &Handler{
		searchLimiter: searchLimiter,
		logger:        logger,
	}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

// CanHandle returns true only when the whole text is a quota keyword.
func (h *Handler) CanHandle(text string) bool {
	return MatchesExactly(text)
}

// MatchesExactly reports whether text is exactly one of the quota keywords.
func MatchesExactly(text string) bool {
	text = strings.TrimSpace(text)
	kw := bot.MatchKeyword(usageRegex, text)
	return kw != "" && len(kw) == len(text)
}

// HandleMessage reports the remaining search quota of the chat.
func (h *Handler) HandleMessage(_ context.Context, in bot.Input) []messaging_api.MessageInterface {
	h.logger.WithModule(ModuleName).Debug("Handling quota query")

	return []messaging_api.MessageInterface{
		lineutil.NewTextMessageWithQuickReply(h.statusText(in.ChatID),
			lineutil.QuickReplyRandom(),
			lineutil.QuickReplyHelp(),
		),
	}
}

func (h *Handler) statusText(chatID string) string {
	if h.searchLimiter == nil {
		return "📊 ค้นหาได้ไม่จำกัด"
	}

	var b strings.Builder
	b.WriteString("📊 โควต้าค้นหาร้าน\n\n")

	now := int(math.Floor(h.searchLimiter.Available(chatID)))
	fmt.Fprintf(&b, "⚡ ค้นหาติดกันได้อีก %d ครั้ง", now)

	if limit := h.searchLimiter.DailyLimit(); limit > 0 {
		fmt.Fprintf(&b, "\n📅 วันนี้เหลือ %d / %d ครั้ง", h.searchLimiter.DailyRemaining(chatID), limit)
	}
	return b.String()
}
