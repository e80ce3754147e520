// Package dish implements the two conversational triggers: แดกไร suggests a
// random dish, แดกไหน asks the user to share a location.
package dish

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/line-foodfinder/internal/bot"
	"github.com/garyellow/line-foodfinder/internal/lineutil"
)

// ModuleName identifies the module in logs.
const ModuleName = "dish"

const (
	triggerWhat  = "แดกไร"
	triggerWhere = "แดกไหน"

	askWhereText = "อยากไปแดกแถวไหนละ"
	askShareText = "แชร์โลมาด้ายนะ"
)

var (
	meats   = []string{"หมู", "ปลา", "ไก่", "กุ้ง", "หอย", "ปู", "เนื้อ", "ผัก", "เห็ด"}
	methods = []string{"ผัด", "ต้ม", "ทอด"}
	sauces  = []string{"น้ำมันหอย", "พริกไทยดำ", "ผงกะหรี่", "เปรี้ยวหวาน", "กระเทียม"}
)

// Handler answers dish and place questions without calling the places API.
type Handler struct {
	intN func(n int) int
}

// NewHandler creates a new dish handler.
func NewHandler() *Handler {
	return &Handler{intN: rand.IntN}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

// CanHandle reports whether text contains แดกไร or แดกไหน.
func (h *Handler) CanHandle(text string) bool {
	return strings.Contains(text, triggerWhat) || strings.Contains(text, triggerWhere)
}

// HandleMessage replies with a dish suggestion or a location prompt.
func (h *Handler) HandleMessage(_ context.Context, in bot.Input) []messaging_api.MessageInterface {
	if strings.Contains(in.Text, triggerWhat) {
		return []messaging_api.MessageInterface{
			lineutil.NewTextMessageWithQuickReply(h.randomDish(), lineutil.QuickReplyRandom()),
		}
	}

	return []messaging_api.MessageInterface{
		lineutil.NewTextMessage(askWhereText),
		lineutil.NewTextMessageWithQuickReply(askShareText, lineutil.QuickReplyShareLocation()),
	}
}

func (h *Handler) randomDish() string {
	return meats[h.intN(len(meats))] + methods[h.intN(len(methods))] + sauces[h.intN(len(sauces))]
}
