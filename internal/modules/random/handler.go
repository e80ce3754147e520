// Package random implements the "สุ่ม…มา" trigger: a random restaurant
// search around a sampled location.
package random

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/line-foodfinder/internal/bot"
	"github.com/garyellow/line-foodfinder/internal/recommend"
)

// ModuleName identifies the module in logs.
const ModuleName = "random"

const (
	markerRandom = "สุ่ม"
	markerBring  = "มา"
)

// Recommender runs the random recommendation path.
type Recommender interface {
	Random(ctx context.Context, req recommend.Request) []messaging_api.MessageInterface
}

// Handler handles random restaurant requests.
type Handler struct {
	workflow Recommender
}

// NewHandler creates a new random handler.
func NewHandler(workflow Recommender) *Handler {
	return &Handler{workflow: workflow}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

// CanHandle reports whether text contains both สุ่ม and มา.
func (h *Handler) CanHandle(text string) bool {
	return bot.ContainsAll(text, markerRandom, markerBring)
}

// SpendsSearchQuota marks the module as a places consumer.
func (h *Handler) SpendsSearchQuota() bool {
	return true
}

// HandleMessage runs the random recommendation for the message text.
func (h *Handler) HandleMessage(ctx context.Context, in bot.Input) []messaging_api.MessageInterface {
	return h.workflow.Random(ctx, recommend.Request{
		SenderID: in.UserID,
		Scope:    in.Scope,
		Text:     in.Text,
	})
}
