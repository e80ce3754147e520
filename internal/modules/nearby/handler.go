// Package nearby answers shared locations with restaurants around them.
package nearby

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/paulmach/orb"

	"github.com/garyellow/line-foodfinder/internal/bot"
	"github.com/garyellow/line-foodfinder/internal/recommend"
)

// ModuleName identifies the module in logs.
const ModuleName = "nearby"

// Recommender runs the nearby recommendation path.
type Recommender interface {
	Nearby(ctx context.Context, req recommend.Request) []messaging_api.MessageInterface
}

// Handler handles location shares.
type Handler struct {
	workflow Recommender
}

// NewHandler creates a new nearby handler.
func NewHandler(workflow Recommender) *Handler {
	return &Handler{workflow: workflow}
}

// Name returns the module name
func (h *Handler) Name() string {
	return ModuleName
}

// HandleLocation searches around the shared coordinate.
func (h *Handler) HandleLocation(ctx context.Context, in bot.Input, lat, lng float64) []messaging_api.MessageInterface {
	return h.workflow.Nearby(ctx, recommend.Request{
		SenderID: in.UserID,
		Scope:    in.Scope,
		Center:   orb.Point{lng, lat},
	})
}
