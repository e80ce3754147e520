// Package bot routes LINE events to the bot modules. Text messages are
// matched against an ordered trigger table (Registry); location shares go
// to a single LocationHandler.
package bot

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/line-foodfinder/internal/recommend"
)

// Input is a normalized inbound message with its origin.
type Input struct {
	Text   string // normalized, see Normalize
	UserID string
	ChatID string
	Scope  recommend.Scope
}

// Handler defines the interface that all text trigger modules implement.
type Handler interface {
	// Name identifies the module in logs.
	Name() string

	// CanHandle reports whether the normalized text triggers this module.
	CanHandle(text string) bool

	// HandleMessage returns the reply (max 5 messages). An empty slice
	// means no reply.
	HandleMessage(ctx context.Context, in Input) []messaging_api.MessageInterface
}

// SearchHandler is implemented by modules whose replies call the places
// service. Their requests are charged against the search quota.
type SearchHandler interface {
	Handler
	SpendsSearchQuota() bool
}

// LocationHandler answers shared locations.
type LocationHandler interface {
	Name() string
	HandleLocation(ctx context.Context, in Input, lat, lng float64) []messaging_api.MessageInterface
}

func spendsQuota(h Handler) bool {
	s, ok := h.(SearchHandler)
	return ok && s.SpendsSearchQuota()
}
