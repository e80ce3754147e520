package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/line-foodfinder/internal/logger"
	"github.com/garyellow/line-foodfinder/internal/sentry"
)

// HandlerFunc runs a handler for an input.
type HandlerFunc func(ctx context.Context, h Handler, in Input) []messaging_api.MessageInterface

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain applies middlewares so that the first one is the outermost.
func Chain(final HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		final = mws[i](final)
	}
	return final
}

func invoke(ctx context.Context, h Handler, in Input) []messaging_api.MessageInterface {
	return h.HandleMessage(ctx, in)
}

// LoggingMiddleware logs handler execution with timing and result info.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, in Input) []messaging_api.MessageInterface {
			start := time.Now()

			log.WithField("module", h.Name()).
				WithField("text_length", len(in.Text)).
				Debug("Handler started")

			msgs := next(ctx, h, in)

			log.WithField("module", h.Name()).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				WithField("msg_count", len(msgs)).
				Debug("Handler completed")

			return msgs
		}
	}
}

// RecoveryMiddleware turns a handler panic into no reply and reports it.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, h Handler, in Input) (msgs []messaging_api.MessageInterface) {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("module", h.Name()).
						WithField("panic", fmt.Sprint(r)).
						WithField("stack", string(debug.Stack())).
						Error("Handler panicked")
					sentry.RecoverWithContext(ctx, r)
					msgs = nil
				}
			}()

			return next(ctx, h, in)
		}
	}
}
