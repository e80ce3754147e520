package config

import (
	"errors"
	"fmt"
	"time"
)

// LINE Messaging API limits.
// https://developers.line.biz/en/reference/messaging-api/
const (
	LINEMaxMessagesPerReply   = 5
	LINEMaxTextMessageLength  = 5000
	LINEMaxPostbackDataLength = 300
	LINEMaxCarouselColumns    = 10
	LINEMaxAltTextLength      = 400
)

// BotConfig holds webhook processing limits and rate limit settings.
type BotConfig struct {
	WebhookTimeout time.Duration

	// Per-chat request limiter (token bucket)
	UserRateBurst  float64
	UserRateRefill float64 // tokens per second

	// Per-chat search quota (token bucket + rolling 24h cap)
	SearchBurst           float64
	SearchRefillPerMinute float64
	SearchDailyLimit      int // 0 disables the daily cap

	// Outbound LINE API limiter
	GlobalRateRPS float64

	// LINE API constraints
	MaxMessagesPerReply int
	MaxEventsPerWebhook int
	MinReplyTokenLength int
	MaxMessageLength    int
	MaxPostbackDataSize int
}

func loadBotConfig() BotConfig {
	return BotConfig{
		WebhookTimeout:        getDurationEnv(EnvWebhookTimeout, WebhookProcessing),
		UserRateBurst:         getFloatEnv(EnvUserRateBurst, 10.0),
		UserRateRefill:        getFloatEnv(EnvUserRateRefill, 0.2), // 1 per 5s
		SearchBurst:           getFloatEnv(EnvSearchBurst, 5.0),
		SearchRefillPerMinute: getFloatEnv(EnvSearchRefillPerMinute, 1.0),
		SearchDailyLimit:      getIntEnv(EnvSearchDailyLimit, 50),
		GlobalRateRPS:         getFloatEnv(EnvGlobalRateRPS, 80.0), // LINE allows 100
		MaxMessagesPerReply:   LINEMaxMessagesPerReply,
		MaxEventsPerWebhook:   100,
		MinReplyTokenLength:   10,
		MaxMessageLength:      LINEMaxTextMessageLength,
		MaxPostbackDataSize:   LINEMaxPostbackDataLength,
	}
}

// Validate checks if the configuration is valid.
func (c *BotConfig) Validate() error {
	var errs []error

	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", c.WebhookTimeout))
	}
	if c.UserRateBurst <= 0 {
		errs = append(errs, fmt.Errorf("user rate burst must be positive, got %v", c.UserRateBurst))
	}
	if c.UserRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("user rate refill must be positive, got %v", c.UserRateRefill))
	}
	if c.SearchBurst <= 0 {
		errs = append(errs, fmt.Errorf("search burst must be positive, got %v", c.SearchBurst))
	}
	if c.SearchRefillPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("search refill must be positive, got %v", c.SearchRefillPerMinute))
	}
	if c.SearchDailyLimit < 0 {
		errs = append(errs, fmt.Errorf("search daily limit cannot be negative, got %d", c.SearchDailyLimit))
	}
	if c.GlobalRateRPS <= 0 {
		errs = append(errs, fmt.Errorf("global rate limit RPS must be positive, got %v", c.GlobalRateRPS))
	}
	if c.MaxMessagesPerReply < 1 || c.MaxMessagesPerReply > LINEMaxMessagesPerReply {
		errs = append(errs, fmt.Errorf("max messages per reply must be 1-%d (LINE API limit), got %d", LINEMaxMessagesPerReply, c.MaxMessagesPerReply))
	}
	if c.MaxEventsPerWebhook < 1 {
		errs = append(errs, fmt.Errorf("max events per webhook must be positive, got %d", c.MaxEventsPerWebhook))
	}

	return errors.Join(errs...)
}
