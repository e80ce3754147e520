// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvLineChannelAccessToken = "FOODFINDER_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "FOODFINDER_LINE_CHANNEL_SECRET"
	EnvGooglePlacesAPIKey     = "FOODFINDER_GOOGLE_PLACES_API_KEY"

	// Server
	EnvPort            = "FOODFINDER_PORT"
	EnvLogLevel        = "FOODFINDER_LOG_LEVEL"
	EnvShutdownTimeout = "FOODFINDER_SHUTDOWN_TIMEOUT"
	EnvServerName      = "FOODFINDER_SERVER_NAME"

	// Places
	EnvPlacesBaseURL    = "FOODFINDER_PLACES_BASE_URL"
	EnvPlacesTimeout    = "FOODFINDER_PLACES_TIMEOUT"
	EnvPlacesMaxRetries = "FOODFINDER_PLACES_MAX_RETRIES"
	EnvPlacesLanguage   = "FOODFINDER_PLACES_LANGUAGE"
	EnvWebsitePreview   = "FOODFINDER_WEBSITE_PREVIEW"

	// Location list
	EnvLocationFile     = "FOODFINDER_LOCATION_FILE"
	EnvLocationKeyField = "FOODFINDER_LOCATION_KEY_FIELD"
	EnvLocationR2Key    = "FOODFINDER_LOCATION_R2_KEY"

	// Recommendation
	EnvRandomRadius          = "FOODFINDER_RANDOM_RADIUS"
	EnvNearbyRadius          = "FOODFINDER_NEARBY_RADIUS"
	EnvRandomPresentation    = "FOODFINDER_RANDOM_PRESENTATION"
	EnvNearbyPresentation    = "FOODFINDER_NEARBY_PRESENTATION"
	EnvMaxCarouselResults    = "FOODFINDER_MAX_CAROUSEL_RESULTS"
	EnvSendSingleResultCard  = "FOODFINDER_SEND_SINGLE_RESULT_CARD"
	EnvPlaceholderImageURL   = "FOODFINDER_PLACEHOLDER_IMAGE_URL"
	EnvUniqueUserIDs         = "FOODFINDER_UNIQUE_USER_IDS"
	EnvUniqueUserKeyword     = "FOODFINDER_UNIQUE_USER_KEYWORD"
	EnvDefaultKeyword        = "FOODFINDER_DEFAULT_KEYWORD"
	EnvDetailConcurrency     = "FOODFINDER_DETAIL_CONCURRENCY"
	EnvRecommendationTimeout = "FOODFINDER_RECOMMENDATION_TIMEOUT"
	EnvSearchDailyLimit      = "FOODFINDER_SEARCH_DAILY_LIMIT"
	EnvSearchBurst           = "FOODFINDER_SEARCH_BURST"
	EnvSearchRefillPerMinute = "FOODFINDER_SEARCH_REFILL_PER_MINUTE"

	// Webhook
	EnvWebhookTimeout = "FOODFINDER_WEBHOOK_TIMEOUT"

	// Rate Limits
	EnvGlobalRateRPS  = "FOODFINDER_GLOBAL_RATE_RPS"
	EnvUserRateBurst  = "FOODFINDER_USER_RATE_BURST"
	EnvUserRateRefill = "FOODFINDER_USER_RATE_REFILL"

	// Readiness
	EnvWarmupGracePeriod = "FOODFINDER_WARMUP_GRACE_PERIOD"

	// R2 Location Source
	EnvR2Enabled         = "FOODFINDER_R2_ENABLED"
	EnvR2AccountID       = "FOODFINDER_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "FOODFINDER_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "FOODFINDER_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "FOODFINDER_R2_BUCKET_NAME"

	// Sentry Feature
	EnvSentryEnabled     = "FOODFINDER_SENTRY_ENABLED"
	EnvSentryDSN         = "FOODFINDER_SENTRY_DSN"
	EnvSentryEnvironment = "FOODFINDER_SENTRY_ENVIRONMENT"
	EnvSentryRelease     = "FOODFINDER_SENTRY_RELEASE"
	EnvSentrySampleRate  = "FOODFINDER_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackEnabled  = "FOODFINDER_BETTERSTACK_ENABLED"
	EnvBetterStackToken    = "FOODFINDER_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "FOODFINDER_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "FOODFINDER_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "FOODFINDER_METRICS_USERNAME"
	EnvMetricsPassword    = "FOODFINDER_METRICS_PASSWORD"
)
