// Package config provides centralized timeout constants for the application.
//
// These values are tuned around:
//   - LINE Messaging API constraints (reply token expiration, webhook acknowledgment)
//   - Google Places web service latency (nearbysearch is the slowest call)
//
// # LINE API Constraints
//
// LINE webhook has specific timing requirements:
//   - Reply token: Valid for a short while, reply as soon as possible
//   - Webhook response: LINE expects a quick 200 OK
//   - Loading animation: Shows for up to 60 seconds while we work
//
// A carousel reply costs one nearbysearch plus up to five details lookups.
// Details run concurrently, so the worst case is roughly two sequential
// round trips plus one retry each.
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing is the timeout for processing a single webhook event.
	// Covers the places calls and the reply request.
	WebhookProcessing = 25 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Should be short since LINE sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Places timeouts
const (
	// PlacesRequest is the timeout for a single attempt against the places API.
	// Each retry gets a fresh budget of this size.
	PlacesRequest = 8 * time.Second

	// PlacesRetryInitial is the initial delay before retrying a failed request.
	PlacesRetryInitial = 500 * time.Millisecond

	// RecommendationTimeout bounds one whole recommendation run
	// (search, details fan-out, photo URLs).
	RecommendationTimeout = 20 * time.Second

	// WebsitePreviewRequest bounds the optional og:image lookup.
	WebsitePreviewRequest = 3 * time.Second
)

// Location list timeouts
const (
	// LocationLoad bounds the first load of the location list, including an
	// R2 download when that source is enabled.
	LocationLoad = 30 * time.Second
)

// Background job intervals
const (
	// RateLimiterCleanupInterval is how often inactive per-chat limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute

	// MetricsUpdateInterval is how often gauge metrics are refreshed.
	MetricsUpdateInterval = time.Minute
)

// Readiness
const (
	// WarmupGracePeriod is how long /readyz may report not-ready before it
	// gives up waiting for the location list and reports ready anyway.
	WarmupGracePeriod = 2 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
