// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// Places metrics
	PlacesRequestsTotal   *prometheus.CounterVec
	PlacesDurationSeconds *prometheus.HistogramVec

	// Recommendation metrics
	RecommendationsTotal          *prometheus.CounterVec
	RecommendationDurationSeconds *prometheus.HistogramVec

	// Reply delivery
	ReplyErrorsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Location list
	LocationPoints     prometheus.Gauge
	LocationLoadsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foodfinder_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 25},
			},
			[]string{"event_type"}, // event_type: message, postback, follow, join
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodfinder_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error, skipped
		),

		PlacesRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodfinder_places_requests_total",
				Help: "Total number of places API attempts by endpoint and outcome",
			},
			[]string{"endpoint", "status"}, // endpoint: nearbysearch, details; status: success, zero_results, retry, error
		),

		PlacesDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foodfinder_places_duration_seconds",
				Help:    "Places API call duration in seconds, retries included",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
			},
			[]string{"endpoint"},
		),

		RecommendationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodfinder_recommendations_total",
				Help: "Total number of recommendation runs by path and outcome",
			},
			[]string{"path", "outcome"}, // path: random, nearby; outcome: single, carousel, location, not_found, error
		),

		RecommendationDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foodfinder_recommendation_duration_seconds",
				Help:    "End-to-end recommendation duration in seconds by path",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 20},
			},
			[]string{"path"},
		),

		ReplyErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodfinder_reply_errors_total",
				Help: "Total number of failed LINE reply deliveries by reason",
			},
			[]string{"reason"}, // reason: invalid_token, api_error
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodfinder_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: invalid_signature, parse_error, panic
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodfinder_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: user, search, global
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodfinder_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"module"},
		),

		LocationPoints: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "foodfinder_location_points",
				Help: "Number of points in the loaded location list",
			},
		),

		LocationLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodfinder_location_loads_total",
				Help: "Total number of location list load attempts by status",
			},
			[]string{"status"}, // status: success, error
		),
	}
}

// RecordWebhook records a processed webhook event
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordPlacesAttempt counts one places API attempt.
func (m *Metrics) RecordPlacesAttempt(endpoint, status string) {
	m.PlacesRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordPlacesDuration observes the total time of one places call.
func (m *Metrics) RecordPlacesDuration(endpoint string, duration float64) {
	m.PlacesDurationSeconds.WithLabelValues(endpoint).Observe(duration)
}

// RecordRecommendation records one finished recommendation run.
func (m *Metrics) RecordRecommendation(path, outcome string, duration float64) {
	m.RecommendationsTotal.WithLabelValues(path, outcome).Inc()
	m.RecommendationDurationSeconds.WithLabelValues(path).Observe(duration)
}

// RecordReplyError records a reply that LINE did not accept.
func (m *Metrics) RecordReplyError(reason string) {
	m.ReplyErrorsTotal.WithLabelValues(reason).Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// RecordLocationLoad records a location list load attempt and, on success,
// the number of points loaded.
func (m *Metrics) RecordLocationLoad(status string, points int) {
	m.LocationLoadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.LocationPoints.Set(float64(points))
	}
}
