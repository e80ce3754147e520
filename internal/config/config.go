// Package config provides application configuration management.
// It loads settings from environment variables (optionally seeded from a
// .env file) and validates them before the server starts.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Presentation modes for a recommendation path.
const (
	PresentationCards    = "cards"
	PresentationLocation = "location"
)

// DefaultPlacesBaseURL is the Google Places web service root.
const DefaultPlacesBaseURL = "https://maps.googleapis.com/maps/api/place"

// DefaultPort is the HTTP listen port when FOODFINDER_PORT is unset.
const DefaultPort = "10000"

// Config holds all application configuration
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// Google Places. The key is never logged.
	GooglePlacesAPIKey string
	PlacesBaseURL      string
	PlacesTimeout      time.Duration
	PlacesMaxRetries   int
	PlacesLanguage     string // optional "language" query parameter
	WebsitePreview     bool   // og:image lookup when a place has no photo

	// Location list
	LocationFile     string
	LocationKeyField string
	LocationR2Key    string // object key used when R2 is enabled

	// Recommendation workflow
	Recommend RecommendConfig

	// Server Configuration
	Port              string
	LogLevel          string
	ShutdownTimeout   time.Duration
	ServerName        string
	WarmupGracePeriod time.Duration

	// R2 location source
	R2Enabled         bool
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string

	// Sentry
	SentryEnabled     bool
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string
	SentrySampleRate  float64

	// Better Stack
	BetterStackEnabled  bool
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string

	// Bot Configuration (embedded)
	Bot BotConfig
}

// RecommendConfig holds the per-path knobs of the recommendation workflow.
type RecommendConfig struct {
	RandomRadius         int    // meters, text trigger path
	NearbyRadius         int    // meters, location share path
	RandomPresentation   string // "cards" or "location"
	NearbyPresentation   string // "cards" or "location"
	MaxCarouselResults   int
	SendSingleResultCard bool
	PlaceholderImageURL  string
	DefaultKeyword       string
	UniqueUserIDs        []string
	UniqueUserKeyword    string
	DetailConcurrency    int
	Timeout              time.Duration
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		GooglePlacesAPIKey: getEnv(EnvGooglePlacesAPIKey, ""),
		PlacesBaseURL:      strings.TrimRight(getEnv(EnvPlacesBaseURL, DefaultPlacesBaseURL), "/"),
		PlacesTimeout:      getDurationEnv(EnvPlacesTimeout, PlacesRequest),
		PlacesMaxRetries:   getIntEnv(EnvPlacesMaxRetries, 1),
		PlacesLanguage:     getEnv(EnvPlacesLanguage, ""),
		WebsitePreview:     getBoolEnv(EnvWebsitePreview, false),

		LocationFile:     getEnv(EnvLocationFile, "data/locations.csv"),
		LocationKeyField: getEnv(EnvLocationKeyField, "id"),
		LocationR2Key:    getEnv(EnvLocationR2Key, "locations.csv"),

		Recommend: RecommendConfig{
			RandomRadius:         getIntEnv(EnvRandomRadius, 1000),
			NearbyRadius:         getIntEnv(EnvNearbyRadius, 10000),
			RandomPresentation:   strings.ToLower(getEnv(EnvRandomPresentation, PresentationCards)),
			NearbyPresentation:   strings.ToLower(getEnv(EnvNearbyPresentation, PresentationLocation)),
			MaxCarouselResults:   getIntEnv(EnvMaxCarouselResults, 5),
			SendSingleResultCard: getBoolEnv(EnvSendSingleResultCard, true),
			PlaceholderImageURL:  getEnv(EnvPlaceholderImageURL, ""),
			DefaultKeyword:       getEnv(EnvDefaultKeyword, "restaurant"),
			UniqueUserIDs:        getListEnv(EnvUniqueUserIDs),
			UniqueUserKeyword:    getEnv(EnvUniqueUserKeyword, "kfc"),
			DetailConcurrency:    getIntEnv(EnvDetailConcurrency, 5),
			Timeout:              getDurationEnv(EnvRecommendationTimeout, RecommendationTimeout),
		},

		Port:              getEnv(EnvPort, DefaultPort),
		LogLevel:          getEnv(EnvLogLevel, "info"),
		ShutdownTimeout:   getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ServerName:        getEnv(EnvServerName, ""),
		WarmupGracePeriod: getDurationEnv(EnvWarmupGracePeriod, WarmupGracePeriod),

		R2Enabled:         getBoolEnv(EnvR2Enabled, false),
		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),

		SentryEnabled:     getBoolEnv(EnvSentryEnabled, false),
		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:     getEnv(EnvSentryRelease, ""),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackEnabled:  getBoolEnv(EnvBetterStackEnabled, false),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),

		Bot: loadBotConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.LineChannelToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelAccessToken))
	}
	if c.LineChannelSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelSecret))
	}
	if c.GooglePlacesAPIKey == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvGooglePlacesAPIKey))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if u, err := url.Parse(c.PlacesBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", EnvPlacesBaseURL, c.PlacesBaseURL))
	}
	if c.PlacesTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvPlacesTimeout, c.PlacesTimeout))
	}
	if c.PlacesMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvPlacesMaxRetries, c.PlacesMaxRetries))
	}
	if c.LocationKeyField == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLocationKeyField))
	}
	if !c.R2Enabled && c.LocationFile == "" {
		errs = append(errs, fmt.Errorf("%s is required when R2 is disabled", EnvLocationFile))
	}
	if err := c.Recommend.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("recommend config: %w", err))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}

	if c.R2Enabled {
		if c.R2AccountID == "" || c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" || c.R2BucketName == "" {
			errs = append(errs, errors.New("R2 is enabled but account id, access key, secret or bucket is missing"))
		}
		if c.LocationR2Key == "" {
			errs = append(errs, fmt.Errorf("%s is required when R2 is enabled", EnvLocationR2Key))
		}
	}
	if c.SentryEnabled && c.SentryDSN == "" {
		errs = append(errs, fmt.Errorf("%s is required when Sentry is enabled", EnvSentryDSN))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}
	if c.BetterStackEnabled && c.BetterStackToken == "" {
		errs = append(errs, fmt.Errorf("%s is required when Better Stack is enabled", EnvBetterStackToken))
	}
	if c.MetricsAuthEnabled && c.MetricsPassword == "" {
		errs = append(errs, fmt.Errorf("%s is required when metrics auth is enabled", EnvMetricsPassword))
	}

	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks radii, presentation modes and limits.
func (r *RecommendConfig) Validate() error {
	var errs []error

	if r.RandomRadius <= 0 || r.RandomRadius > 50000 {
		errs = append(errs, fmt.Errorf("%s must be within (0, 50000], got %d", EnvRandomRadius, r.RandomRadius))
	}
	if r.NearbyRadius <= 0 || r.NearbyRadius > 50000 {
		errs = append(errs, fmt.Errorf("%s must be within (0, 50000], got %d", EnvNearbyRadius, r.NearbyRadius))
	}
	if !validPresentation(r.RandomPresentation) {
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", EnvRandomPresentation, PresentationCards, PresentationLocation, r.RandomPresentation))
	}
	if !validPresentation(r.NearbyPresentation) {
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", EnvNearbyPresentation, PresentationCards, PresentationLocation, r.NearbyPresentation))
	}
	// Carousel templates hold at most 10 columns.
	if r.MaxCarouselResults < 1 || r.MaxCarouselResults > 10 {
		errs = append(errs, fmt.Errorf("%s must be within [1, 10], got %d", EnvMaxCarouselResults, r.MaxCarouselResults))
	}
	if strings.TrimSpace(r.DefaultKeyword) == "" {
		errs = append(errs, fmt.Errorf("%s cannot be blank", EnvDefaultKeyword))
	}
	if len(r.UniqueUserIDs) > 0 && strings.TrimSpace(r.UniqueUserKeyword) == "" {
		errs = append(errs, fmt.Errorf("%s cannot be blank when unique users are configured", EnvUniqueUserKeyword))
	}
	if r.DetailConcurrency < 1 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvDetailConcurrency, r.DetailConcurrency))
	}
	if r.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvRecommendationTimeout, r.Timeout))
	}

	return errors.Join(errs...)
}

func validPresentation(p string) bool {
	return p == PresentationCards || p == PresentationLocation
}

// R2Endpoint returns the S3-compatible endpoint for the configured account.
func (c *Config) R2Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated variable, dropping blank items.
func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
