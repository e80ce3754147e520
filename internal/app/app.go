// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/line-foodfinder/internal/bot"
	"github.com/garyellow/line-foodfinder/internal/buildinfo"
	"github.com/garyellow/line-foodfinder/internal/config"
	"github.com/garyellow/line-foodfinder/internal/ctxutil"
	"github.com/garyellow/line-foodfinder/internal/location"
	"github.com/garyellow/line-foodfinder/internal/logger"
	"github.com/garyellow/line-foodfinder/internal/metrics"
	"github.com/garyellow/line-foodfinder/internal/modules/dish"
	"github.com/garyellow/line-foodfinder/internal/modules/nearby"
	"github.com/garyellow/line-foodfinder/internal/modules/random"
	"github.com/garyellow/line-foodfinder/internal/modules/usage"
	"github.com/garyellow/line-foodfinder/internal/places"
	"github.com/garyellow/line-foodfinder/internal/r2client"
	"github.com/garyellow/line-foodfinder/internal/ratelimit"
	"github.com/garyellow/line-foodfinder/internal/recommend"
	"github.com/garyellow/line-foodfinder/internal/sentry"
	"github.com/garyellow/line-foodfinder/internal/warmup"
	"github.com/garyellow/line-foodfinder/internal/webhook"
)

const projectURL = "https://github.com/garyellow/line-foodfinder"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	locations      *location.Store
	webhookHandler *webhook.Handler
	router         *gin.Engine
	server         *http.Server
	userLimiter    *ratelimit.KeyedLimiter
	searchLimiter  *ratelimit.KeyedLimiter
	readinessState *warmup.ReadinessState // Tracks the first location load for readiness
	wg             sync.WaitGroup         // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	var opts logger.Options
	if cfg.BetterStackEnabled {
		opts.BetterStackToken = cfg.BetterStackToken
		opts.BetterStackEndpoint = cfg.BetterStackEndpoint
	}
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, opts)

	log = log.WithField("service", "line-foodfinder")
	if cfg.ServerName != "" {
		log = log.WithField("instance_id", cfg.ServerName)
	} else if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger to enable context value extraction (userID, chatID, requestID)
	// via ContextHandler in package-level slog.*Context() calls.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if log.RemoteEnabled() {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	src, err := locationSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("location source: %w", err)
	}
	store := location.NewStore(src, location.StoreConfig{
		KeyField: cfg.LocationKeyField,
		Metrics:  m,
		Logger:   log,
	})
	log.WithField("source", src.Name()).Info("Location source configured")

	placesClient, err := places.New(places.Config{
		APIKey:       cfg.GooglePlacesAPIKey,
		BaseURL:      cfg.PlacesBaseURL,
		Language:     cfg.PlacesLanguage,
		Timeout:      cfg.PlacesTimeout,
		MaxRetries:   cfg.PlacesMaxRetries,
		RetryBackoff: config.PlacesRetryInitial,
		Metrics:      m,
	})
	if err != nil {
		return nil, fmt.Errorf("places: %w", err)
	}

	deps := recommend.Deps{
		Places:    placesClient,
		Locations: store,
		Metrics:   m,
		Logger:    log,
	}
	if cfg.WebsitePreview {
		deps.Previewer = places.NewPreviewer(config.WebsitePreviewRequest)
	}
	workflow := recommend.New(cfg.Recommend, deps)

	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "user",
		Burst:         cfg.Bot.UserRateBurst,
		RefillRate:    cfg.Bot.UserRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})
	searchLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "search",
		Burst:         cfg.Bot.SearchBurst,
		RefillRate:    cfg.Bot.SearchRefillPerMinute / 60.0, // Convert per-minute to per-second
		DailyLimit:    cfg.Bot.SearchDailyLimit,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	botRegistry := bot.NewRegistry()
	botRegistry.Register(random.NewHandler(workflow))
	botRegistry.Register(dish.NewHandler())
	botRegistry.Register(usage.NewHandler(searchLimiter, log))

	processor := bot.NewProcessor(bot.ProcessorConfig{
		Registry:      botRegistry,
		Nearby:        nearby.NewHandler(workflow),
		UserLimiter:   userLimiter,
		SearchLimiter: searchLimiter,
		Logger:        log,
		BotConfig:     &cfg.Bot,
	})

	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: cfg.LineChannelSecret,
		ChannelToken:  cfg.LineChannelToken,
		BotConfig:     &cfg.Bot,
		Metrics:       m,
		Logger:        log,
		Processor:     processor,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		locations:      store,
		webhookHandler: webhookHandler,
		userLimiter:    userLimiter,
		searchLimiter:  searchLimiter,
		readinessState: warmup.NewReadinessState(cfg.WarmupGracePeriod),
	}
	gin.SetMode(gin.ReleaseMode)
	app.router = app.buildRouter()

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.WithField("modules", botRegistry.Names()).Info("Initialization complete")
	return app, nil
}

// locationSource picks R2 when enabled, the local file otherwise.
func locationSource(ctx context.Context, cfg *config.Config) (location.Source, error) {
	if !cfg.R2Enabled {
		return location.FileSource{Path: cfg.LocationFile}, nil
	}

	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2Endpoint(),
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
	})
	if err != nil {
		return nil, err
	}
	return location.R2Source{Client: client, Key: cfg.LocationR2Key}, nil
}

func (a *Application) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger, a.metrics))

	router.GET("/", a.redirectToProject)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.POST("/webhook", a.readinessMiddleware(), a.webhookHandler.Handle)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsAuthEnabled, a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	return router
}

func (a *Application) redirectToProject(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, projectURL)
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	if !a.readinessState.IsReady() {
		status := a.readinessState.Status()
		a.logger.WithField("elapsed_seconds", status.ElapsedSeconds).
			WithField("timeout_seconds", status.TimeoutSeconds).
			Debug("Readiness check: location load in progress")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": status.Reason,
			"progress": gin.H{
				"elapsed_seconds": status.ElapsedSeconds,
				"timeout_seconds": status.TimeoutSeconds,
			},
		})
		return
	}

	body := gin.H{
		"status":    "ready",
		"locations": a.locations.Count(),
		"loaded":    a.locations.Loaded(),
	}
	if buildinfo.Version != "" {
		body["version"] = buildinfo.Version
	}
	if buildinfo.Commit != "" {
		body["commit"] = buildinfo.Commit
	}
	c.JSON(http.StatusOK, body)
}

// Run starts the HTTP server and background jobs.
//
// Graceful shutdown sequence:
//  1. Receive shutdown signal (SIGINT/SIGTERM)
//  2. Cancel context → signal background jobs to stop
//  3. Wait for background jobs to complete
//  4. Close resources in order (HTTP server, webhook handler, rate limiters, Sentry, logger)
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel() // Ensure context is always canceled

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()

	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.warmLocations(ctx, time.Minute)
	})
}

// warmLocations loads the location list until it succeeds, then marks the
// service ready. A failed load keeps the service up: the store retries on
// the next request and readiness falls back to the grace period.
func (a *Application) warmLocations(ctx context.Context, retryEvery time.Duration) {
	a.logger.Debug("Location warmup job started")
	defer a.logger.Debug("Location warmup job stopped")

	for {
		loadCtx, cancel := context.WithTimeout(ctx, config.LocationLoad)
		err := a.locations.Warm(loadCtx)
		cancel()

		if err == nil {
			a.readinessState.MarkReady()
			a.logger.WithField("locations", a.locations.Count()).Info("Service marked as ready after location load")
			return
		}

		a.logger.WithError(err).WithField("retry_in", retryEvery.String()).Error("Location warmup failed")
		sentry.CaptureExceptionWithContext(ctx, err, map[string]string{"job": "location_warmup"})

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryEvery):
		}
	}
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown performs graceful shutdown of HTTP server and resources.
// It is called after background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	a.logger.Info("Closing resources...")
	a.userLimiter.Stop()
	a.searchLimiter.Stop()

	sentry.Flush(2 * time.Second)

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
	return nil
}

// readinessMiddleware rejects webhook requests with 503 until the location
// list is loaded. LINE Platform retries, so delivery is eventual.
func (a *Application) readinessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.readinessState.IsReady() {
			status := a.readinessState.Status()
			a.logger.WithField("elapsed_seconds", status.ElapsedSeconds).
				Debug("Webhook rejected: location load in progress")
			c.Header("Retry-After", "60")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":       "service warming up",
				"retry_after": 60,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels:
// 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug. Requests without an
// upstream request ID get a fresh UUID. Non-404 errors are also counted.
func loggingMiddleware(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-Id", requestID)

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", duration.Milliseconds()).
			WithField("client_ip", c.ClientIP()).
			WithRequestID(requestID)

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
			m.RecordHTTPError("server_error", c.FullPath())
		case status >= 400 && status != 404:
			entry.Warn("HTTP request rejected")
			m.RecordHTTPError("client_error", c.FullPath())
		case status == 404:
			entry.Debug("HTTP request not found")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}
