// Package main provides the LINE food recommendation bot server entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/garyellow/line-foodfinder/internal/app"
	"github.com/garyellow/line-foodfinder/internal/buildinfo"
	"github.com/garyellow/line-foodfinder/internal/config"
	"github.com/garyellow/line-foodfinder/internal/sentry"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "line-foodfinder: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.SentryEnabled {
		release := cfg.SentryRelease
		if release == "" {
			release = buildinfo.Release()
		}
		if err := sentry.Initialize(sentry.Config{
			DSN:         cfg.SentryDSN,
			Environment: cfg.SentryEnvironment,
			Release:     release,
			SampleRate:  cfg.SentrySampleRate,
		}); err != nil {
			// Error tracking is optional; keep serving without it.
			_, _ = fmt.Fprintf(os.Stderr, "sentry disabled: %v\n", err)
		}
	}

	application, err := app.Initialize(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	return application.Run()
}
