package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/i474232898/weather-etl/internal/config"
	"github.com/i474232898/weather-etl/internal/notify"
	"github.com/i474232898/weather-etl/internal/store"
	"github.com/i474232898/weather-etl/internal/weather"
	"github.com/i474232898/weather-etl/internal/weather/providers"
)

// application bundles the wired components shared by every subcommand.
type application struct {
	service  *weather.Service
	notifier notify.Notifier
	close    func() error
}

type appOptions struct {
	// InMemory swaps the database for a process-local store.
	InMemory bool
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// ReadOnly skips the provider and its credential check. The service
	// can then only query the store.
	ReadOnly bool
}

func newApplication(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, opts appOptions) (*application, error) {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var provider weather.Provider
	if !opts.ReadOnly {
		if err := cfg.ValidateCredentials(); err != nil {
			return nil, err
		}
		p, err := providers.New(providers.Config{
			Name:    cfg.Provider,
			APIKey:  cfg.APIKey(),
			BaseURL: opts.BaseURL,
			Client:  httpClient,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	}

	notifier, err := notify.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		st      weather.Store
		closeFn = func() error { return nil }
	)
	if opts.InMemory {
		st = store.NewMemoryStore()
	} else {
		sqlStore, err := store.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			// an unreachable store is a setup failure; alert before giving up
			notifier.NotifyFailure(ctx, notify.StageMain, err)
			return nil, fmt.Errorf("open store: %w", err)
		}
		st = sqlStore
		closeFn = sqlStore.Close
	}

	service := weather.NewService(st, provider,
		weather.WithLogger(logger),
		weather.WithThrottle(cfg.FetchThrottle),
	)

	providerName := "none"
	if provider != nil {
		providerName = provider.Name()
	}
	logger.Info("application configured",
		"provider", providerName,
		"in_memory", opts.InMemory,
		"smtp", cfg.SMTPConfigured(),
	)
	return &application{service: service, notifier: notifier, close: closeFn}, nil
}
