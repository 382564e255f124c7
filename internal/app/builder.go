// Package app wires the service graph. Both the server binary and the
// integration harness build their dependencies through SetupServices so the
// wiring lives in one place.
package app

import (
	"fmt"
	"log/slog"

	"github.com/vagledaren/vagledaren/internal/advice"
	"github.com/vagledaren/vagledaren/internal/catalog"
	"github.com/vagledaren/vagledaren/internal/config"
	"github.com/vagledaren/vagledaren/internal/generate"
	"github.com/vagledaren/vagledaren/internal/guidance"
	"github.com/vagledaren/vagledaren/internal/i18n"
	"github.com/vagledaren/vagledaren/internal/intent"
	"github.com/vagledaren/vagledaren/internal/prompt"
	"github.com/vagledaren/vagledaren/internal/registry"
	"github.com/vagledaren/vagledaren/internal/resilience"
	"github.com/vagledaren/vagledaren/internal/sanitize"
	"github.com/vagledaren/vagledaren/internal/storage"
)

// Services holds the initialized service graph.
type Services struct {
	Guidance   *guidance.Service
	Catalog    *catalog.Cache
	Translator *i18n.Translator
	Client     generate.Client
}

// SetupServices builds every service from configuration. store may be nil;
// catalog snapshots are then disabled.
func SetupServices(logger *slog.Logger, cfg *config.Config, store *storage.SQLiteStore) (*Services, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	lang := cfg.Guidance.Language
	translator, err := i18n.NewTranslator(lang)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize translator: %w", err)
	}

	detector, err := intent.NewDetector(logger, cfg.Guidance.HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize intent detector: %w", err)
	}

	registryClient := registry.NewClient(logger, cfg.Registry.BaseURL,
		config.GetDuration(cfg.Registry.Timeout, 0))

	var snapshots catalog.SnapshotStore
	if store != nil {
		snapshots = store
	}
	cat := catalog.New(logger, registryClient, snapshots, catalog.Options{
		SchoolTTL:        config.GetDuration(cfg.Catalog.SchoolTTL, 0),
		ProgramTTL:       config.GetDuration(cfg.Catalog.ProgramTTL, 0),
		FetchConcurrency: cfg.Registry.FetchConcurrency,
		MaxResults:       cfg.Catalog.MaxResults,
	})

	var client generate.Client
	if cfg.Generation.Simulated {
		logger.Warn("using simulated generation client, responses are canned")
		client = generate.NewSimulated()
	} else {
		client = generate.NewHTTPClient(logger, generate.HTTPConfig{
			BaseURL: cfg.Generation.BaseURL,
			APIKey:  cfg.Generation.APIKey,
			Model:   cfg.Generation.Model,
			Timeout: config.GetDuration(cfg.Generation.Timeout, 0),
		})
	}
	retrier := resilience.New(logger,
		resilience.WithMaxAttempts(cfg.Resilience.MaxAttempts),
		resilience.WithBaseDelay(config.GetDuration(cfg.Resilience.BaseDelay, 0)))
	client = resilience.WrapClient(client, retrier)

	sanitizer := sanitize.New(logger, cfg.Sanitize.MaxMessageLength)
	builder := prompt.NewBuilder(translator, lang, cfg.Guidance.HistoryWindow)

	strategies := advice.NewRegistry(
		advice.NewSchoolAdvice(logger, client, translator, sanitizer, lang),
		advice.NewNoResultsAdvice(logger, client, translator, sanitizer, lang),
		advice.NewCounseling(logger, client, translator, sanitizer, lang),
		advice.NewTitle(logger, client, translator, lang),
	)

	svc := guidance.New(logger, detector, cat, builder, strategies, sanitizer,
		cfg.Guidance.SearchLimit)

	return &Services{
		Guidance:   svc,
		Catalog:    cat,
		Translator: translator,
		Client:     client,
	}, nil
}
