// Package crier serves news articles by publish date. The first request for
// a date fetches it from the configured provider and stores it; every later
// request is answered from storage. Users label articles like, dislike or
// uncertain and can list the articles they gave each label.
package crier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matthewjhunter/crier/internal/articles"
	"github.com/matthewjhunter/crier/internal/config"
	"github.com/matthewjhunter/crier/internal/enrich"
	"github.com/matthewjhunter/crier/internal/fetch"
	"github.com/matthewjhunter/crier/internal/metrics"
	"github.com/matthewjhunter/crier/internal/notify"
	"github.com/matthewjhunter/crier/internal/storage"
	"github.com/matthewjhunter/crier/internal/storage/mongostore"
)

// EngineOptions overrides parts of what NewEngine builds from the config.
// The zero value is valid.
type EngineOptions struct {
	Logger *slog.Logger

	// Registerer receives the engine's metrics. nil uses a private
	// registry, exposed by Registry.
	Registerer prometheus.Registerer

	// Digest receives the plain-text summary of each backfilled date.
	// nil writes to stdout; io.Discard turns it off.
	Digest io.Writer

	// Provider replaces the one named by cfg.Provider.
	Provider Provider

	// Generator replaces the Ollama client used for enrichment.
	Generator Generator
}

// Engine is the public API for crier. It owns the store, the NATS
// connection if one is configured, and the article manager built over them.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Store
	manager  *articles.Manager
	enricher *enrich.Enricher
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	nc       *nats.Conn
}

// NewEngine opens the configured store and wires the fetch pipeline over it.
func NewEngine(cfg *Config, opts EngineOptions) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{cfg: cfg, logger: logger}

	reg := opts.Registerer
	if reg == nil {
		e.registry = prometheus.NewRegistry()
		reg = e.registry
	}
	e.metrics = metrics.New(reg)

	store, err := openStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	e.store = store

	provider := opts.Provider
	if provider == nil {
		provider, err = newProvider(cfg.Provider)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	digest := opts.Digest
	if digest == nil {
		digest = os.Stdout
	}
	notifiers := notify.Multi{notify.NewLogNotifier(digest, cfg.Web.SiteURL)}
	if cfg.NATS.URL != "" {
		nc, err := notify.Connect(cfg.NATS.URL, "crier", logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		e.nc = nc
		notifiers = append(notifiers, notify.NewNATSNotifier(nc, cfg.NATS.Subject))
	}

	e.manager = articles.New(store, store, provider,
		articles.WithLogger(logger),
		articles.WithMetrics(e.metrics),
		articles.WithNotifier(notifiers),
		articles.WithMemo(cfg.Memo.Size, cfg.Memo.TTL),
		articles.WithFetchTimeout(cfg.Fetch.Timeout),
	)

	gen := opts.Generator
	if gen == nil {
		gen, err = enrich.NewOllamaGenerator(cfg.Ollama.BaseURL, cfg.Ollama.Model)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
	}
	e.enricher, err = enrich.New(store, gen, cfg.Ollama.Prompt, logger, e.metrics)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("load enrichment prompt: %w", err)
	}

	return e, nil
}

func openStore(db config.Database) (storage.Store, error) {
	switch db.Driver {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := mongostore.New(ctx, db.MongoURI, db.MongoName)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewSQLiteStore(db.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return store, nil
	}
}

func newProvider(p config.Provider) (Provider, error) {
	switch p.Kind {
	case "function":
		return fetch.NewFunctionProvider(p.Function.URL, p.Function.APIKey, &http.Client{Timeout: 5 * time.Minute}), nil
	case "feed":
		loc := time.UTC
		if p.Feed.Timezone != "" {
			var err error
			if loc, err = time.LoadLocation(p.Feed.Timezone); err != nil {
				return nil, fmt.Errorf("load feed timezone: %w", err)
			}
		}
		return fetch.NewFeedProvider(p.Feed.URL, loc), nil
	case "command":
		return fetch.NewCommandProvider(p.Command.Path, p.Command.Args...), nil
	case "scraper":
		return fetch.NewScraper(p.Scraper, nil), nil
	}
	return nil, fmt.Errorf("unknown provider kind %q", p.Kind)
}

// GetArticles returns the articles for date, fetching the date first if it
// has never been fetched. date is YYYY-MM-DD.
func (e *Engine) GetArticles(ctx context.Context, date string, includeBody bool) ([]Article, error) {
	return e.manager.GetArticles(ctx, date, includeBody)
}

// RecordPreference sets userID's label for an article, replacing any
// earlier label.
func (e *Engine) RecordPreference(ctx context.Context, userID, title, date, label string) error {
	return e.manager.RecordPreference(ctx, userID, title, date, label)
}

// GetLabeled lists the articles userID gave label.
func (e *Engine) GetLabeled(ctx context.Context, userID, label string) ([]Article, error) {
	return e.manager.GetLabeled(ctx, userID, label)
}

// Labels returns userID's labels keyed by content key.
func (e *Engine) Labels(ctx context.Context, userID string) (map[string]Label, error) {
	return e.manager.Labels(ctx, userID)
}

// GetArticle returns one stored article, with body, by content key.
func (e *Engine) GetArticle(ctx context.Context, key string) (*Article, error) {
	return e.manager.GetArticle(ctx, key)
}

// GetArticleByTitle returns one stored article, with body, by title.
func (e *Engine) GetArticleByTitle(ctx context.Context, title string) (*Article, error) {
	return e.manager.GetArticleByTitle(ctx, title)
}

// Backfill loads every date from start to end inclusive.
func (e *Engine) Backfill(ctx context.Context, start, end string) (BackfillResult, error) {
	return e.manager.Backfill(ctx, start, end)
}

// ListDates returns every fetched date, newest first.
func (e *Engine) ListDates(ctx context.Context) ([]DateEntry, error) {
	return e.store.ListDates(ctx)
}

// Enrich tags up to limit unenriched articles with sentiment and entities.
func (e *Engine) Enrich(ctx context.Context, limit int) (EnrichResult, error) {
	res, err := e.enricher.Run(ctx, limit)
	e.manager.Forget(res.Dates...)
	return res, err
}

// Navigate resolves prev, next or rand relative to date.
func (e *Engine) Navigate(date, diff string) (string, error) {
	return articles.Navigate(date, diff, time.Now().UTC())
}

// Today returns the current UTC date as YYYY-MM-DD.
func (e *Engine) Today() string {
	return articles.Today(time.Now().UTC())
}

// Registry returns the engine's private metrics registry, or nil when the
// caller supplied a Registerer.
func (e *Engine) Registry() *prometheus.Registry {
	return e.registry
}

// NATS returns the engine's NATS connection, or nil when none is configured.
func (e *Engine) NATS() *nats.Conn {
	return e.nc
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Close releases all resources held by the engine.
func (e *Engine) Close() error {
	if e.nc != nil {
		e.nc.Drain()
	}
	return e.store.Close()
}
