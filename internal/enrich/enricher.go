// Package enrich tags stored articles with a sentiment and the entities they
// mention, using a local language model.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"text/template"

	"github.com/matthewjhunter/crier/internal/metrics"
	"github.com/matthewjhunter/crier/internal/storage"
)

const (
	chunkSize          = 25
	defaultTemperature = 0.2
	maxBodyLen         = 2000
)

var sentiments = map[string]bool{
	"positive": true,
	"negative": true,
	"neutral":  true,
	"mixed":    true,
}

// Store is the slice of the article store enrichment needs.
type Store interface {
	ListUnenriched(ctx context.Context, limit int) ([]storage.Article, error)
	UpdateEnrichment(ctx context.Context, date, key, sentiment string, entities []string) error
	MarkEnrichFailed(ctx context.Context, date, key string) error
}

type Enricher struct {
	store   Store
	gen     Generator
	prompt  *template.Template
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Result counts what one Run did. Dates lists the publish dates that had
// an article enriched.
type Result struct {
	Enriched int      `json:"enriched"`
	Skipped  int      `json:"skipped"`
	Dates    []string `json:"-"`
}

type response struct {
	Sentiment string   `json:"sentiment"`
	Entities  []string `json:"entities"`
}

// New creates an enricher. An empty promptText uses the embedded prompt.
func New(store Store, gen Generator, promptText string, logger *slog.Logger, m *metrics.Metrics) (*Enricher, error) {
	tmpl, err := ParsePrompt(promptText)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{store: store, gen: gen, prompt: tmpl, logger: logger, metrics: m}, nil
}

// Run enriches up to limit unenriched articles, chunkSize at a time.
// Articles whose model response cannot be used are skipped and stay
// unenriched; their failed attempt is recorded so later runs reach untried
// articles first. Generation errors abort the run.
func (e *Enricher) Run(ctx context.Context, limit int) (Result, error) {
	var res Result

	pending, err := e.store.ListUnenriched(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("list unenriched articles: %w", err)
	}

	for start := 0; start < len(pending); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+chunkSize, len(pending))
		for _, article := range pending[start:end] {
			ok, err := e.enrichOne(ctx, article)
			if err != nil {
				return res, err
			}
			if ok {
				res.Enriched++
				if !slices.Contains(res.Dates, article.PublishDate) {
					res.Dates = append(res.Dates, article.PublishDate)
				}
			} else {
				res.Skipped++
			}
		}
		e.logger.Info("enrichment chunk done", "done", end, "total", len(pending))
	}
	return res, nil
}

func (e *Enricher) enrichOne(ctx context.Context, article storage.Article) (bool, error) {
	prompt, err := ExecutePrompt(e.prompt, PromptData{
		Title: article.Title,
		Date:  article.PublishDate,
		URL:   article.URL,
		Body:  truncateText(article.Body, maxBodyLen),
	})
	if err != nil {
		return false, err
	}

	raw, err := e.gen.Generate(ctx, prompt, defaultTemperature)
	if err != nil {
		e.metrics.Enrichment("error")
		return false, fmt.Errorf("enrich %s: %w", article.ContentKey, err)
	}

	parsed, ok := parseResponse(raw)
	if !ok {
		e.metrics.Enrichment("skipped")
		e.logger.Warn("unusable enrichment response", "key", article.ContentKey, "title", article.Title, "response", truncateText(raw, 200))
		if err := e.store.MarkEnrichFailed(ctx, article.PublishDate, article.ContentKey); err != nil {
			return false, fmt.Errorf("record failed enrichment for %s: %w", article.ContentKey, err)
		}
		return false, nil
	}

	if err := e.store.UpdateEnrichment(ctx, article.PublishDate, article.ContentKey, parsed.Sentiment, parsed.Entities); err != nil {
		return false, fmt.Errorf("store enrichment for %s: %w", article.ContentKey, err)
	}
	e.metrics.Enrichment("ok")
	return true, nil
}

// parseResponse pulls the JSON object out of a model response and
// normalizes it. Entities are trimmed and de-duplicated case-insensitively.
func parseResponse(raw string) (response, bool) {
	var r response
	if err := json.Unmarshal([]byte(extractJSON(raw)), &r); err != nil {
		return response{}, false
	}

	r.Sentiment = strings.ToLower(strings.TrimSpace(r.Sentiment))
	if !sentiments[r.Sentiment] {
		return response{}, false
	}

	seen := make(map[string]bool, len(r.Entities))
	entities := make([]string, 0, len(r.Entities))
	for _, ent := range r.Entities {
		ent = strings.TrimSpace(ent)
		if ent == "" || seen[strings.ToLower(ent)] {
			continue
		}
		seen[strings.ToLower(ent)] = true
		entities = append(entities, ent)
	}
	r.Entities = entities
	return r, true
}
