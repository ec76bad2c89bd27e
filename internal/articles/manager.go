// Package articles implements the fetch-or-cache pipeline: a request for a
// date is served from the store when the date has been fetched before, and
// otherwise fetched once from the provider, stored, and then served.
//
// Stored dates are never expired or re-fetched. A date that was fetched and
// had no articles is cached as empty.
package articles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/matthewjhunter/crier/internal/contentkey"
	"github.com/matthewjhunter/crier/internal/fetch"
	"github.com/matthewjhunter/crier/internal/metrics"
	"github.com/matthewjhunter/crier/internal/notify"
	"github.com/matthewjhunter/crier/internal/storage"
)

const defaultFetchTimeout = 2 * time.Minute

// ArticleStore is the date-indexed article store.
type ArticleStore interface {
	HasDate(ctx context.Context, date string) (bool, error)
	GetByDate(ctx context.Context, date string) ([]storage.Article, error)
	PutBatch(ctx context.Context, date string, records []storage.Article) error
	GetByContentKey(ctx context.Context, key string) (*storage.Article, error)
}

// PreferenceStore holds one label per (user, content key).
type PreferenceStore interface {
	Upsert(ctx context.Context, userID, key string, record storage.Preference, label storage.Label) error
	GetPartition(ctx context.Context, userID string, label storage.Label) ([]storage.Preference, error)
	GetLabels(ctx context.Context, userID string) (map[string]storage.Label, error)
	HasUser(ctx context.Context, userID string) (bool, error)
}

// Manager is safe for concurrent use.
type Manager struct {
	articles ArticleStore
	prefs    PreferenceStore
	provider fetch.Provider

	logger       *slog.Logger
	metrics      *metrics.Metrics
	notifier     notify.Notifier
	memo         *expirable.LRU[string, []storage.Article]
	fetchTimeout time.Duration
	clock        func() time.Time

	flights singleflight.Group
}

// New creates a manager over the given stores and provider.
func New(articles ArticleStore, prefs PreferenceStore, provider fetch.Provider, options ...Option) *Manager {
	m := &Manager{
		articles:     articles,
		prefs:        prefs,
		provider:     provider,
		logger:       slog.Default(),
		fetchTimeout: defaultFetchTimeout,
		clock:        time.Now,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// GetArticles returns the articles for date, fetching and storing them first
// if the date has never been fetched. Concurrent misses for one date share a
// single provider call. With includeBody false the returned records carry no
// body; the stored records keep it.
func (m *Manager) GetArticles(ctx context.Context, date string, includeBody bool) ([]storage.Article, error) {
	canonical, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	if m.memo != nil {
		if records, ok := m.memo.Get(canonical); ok {
			m.metrics.Request(metrics.ResultMemo)
			return project(records, includeBody), nil
		}
	}

	present, err := m.articles.HasDate(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("check date %s: %w", canonical, err)
	}
	if present {
		records, err := m.articles.GetByDate(ctx, canonical)
		if err != nil {
			return nil, fmt.Errorf("load articles for %s: %w", canonical, err)
		}
		m.remember(canonical, records)
		m.metrics.Request(metrics.ResultHit)
		return project(records, includeBody), nil
	}

	m.metrics.Request(metrics.ResultMiss)
	records, err := m.backfill(ctx, canonical)
	if err != nil {
		return nil, err
	}
	return project(records, includeBody), nil
}

// backfill waits for the date's flight, starting one if none is running.
// The flight outlives a cancelled caller so the other waiters still get a
// result; it is bounded by the fetch timeout instead.
func (m *Manager) backfill(ctx context.Context, date string) ([]storage.Article, error) {
	ch := m.flights.DoChan(date, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.fetchTimeout)
		defer cancel()
		return m.fetchAndStore(fctx, date)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			m.metrics.Shared()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]storage.Article), nil
	}
}

func (m *Manager) fetchAndStore(ctx context.Context, date string) ([]storage.Article, error) {
	// Another process may have stored the date since the caller looked.
	present, err := m.articles.HasDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("check date %s: %w", date, err)
	}
	if present {
		m.logger.Debug("date stored while waiting to fetch", "date", date)
		records, err := m.articles.GetByDate(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("load articles for %s: %w", date, err)
		}
		m.remember(date, records)
		return records, nil
	}

	start := time.Now()
	raw, err := m.provider.FetchArticles(ctx, date)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	m.metrics.Fetch(time.Since(start), len(raw), err)
	if err != nil {
		m.logger.Warn("provider fetch failed", "date", date, "error", err)
		return nil, &FetchError{Date: date, Err: err}
	}

	records := m.canonicalize(date, raw)
	if err := m.articles.PutBatch(ctx, date, records); err != nil {
		return nil, fmt.Errorf("store articles for %s: %w", date, err)
	}
	m.logger.Info("backfilled date", "date", date, "articles", len(records), "elapsed", time.Since(start))

	m.remember(date, records)
	m.announce(ctx, date, records)
	return records, nil
}

// canonicalize keys each record by its title and pins it to date. Records
// without a title are dropped. A repeated key keeps its first position and
// takes the last record's fields.
func (m *Manager) canonicalize(date string, raw []fetch.RawArticle) []storage.Article {
	records := make([]storage.Article, 0, len(raw))
	index := make(map[string]int, len(raw))

	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			m.logger.Warn("dropping article without title", "date", date, "url", r.URL)
			continue
		}
		if r.Date != "" {
			if d, err := ParseDate(r.Date); err != nil || d != date {
				m.logger.Debug("provider date differs from request", "date", date, "provider_date", r.Date, "title", title)
			}
		}

		rec := storage.Article{
			ContentKey:  contentkey.Key(title),
			Title:       title,
			URL:         strings.TrimSpace(r.URL),
			PublishDate: date,
			Body:        r.Text,
		}
		if i, ok := index[rec.ContentKey]; ok {
			records[i] = rec
			continue
		}
		index[rec.ContentKey] = len(records)
		records = append(records, rec)
	}
	return records
}

func (m *Manager) announce(ctx context.Context, date string, records []storage.Article) {
	if m.notifier == nil {
		return
	}
	err := m.notifier.ArticlesBackfilled(ctx, notify.Backfill{Date: date, Articles: project(records, false)})
	if err != nil {
		m.metrics.NotifyFailed()
		m.logger.Warn("backfill notification failed", "date", date, "error", err)
	}
}

// Forget drops dates from the memo so the next read goes to the store.
// Call it after stored records change, such as after enrichment.
func (m *Manager) Forget(dates ...string) {
	if m.memo == nil {
		return
	}
	for _, d := range dates {
		m.memo.Remove(d)
	}
}

func (m *Manager) remember(date string, records []storage.Article) {
	if m.memo != nil {
		m.memo.Add(date, records)
	}
}

// project copies records so callers never share slices with the memo or
// with each other.
func project(records []storage.Article, includeBody bool) []storage.Article {
	out := make([]storage.Article, len(records))
	for i, r := range records {
		r.Entities = slices.Clone(r.Entities)
		if !includeBody {
			r.Body = ""
		}
		out[i] = r
	}
	return out
}

// RecordPreference sets userID's label for the article titled title on date,
// replacing any label the user had given it before.
func (m *Manager) RecordPreference(ctx context.Context, userID, title, date, label string) error {
	userID = strings.TrimSpace(userID)
	title = strings.TrimSpace(title)
	if userID == "" {
		return &ValidationError{Field: "user_id", Reason: "required"}
	}
	if title == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	lbl, err := parseLabel(label)
	if err != nil {
		return err
	}
	if strings.TrimSpace(date) == "" {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	canonical, err := ParseDate(date)
	if err != nil {
		return err
	}

	key := contentkey.Key(title)
	record := storage.Preference{
		UserID:      userID,
		ContentKey:  key,
		Title:       title,
		PublishDate: canonical,
		Label:       lbl,
		UpdatedAt:   m.clock().UTC(),
	}

	article, err := m.articles.GetByContentKey(ctx, key)
	switch {
	case err == nil:
		record.URL = article.URL
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("look up article %s: %w", key, err)
	}

	if err := m.prefs.Upsert(ctx, userID, key, record, lbl); err != nil {
		return fmt.Errorf("record preference: %w", err)
	}
	m.metrics.Preference(string(lbl))
	return nil
}

// GetLabeled lists the articles userID has given label, ordered by publish
// date then title. A user with no preferences gets an empty list.
func (m *Manager) GetLabeled(ctx context.Context, userID, label string) ([]storage.Article, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	lbl, err := parseLabel(label)
	if err != nil {
		return nil, err
	}

	known, err := m.prefs.HasUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !known {
		return []storage.Article{}, nil
	}

	prefs, err := m.prefs.GetPartition(ctx, userID, lbl)
	if err != nil {
		return nil, fmt.Errorf("load %s partition: %w", lbl, err)
	}
	out := make([]storage.Article, len(prefs))
	for i, p := range prefs {
		out[i] = storage.Article{
			ContentKey:  p.ContentKey,
			Title:       p.Title,
			URL:         p.URL,
			PublishDate: p.PublishDate,
		}
	}
	return out, nil
}

// Labels returns every label userID has set, keyed by content key.
func (m *Manager) Labels(ctx context.Context, userID string) (map[string]storage.Label, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	labels, err := m.prefs.GetLabels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	return labels, nil
}

// GetArticle returns the full stored article with the given content key.
func (m *Manager) GetArticle(ctx context.Context, key string) (*storage.Article, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil, &ValidationError{Field: "content_key", Reason: "required"}
	}
	article, err := m.articles.GetByContentKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return article, nil
}

// GetArticleByTitle looks an article up by title, ignoring case and
// surrounding whitespace.
func (m *Manager) GetArticleByTitle(ctx context.Context, title string) (*storage.Article, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "required"}
	}
	return m.GetArticle(ctx, contentkey.Key(title))
}

// BackfillResult summarizes a Backfill run.
type BackfillResult struct {
	Dates    int               `json:"dates"`
	Articles int               `json:"articles"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// Backfill loads every date from start to end inclusive, fetching the ones
// not yet stored. Provider failures are recorded per date and the walk
// continues; store errors and cancellation stop it.
func (m *Manager) Backfill(ctx context.Context, start, end string) (BackfillResult, error) {
	var result BackfillResult
	days, err := dateRange(start, end)
	if err != nil {
		return result, err
	}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		records, err := m.GetArticles(ctx, day, false)
		var fe *FetchError
		if errors.As(err, &fe) {
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[day] = fe.Err.Error()
			continue
		}
		if err != nil {
			return result, err
		}
		result.Dates++
		result.Articles += len(records)
	}
	return result, nil
}

func parseLabel(s string) (storage.Label, error) {
	lbl, ok := storage.ParseLabel(s)
	if !ok {
		return "", &ValidationError{Field: "label", Reason: fmt.Sprintf("must be like, dislike or uncertain, got %q", s)}
	}
	return lbl, nil
}
