// Package metrics defines crier's Prometheus collectors. A nil *Metrics is
// valid and records nothing, so components can take one unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request results for GetArticles.
const (
	ResultMemo = "memo"
	ResultHit  = "hit"
	ResultMiss = "miss"
)

type Metrics struct {
	Requests         *prometheus.CounterVec
	Fetches          *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	ArticlesFetched  prometheus.Counter
	SharedWaits      prometheus.Counter
	Preferences      *prometheus.CounterVec
	NotifierFailures prometheus.Counter
	Enriched         *prometheus.CounterVec
}

// New registers crier's collectors on reg. Use prometheus.NewRegistry in
// tests to avoid duplicate registration against the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crier_article_requests_total",
				Help: "Total number of article requests by date, by cache result",
			},
			[]string{"result"},
		),
		Fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crier_provider_fetches_total",
				Help: "Total number of provider fetches",
			},
			[]string{"status"},
		),
		FetchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crier_provider_fetch_duration_seconds",
				Help:    "Provider fetch duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		ArticlesFetched: f.NewCounter(
			prometheus.CounterOpts{
				Name: "crier_articles_fetched_total",
				Help: "Total number of articles stored from provider fetches",
			},
		),
		SharedWaits: f.NewCounter(
			prometheus.CounterOpts{
				Name: "crier_fetch_shared_total",
				Help: "Requests that received the result of another caller's fetch",
			},
		),
		Preferences: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crier_preferences_recorded_total",
				Help: "Total number of preferences recorded",
			},
			[]string{"label"},
		),
		NotifierFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "crier_notifier_failures_total",
				Help: "Backfill notifications that failed to deliver",
			},
		),
		Enriched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crier_articles_enriched_total",
				Help: "Articles processed by the enrichment job",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) Request(result string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(result).Inc()
}

// Fetch records one provider call. count is ignored on failure.
func (m *Metrics) Fetch(d time.Duration, count int, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
	if err != nil {
		m.Fetches.WithLabelValues("error").Inc()
		return
	}
	m.Fetches.WithLabelValues("success").Inc()
	m.ArticlesFetched.Add(float64(count))
}

func (m *Metrics) Shared() {
	if m == nil {
		return
	}
	m.SharedWaits.Inc()
}

func (m *Metrics) Preference(label string) {
	if m == nil {
		return
	}
	m.Preferences.WithLabelValues(label).Inc()
}

func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.NotifierFailures.Inc()
}

func (m *Metrics) Enrichment(status string) {
	if m == nil {
		return
	}
	m.Enriched.WithLabelValues(status).Inc()
}
