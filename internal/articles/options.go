package articles

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/matthewjhunter/crier/internal/metrics"
	"github.com/matthewjhunter/crier/internal/notify"
	"github.com/matthewjhunter/crier/internal/storage"
)

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records request and fetch metrics. nil disables them.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithNotifier announces each backfilled date.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithMemo keeps up to size recently served dates in memory for ttl. A
// size of zero or less leaves the memo off. Records changed in the store
// after they were memoized stay stale until ttl or Forget.
func WithMemo(size int, ttl time.Duration) Option {
	return func(m *Manager) {
		if size <= 0 {
			m.memo = nil
			return
		}
		m.memo = expirable.NewLRU[string, []storage.Article](size, nil, ttl)
	}
}

// WithFetchTimeout bounds each provider call.
func WithFetchTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.fetchTimeout = d
		}
	}
}

// WithClock overrides the time source used for preference timestamps.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}
