package storage

import "context"

// Store defines the storage interface for crier's data layer. Both the
// SQLite store and the MongoDB store implement it.
type Store interface {
	Close() error

	// Date index and articles
	HasDate(ctx context.Context, date string) (bool, error)
	GetByDate(ctx context.Context, date string) ([]Article, error)
	PutBatch(ctx context.Context, date string, records []Article) error
	GetByContentKey(ctx context.Context, key string) (*Article, error)
	ListDates(ctx context.Context) ([]DateEntry, error)

	// Enrichment
	ListUnenriched(ctx context.Context, limit int) ([]Article, error)
	UpdateEnrichment(ctx context.Context, date, key, sentiment string, entities []string) error
	MarkEnrichFailed(ctx context.Context, date, key string) error

	// Preferences
	Upsert(ctx context.Context, userID, key string, record Preference, label Label) error
	GetPartition(ctx context.Context, userID string, label Label) ([]Preference, error)
	GetLabels(ctx context.Context, userID string) (map[string]Label, error)
	HasUser(ctx context.Context, userID string) (bool, error)
}

var (
	_ Store = (*SQLiteStore)(nil)
)
