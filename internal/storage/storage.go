package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by single-record lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Label is a user's verdict on an article.
type Label string

const (
	LabelLike      Label = "like"
	LabelDislike   Label = "dislike"
	LabelUncertain Label = "uncertain"
)

// Labels lists every valid label in display order.
var Labels = []Label{LabelLike, LabelDislike, LabelUncertain}

// ParseLabel accepts a label name in any case, ignoring surrounding space.
func ParseLabel(s string) (Label, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range Labels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// Article is a stored article record. PublishDate is the canonical
// YYYY-MM-DD day the article is indexed under.
type Article struct {
	ContentKey  string   `json:"content_key"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	PublishDate string   `json:"publish_date"`
	Body        string   `json:"body,omitempty"`
	Sentiment   string   `json:"sentiment,omitempty"`
	Entities    []string `json:"entities,omitempty"`
}

// Preference is a user's label on one article, with the article's title and
// date denormalized for display.
type Preference struct {
	UserID      string    `json:"user_id"`
	ContentKey  string    `json:"content_key"`
	Title       string    `json:"title"`
	PublishDate string    `json:"publish_date"`
	URL         string    `json:"url,omitempty"`
	Label       Label     `json:"label"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DateEntry describes one fetched date in the date index.
type DateEntry struct {
	Date         string    `json:"date"`
	ArticleCount int       `json:"article_count"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// SQLiteStore keeps articles, the date index and preferences in one SQLite
// file. Writes go through a single-connection pool so every transaction is
// serialized; reads use their own pool and, under WAL, never observe an
// uncommitted batch.
type SQLiteStore struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

const dsnOptions = "?_time_format=sqlite&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// NewSQLiteStore opens (creating if needed) the database and initializes the schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	writeDB, err := sql.Open("sqlite", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	if _, err := writeDB.Exec(Schema); err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Migrations for existing databases.
	migrations := []string{
		"ALTER TABLE preferences ADD COLUMN url TEXT NOT NULL DEFAULT ''",
		"ALTER TABLE articles ADD COLUMN enrich_attempts INTEGER NOT NULL DEFAULT 0",
	}
	for _, m := range migrations {
		writeDB.Exec(m) // ignore "duplicate column" errors
	}

	readDB, err := sql.Open("sqlite", dbPath+dsnOptions)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to open read pool: %w", err)
	}

	return &SQLiteStore{readDB: readDB, writeDB: writeDB}, nil
}

// Close closes both connection pools
func (s *SQLiteStore) Close() error {
	rerr := s.readDB.Close()
	if err := s.writeDB.Close(); err != nil {
		return err
	}
	return rerr
}

// HasDate reports whether the date has been fetched, including dates that
// produced no articles.
func (s *SQLiteStore) HasDate(ctx context.Context, date string) (bool, error) {
	var one int
	err := s.readDB.QueryRowContext(ctx,
		"SELECT 1 FROM fetched_dates WHERE date = ?", date,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByDate returns the articles indexed under date in the order they were
// first stored. Unknown dates yield an empty slice.
func (s *SQLiteStore) GetByDate(ctx context.Context, date string) ([]Article, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT content_key, title, url, date, body, sentiment, entities
		 FROM articles WHERE date = ? ORDER BY position`,
		date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// PutBatch upserts records under date and marks the date as fetched, all in
// one transaction. Existing (date, content_key) rows keep their position and
// enrichment but take the new title, url and body.
func (s *SQLiteStore) PutBatch(ctx context.Context, date string, records []Article) error {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM articles WHERE date = ?", date,
	).Scan(&next); err != nil {
		return fmt.Errorf("read next position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (date, content_key, position, title, url, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, content_key) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			body = excluded.body`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, a := range records {
		if a.ContentKey == "" {
			return fmt.Errorf("article %q has no content key", a.Title)
		}
		if _, err := stmt.ExecContext(ctx, date, a.ContentKey, next+i, a.Title, a.URL, nullString(a.Body)); err != nil {
			return fmt.Errorf("upserting article %s: %w", a.ContentKey, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fetched_dates (date, article_count, fetched_at)
		VALUES (?, (SELECT COUNT(*) FROM articles WHERE date = ?), CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			article_count = excluded.article_count,
			fetched_at = excluded.fetched_at`,
		date, date,
	); err != nil {
		return fmt.Errorf("index date %s: %w", date, err)
	}

	return tx.Commit()
}

// GetByContentKey returns the earliest stored article with the given key.
func (s *SQLiteStore) GetByContentKey(ctx context.Context, key string) (*Article, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT content_key, title, url, date, body, sentiment, entities
		 FROM articles WHERE content_key = ? ORDER BY date LIMIT 1`,
		key,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNotFound
	}
	return &articles[0], nil
}

// ListDates returns every fetched date, newest first.
func (s *SQLiteStore) ListDates(ctx context.Context) ([]DateEntry, error) {
	rows, err := s.readDB.QueryContext(ctx,
		"SELECT date, article_count, fetched_at FROM fetched_dates ORDER BY date DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []DateEntry
	for rows.Next() {
		var d DateEntry
		if err := rows.Scan(&d.Date, &d.ArticleCount, &d.FetchedAt); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ListUnenriched returns up to limit articles that have not been through
// sentiment/entity enrichment. Articles with fewer failed attempts come
// first, then oldest date first.
func (s *SQLiteStore) ListUnenriched(ctx context.Context, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT content_key, title, url, date, body, sentiment, entities
		 FROM articles WHERE enriched_at IS NULL
		 ORDER BY enrich_attempts, date, position LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// UpdateEnrichment stores sentiment and entities for one article.
func (s *SQLiteStore) UpdateEnrichment(ctx context.Context, date, key, sentiment string, entities []string) error {
	var encoded sql.NullString
	if len(entities) > 0 {
		data, err := json.Marshal(entities)
		if err != nil {
			return fmt.Errorf("encode entities: %w", err)
		}
		encoded = sql.NullString{String: string(data), Valid: true}
	}

	res, err := s.writeDB.ExecContext(ctx,
		`UPDATE articles SET sentiment = ?, entities = ?, enriched_at = CURRENT_TIMESTAMP
		 WHERE date = ? AND content_key = ?`,
		nullString(sentiment), encoded, date, key,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkEnrichFailed counts a failed enrichment attempt so the article moves
// behind untried ones in ListUnenriched.
func (s *SQLiteStore) MarkEnrichFailed(ctx context.Context, date, key string) error {
	res, err := s.writeDB.ExecContext(ctx,
		`UPDATE articles SET enrich_attempts = enrich_attempts + 1
		 WHERE date = ? AND content_key = ?`,
		date, key,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert records label as the user's only label for key. The row is
// removed from whatever partition holds it before the new one is written,
// inside one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, userID, key string, record Preference, label Label) error {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM preferences WHERE user_id = ? AND content_key = ?",
		userID, key,
	); err != nil {
		return fmt.Errorf("clear previous label: %w", err)
	}

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO preferences (user_id, content_key, label, title, publish_date, url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, key, string(label), record.Title, record.PublishDate, record.URL, updatedAt,
	); err != nil {
		return fmt.Errorf("insert %s label: %w", label, err)
	}

	return tx.Commit()
}

// GetPartition returns the user's preferences carrying label, ordered by
// publish date then title.
func (s *SQLiteStore) GetPartition(ctx context.Context, userID string, label Label) ([]Preference, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT user_id, content_key, title, publish_date, url, label, updated_at
		 FROM preferences WHERE user_id = ? AND label = ?
		 ORDER BY publish_date, title`,
		userID, string(label),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := []Preference{}
	for rows.Next() {
		var p Preference
		var l string
		if err := rows.Scan(&p.UserID, &p.ContentKey, &p.Title, &p.PublishDate, &p.URL, &l, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Label = Label(l)
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// GetLabels returns every active label for the user keyed by content key.
func (s *SQLiteStore) GetLabels(ctx context.Context, userID string) (map[string]Label, error) {
	rows, err := s.readDB.QueryContext(ctx,
		"SELECT content_key, label FROM preferences WHERE user_id = ?", userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := make(map[string]Label)
	for rows.Next() {
		var key, l string
		if err := rows.Scan(&key, &l); err != nil {
			return nil, err
		}
		labels[key] = Label(l)
	}
	return labels, rows.Err()
}

// HasUser reports whether the user has labeled anything.
func (s *SQLiteStore) HasUser(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.readDB.QueryRowContext(ctx,
		"SELECT 1 FROM preferences WHERE user_id = ? LIMIT 1", userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	articles := []Article{}
	for rows.Next() {
		var a Article
		var body, sentiment, entities sql.NullString
		if err := rows.Scan(&a.ContentKey, &a.Title, &a.URL, &a.PublishDate, &body, &sentiment, &entities); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		a.Body = body.String
		a.Sentiment = sentiment.String
		if entities.Valid && entities.String != "" {
			if err := json.Unmarshal([]byte(entities.String), &a.Entities); err != nil {
				return nil, fmt.Errorf("decode entities for %s: %w", a.ContentKey, err)
			}
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
