// Package mongostore implements crier's article and preference stores on
// MongoDB.
//
// A date's articles are upserted first and its marker document in the dates
// collection is written last. Readers treat a date as present only once the
// marker exists, so a half-written batch is never served.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matthewjhunter/crier/internal/storage"
)

const (
	articlesCollection    = "articles"
	datesCollection       = "dates"
	preferencesCollection = "preferences"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	client      *mongo.Client
	articles    *mongo.Collection
	dates       *mongo.Collection
	preferences *mongo.Collection
}

type articleDoc struct {
	Date       string     `bson:"date"`
	ContentKey string     `bson:"content_key"`
	Position   int        `bson:"position"`
	Title      string     `bson:"title"`
	URL        string     `bson:"url"`
	Body       string     `bson:"body,omitempty"`
	Sentiment  string     `bson:"sentiment,omitempty"`
	Entities   []string   `bson:"entities,omitempty"`
	EnrichedAt *time.Time `bson:"enriched_at,omitempty"`
	Attempts   int        `bson:"enrich_attempts,omitempty"`
}

type dateDoc struct {
	Date         string    `bson:"_id"`
	ArticleCount int       `bson:"article_count"`
	FetchedAt    time.Time `bson:"fetched_at"`
}

type preferenceDoc struct {
	UserID      string    `bson:"user_id"`
	ContentKey  string    `bson:"content_key"`
	Label       string    `bson:"label"`
	Title       string    `bson:"title"`
	PublishDate string    `bson:"publish_date"`
	URL         string    `bson:"url,omitempty"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// New connects to uri and prepares the named database.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := NewWithDatabase(client, client.Database(dbName))
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewWithDatabase wraps an existing connection. Call EnsureIndexes before
// first use if the database is new.
func NewWithDatabase(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:      client,
		articles:    db.Collection(articlesCollection),
		dates:       db.Collection(datesCollection),
		preferences: db.Collection(preferencesCollection),
	}
}

// EnsureIndexes creates the unique keys the store relies on. It is
// idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	articleIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "content_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "content_key", Value: 1}, {Key: "date", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "date", Value: 1}, {Key: "position", Value: 1}},
		},
	}
	if _, err := s.articles.Indexes().CreateMany(ctx, articleIndexes); err != nil {
		return fmt.Errorf("create article indexes: %w", err)
	}

	prefIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "content_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "label", Value: 1}, {Key: "publish_date", Value: 1}, {Key: "title", Value: 1}},
		},
	}
	if _, err := s.preferences.Indexes().CreateMany(ctx, prefIndexes); err != nil {
		return fmt.Errorf("create preference indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) HasDate(ctx context.Context, date string) (bool, error) {
	n, err := s.dates.CountDocuments(ctx, bson.M{"_id": date}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByDate returns the date's articles in provider order. A date without a
// marker has no visible articles.
func (s *Store) GetByDate(ctx context.Context, date string) ([]storage.Article, error) {
	present, err := s.HasDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if !present {
		return []storage.Article{}, nil
	}

	cursor, err := s.articles.Find(ctx, bson.M{"date": date},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodeArticles(ctx, cursor)
}

// PutBatch upserts records under date, then writes the date marker.
// Existing records keep their position and enrichment.
func (s *Store) PutBatch(ctx context.Context, date string, records []storage.Article) error {
	for _, r := range records {
		if r.ContentKey == "" {
			return fmt.Errorf("article %q has no content key", r.Title)
		}
	}

	if len(records) > 0 {
		base, err := s.articles.CountDocuments(ctx, bson.M{"date": date})
		if err != nil {
			return fmt.Errorf("count existing articles: %w", err)
		}

		models := make([]mongo.WriteModel, 0, len(records))
		for i, r := range records {
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"date": date, "content_key": r.ContentKey}).
				SetUpdate(bson.M{
					"$set": bson.M{
						"title": r.Title,
						"url":   r.URL,
						"body":  r.Body,
					},
					"$setOnInsert": bson.M{
						"position": int(base) + i,
					},
				}).
				SetUpsert(true))
		}
		if _, err := s.articles.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
			s.discardUnmarked(ctx, date)
			return fmt.Errorf("bulk upsert articles: %w", err)
		}
	}

	count, err := s.articles.CountDocuments(ctx, bson.M{"date": date})
	if err != nil {
		return fmt.Errorf("count stored articles: %w", err)
	}
	_, err = s.dates.UpdateOne(ctx,
		bson.M{"_id": date},
		bson.M{"$set": bson.M{"article_count": int(count), "fetched_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("write date marker: %w", err)
	}
	return nil
}

// discardUnmarked removes the documents a failed batch left under a date
// that has no marker yet. Marked dates keep their articles.
func (s *Store) discardUnmarked(ctx context.Context, date string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	present, err := s.HasDate(ctx, date)
	if err != nil || present {
		return
	}
	s.articles.DeleteMany(ctx, bson.M{"date": date})
}

// GetByContentKey returns the earliest stored article with the given key.
func (s *Store) GetByContentKey(ctx context.Context, key string) (*storage.Article, error) {
	var doc articleDoc
	err := s.articles.FindOne(ctx, bson.M{"content_key": key},
		options.FindOne().SetSort(bson.D{{Key: "date", Value: 1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a := doc.article()
	return &a, nil
}

// ListDates returns every fetched date, newest first.
func (s *Store) ListDates(ctx context.Context) ([]storage.DateEntry, error) {
	cursor, err := s.dates.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	dates := []storage.DateEntry{}
	for cursor.Next(ctx) {
		var doc dateDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		dates = append(dates, storage.DateEntry{Date: doc.Date, ArticleCount: doc.ArticleCount, FetchedAt: doc.FetchedAt})
	}
	return dates, cursor.Err()
}

func (s *Store) ListUnenriched(ctx context.Context, limit int) ([]storage.Article, error) {
	if limit <= 0 {
		limit = 100
	}
	cursor, err := s.articles.Find(ctx,
		bson.M{"enriched_at": bson.M{"$exists": false}},
		options.Find().
			SetSort(bson.D{{Key: "enrich_attempts", Value: 1}, {Key: "date", Value: 1}, {Key: "position", Value: 1}}).
			SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	return decodeArticles(ctx, cursor)
}

func (s *Store) UpdateEnrichment(ctx context.Context, date, key, sentiment string, entities []string) error {
	res, err := s.articles.UpdateOne(ctx,
		bson.M{"date": date, "content_key": key},
		bson.M{"$set": bson.M{
			"sentiment":   sentiment,
			"entities":    entities,
			"enriched_at": time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkEnrichFailed counts a failed enrichment attempt for one article.
func (s *Store) MarkEnrichFailed(ctx context.Context, date, key string) error {
	res, err := s.articles.UpdateOne(ctx,
		bson.M{"date": date, "content_key": key},
		bson.M{"$inc": bson.M{"enrich_attempts": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Upsert replaces the user's single preference document for key, which
// moves it out of whatever partition held it in one atomic write.
func (s *Store) Upsert(ctx context.Context, userID, key string, record storage.Preference, label storage.Label) error {
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	doc := preferenceDoc{
		UserID:      userID,
		ContentKey:  key,
		Label:       string(label),
		Title:       record.Title,
		PublishDate: record.PublishDate,
		URL:         record.URL,
		UpdatedAt:   updatedAt,
	}
	_, err := s.preferences.ReplaceOne(ctx,
		bson.M{"user_id": userID, "content_key": key},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s label: %w", label, err)
	}
	return nil
}

func (s *Store) GetPartition(ctx context.Context, userID string, label storage.Label) ([]storage.Preference, error) {
	cursor, err := s.preferences.Find(ctx,
		bson.M{"user_id": userID, "label": string(label)},
		options.Find().SetSort(bson.D{{Key: "publish_date", Value: 1}, {Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	prefs := []storage.Preference{}
	for cursor.Next(ctx) {
		var doc preferenceDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		prefs = append(prefs, storage.Preference{
			UserID:      doc.UserID,
			ContentKey:  doc.ContentKey,
			Title:       doc.Title,
			PublishDate: doc.PublishDate,
			URL:         doc.URL,
			Label:       storage.Label(doc.Label),
			UpdatedAt:   doc.UpdatedAt,
		})
	}
	return prefs, cursor.Err()
}

func (s *Store) GetLabels(ctx context.Context, userID string) (map[string]storage.Label, error) {
	cursor, err := s.preferences.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetProjection(bson.M{"content_key": 1, "label": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	labels := make(map[string]storage.Label)
	for cursor.Next(ctx) {
		var doc preferenceDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		labels[doc.ContentKey] = storage.Label(doc.Label)
	}
	return labels, cursor.Err()
}

func (s *Store) HasUser(ctx context.Context, userID string) (bool, error) {
	n, err := s.preferences.CountDocuments(ctx, bson.M{"user_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func decodeArticles(ctx context.Context, cursor *mongo.Cursor) ([]storage.Article, error) {
	defer cursor.Close(ctx)

	articles := []storage.Article{}
	for cursor.Next(ctx) {
		var doc articleDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		articles = append(articles, doc.article())
	}
	return articles, cursor.Err()
}

func (d articleDoc) article() storage.Article {
	return storage.Article{
		ContentKey:  d.ContentKey,
		Title:       d.Title,
		URL:         d.URL,
		PublishDate: d.Date,
		Body:        d.Body,
		Sentiment:   d.Sentiment,
		Entities:    d.Entities,
	}
}
