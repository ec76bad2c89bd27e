package articles

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/matthewjhunter/crier/internal/contentkey"
	"github.com/matthewjhunter/crier/internal/fetch"
	"github.com/matthewjhunter/crier/internal/metrics"
	"github.com/matthewjhunter/crier/internal/notify"
	"github.com/matthewjhunter/crier/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingProvider returns a fixed article list per date and counts calls.
// When gate is set every call blocks until it is closed.
type countingProvider struct {
	calls   atomic.Int32
	gate    chan struct{}
	byDate  map[string][]fetch.RawArticle
	err     error
	started chan struct{}
}

func (p *countingProvider) FetchArticles(ctx context.Context, date string) ([]fetch.RawArticle, error) {
	p.calls.Add(1)
	if p.started != nil {
		select {
		case p.started <- struct{}{}:
		default:
		}
	}
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.byDate[date], nil
}

func sampleRaw(date string) []fetch.RawArticle {
	return []fetch.RawArticle{
		{Title: "Apple Launches X", Text: "apple body", URL: "https://example.com/apple", Date: date},
		{Title: "Startup Raises Round", Text: "startup body", URL: "https://example.com/startup", Date: date},
	}
}

func newSQLite(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "crier.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newManager(t *testing.T, provider fetch.Provider, options ...Option) (*Manager, *storage.SQLiteStore) {
	t.Helper()
	store := newSQLite(t)
	return New(store, store, provider, options...), store
}

func TestGetArticlesFetchesOnce(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	m, _ := newManager(t, p)

	first, err := m.GetArticles(ctx, "2019-09-08", true)
	require.NoError(t, err)
	second, err := m.GetArticles(ctx, "2019-09-08", true)
	require.NoError(t, err)

	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, contentkey.Key("Apple Launches X"), first[0].ContentKey)
	assert.Equal(t, "2019-09-08", first[0].PublishDate)
	assert.Equal(t, "apple body", first[0].Body)
}

func TestGetArticlesSlashDate(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019/09/08")}}
	m, store := newManager(t, p)

	got, err := m.GetArticles(ctx, "2019/09/08", false)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	has, err := store.HasDate(ctx, "2019-09-08")
	require.NoError(t, err)
	assert.True(t, has, "date should be stored in canonical form")
}

func TestGetArticlesEmptyDateCached(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2020-01-01": {}}}
	m, _ := newManager(t, p)

	for range 2 {
		got, err := m.GetArticles(ctx, "2020-01-01", false)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestGetArticlesStripsBody(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	m, store := newManager(t, p)

	got, err := m.GetArticles(ctx, "2019-09-08", false)
	require.NoError(t, err)
	for _, a := range got {
		assert.Empty(t, a.Body)
	}

	stored, err := store.GetByDate(ctx, "2019-09-08")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "apple body", stored[0].Body)
	assert.Equal(t, "startup body", stored[1].Body)
}

func TestGetArticlesCanonicalizes(t *testing.T) {
	ctx := context.Background()
	raw := []fetch.RawArticle{
		{Title: "Apple Launches X", Text: "old", URL: "https://example.com/old"},
		{Title: "   ", Text: "no title"},
		{Title: "Other", Text: "other"},
		{Title: "  apple launches x  ", Text: "new", URL: "https://example.com/new", Date: "1999-01-01"},
	}
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": raw}}
	m, _ := newManager(t, p)

	got, err := m.GetArticles(ctx, "2019-09-08", true)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, contentkey.Key("apple launches x"), got[0].ContentKey)
	assert.Equal(t, "new", got[0].Body, "last duplicate wins")
	assert.Equal(t, "https://example.com/new", got[0].URL)
	assert.Equal(t, "2019-09-08", got[0].PublishDate, "publish date pinned to the request")
	assert.Equal(t, "Other", got[1].Title)
}

func TestGetArticlesInvalidDate(t *testing.T) {
	store := &failingStore{}
	p := &countingProvider{}
	m := New(store, store, p)

	for _, in := range []string{"", "yesterday", "2019-13-01", "2019-02-30", "20190908"} {
		_, err := m.GetArticles(context.Background(), in, false)
		var ide *InvalidDateError
		require.ErrorAs(t, err, &ide, "input %q", in)
		assert.Equal(t, in, ide.Input)
	}
	assert.Zero(t, store.calls.Load(), "store must not be touched")
	assert.Zero(t, p.calls.Load())
}

func TestGetArticlesFetchErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("provider down")
	p := &countingProvider{err: boom}
	m, store := newManager(t, p)

	_, err := m.GetArticles(ctx, "2019-09-08", false)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "2019-09-08", fe.Date)
	assert.ErrorIs(t, err, boom)

	has, err := store.HasDate(ctx, "2019-09-08")
	require.NoError(t, err)
	assert.False(t, has)

	// A later call retries.
	p.err = nil
	p.byDate = map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}
	got, err := m.GetArticles(ctx, "2019-09-08", false)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestGetArticlesFetchTimeout(t *testing.T) {
	p := &countingProvider{gate: make(chan struct{})}
	m, _ := newManager(t, p, WithFetchTimeout(20*time.Millisecond))

	_, err := m.GetArticles(context.Background(), "2019-09-08", false)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetArticlesConcurrentMiss(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		byDate:  map[string][]fetch.RawArticle{"2021-05-05": sampleRaw("2021-05-05")},
	}
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	m, _ := newManager(t, p, WithMetrics(mt))

	const callers = 8
	results := make([][]storage.Article, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = m.GetArticles(ctx, "2021-05-05", false)
		}()
	}

	<-p.started
	// Let the other callers reach the flight before releasing the provider.
	time.Sleep(50 * time.Millisecond)
	close(p.gate)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	assert.Len(t, results[0], 2)
}

func TestGetArticlesConcurrentMissSharesFailure(t *testing.T) {
	p := &countingProvider{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		err:     errors.New("provider down"),
	}
	m, _ := newManager(t, p)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = m.GetArticles(context.Background(), "2021-05-05", false)
		}()
	}
	<-p.started
	time.Sleep(50 * time.Millisecond)
	close(p.gate)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	for _, err := range errs {
		var fe *FetchError
		assert.ErrorAs(t, err, &fe)
	}
}

func TestGetArticlesCallerCancelDoesNotAbortFetch(t *testing.T) {
	p := &countingProvider{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		byDate:  map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")},
	}
	m, store := newManager(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.GetArticles(ctx, "2019-09-08", false)
		done <- err
	}()

	<-p.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// A second caller joins the still-running flight and gets its result.
	second := make(chan []storage.Article, 1)
	go func() {
		got, _ := m.GetArticles(context.Background(), "2019-09-08", false)
		second <- got
	}()
	time.Sleep(20 * time.Millisecond)
	close(p.gate)

	got := <-second
	assert.Len(t, got, 2)
	assert.Equal(t, int32(1), p.calls.Load())

	has, err := store.HasDate(context.Background(), "2019-09-08")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGetArticlesRecheckInsideFlight(t *testing.T) {
	ctx := context.Background()
	store := newSQLite(t)
	// Simulate another process finishing the backfill between the
	// caller's presence check and the flight starting.
	racing := &racingStore{SQLiteStore: store, onFirstMiss: func() {
		require.NoError(t, store.PutBatch(ctx, "2019-09-08", []storage.Article{
			{ContentKey: "k", Title: "Elsewhere", PublishDate: "2019-09-08"},
		}))
	}}
	p := &countingProvider{}
	m := New(racing, store, p)

	got, err := m.GetArticles(ctx, "2019-09-08", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Elsewhere", got[0].Title)
	assert.Zero(t, p.calls.Load())
}

func TestGetArticlesStoreErrorPropagates(t *testing.T) {
	diskFull := errors.New("disk full")
	store := &failingStore{err: diskFull}
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	m := New(store, store, p)

	_, err := m.GetArticles(context.Background(), "2019-09-08", false)
	require.ErrorIs(t, err, diskFull)
	var fe *FetchError
	assert.False(t, errors.As(err, &fe), "store errors are not fetch errors")
	assert.Zero(t, p.calls.Load())
}

func TestGetArticlesPutBatchErrorPropagates(t *testing.T) {
	diskFull := errors.New("disk full")
	store := &failingStore{putErr: diskFull}
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	m := New(store, store, p)

	_, err := m.GetArticles(context.Background(), "2019-09-08", false)
	require.ErrorIs(t, err, diskFull)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestGetArticlesNotifies(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	failing := notifierFunc(func(context.Context, notify.Backfill) error { return errors.New("nats down") })
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)

	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	m, _ := newManager(t, p,
		WithNotifier(notify.Multi{notify.NewLogNotifier(&buf, ""), failing}),
		WithMetrics(mt),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)

	got, err := m.GetArticles(ctx, "2019-09-08", false)
	require.NoError(t, err, "notifier failure must not fail the request")
	assert.Len(t, got, 2)
	assert.Contains(t, buf.String(), "Fetched 2 articles for date 2019-09-08")
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.NotifierFailures))

	// A cache hit does not notify again.
	buf.Reset()
	_, err = m.GetArticles(ctx, "2019-09-08", false)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestGetArticlesMemo(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	// ttl 0 keeps the memo free of its expiry goroutine.
	m, _ := newManager(t, p, WithMemo(4, 0), WithMetrics(mt))

	first, err := m.GetArticles(ctx, "2019-09-08", true)
	require.NoError(t, err)
	first[0].Title = "mutated by caller"

	second, err := m.GetArticles(ctx, "2019-09-08", true)
	require.NoError(t, err)
	assert.Equal(t, "Apple Launches X", second[0].Title, "memo must hand out copies")

	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Requests.WithLabelValues(metrics.ResultMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Requests.WithLabelValues(metrics.ResultMemo)))
}

func TestForgetDropsMemoizedDate(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	m, store := newManager(t, p, WithMemo(4, 0), WithMetrics(mt))

	first, err := m.GetArticles(ctx, "2019-09-08", false)
	require.NoError(t, err)
	require.NoError(t, store.UpdateEnrichment(ctx, "2019-09-08", first[0].ContentKey, "positive", []string{"Apple"}))

	m.Forget("2019-09-08")
	second, err := m.GetArticles(ctx, "2019-09-08", false)
	require.NoError(t, err)
	assert.Equal(t, "positive", second[0].Sentiment)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Requests.WithLabelValues(metrics.ResultHit)))
	assert.Equal(t, 0.0, testutil.ToFloat64(mt.Requests.WithLabelValues(metrics.ResultMemo)))
}

func TestRecordPreferenceExclusive(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	m, _ := newManager(t, p)

	require.NoError(t, m.RecordPreference(ctx, "u1", "T", "2019-09-08", "like"))
	require.NoError(t, m.RecordPreference(ctx, "u1", "  t ", "2019-09-08", "DISLIKE"))

	liked, err := m.GetLabeled(ctx, "u1", "like")
	require.NoError(t, err)
	assert.Empty(t, liked)

	disliked, err := m.GetLabeled(ctx, "u1", "dislike")
	require.NoError(t, err)
	require.Len(t, disliked, 1)
	assert.Equal(t, contentkey.Key("T"), disliked[0].ContentKey)

	labels, err := m.Labels(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]storage.Label{contentkey.Key("T"): storage.LabelDislike}, labels)
}

func TestRecordPreferenceCarriesURL(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m, store := newManager(t, p, WithClock(func() time.Time { return fixed }))

	_, err := m.GetArticles(ctx, "2019-09-08", false)
	require.NoError(t, err)
	require.NoError(t, m.RecordPreference(ctx, "u1", "apple launches x", "2019/09/08", "uncertain"))

	prefs, err := store.GetPartition(ctx, "u1", storage.LabelUncertain)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "https://example.com/apple", prefs[0].URL)
	assert.Equal(t, "2019-09-08", prefs[0].PublishDate)
	assert.True(t, prefs[0].UpdatedAt.Equal(fixed))
}

func TestRecordPreferenceValidation(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	m := New(store, store, &countingProvider{})

	cases := []struct {
		user, title, date, label, field string
	}{
		{"", "T", "2019-09-08", "like", "user_id"},
		{"u1", " ", "2019-09-08", "like", "title"},
		{"u1", "T", "2019-09-08", "love", "label"},
		{"u1", "T", "", "like", "date"},
	}
	for _, tc := range cases {
		err := m.RecordPreference(ctx, tc.user, tc.title, tc.date, tc.label)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tc.field, ve.Field)
	}

	var ide *InvalidDateError
	require.ErrorAs(t, m.RecordPreference(ctx, "u1", "T", "2019-99-99", "like"), &ide)
	assert.Zero(t, store.calls.Load())
}

func TestGetLabeledUnknownUser(t *testing.T) {
	m, _ := newManager(t, &countingProvider{})

	got, err := m.GetLabeled(context.Background(), "nobody", "like")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = m.GetLabeled(context.Background(), "nobody", "meh")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestGetLabeledOrder(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &countingProvider{})

	require.NoError(t, m.RecordPreference(ctx, "u1", "Zeta", "2019-09-08", "like"))
	require.NoError(t, m.RecordPreference(ctx, "u1", "Beta", "2019-09-09", "like"))
	require.NoError(t, m.RecordPreference(ctx, "u1", "Alpha", "2019-09-08", "like"))

	got, err := m.GetLabeled(ctx, "u1", "like")
	require.NoError(t, err)
	titles := make([]string, len(got))
	for i, a := range got {
		titles[i] = a.Title
	}
	assert.Equal(t, []string{"Alpha", "Zeta", "Beta"}, titles)
}

func TestConcurrentRelabel(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &countingProvider{})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			label := storage.Labels[i%len(storage.Labels)]
			assert.NoError(t, m.RecordPreference(ctx, "u1", "Contested", "2019-09-08", string(label)))
		}()
	}
	wg.Wait()

	labels, err := m.Labels(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, labels, 1)

	total := 0
	for _, lbl := range storage.Labels {
		got, err := m.GetLabeled(ctx, "u1", string(lbl))
		require.NoError(t, err)
		total += len(got)
	}
	assert.Equal(t, 1, total, "exactly one partition holds the article")
}

func TestGetArticle(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{byDate: map[string][]fetch.RawArticle{"2019-09-08": sampleRaw("2019-09-08")}}
	m, _ := newManager(t, p)
	_, err := m.GetArticles(ctx, "2019-09-08", false)
	require.NoError(t, err)

	got, err := m.GetArticle(ctx, contentkey.Key("Startup Raises Round"))
	require.NoError(t, err)
	assert.Equal(t, "startup body", got.Body)

	byTitle, err := m.GetArticleByTitle(ctx, "  STARTUP raises round")
	require.NoError(t, err)
	assert.Equal(t, got, byTitle)

	_, err = m.GetArticle(ctx, contentkey.Key("missing"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	provider := fetch.Func(func(_ context.Context, date string) ([]fetch.RawArticle, error) {
		if date == "2019-09-09" {
			return nil, errors.New("site down")
		}
		return sampleRaw(date), nil
	})
	m, store := newManager(t, provider)

	res, err := m.Backfill(ctx, "2019-09-07", "2019-09-10")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Dates)
	assert.Equal(t, 6, res.Articles)
	assert.Equal(t, map[string]string{"2019-09-09": "site down"}, res.Failed)

	dates, err := store.ListDates(ctx)
	require.NoError(t, err)
	assert.Len(t, dates, 3)

	_, err = m.Backfill(ctx, "2019-09-10", "2019-09-07")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestBackfillCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	provider := fetch.Func(func(_ context.Context, date string) ([]fetch.RawArticle, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return nil, nil
	})
	m, _ := newManager(t, provider)

	res, err := m.Backfill(ctx, "2019-09-01", "2019-09-30")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, res.Dates, 30)
}

// failingStore fails every call with err (if set) and counts calls.
type failingStore struct {
	calls  atomic.Int32
	err    error
	putErr error
}

func (s *failingStore) HasDate(context.Context, string) (bool, error) {
	s.calls.Add(1)
	return false, s.err
}

func (s *failingStore) GetByDate(context.Context, string) ([]storage.Article, error) {
	s.calls.Add(1)
	return nil, s.err
}

func (s *failingStore) PutBatch(context.Context, string, []storage.Article) error {
	s.calls.Add(1)
	if s.putErr != nil {
		return s.putErr
	}
	return s.err
}

func (s *failingStore) GetByContentKey(context.Context, string) (*storage.Article, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return nil, storage.ErrNotFound
}

func (s *failingStore) Upsert(context.Context, string, string, storage.Preference, storage.Label) error {
	s.calls.Add(1)
	return s.err
}

func (s *failingStore) GetPartition(context.Context, string, storage.Label) ([]storage.Preference, error) {
	s.calls.Add(1)
	return nil, s.err
}

func (s *failingStore) GetLabels(context.Context, string) (map[string]storage.Label, error) {
	s.calls.Add(1)
	return nil, s.err
}

func (s *failingStore) HasUser(context.Context, string) (bool, error) {
	s.calls.Add(1)
	return false, s.err
}

// racingStore runs onFirstMiss the first time HasDate reports a miss.
type racingStore struct {
	*storage.SQLiteStore
	once        sync.Once
	onFirstMiss func()
}

func (s *racingStore) HasDate(ctx context.Context, date string) (bool, error) {
	has, err := s.SQLiteStore.HasDate(ctx, date)
	if err == nil && !has {
		s.once.Do(s.onFirstMiss)
	}
	return has, err
}

type notifierFunc func(context.Context, notify.Backfill) error

func (f notifierFunc) ArticlesBackfilled(ctx context.Context, b notify.Backfill) error {
	return f(ctx, b)
}
