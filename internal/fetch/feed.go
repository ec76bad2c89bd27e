package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const userAgent = "crier/1.0"

// FeedProvider reads an RSS/Atom feed and keeps the items published on the
// requested day. Feeds only carry recent items, so older dates come back
// empty; pair it with the scraper when deep history matters.
type FeedProvider struct {
	url      string
	parser   *gofeed.Parser
	client   *http.Client
	location *time.Location
}

// NewFeedProvider creates a feed provider. Publish times are bucketed into
// days in loc (UTC when nil).
func NewFeedProvider(feedURL string, loc *time.Location) *FeedProvider {
	if loc == nil {
		loc = time.UTC
	}
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &FeedProvider{
		url:      feedURL,
		parser:   parser,
		client:   &http.Client{},
		location: loc,
	}
}

// FetchArticles downloads and parses the feed, returning items whose
// publish (or, failing that, update) time falls on date.
func (f *FeedProvider) FetchArticles(ctx context.Context, date string) ([]RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", f.url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %d", f.url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", f.url, err)
	}

	parsed, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", f.url, err)
	}

	articles := []RawArticle{}
	for _, item := range parsed.Items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil || published.In(f.location).Format(time.DateOnly) != date {
			continue
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}

		articles = append(articles, RawArticle{
			Title: htmlToText(item.Title),
			Text:  htmlToText(content),
			URL:   strings.TrimSpace(item.Link),
			Date:  date,
		})
	}

	return articles, nil
}
