// Package fetch holds the providers that retrieve raw articles for a single
// calendar day. A provider is invoked at most once per uncached date, so
// implementations may be slow; they should honour ctx for cancellation.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// RawArticle is one article as a provider returns it, before it is keyed
// and stored.
type RawArticle struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// Provider fetches every article published on date (YYYY-MM-DD).
type Provider interface {
	FetchArticles(ctx context.Context, date string) ([]RawArticle, error)
}

// Func adapts an ordinary function to the Provider interface.
type Func func(ctx context.Context, date string) ([]RawArticle, error)

// FetchArticles calls f.
func (f Func) FetchArticles(ctx context.Context, date string) ([]RawArticle, error) {
	return f(ctx, date)
}

// decodeArticles accepts either a bare JSON array of articles or an object
// wrapping them under "articles".
func decodeArticles(data []byte) ([]RawArticle, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	if trimmed[0] == '[' {
		var articles []RawArticle
		if err := json.Unmarshal(trimmed, &articles); err != nil {
			return nil, fmt.Errorf("decode article list: %w", err)
		}
		return articles, nil
	}

	var wrapped struct {
		Articles []RawArticle `json:"articles"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode article envelope: %w", err)
	}
	return wrapped.Articles, nil
}
