package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

// FunctionProvider invokes a remote scraper function over HTTP. The function
// receives {"date": "YYYY-MM-DD"} and answers with the articles it scraped.
type FunctionProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewFunctionProvider creates a provider for the function at endpoint. The
// apiKey, when set, is sent as a bearer token.
func NewFunctionProvider(endpoint, apiKey string, client *http.Client) *FunctionProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &FunctionProvider{endpoint: endpoint, apiKey: apiKey, client: client}
}

// FetchArticles runs the function synchronously for date.
func (p *FunctionProvider) FetchArticles(ctx context.Context, date string) ([]RawArticle, error) {
	payload, err := json.Marshal(map[string]string{"date": date})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", p.endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke function for %s: %w", date, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read function response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("function returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return decodeArticles(body)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
