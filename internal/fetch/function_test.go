package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFunctionProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization=%q", got)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["date"] != "2026-02-17" {
			t.Errorf("date=%q", req["date"])
		}
		fmt.Fprint(w, `[{"title":"A","text":"body a","url":"https://example.com/a","date":"2026-02-17"},
			{"title":"B","text":"body b","url":"https://example.com/b","date":"2026-02-17"}]`)
	}))
	defer srv.Close()

	p := NewFunctionProvider(srv.URL, "secret", nil)
	articles, err := p.FetchArticles(context.Background(), "2026-02-17")
	if err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[1].Title != "B" || articles[1].URL != "https://example.com/b" {
		t.Errorf("unexpected second article: %+v", articles[1])
	}
}

func TestFunctionProviderEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("expected no Authorization header without an api key")
		}
		fmt.Fprint(w, `{"articles":[{"title":"Only","text":"x"}]}`)
	}))
	defer srv.Close()

	articles, err := NewFunctionProvider(srv.URL, "", nil).FetchArticles(context.Background(), "2026-02-17")
	if err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "Only" {
		t.Fatalf("unexpected articles: %+v", articles)
	}
}

func TestFunctionProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "scraper exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewFunctionProvider(srv.URL, "", nil).FetchArticles(context.Background(), "2026-02-17")
	if err == nil {
		t.Fatal("expected error for 502")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "scraper exploded") {
		t.Errorf("error should carry status and body, got %v", err)
	}
}

func TestFunctionProviderCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFunctionProvider(srv.URL, "", nil).FetchArticles(ctx, "2026-02-17"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestDecodeArticles(t *testing.T) {
	if _, err := decodeArticles([]byte("  ")); err == nil {
		t.Error("expected error for empty body")
	}
	if _, err := decodeArticles([]byte("{bad")); err == nil {
		t.Error("expected error for malformed envelope")
	}
	articles, err := decodeArticles([]byte("[]"))
	if err != nil {
		t.Fatalf("decode empty list: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("expected 0 articles, got %d", len(articles))
	}
}

func TestFuncAdapter(t *testing.T) {
	var gotDate string
	var p Provider = Func(func(ctx context.Context, date string) ([]RawArticle, error) {
		gotDate = date
		return []RawArticle{{Title: "x"}}, nil
	})
	articles, err := p.FetchArticles(context.Background(), "2026-02-17")
	if err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	if gotDate != "2026-02-17" || len(articles) != 1 {
		t.Errorf("adapter did not pass through: date=%q articles=%v", gotDate, articles)
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	got := truncate("café crème", 4)
	if !utf8.ValidString(got) || got != "caf..." {
		t.Errorf("truncate = %q, want caf...", got)
	}
}
