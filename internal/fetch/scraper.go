package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ScraperConfig describes a site that publishes per-day archive pages at
// {BaseURL}/YYYY/MM/DD/ with further pages at .../page/N/.
type ScraperConfig struct {
	BaseURL       string        `yaml:"base_url" toml:"base_url"`
	LinkSelector  string        `yaml:"link_selector" toml:"link_selector"`
	TitleSelector string        `yaml:"title_selector" toml:"title_selector"`
	BodySelector  string        `yaml:"body_selector" toml:"body_selector"`
	MaxPages      int           `yaml:"max_pages" toml:"max_pages"`
	Delay         time.Duration `yaml:"delay" toml:"delay"`
}

// DefaultScraperConfig returns selectors for TechCrunch's date archives.
func DefaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		BaseURL:       "https://techcrunch.com",
		LinkSelector:  "h2.post-block__title a",
		TitleSelector: "h1",
		BodySelector:  `div[class^="article-content"] p`,
		MaxPages:      20,
	}
}

// Scraper walks a site's date archive and scrapes every linked article.
// Any failed article page fails the whole date, so a partial day is never
// handed back for caching.
type Scraper struct {
	cfg    ScraperConfig
	client *http.Client
}

var errPageNotFound = errors.New("page not found")

// NewScraper creates a scraper. Zero-valued config fields take the defaults.
func NewScraper(cfg ScraperConfig, client *http.Client) *Scraper {
	def := DefaultScraperConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.LinkSelector == "" {
		cfg.LinkSelector = def.LinkSelector
	}
	if cfg.TitleSelector == "" {
		cfg.TitleSelector = def.TitleSelector
	}
	if cfg.BodySelector == "" {
		cfg.BodySelector = def.BodySelector
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scraper{cfg: cfg, client: client}
}

// FetchArticles scrapes all articles listed on the archive pages for date.
func (s *Scraper) FetchArticles(ctx context.Context, date string) ([]RawArticle, error) {
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return nil, fmt.Errorf("scraper: invalid date %q: %w", date, err)
	}

	links, err := s.collectLinks(ctx, day)
	if err != nil {
		return nil, err
	}

	articles := make([]RawArticle, 0, len(links))
	for _, link := range links {
		if err := s.pause(ctx); err != nil {
			return nil, err
		}
		article, err := s.scrapeArticle(ctx, link)
		if err != nil {
			return nil, err
		}
		article.Date = date
		articles = append(articles, article)
	}
	return articles, nil
}

// collectLinks follows archive pages until one is missing, empty, or the
// page cap is reached. Links are returned once each, in page order.
func (s *Scraper) collectLinks(ctx context.Context, day time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var links []string

	for page := 1; page <= s.cfg.MaxPages; page++ {
		if page > 1 {
			if err := s.pause(ctx); err != nil {
				return nil, err
			}
		}

		pageURL := s.archiveURL(day, page)
		doc, err := s.get(ctx, pageURL)
		if errors.Is(err, errPageNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}

		base, _ := url.Parse(pageURL)
		found := 0
		doc.Find(s.cfg.LinkSelector).Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return
			}
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				return
			}
			abs := base.ResolveReference(ref).String()
			if seen[abs] {
				return
			}
			seen[abs] = true
			links = append(links, abs)
			found++
		})
		if found == 0 {
			break
		}
	}
	return links, nil
}

func (s *Scraper) scrapeArticle(ctx context.Context, link string) (RawArticle, error) {
	doc, err := s.get(ctx, link)
	if err != nil {
		return RawArticle{}, fmt.Errorf("scrape %s: %w", link, err)
	}

	var titleParts []string
	doc.Find(s.cfg.TitleSelector).Each(func(_ int, sel *goquery.Selection) {
		if t := collapseSpace(sel.Text()); t != "" {
			titleParts = append(titleParts, t)
		}
	})

	var paragraphs []string
	doc.Find(s.cfg.BodySelector).Each(func(_ int, sel *goquery.Selection) {
		if p := collapseSpace(sel.Text()); p != "" {
			paragraphs = append(paragraphs, p)
		}
	})

	return RawArticle{
		Title: strings.Join(titleParts, " "),
		Text:  strings.Join(paragraphs, " "),
		URL:   link,
	}, nil
}

func (s *Scraper) archiveURL(day time.Time, page int) string {
	u := fmt.Sprintf("%s/%s/", s.cfg.BaseURL, day.Format("2006/01/02"))
	if page > 1 {
		u += fmt.Sprintf("page/%d/", page)
	}
	return u
}

func (s *Scraper) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errPageNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}

func (s *Scraper) pause(ctx context.Context) error {
	if s.cfg.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
