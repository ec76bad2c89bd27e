package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matthewjhunter/crier/internal/articles"
	"github.com/matthewjhunter/crier/internal/enrich"
	"github.com/matthewjhunter/crier/internal/storage"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatHuman Format = "human"
)

type Formatter struct {
	format Format
	out    io.Writer
	err    io.Writer
}

// NewFormatter creates a new output formatter
func NewFormatter(format Format) *Formatter {
	return &Formatter{
		format: format,
		out:    os.Stdout,
		err:    os.Stderr,
	}
}

// NewFormatterWithWriters creates a formatter with custom output writers for testability
func NewFormatterWithWriters(format Format, out, errW io.Writer) *Formatter {
	return &Formatter{
		format: format,
		out:    out,
		err:    errW,
	}
}

// LabeledArticle is an article annotated with the requesting user's label.
type LabeledArticle struct {
	storage.Article
	Label storage.Label `json:"label,omitempty"`
}

// Annotate pairs each article with its label from labels, if any.
func Annotate(list []storage.Article, labels map[string]storage.Label) []LabeledArticle {
	out := make([]LabeledArticle, len(list))
	for i, a := range list {
		out[i] = LabeledArticle{Article: a, Label: labels[a.ContentKey]}
	}
	return out
}

// OutputArticleList outputs the articles for one date
func (f *Formatter) OutputArticleList(date string, list []LabeledArticle) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(struct {
			Date     string           `json:"date"`
			Articles []LabeledArticle `json:"articles"`
		}{date, list})
	case FormatText:
		for _, a := range list {
			fmt.Fprintf(f.out, "key=%s\tdate=%s\ttitle=%s\turl=%s", a.ContentKey, a.PublishDate, a.Title, a.URL)
			if a.Label != "" {
				fmt.Fprintf(f.out, "\tlabel=%s", a.Label)
			}
			fmt.Fprintln(f.out)
		}
		return nil
	case FormatHuman:
		if len(list) == 0 {
			fmt.Fprintf(f.out, "No articles for %s\n", date)
			return nil
		}
		fmt.Fprintf(f.out, "Articles for %s (%d):\n\n", date, len(list))
		for i, a := range list {
			mark := ""
			if a.Label != "" {
				mark = fmt.Sprintf(" [%s]", a.Label)
			}
			fmt.Fprintf(f.out, "%d: %s%s\n", i+1, a.Title, mark)
			if a.URL != "" {
				fmt.Fprintf(f.out, "  - link: %s\n", a.URL)
			}
			if a.Body != "" {
				fmt.Fprintf(f.out, "  %s\n", truncate(a.Body, 300))
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputArticle outputs one full article
func (f *Formatter) OutputArticle(a *storage.Article) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(a)
	case FormatText:
		fmt.Fprintf(f.out, "key=%s\tdate=%s\ttitle=%s\turl=%s\tsentiment=%s\tentities=%s\n",
			a.ContentKey, a.PublishDate, a.Title, a.URL, a.Sentiment, strings.Join(a.Entities, ","))
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Title: %s\n", a.Title)
		fmt.Fprintf(f.out, "Date: %s\n", a.PublishDate)
		if a.URL != "" {
			fmt.Fprintf(f.out, "URL: %s\n", a.URL)
		}
		if a.Sentiment != "" {
			fmt.Fprintf(f.out, "Sentiment: %s\n", a.Sentiment)
		}
		if len(a.Entities) > 0 {
			fmt.Fprintf(f.out, "Entities: %s\n", strings.Join(a.Entities, ", "))
		}
		fmt.Fprintln(f.out, strings.Repeat("=", 70))
		fmt.Fprintln(f.out, a.Body)
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputLabeled outputs the articles a user has given one label
func (f *Formatter) OutputLabeled(userID string, label storage.Label, list []storage.Article) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(struct {
			UserID   string            `json:"user_id"`
			Label    storage.Label     `json:"label"`
			Articles []storage.Article `json:"articles"`
		}{userID, label, list})
	case FormatText:
		for _, a := range list {
			fmt.Fprintf(f.out, "label=%s\tkey=%s\tdate=%s\ttitle=%s\turl=%s\n",
				label, a.ContentKey, a.PublishDate, a.Title, a.URL)
		}
		return nil
	case FormatHuman:
		if len(list) == 0 {
			fmt.Fprintf(f.out, "No articles labeled %s\n", label)
			return nil
		}
		fmt.Fprintf(f.out, "Articles labeled %s (%d):\n\n", label, len(list))
		date := ""
		for _, a := range list {
			if a.PublishDate != date {
				date = a.PublishDate
				fmt.Fprintf(f.out, "%s\n", date)
			}
			fmt.Fprintf(f.out, "  • %s\n", a.Title)
			if a.URL != "" {
				fmt.Fprintf(f.out, "    %s\n", a.URL)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputPreferenceRecorded confirms a label was stored
func (f *Formatter) OutputPreferenceRecorded(userID, title, date string, label storage.Label) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(map[string]interface{}{
			"event":   "preference_recorded",
			"user_id": userID,
			"title":   title,
			"date":    date,
			"label":   label,
		})
	case FormatText:
		fmt.Fprintf(f.out, "event=preference_recorded\tuser=%s\tlabel=%s\tdate=%s\ttitle=%s\n", userID, label, date, title)
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Labeled %q as %s\n", title, label)
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputDates outputs the fetched-date index
func (f *Formatter) OutputDates(dates []storage.DateEntry) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(dates)
	case FormatText:
		for _, d := range dates {
			fmt.Fprintf(f.out, "date=%s\tarticles=%d\tfetched=%s\n", d.Date, d.ArticleCount, formatTime(d.FetchedAt))
		}
		return nil
	case FormatHuman:
		if len(dates) == 0 {
			fmt.Fprintln(f.out, "No dates fetched yet")
			return nil
		}
		for _, d := range dates {
			fmt.Fprintf(f.out, "%s  %3d articles  (fetched %s)\n", d.Date, d.ArticleCount, d.FetchedAt.Format("2006-01-02 15:04"))
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputBackfillResult outputs the result of a date-range backfill
func (f *Formatter) OutputBackfillResult(result articles.BackfillResult) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(result)
	case FormatText:
		fmt.Fprintf(f.out, "dates=%d\n", result.Dates)
		fmt.Fprintf(f.out, "articles=%d\n", result.Articles)
		fmt.Fprintf(f.out, "failed=%d\n", len(result.Failed))
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Loaded %d dates (%d articles)\n", result.Dates, result.Articles)
		if len(result.Failed) > 0 {
			fmt.Fprintf(f.out, "⚠️  %d dates failed:\n", len(result.Failed))
			for date, reason := range result.Failed {
				fmt.Fprintf(f.out, "  %s: %s\n", date, truncate(reason, 200))
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputEnrichResult outputs the result of an enrichment run
func (f *Formatter) OutputEnrichResult(result enrich.Result) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(result)
	case FormatText:
		fmt.Fprintf(f.out, "enriched=%d\n", result.Enriched)
		fmt.Fprintf(f.out, "skipped=%d\n", result.Skipped)
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Enriched %d articles", result.Enriched)
		if result.Skipped > 0 {
			fmt.Fprintf(f.out, " (%d skipped)", result.Skipped)
		}
		fmt.Fprintln(f.out)
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// Error outputs an error message to stderr
func (f *Formatter) Error(format string, args ...interface{}) {
	fmt.Fprintf(f.err, format+"\n", args...)
}

// Warning outputs a warning message to stderr
func (f *Formatter) Warning(format string, args ...interface{}) {
	fmt.Fprintf(f.err, "Warning: "+format+"\n", args...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// truncate truncates a string to maxLen characters
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
