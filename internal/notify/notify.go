// Package notify announces newly backfilled dates. Delivery is best effort:
// callers log a failed notification and carry on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/matthewjhunter/crier/internal/storage"
)

// Backfill describes one date that was fetched from the provider and stored.
type Backfill struct {
	Date     string
	Articles []storage.Article
}

// Notifier receives backfill events.
type Notifier interface {
	ArticlesBackfilled(ctx context.Context, b Backfill) error
}

// Digest renders the human-readable fetch-complete message: a count line,
// an optional call to action, then a numbered title/link list.
func Digest(b Backfill, siteURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Fetched %d articles for date %s\n", len(b.Articles), b.Date)
	if siteURL != "" {
		fmt.Fprintf(&sb, "Visit %s to express your preference!\n", siteURL)
	}
	for i, a := range b.Articles {
		fmt.Fprintf(&sb, "\n%d: %s\n", i+1, truncate(a.Title, 200))
		if a.URL != "" {
			fmt.Fprintf(&sb, "  - link: %s\n", a.URL)
		}
	}
	return sb.String()
}

// LogNotifier writes a boxed digest of each backfill to a writer.
type LogNotifier struct {
	mu      sync.Mutex
	w       io.Writer
	siteURL string
}

// NewLogNotifier creates a digest printer. A nil writer means stdout.
func NewLogNotifier(w io.Writer, siteURL string) *LogNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &LogNotifier{w: w, siteURL: siteURL}
}

func (n *LogNotifier) ArticlesBackfilled(_ context.Context, b Backfill) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	rule := strings.Repeat("═", 72)
	_, err := fmt.Fprintf(n.w, "╔%s\n║ BACKFILL %s\n╠%s\n%s╚%s\n",
		rule, b.Date, rule, Digest(b, n.siteURL), rule)
	return err
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) ArticlesBackfilled(ctx context.Context, b Backfill) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.ArticlesBackfilled(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// truncate truncates a string to maxLen bytes
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
