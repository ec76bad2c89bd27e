package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/matthewjhunter/crier"
)

// poller runs a background fetch-and-enrich loop for the most recent
// complete date.
type poller struct {
	engine   *crier.Engine
	interval time.Duration
	lag      int
	limit    int
	now      func() time.Time

	mu   sync.Mutex
	done chan struct{}
}

// pollResult summarizes one poll cycle.
type pollResult struct {
	Date     string `json:"date"`
	Articles int    `json:"articles"`
	Enriched int    `json:"enriched"`
	Skipped  int    `json:"skipped"`
}

func newPoller(engine *crier.Engine, interval time.Duration, lag, limit int) *poller {
	return &poller{
		engine:   engine,
		interval: interval,
		lag:      lag,
		limit:    limit,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// start launches the background poll loop. It polls immediately, then on
// each tick of the configured interval.
func (p *poller) start(ctx context.Context) {
	go p.loop(ctx)
	log.Printf("poller: started (interval=%s, lag=%dd)", p.interval, p.lag)
}

// stop signals the poll loop to exit.
func (p *poller) stop() {
	close(p.done)
	log.Printf("poller: stopped")
}

// poll runs a single fetch-enrich cycle. Also used by the poll_now tool.
func (p *poller) poll(ctx context.Context) (*pollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	date := p.now().UTC().AddDate(0, 0, -p.lag).Format(time.DateOnly)
	list, err := p.engine.GetArticles(ctx, date, false)
	if err != nil {
		return nil, err
	}
	result := &pollResult{Date: date, Articles: len(list)}

	enriched, err := p.engine.Enrich(ctx, p.limit)
	result.Enriched, result.Skipped = enriched.Enriched, enriched.Skipped
	if err != nil {
		// Enrichment needs Ollama; the fetch already succeeded.
		log.Printf("poller: enrichment: %v", err)
	}

	log.Printf("poller: %s has %d articles, %d enriched, %d skipped",
		date, result.Articles, result.Enriched, result.Skipped)
	return result, nil
}

func (p *poller) loop(ctx context.Context) {
	if _, err := p.poll(ctx); err != nil {
		log.Printf("poller: initial poll error: %v", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.poll(ctx); err != nil {
				log.Printf("poller: poll error: %v", err)
			}
		}
	}
}
