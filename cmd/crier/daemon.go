package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewjhunter/crier"
	"github.com/matthewjhunter/crier/internal/notify"
)

func daemonCmd() *cobra.Command {
	var (
		interval time.Duration
		lag      int
		limit    int
		listen   bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Fetch recent dates and enrich articles in a loop",
		Long: `Continuously fetch the most recent complete date and enrich stored
articles on a timer. With --listen, also enrich as soon as a backfill event
arrives on the configured NATS subject.
Handles SIGINT/SIGTERM for graceful shutdown (finishes the current cycle).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			engine, err := crier.NewEngine(cfg, crier.EngineOptions{})
			if err != nil {
				return err
			}
			defer engine.Close()

			// Cycles and event-triggered runs share one enricher.
			var enrichMu sync.Mutex
			enrich := func(ctx context.Context, reason string) {
				enrichMu.Lock()
				defer enrichMu.Unlock()
				res, err := engine.Enrich(ctx, limit)
				if err != nil {
					log.Printf("crier daemon: enrichment (%s) error: %v", reason, err)
					return
				}
				if res.Enriched > 0 || res.Skipped > 0 {
					log.Printf("crier daemon: enriched %d articles (%d skipped) after %s", res.Enriched, res.Skipped, reason)
				}
			}

			if listen {
				nc := engine.NATS()
				if nc == nil {
					return fmt.Errorf("--listen needs nats.url in the config")
				}
				go func() {
					err := notify.Subscribe(ctx, nc, cfg.NATS.Subject, nil, func(ctx context.Context, ev notify.Event) {
						enrich(ctx, "backfill of "+ev.Date)
					})
					if err != nil && ctx.Err() == nil {
						log.Printf("crier daemon: NATS listener stopped: %v", err)
					}
				}()
				log.Printf("crier daemon: listening for backfill events on %s", cfg.NATS.Subject)
			}

			log.Printf("crier daemon: starting with interval %s", interval)

			cycle := 1
			for {
				start := time.Now()
				date := time.Now().UTC().AddDate(0, 0, -lag).Format(time.DateOnly)
				log.Printf("crier daemon: cycle %d starting (date %s)", cycle, date)

				list, err := engine.GetArticles(ctx, date, false)
				if err != nil {
					log.Printf("crier daemon: cycle %d error: %v", cycle, err)
				} else {
					enrich(ctx, fmt.Sprintf("cycle %d", cycle))
					log.Printf("crier daemon: cycle %d completed in %s (%d articles)", cycle, time.Since(start).Round(time.Millisecond), len(list))
				}

				cycle++

				// Wait for the next tick or a shutdown signal.
				timer := time.NewTimer(interval)
				select {
				case <-ctx.Done():
					timer.Stop()
					log.Println("crier daemon: received shutdown signal, exiting")
					return nil
				case <-timer.C:
				}
			}
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Hour, "duration between cycles (e.g. 30m, 1h)")
	cmd.Flags().IntVar(&lag, "lag", 1, "fetch the date this many days before today")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum number of articles to enrich per run")
	cmd.Flags().BoolVar(&listen, "listen", false, "enrich on NATS backfill events")
	return cmd
}
