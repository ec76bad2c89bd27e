// crier-mcp is a standalone MCP server for crier. It opens the configured
// store directly and serves article and label tools over stdio.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matthewjhunter/crier"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: ./config/config.yaml)")
	userID := flag.String("user", "", "default user ID for label tools")
	pollInterval := flag.Duration("poll", 0, "fetch and enrich in the background on this interval (0 disables)")
	lag := flag.Int("lag", 1, "with --poll, fetch the date this many days before today")
	flag.Parse()

	// stdout carries the protocol.
	log.SetOutput(os.Stderr)

	cfg, err := crier.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	engine, err := crier.NewEngine(cfg, crier.EngineOptions{Digest: os.Stderr})
	if err != nil {
		log.Fatalf("create crier engine: %v", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := newServer(engine, *userID)
	if *pollInterval > 0 {
		srv.poller = newPoller(engine, max(*pollInterval, time.Minute), *lag, 100)
		srv.poller.start(ctx)
		defer srv.poller.stop()
	}

	if err := srv.run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("server error: %v", err)
	}
}
