package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matthewjhunter/crier"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: ./config/config.yaml)")
	addr := flag.String("addr", "", "listen address (overrides web.addr)")
	flag.Parse()

	cfg, err := crier.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crier-web: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Web.Addr = *addr
	}
	if cfg.Web.JWTSecret == "" {
		log.Println("crier-web: web.jwt_secret is empty, label endpoints will reject every request")
	}

	engine, err := crier.NewEngine(cfg, crier.EngineOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "crier-web: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	mux := newRouter(engine, []byte(cfg.Web.JWTSecret))

	srv := &http.Server{
		Addr:         cfg.Web.Addr,
		Handler:      logging(recovery(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Fetch.Timeout + 30*time.Second, // a miss waits for the provider
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("crier-web: listening on %s", cfg.Web.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("crier-web: %v", err)
		}
	}()

	<-done
	log.Println("crier-web: shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("crier-web: shutdown error: %v", err)
	}
	log.Println("crier-web: stopped")
}
