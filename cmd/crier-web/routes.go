package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matthewjhunter/crier"
)

// newRouter sets up all routes using Go 1.22+ enhanced routing.
func newRouter(engine *crier.Engine, secret []byte) http.Handler {
	mux := http.NewServeMux()

	h := &handlers{engine: engine}
	auth := &authenticator{secret: secret}

	mux.HandleFunc("GET /healthz", h.handleHealth)

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg := engine.Registry(); reg != nil {
		gatherer = reg
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Articles are public; a valid token adds the caller's labels.
	mux.Handle("GET /api/articles/{date}", auth.optional(http.HandlerFunc(h.handleArticles)))
	mux.HandleFunc("GET /api/articles/{date}/{diff}", h.handleNavigate)
	mux.HandleFunc("GET /api/article/{key}", h.handleArticle)

	mux.Handle("POST /api/labels", auth.required(http.HandlerFunc(h.handleRecordLabel)))
	mux.Handle("GET /api/labels/{label}", auth.required(http.HandlerFunc(h.handleLabeled)))

	return mux
}
