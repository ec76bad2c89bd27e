package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/matthewjhunter/crier"
	"github.com/matthewjhunter/crier/internal/articles"
	"github.com/matthewjhunter/crier/internal/output"
	"github.com/matthewjhunter/crier/internal/storage"
)

// handlers holds dependencies for all HTTP handler methods.
type handlers struct {
	engine *crier.Engine
}

type articleListResponse struct {
	Date     string                  `json:"date"`
	Articles []output.LabeledArticle `json:"articles"`
}

type labelRequest struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Label string `json:"label"`
}

type labeledResponse struct {
	UserID   string          `json:"user_id"`
	Label    crier.Label     `json:"label"`
	Articles []crier.Article `json:"articles"`
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleArticles serves GET /api/articles/{date}. "today" is accepted as a
// date; ?body=1 includes article bodies.
func (h *handlers) handleArticles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := r.PathValue("date")
	if date == "today" {
		date = h.engine.Today()
	}
	date, err := articles.ParseDate(date)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	list, err := h.engine.GetArticles(ctx, date, wantBody(r.URL.Query()))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var labels map[string]crier.Label
	if uid := userIDFromContext(ctx); uid != "" {
		if labels, err = h.engine.Labels(ctx, uid); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, articleListResponse{Date: date, Articles: output.Annotate(list, labels)})
}

// handleNavigate redirects /api/articles/{date}/{prev|next|rand} to the
// resolved date, keeping the query string.
func (h *handlers) handleNavigate(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if date == "today" {
		date = h.engine.Today()
	}
	target, err := h.engine.Navigate(date, r.PathValue("diff"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	loc := "/api/articles/" + target
	if r.URL.RawQuery != "" {
		loc += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, loc, http.StatusFound)
}

func (h *handlers) handleArticle(w http.ResponseWriter, r *http.Request) {
	a, err := h.engine.GetArticle(r.Context(), r.PathValue("key"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handlers) handleRecordLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	uid := userIDFromContext(r.Context())
	if err := h.engine.RecordPreference(r.Context(), uid, req.Title, req.Date, req.Label); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleLabeled(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	list, err := h.engine.GetLabeled(r.Context(), uid, r.PathValue("label"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	label, _ := storage.ParseLabel(r.PathValue("label"))
	writeJSON(w, http.StatusOK, labeledResponse{UserID: uid, Label: label, Articles: list})
}

func wantBody(q url.Values) bool {
	switch q.Get("body") {
	case "1", "true", "yes":
		return true
	}
	return false
}

// writeEngineError maps engine errors to HTTP statuses. A request the
// client abandoned gets no response.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		ide *crier.InvalidDateError
		ve  *crier.ValidationError
		fe  *crier.FetchError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.As(err, &ide), errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, crier.ErrNotFound):
		writeError(w, http.StatusNotFound, "article not found")
	case errors.As(err, &fe):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("crier-web: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("crier-web: encode response: %v", err)
	}
}
