package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dircrawl/internal/crawler"
	"dircrawl/internal/logging"
)

// NextResponse is returned by GetNext
type NextResponse struct {
	Path string `json:"path"`
}

// GetStatus returns a snapshot of the crawl
func (h *Handlers) GetStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, h.crawl.Stats())
}

// GetNext pulls one discovered file from the crawl, waiting up to the
// "wait" query duration (default DefaultNextTimeout). It answers 204 when
// no file arrives in time or no crawler is running, and 503 while the crawl
// is stopping.
func (h *Handlers) GetNext(w http.ResponseWriter, r *http.Request) {
	timeout := h.nextTimeout
	if raw := r.URL.Query().Get("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			writeJSONError(w, "invalid wait duration", http.StatusBadRequest)
			return
		}
		timeout = d
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	path, err := h.crawl.GetFile(ctx)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, NextResponse{Path: path})

	case errors.Is(err, crawler.ErrNoCrawlers):
		w.WriteHeader(http.StatusNoContent)

	case errors.Is(err, crawler.ErrStopping):
		writeJSONError(w, "crawl is stopping", http.StatusServiceUnavailable)

	case errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil:
		w.WriteHeader(http.StatusNoContent)

	case r.Context().Err() != nil:
		logging.Debug("Client went away while waiting for a file: %v", r.Context().Err())

	default:
		logging.Error("GetFile failed: %v", err)
		writeJSONError(w, "failed to get next file", http.StatusInternalServerError)
	}
}
