package handlers

import (
	"net/http"
	"runtime"
	"time"

	"dircrawl/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStopping = "stopping"
	statusStopped  = "stopped"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Crawl progress
	Root           string `json:"root,omitempty"`
	Pass           int    `json:"pass"`
	ActiveCrawlers int    `json:"activeCrawlers"`
	FilesPublished int64  `json:"filesPublished"`
	FilesDelivered int64  `json:"filesDelivered"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the daemon. It answers 503
// unless a crawl is running and not stopping.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.crawl.Stats()

	response := HealthResponse{
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Root:           stats.Root,
		Pass:           stats.Pass,
		ActiveCrawlers: stats.ActiveCrawlers,
		FilesPublished: stats.FilesPublished,
		FilesDelivered: stats.FilesDelivered,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	switch {
	case stats.Stopping:
		response.Status = statusStopping
	case stats.Running:
		response.Status = statusHealthy
		response.Ready = true
	default:
		response.Status = statusStopped
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only while a crawl is running and not stopping
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.crawl.Stats()
	if stats.Running && !stats.Stopping {
		writeJSONStatus(w, "ready", http.StatusOK)
		return
	}
	writeJSONStatus(w, "not_ready", http.StatusServiceUnavailable)
}
