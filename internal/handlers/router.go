package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"dircrawl/internal/middleware"
)

// RouterConfig selects optional parts of the HTTP surface.
type RouterConfig struct {
	MetricsEnabled  bool
	LogHealthChecks bool
}

// NewRouter registers every route on a new mux.Router.
func NewRouter(h *Handlers, config RouterConfig) *mux.Router {
	router := mux.NewRouter()

	logConfig := middleware.DefaultLoggingConfig()
	logConfig.LogHealthChecks = config.LogHealthChecks
	router.Use(middleware.Logger(logConfig))
	if config.MetricsEnabled {
		router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}

	router.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead).Name("healthz")
	router.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("livez")
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet, http.MethodHead).Name("readyz")

	router.HandleFunc("/api/status", h.GetStatus).Methods(http.MethodGet).Name("status")
	router.HandleFunc("/api/next", h.GetNext).Methods(http.MethodGet).Name("next")
	router.HandleFunc("/api/version", h.GetVersion).Methods(http.MethodGet).Name("version")

	if config.MetricsEnabled {
		router.Handle("/metrics", h.MetricsHandler()).Name("metrics")
	}

	return router
}
