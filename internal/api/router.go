package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront-services/internal/common/errors"
	"storefront-services/internal/common/logger"
)

type RouterConfig struct {
	RequestTimeout time.Duration
}

// NewRouter wires the public storefront API.
func NewRouter(h *Handler, cfg RouterConfig, log logger.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		se := errors.NewMethodNotAllowedError(r.Method)
		writeError(w, errors.HTTPStatus(se.Code), se.Message)
	})

	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.HandleCatalog)
		r.Get("/catalog/category/{slug}", h.HandleCategory)
		r.Get("/stores", h.HandleStores)

		r.Post("/geocode", h.HandleGeocode)
		r.Get("/geocode/reverse", h.HandleReverseGeocode)

		r.Post("/contact", h.HandleContact)
		r.Post("/quote", h.HandleQuote)
	})

	return r
}
