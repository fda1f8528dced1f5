package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storefront-services/internal/common/logger"
	"storefront-services/internal/common/metrics"
)

// requestLogger logs one line per request and records the HTTP metrics,
// labelled by route pattern rather than raw path.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			fields := map[string]interface{}{
				"method":     r.Method,
				"route":      route,
				"status":     status,
				"durationMs": elapsed.Milliseconds(),
				"requestId":  middleware.GetReqID(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				log.Warn("request failed", fields)
				return
			}
			log.Debug("request served", fields)
		})
	}
}
