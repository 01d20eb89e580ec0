package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"outreach_scheduler/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	AllowedOrigins []string
}

func NewRouter(h *Handlers, cfg RouterConfig, logger *logrus.Entry) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/webhooks/replies", h.HandleReplyWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Post("/utility/spintax-preview", h.SpintaxPreview)

		r.Post("/projects", h.CreateProject)
		r.Get("/projects/{id}/stats", h.ProjectStats)
		r.Post("/projects/{id}/templates", h.CreateTemplate)

		r.Get("/users/{userId}/messages", h.UserMessages)
		r.Get("/users/{userId}/messages/stats", h.UserMessageStats)

		r.Post("/messages", h.CreateMessage)
		r.Post("/messages/{id}/send", h.SendMessage)
		r.Post("/messages/{id}/reactivate", h.ReactivateMessage)
		r.Post("/messages/{id}/flag-unresponsive", h.FlagUnresponsive)
		r.Post("/messages/{id}/follow-up", h.ScheduleFollowUp)
		r.Delete("/messages/{id}", h.DeleteMessage)
	})

	return r
}

// requestLogger logs every request and counts it by route pattern.
func requestLogger(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()

			entry := logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("HTTP request")
			} else {
				entry.Debug("HTTP request")
			}
		})
	}
}
