package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"microclimate-engine/internal/metrics"
)

// Routes собирает маршрутизатор сервиса
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/health", h.HealthCheck)
	r.Handle("/prometheus", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)

		r.Route("/stations/{station}", func(r chi.Router) {
			r.Get("/latest", h.Latest)
			r.Get("/history", h.History)
			r.Get("/resample", h.Resample)
			r.Get("/export", h.Export)
		})

		r.Post("/streaming/start", h.StartStreaming)
		r.Post("/streaming/stop", h.StopStreaming)
		r.Post("/reinitialize", h.Reinitialize)
		r.Post("/generate", h.Generate)
		r.Delete("/data", h.Clear)
	})

	return r
}

// instrument записывает число и длительность запросов по шаблону маршрута
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		if endpoint == "/prometheus" {
			return
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
	})
}
