package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// NewRouter builds the local HTTP API. healthy may be nil, in which case
// /health always reports ok.
func NewRouter(h *Handlers, healthy *atomic.Bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if healthy != nil && !healthy.Load() {
			writeResult(w, result{status: http.StatusServiceUnavailable, payload: map[string]string{"status": "degraded"}})
			return
		}
		writeResult(w, result{status: http.StatusOK, payload: map[string]string{"status": "ok"}})
	})
	r.Post("/analyze", h.bodyHandler(h.Analyze))
	r.Post("/batch", h.bodyHandler(h.Batch))
	r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]string)
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
		writeResult(w, h.History(r.Context(), params))
	})

	return r
}

func (h *Handlers) bodyHandler(fn func(ctx context.Context, body []byte) result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeResult(w, result{status: http.StatusBadRequest, payload: map[string]string{"error": msgInvalidJSON}})
			return
		}
		writeResult(w, fn(r.Context(), body))
	}
}

func writeResult(w http.ResponseWriter, res result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.status)
	if err := json.NewEncoder(w).Encode(res.payload); err != nil {
		slog.Error("[HTTP] Failed to encode response", slog.String("error", err.Error()))
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders {
			if k == "Content-Type" {
				continue
			}
			w.Header().Set(k, v)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Info("[HTTP] Request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
