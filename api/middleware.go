package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/minio/pkg/wildcard"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/voc/session-api/metrics"
)

const requestIDHeader = "X-Request-Id"

// withRequestLogger attaches a logger carrying the request id to the context
func withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(requestIDHeader, id)

		logCtx := log.With().Str("request", id)
		if sid := mux.Vars(r)["sessionId"]; sid != "" {
			logCtx = logCtx.Str("session", sid)
		}
		logger := logCtx.Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin
func allowOrigin(patterns []string, origin string) string {
	if len(patterns) == 0 {
		return "*"
	}
	if origin == "" {
		return ""
	}
	for _, pattern := range patterns {
		if wildcard.MatchSimple(pattern, origin) {
			return origin
		}
	}
	return ""
}

func withCORS(patterns []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if origin := allowOrigin(patterns, r.Header.Get("Origin")); origin != "" {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if len(patterns) > 0 {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Headers", "*")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func withAccessLog(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			operation := "unknown"
			if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
				operation = route.GetName()
			}
			zerolog.Ctx(r.Context()).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("operation", operation).
				Int("status", rec.status).
				Dur("duration", elapsed).
				Msg("handled")
			if m != nil {
				m.ObserveRequest(operation, rec.status, elapsed)
			}
		})
	}
}
