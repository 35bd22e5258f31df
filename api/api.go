package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/voc/session-api/metrics"
	"github.com/voc/session-api/session"
)

type Provisioner interface {
	EnsureChannel(ctx context.Context, id string, ing *session.Ingest) (*session.Channel, error)
}

// Controller is implemented by the stream controller and the recorder.
type Controller interface {
	Start(ctx context.Context, id string) (*session.Session, error)
	Stop(ctx context.Context, id string) (*session.Session, error)
}

type HealthChecker interface {
	Health(ctx context.Context) error
}

type Options struct {
	// origin patterns allowed for CORS, any origin if empty
	AllowedOrigins []string

	// Metrics records request metrics if set
	Metrics *metrics.Metrics

	// ServeMetrics exposes Metrics on /metrics
	ServeMetrics bool

	// Checks are run by /healthz in addition to the store ping
	Checks map[string]HealthChecker
}

// NewRouter returns the session api routes.
func NewRouter(store *session.Store, prov Provisioner, streams Controller, recorder Controller, opts Options) *mux.Router {
	router := mux.NewRouter()
	router.SkipClean(true)
	router.Use(withRequestLogger, withCORS(opts.AllowedOrigins), withAccessLog(opts.Metrics))

	const prefix = "/sessions/{sessionId:[^/]*}"
	router.HandleFunc(prefix+"/channel", HandleCreateChannel(store, prov)).Methods(http.MethodPost).Name("create_channel")
	router.HandleFunc(prefix+"/streaming/start", HandleStart(streams, streamStarted)).Methods(http.MethodPost).Name("start_stream")
	router.HandleFunc(prefix+"/streaming/stop", HandleStop(streams, "Streaming stopped")).Methods(http.MethodPost).Name("stop_stream")
	router.HandleFunc(prefix+"/recording/start", HandleStart(recorder, recordingStarted)).Methods(http.MethodPost).Name("start_recording")
	router.HandleFunc(prefix+"/recording/stop", HandleStop(recorder, "Recording stopped")).Methods(http.MethodPost).Name("stop_recording")

	router.HandleFunc("/healthz", HandleHealth(store, opts.Checks)).Methods(http.MethodGet).Name("health")
	if opts.Metrics != nil && opts.ServeMetrics {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet).Name("metrics")
	}
	router.MatcherFunc(isPreflight).HandlerFunc(handlePreflight).Name("preflight")

	router.NotFoundHandler = withCORS(opts.AllowedOrigins)(http.HandlerFunc(handleNotFound))
	router.MethodNotAllowedHandler = withCORS(opts.AllowedOrigins)(http.HandlerFunc(handleMethodNotAllowed))
	return router
}

// isPreflight matches OPTIONS on any path without turning other methods into 405s
func isPreflight(r *http.Request, _ *mux.RouteMatch) bool {
	return r.Method == http.MethodOptions
}
