package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "session_api"

type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	upstream *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewPedanticRegistry()

	// Add the standard process and Go metrics to the custom registry.
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled api requests by operation and status code.",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of api requests by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to managed services by service, operation and result.",
		}, []string{"service", "operation", "result"}),
	}
	reg.MustRegister(m.requests, m.duration, m.upstream)
	return m
}

// Register adds further collectors to the registry.
func (m *Metrics) Register(cs ...prometheus.Collector) {
	m.registry.MustRegister(cs...)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(operation string, code int, d time.Duration) {
	m.requests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// Upstream returns an observer counting the requests to service.
func (m *Metrics) Upstream(service string) func(operation string, result string) {
	return func(operation string, result string) {
		m.upstream.WithLabelValues(service, operation, result).Inc()
	}
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreCollector reports whether the session store answers a ping.
type StoreCollector struct {
	store   Pinger
	timeout time.Duration
}

func NewStoreCollector(store Pinger, timeout time.Duration) *StoreCollector {
	return &StoreCollector{store: store, timeout: timeout}
}

var storeUpDesc = prometheus.NewDesc(
	namespace+"_store_up",
	"Whether the session store answered the last ping.",
	nil, nil,
)

func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- storeUpDesc
}

func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	up := 1.0
	if err := c.store.Ping(ctx); err != nil {
		up = 0
	}
	ch <- prometheus.MustNewConstMetric(storeUpDesc, prometheus.GaugeValue, up)
}
