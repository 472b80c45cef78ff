package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application. Recording methods are
// safe to call on a nil *Registry; they do nothing.
type Registry struct {
	// Gate Metrics
	GateTransitionsTotal *prometheus.CounterVec
	GateRejectedTotal    *prometheus.CounterVec
	GateErrorsTotal      *prometheus.CounterVec
	GateRestoresTotal    prometheus.Counter
	GateFramesTotal      *prometheus.CounterVec
	GateFrameDuration    prometheus.Histogram
	GatesActive          *prometheus.GaugeVec

	// Probe Metrics
	ProbesTotal *prometheus.CounterVec

	// Live Metrics
	LiveSessionsActive  prometheus.Gauge
	LiveSessionsTotal   prometheus.Counter
	LiveEventsTotal     *prometheus.CounterVec
	LiveFramesSentTotal *prometheus.CounterVec
	LiveBytesSentTotal  prometheus.Counter

	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RenderCacheTotal    *prometheus.CounterVec

	registry *prometheus.Registry
	mu       sync.Mutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initGateMetrics()
	r.initLiveMetrics()
	r.initHTTPMetrics()

	return r
}

// WithProcessCollectors adds the Go runtime and process collectors
func (r *Registry) WithProcessCollectors() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
