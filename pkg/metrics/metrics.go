// Package metrics exposes Prometheus instrumentation for the amenity pipeline.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nestfind/nestfind/pkg/models"
)

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	cacheEvents     *prometheus.CounterVec
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nestfind",
			Subsystem: "amenity_cache",
			Name:      "events_total",
			Help:      "Amenity cache events by kind (hit, miss, eviction, expiration).",
		}, []string{"event"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nestfind",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Outbound places provider calls by endpoint and status.",
		}, []string{"endpoint", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nestfind",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Latency of outbound places provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nestfind",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Inbound API requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cacheEvents,
		m.providerCalls,
		m.providerLatency,
		m.httpRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Hit()      { m.cacheEvents.WithLabelValues("hit").Inc() }
func (m *Metrics) Miss()     { m.cacheEvents.WithLabelValues("miss").Inc() }
func (m *Metrics) Eviction() { m.cacheEvents.WithLabelValues("eviction").Inc() }
func (m *Metrics) Expire()   { m.cacheEvents.WithLabelValues("expiration").Inc() }

// RecordCall observes one provider call. It satisfies places.Recorder.
func (m *Metrics) RecordCall(_ context.Context, call models.ProviderCall) error {
	m.providerCalls.WithLabelValues(string(call.Endpoint), call.Status).Inc()
	m.providerLatency.WithLabelValues(string(call.Endpoint)).
		Observe((time.Duration(call.LatencyMs) * time.Millisecond).Seconds())
	return nil
}

// ObserveRequest counts one inbound API request.
func (m *Metrics) ObserveRequest(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
