package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bridge's Prometheus collectors on their own registry.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	AnalysesTotal   *prometheus.CounterVec
	EngineDuration  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_bridge_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insight_bridge_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "insight_bridge_http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insight_bridge_analyses_total",
			Help: "Analyze calls by source kind and outcome.",
		}, []string{"source", "outcome"}),
		EngineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insight_bridge_engine_call_duration_seconds",
			Help:    "Latency of calls to the analysis engine.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
	}
	m.Registry.MustRegister(
		m.RequestsTotal, m.RequestDuration, m.InFlight,
		m.AnalysesTotal, m.EngineDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAnalysis records one analyze call. Engine latency is only recorded
// when the engine was actually called.
func (m *Metrics) ObserveAnalysis(source, outcome string, engine time.Duration) {
	m.AnalysesTotal.WithLabelValues(source, outcome).Inc()
	if engine > 0 {
		m.EngineDuration.WithLabelValues(source).Observe(engine.Seconds())
	}
}

// Middleware tracks request metrics, labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.InFlight.Inc()
		defer m.InFlight.Dec()
		start := time.Now()

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
