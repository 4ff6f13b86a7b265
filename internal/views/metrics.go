package views

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics uses its own registry so several resolvers (and tests) can live in
// one process.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	cache     *prometheus.CounterVec
	upstream  *prometheus.CounterVec
	fallbacks prometheus.Counter
	duration  prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thinblog",
			Subsystem: "views",
			Name:      "requests_total",
			Help:      "View-count requests by HTTP status.",
		}, []string{"status"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thinblog",
			Subsystem: "views",
			Name:      "cache_lookups_total",
			Help:      "Resolver cache lookups by result.",
		}, []string{"result"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thinblog",
			Subsystem: "views",
			Name:      "upstream_calls_total",
			Help:      "Counter service calls by outcome.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thinblog",
			Subsystem: "views",
			Name:      "fallbacks_total",
			Help:      "Paths that resolved to a zero count after every candidate failed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "thinblog",
			Subsystem: "views",
			Name:      "resolve_duration_seconds",
			Help:      "Time to resolve one batch of paths.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.requests, m.cache, m.upstream, m.fallbacks, m.duration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) request(status string) {
	if m != nil {
		m.requests.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cache.WithLabelValues("hit").Inc()
	} else {
		m.cache.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) upstreamCall(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.upstream.WithLabelValues("failure").Inc()
	} else {
		m.upstream.WithLabelValues("success").Inc()
	}
}

func (m *Metrics) fallback() {
	if m != nil {
		m.fallbacks.Inc()
	}
}

func (m *Metrics) observe(seconds float64) {
	if m != nil {
		m.duration.Observe(seconds)
	}
}
