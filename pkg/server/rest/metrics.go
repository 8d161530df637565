package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routegraph",
			Name:      "http_requests_total",
			Help:      "Number of http requests served.",
		}, []string{"method", "path", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "routegraph",
			Name:      "http_request_duration_seconds",
			Help:      "Http request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency)
	return m
}

// PromeHttpMiddleware records request counts and latency per route.
func PromeHttpMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			m.requestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
			m.requestLatency.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// CacheStatsFunc reports the result cache counters.
type CacheStatsFunc func() (hits, misses, evictions uint64)

// RegisterCacheMetrics exposes the result cache counters as gauges.
func RegisterCacheMetrics(reg prometheus.Registerer, stats CacheStatsFunc) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "routegraph",
		Name:      "route_cache_hits",
		Help:      "Result cache hits.",
	}, func() float64 {
		hits, _, _ := stats()
		return float64(hits)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "routegraph",
		Name:      "route_cache_misses",
		Help:      "Result cache misses.",
	}, func() float64 {
		_, misses, _ := stats()
		return float64(misses)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "routegraph",
		Name:      "route_cache_evictions",
		Help:      "Result cache evictions.",
	}, func() float64 {
		_, _, evictions := stats()
		return float64(evictions)
	}))
}
