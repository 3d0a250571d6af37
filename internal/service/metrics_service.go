package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-evote-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the ballot API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	ballotOutcomes  *prometheus.CounterVec
	commitDuration  prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	ballotOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ballot_commit_attempts_total",
		Help: "Ballot commit attempts by outcome",
	}, []string{"outcome"})

	commitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ballot_commit_duration_seconds",
		Help:    "Duration of ballot commit transactions",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tally_cache_hits_total",
		Help: "Total tally cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tally_cache_misses_total",
		Help: "Total tally cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, ballotOutcomes, commitDuration, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		ballotOutcomes:  ballotOutcomes,
		commitDuration:  commitDuration,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveBallotCommit counts one commit attempt by outcome.
func (m *MetricsService) ObserveBallotCommit(outcome models.BallotAuditOutcome) {
	if m == nil {
		return
	}
	m.ballotOutcomes.WithLabelValues(string(outcome)).Inc()
}

// ObserveCommitDuration records how long a commit transaction took.
func (m *MetricsService) ObserveCommitDuration(duration time.Duration) {
	if m == nil || m.commitDuration == nil {
		return
	}
	m.commitDuration.Observe(duration.Seconds())
}

// RecordCacheLookup counts tally cache hits and misses.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
