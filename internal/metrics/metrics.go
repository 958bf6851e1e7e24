// Package metrics declares the Prometheus collectors for the retrieval
// pipeline and small helpers to record them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Embedding metrics
	EmbeddingCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragrec_embedding_cache_hits_total",
			Help: "Embedding lookups served from cache",
		},
		[]string{"kind"}, // "item", "text"
	)

	EmbeddingCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragrec_embedding_cache_misses_total",
			Help: "Embedding lookups that required a call to the embedder",
		},
		[]string{"kind"},
	)

	EmbeddingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ragrec_embedding_failures_total",
			Help: "Embedding calls that fell back to a zero vector",
		},
	)

	EmbeddingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragrec_embedding_duration_seconds",
			Help:    "Latency of embedder calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Index metrics
	IndexBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragrec_index_build_duration_seconds",
			Help:    "Time to build a similarity index",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"backend"},
	)

	IndexSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ragrec_index_items",
			Help: "Items in the most recently built index",
		},
		[]string{"backend"},
	)

	// Retrieval metrics
	PrefilterLevel = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragrec_prefilter_level_total",
			Help: "Prefilter outcomes by the filter level that was applied",
		},
		[]string{"level"}, // "full", "price_only", "none"
	)

	CandidateCount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragrec_candidates",
			Help:    "Candidates handed to the generative step",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"strategy"}, // "vector", "overlap"
	)

	// Generation metrics
	GenerationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragrec_generation_attempts_total",
			Help: "Generative calls by outcome",
		},
		[]string{"outcome"}, // "parsed", "call_failed", "parse_failed"
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragrec_generation_duration_seconds",
			Help:    "Latency of generative calls",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ParseDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragrec_parse_dropped_entries_total",
			Help: "Response entries dropped during validation",
		},
		[]string{"reason"}, // "unknown_id", "duplicate", "malformed"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ragrec_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// ObserveSince records the seconds elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// RecordGeneration records one generative attempt.
func RecordGeneration(outcome string, duration time.Duration) {
	GenerationAttempts.WithLabelValues(outcome).Inc()
	GenerationDuration.Observe(duration.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
