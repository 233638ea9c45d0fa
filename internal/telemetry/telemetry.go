// Package telemetry exposes prometheus metrics for the RAG pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the engine and server report into.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	ChunksIngested    prometheus.Counter
	RetrievalOutcomes *prometheus.CounterVec
	UpstreamDuration  *prometheus.HistogramVec
}

// New registers the pipeline collectors on the given registerer and
// returns them. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askmynotes_requests_total",
			Help: "API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ChunksIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askmynotes_chunks_ingested_total",
			Help: "Chunks written to the vector index.",
		}),
		RetrievalOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askmynotes_retrieval_outcomes_total",
			Help: "Retrievals by grounding outcome (grounded, not_found).",
		}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "askmynotes_upstream_duration_seconds",
			Help:    "Latency of upstream service calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
	}
	reg.MustRegister(m.RequestsTotal, m.ChunksIngested, m.RetrievalOutcomes, m.UpstreamDuration)
	return m
}

// Nop returns metrics backed by an unexported registry, for tests and
// callers that run with telemetry disabled.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
