package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backend metrics are labeled by backend name ("age", "neo4j") so one
// process can report on several stores at once.
var (
	// GraphQueriesTotal counts executed graph queries by outcome.
	GraphQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnapsis_graph_queries_total",
		Help: "Graph queries executed, by backend and status.",
	}, []string{"backend", "status"})

	// GraphQueryDuration observes end-to-end query latency.
	GraphQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gnapsis_graph_query_duration_seconds",
		Help:    "Graph query latency by backend.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	// GraphPoolExhausted counts connection acquisitions that timed out
	// waiting for a free pooled connection.
	GraphPoolExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnapsis_graph_pool_exhausted_total",
		Help: "Connection acquisitions abandoned because the pool was full.",
	}, []string{"backend"})

	// GraphTransactionsTotal counts finished transactions by outcome
	// (commit, rollback, implicit_rollback).
	GraphTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnapsis_graph_transactions_total",
		Help: "Finished graph transactions by backend and outcome.",
	}, []string{"backend", "outcome"})

	// ExtractionNodesVisited counts nodes accepted into extracted
	// subgraphs.
	ExtractionNodesVisited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gnapsis_extraction_nodes_visited_total",
		Help: "Nodes accepted into extracted subgraphs.",
	})

	// ExtractionNodesPruned counts candidates discarded for scoring
	// below the relevance floor.
	ExtractionNodesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gnapsis_extraction_nodes_pruned_total",
		Help: "Candidate nodes pruned below the relevance threshold.",
	})

	// ExtractionsTotal counts subgraph extractions by terminal reason.
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gnapsis_extractions_total",
		Help: "Subgraph extractions by stop reason.",
	}, []string{"reason"})
)
