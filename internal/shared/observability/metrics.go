package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reachgraph_extraction_seconds",
		Help:    "Time spent extracting facts from a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dialect"})

	ExtractionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reachgraph_extraction_errors_total",
		Help: "Total number of extraction failures, full or partial.",
	}, []string{"dialect"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reachgraph_graph_nodes_total",
		Help: "Total number of nodes in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reachgraph_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reachgraph_query_seconds",
		Help:    "Time spent answering a graph query.",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reachgraph_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	CommitBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reachgraph_commit_batch_files",
		Help:    "Number of files committed together in one graph write.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	})

	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reachgraph_commit_seconds",
		Help:    "Latency from debounce expiry to graph commit.",
		Buckets: prometheus.DefBuckets,
	})

	ReresolveUpgradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reachgraph_reresolve_upgrades_total",
		Help: "Total number of unresolved references upgraded after a commit.",
	})

	CoordinatorCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reachgraph_coordinator_cache_hits_total",
		Help: "Total number of change events skipped because file content was unchanged.",
	})
)
