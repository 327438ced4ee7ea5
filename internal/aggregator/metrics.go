package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthdata_queries_total",
			Help: "Activity summary queries by outcome",
		},
		[]string{"result"},
	)

	queryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "healthdata_query_duration_seconds",
			Help:    "Time spent waiting on the health store for a range query",
			Buckets: prometheus.DefBuckets,
		},
	)

	staleResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthdata_stale_results_total",
			Help: "Query results discarded because a newer range was requested",
		},
	)

	summariesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthdata_summaries_dropped_total",
			Help: "Summaries skipped because their date components were incomplete",
		},
	)

	entriesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthdata_entries_published_total",
			Help: "Entries included in published output",
		},
	)
)

const (
	resultPublished = "published"
	resultEmpty     = "empty"
	resultError     = "error"
	resultStale     = "stale"
	resultCanceled  = "canceled"
)
