package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APICallsTotal tracks API round trips per action and HTTP method
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikibot_api_calls_total",
			Help: "Total number of API calls",
		},
		[]string{"action", "method"},
	)

	// APIErrorsTotal tracks classified API failures
	APIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikibot_api_errors_total",
			Help: "Total number of API errors by kind",
		},
		[]string{"action", "kind"},
	)

	// APICallLatency tracks API call latency
	APICallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wikibot_api_call_latency_seconds",
			Help:    "API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// RetriesTotal tracks retry attempts per action
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikibot_retries_total",
			Help: "Total number of retry attempts",
		},
		[]string{"action"},
	)

	// ReloginsTotal tracks session re-authentications
	ReloginsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wikibot_relogins_total",
			Help: "Total number of session re-authentications",
		},
	)

	// TerminalFailuresTotal tracks operations that exhausted their retry budget
	TerminalFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikibot_terminal_failures_total",
			Help: "Total number of operations abandoned after exhausting retries",
		},
		[]string{"action"},
	)

	// ContinuationPages tracks pages fetched per aggregation run
	ContinuationPages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wikibot_continuation_pages",
			Help:    "Number of pages fetched per aggregation run",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// ContinuationErrorsTotal tracks aggregation runs that broke mid-way
	ContinuationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikibot_continuation_errors_total",
			Help: "Total number of aggregation runs that failed",
		},
		[]string{"action"},
	)

	// BatchTasksTotal tracks batch task outcomes
	BatchTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikibot_batch_tasks_total",
			Help: "Total number of batch tasks by outcome",
		},
		[]string{"type", "outcome"},
	)
)
