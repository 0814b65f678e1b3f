package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Remote call and migration outcome counters.

var (
	// Graph client
	RemoteCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migrator",
		Subsystem: "graph",
		Name:      "calls_total",
		Help:      "Total Graph API calls by method and outcome",
	}, []string{"method", "outcome"})

	RemoteRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migrator",
		Subsystem: "graph",
		Name:      "retries_total",
		Help:      "Total Graph API call retries after transient errors",
	}, []string{"method"})

	RemoteCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "migrator",
		Subsystem: "graph",
		Name:      "call_duration_seconds",
		Help:      "Graph API call duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method"})

	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "migrator",
		Subsystem: "graph",
		Name:      "rate_limit_waits_total",
		Help:      "Total calls delayed by the client-side rate limiter",
	})

	// Matcher
	MatchConfidenceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migrator",
		Subsystem: "matcher",
		Name:      "suggestions_total",
		Help:      "Total setting suggestions by confidence tier",
	}, []string{"confidence"})

	SearchStrategyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migrator",
		Subsystem: "matcher",
		Name:      "strategy_failures_total",
		Help:      "Total search strategy failures that fell through to the next strategy",
	}, []string{"strategy"})

	// Executor
	PoliciesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migrator",
		Subsystem: "executor",
		Name:      "policies_total",
		Help:      "Total legacy policies processed by outcome",
	}, []string{"outcome"})

	RollbackDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migrator",
		Subsystem: "rollback",
		Name:      "deletes_total",
		Help:      "Total rollback deletions by result",
	}, []string{"result"})
)
