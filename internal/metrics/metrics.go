// Package metrics registers the Prometheus collectors exported by the TBCV
// server: RPC latency and error counts, cache hit rate, per-tier validator
// timings, and workflow progress gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tbcv",
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Total JSON-RPC requests handled, labeled by method and outcome.",
	}, []string{"method", "outcome"})

	RPCLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tbcv",
		Subsystem: "rpc",
		Name:      "latency_seconds",
		Help:      "JSON-RPC method handling latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tbcv",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache lookups, labeled by tier and hit/miss.",
	}, []string{"tier", "result"})

	ValidatorDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tbcv",
		Subsystem: "validators",
		Name:      "duration_seconds",
		Help:      "Per-validator execution duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"validator_kind", "tier"})

	TierEarlyTerminations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tbcv",
		Subsystem: "validators",
		Name:      "tier_early_terminations_total",
		Help:      "Count of tier runs that stopped early due to a critical issue.",
	}, []string{"tier"})

	WorkflowsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tbcv",
		Subsystem: "workflow",
		Name:      "active",
		Help:      "Number of workflows currently in a non-terminal state, by type.",
	}, []string{"type"})

	WorkflowProgress = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tbcv",
		Subsystem: "workflow",
		Name:      "progress_percent",
		Help:      "Last reported progress percentage, by workflow id.",
	}, []string{"workflow_id"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tbcv",
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "LLM driver calls, labeled by driver and outcome.",
	}, []string{"driver", "outcome"})

	EnhancementsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tbcv",
		Subsystem: "enhancer",
		Name:      "applied_total",
		Help:      "Enhancements applied, labeled by outcome (applied/rolled_back).",
	}, []string{"outcome"})
)
