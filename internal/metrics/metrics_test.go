package metrics_test

import (
	"testing"

	"github.com/babar-raza/tbcv/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRPCRequestsTotalIncrements(t *testing.T) {
	metrics.RPCRequestsTotal.WithLabelValues("validate_content", "ok").Inc()

	got := testutil.ToFloat64(metrics.RPCRequestsTotal.WithLabelValues("validate_content", "ok"))
	if got < 1 {
		t.Errorf("RPCRequestsTotal{validate_content,ok} = %v, want >= 1", got)
	}
}

func TestCacheHitsTotalLabelsByTierAndResult(t *testing.T) {
	metrics.CacheHitsTotal.WithLabelValues("l1", "hit").Inc()
	metrics.CacheHitsTotal.WithLabelValues("l2", "miss").Inc()

	hit := testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("l1", "hit"))
	miss := testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("l2", "miss"))
	if hit < 1 {
		t.Errorf("l1 hit count = %v, want >= 1", hit)
	}
	if miss < 1 {
		t.Errorf("l2 miss count = %v, want >= 1", miss)
	}
}

func TestWorkflowProgressGaugeSetsValue(t *testing.T) {
	metrics.WorkflowProgress.WithLabelValues("wf-123").Set(42.5)

	got := testutil.ToFloat64(metrics.WorkflowProgress.WithLabelValues("wf-123"))
	if got != 42.5 {
		t.Errorf("WorkflowProgress{wf-123} = %v, want 42.5", got)
	}
}

func TestValidatorDurationSecondsObserves(t *testing.T) {
	metrics.ValidatorDurationSeconds.WithLabelValues("seo", "2").Observe(0.05)

	count := testutil.CollectAndCount(metrics.ValidatorDurationSeconds)
	if count == 0 {
		t.Error("ValidatorDurationSeconds has no observations after Observe()")
	}
}
