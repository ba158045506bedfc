package models_test

import (
	"testing"

	"github.com/babar-raza/tbcv/pkg/models"
)

func TestWorkflowStateTerminal(t *testing.T) {
	terminal := []models.WorkflowState{models.WorkflowCompleted, models.WorkflowFailed, models.WorkflowCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q.Terminal() = false, want true", s)
		}
	}

	nonTerminal := []models.WorkflowState{models.WorkflowPending, models.WorkflowRunning, models.WorkflowPaused}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%q.Terminal() = true, want false", s)
		}
	}
}

func TestDefaultPreservationRules(t *testing.T) {
	rules := models.DefaultPreservationRules()

	if !rules.PreserveCodeBlocks || !rules.PreserveFrontmatter || !rules.PreserveHeadings || !rules.PreserveInternalLinks {
		t.Errorf("DefaultPreservationRules() = %+v, want all structural preservation flags true", rules)
	}
	if rules.MaxContentReductionPct != 0.20 {
		t.Errorf("MaxContentReductionPct = %v, want 0.20", rules.MaxContentReductionPct)
	}
}
