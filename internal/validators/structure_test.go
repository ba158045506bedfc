package validators_test

import (
	"context"
	"testing"

	"github.com/babar-raza/tbcv/internal/validators"
)

func TestStructureValidatorEmptyDocument(t *testing.T) {
	v := validators.StructureValidator{}

	report, err := v.Validate(context.Background(), "   \n\n  \n", validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "empty_document" {
		t.Fatalf("Issues = %+v, want one empty_document issue", report.Issues)
	}
}

func TestStructureValidatorMissingH1(t *testing.T) {
	v := validators.StructureValidator{}

	report, err := v.Validate(context.Background(), "## Section\n\nbody\n", validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "missing_h1" {
		t.Fatalf("Issues = %+v, want one missing_h1 issue", report.Issues)
	}
}

func TestStructureValidatorMultipleH1(t *testing.T) {
	v := validators.StructureValidator{}

	report, err := v.Validate(context.Background(), "# Title One\n\n# Title Two\n", validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "multiple_h1" {
		t.Fatalf("Issues = %+v, want one multiple_h1 issue", report.Issues)
	}
}

func TestStructureValidatorHeadingLevelSkip(t *testing.T) {
	v := validators.StructureValidator{}

	report, err := v.Validate(context.Background(), "# Title\n\n#### Too Deep\n", validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "heading_level_skip" {
		t.Fatalf("Issues = %+v, want one heading_level_skip issue", report.Issues)
	}
}

func TestStructureValidatorWellFormedDocumentHasNoIssues(t *testing.T) {
	v := validators.StructureValidator{}

	report, err := v.Validate(context.Background(), "# Title\n\n## Section\n\n### Subsection\n\nbody text\n", validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none", report.Issues)
	}
	if report.Metrics["heading_count"] != 3 {
		t.Errorf("heading_count metric = %v, want 3", report.Metrics["heading_count"])
	}
}
