package validators_test

import (
	"context"
	"testing"

	"github.com/babar-raza/tbcv/internal/validators"
)

func TestMarkdownValidatorUnterminatedFence(t *testing.T) {
	v := validators.MarkdownValidator{}
	content := "# Title\n\n```go\nfunc main() {}\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "unterminated_code_fence" {
		t.Fatalf("Issues = %+v, want one unterminated_code_fence issue", report.Issues)
	}
}

func TestMarkdownValidatorMalformedTableRow(t *testing.T) {
	v := validators.MarkdownValidator{}
	content := "# Title\n\n| just one pipe\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "malformed_table_row" {
		t.Fatalf("Issues = %+v, want one malformed_table_row issue", report.Issues)
	}
}

func TestMarkdownValidatorUnmatchedEmphasis(t *testing.T) {
	v := validators.MarkdownValidator{}
	content := "# Title\n\nThis has an *unmatched emphasis marker\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "unmatched_emphasis" {
		t.Fatalf("Issues = %+v, want one unmatched_emphasis issue", report.Issues)
	}
}

func TestMarkdownValidatorCleanDocumentHasNoIssues(t *testing.T) {
	v := validators.MarkdownValidator{}
	content := "# Title\n\n```go\nfunc main() {}\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\nSome **bold** and _italic_ text.\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none", report.Issues)
	}
}
