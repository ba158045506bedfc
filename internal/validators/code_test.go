package validators_test

import (
	"context"
	"testing"

	"github.com/babar-raza/tbcv/internal/validators"
)

func TestCodeValidatorMissingLanguageIsFlagged(t *testing.T) {
	v := validators.CodeValidator{}
	content := "# Title\n\n```\nsome code\n```\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "code_language_missing" {
		t.Fatalf("Issues = %+v, want one code_language_missing issue", report.Issues)
	}
}

func TestCodeValidatorEmptyBlockIsFlagged(t *testing.T) {
	v := validators.CodeValidator{}
	content := "# Title\n\n```go\n```\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "code_block_empty" {
		t.Fatalf("Issues = %+v, want one code_block_empty issue", report.Issues)
	}
}

func TestCodeValidatorSkipsUnterminatedFences(t *testing.T) {
	v := validators.CodeValidator{}
	content := "# Title\n\n```go\nfunc main() {}\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none (unterminated fences are MarkdownValidator's concern)", report.Issues)
	}
}

func TestCodeValidatorWellFormedBlockHasNoIssues(t *testing.T) {
	v := validators.CodeValidator{}
	content := "# Title\n\n```go\nfunc main() {}\n```\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none", report.Issues)
	}
	if report.Metrics["code_fence_count"] != 1 {
		t.Errorf("code_fence_count metric = %v, want 1", report.Metrics["code_fence_count"])
	}
}
