package validators_test

import (
	"context"
	"testing"

	"github.com/babar-raza/tbcv/internal/validators"
)

func TestLinksValidatorEmptyTarget(t *testing.T) {
	v := validators.LinksValidator{}
	content := "# Title\n\nSee [here]() for more.\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "link_empty_target" {
		t.Fatalf("Issues = %+v, want one link_empty_target issue", report.Issues)
	}
}

func TestLinksValidatorDisallowedScheme(t *testing.T) {
	v := validators.LinksValidator{}
	content := "# Title\n\n[click me](javascript:alert(1))\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "link_disallowed_scheme" {
		t.Fatalf("Issues = %+v, want one link_disallowed_scheme issue", report.Issues)
	}
}

func TestLinksValidatorInconsistentTarget(t *testing.T) {
	v := validators.LinksValidator{}
	content := "# Title\n\nSee [docs](https://a.example/docs) and later [docs](https://b.example/docs).\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "link_inconsistent_target" {
		t.Fatalf("Issues = %+v, want one link_inconsistent_target issue", report.Issues)
	}
}

func TestLinksValidatorConsistentRepeatedLinkHasNoIssues(t *testing.T) {
	v := validators.LinksValidator{}
	content := "# Title\n\nSee [docs](https://a.example/docs) and again [docs](https://a.example/docs).\n"

	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none", report.Issues)
	}
	if report.Metrics["link_count"] != 2 {
		t.Errorf("link_count metric = %v, want 2", report.Metrics["link_count"])
	}
}
