package validators_test

import (
	"context"
	"testing"

	"github.com/babar-raza/tbcv/internal/validators"
)

const seoValidatorConfig = `
enabled: true
profile: default
rules:
  title_length:
    enabled: true
    level: warning
    params:
      min: 10
      max: 70
  description_length:
    enabled: true
    level: warning
    params:
      min: 50
      max: 160
profiles:
  default:
    rules: [title_length, description_length]
`

func TestSEOValidatorTitleTooShort(t *testing.T) {
	l := newLoader(t, "seo", seoValidatorConfig)
	v := validators.SEOValidator{}

	content := "---\ntitle: \"Short\"\ndescription: \"A description that is long enough to pass the minimum length check easily.\"\n---\n\n# Short\n"
	report, err := v.Validate(context.Background(), content, validators.VContext{Rules: l})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "seo_title_length" {
		t.Fatalf("Issues = %+v, want one seo_title_length issue", report.Issues)
	}
}

func TestSEOValidatorDescriptionTooShort(t *testing.T) {
	l := newLoader(t, "seo", seoValidatorConfig)
	v := validators.SEOValidator{}

	content := "---\ntitle: \"A perfectly reasonable title\"\ndescription: \"too short\"\n---\n\n# Title\n"
	report, err := v.Validate(context.Background(), content, validators.VContext{Rules: l})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "seo_description_length" {
		t.Fatalf("Issues = %+v, want one seo_description_length issue", report.Issues)
	}
}

func TestSEOValidatorWithinRangeHasNoIssues(t *testing.T) {
	l := newLoader(t, "seo", seoValidatorConfig)
	v := validators.SEOValidator{}

	content := "---\ntitle: \"A perfectly reasonable title\"\ndescription: \"A description that is long enough to pass the minimum length check easily and stays under the maximum.\"\n---\n\n# Title\n"
	report, err := v.Validate(context.Background(), content, validators.VContext{Rules: l})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none", report.Issues)
	}
}

func TestSEOValidatorWithoutRulesAppliesNoChecks(t *testing.T) {
	v := validators.SEOValidator{}

	content := "---\ntitle: \"x\"\ndescription: \"y\"\n---\n\n# Title\n"
	report, err := v.Validate(context.Background(), content, validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none (resolveRule returns ok=false without a Rules loader)", report.Issues)
	}
}
