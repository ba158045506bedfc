package validators_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/babar-raza/tbcv/internal/ruleloader"
	"github.com/babar-raza/tbcv/internal/validators"
	"github.com/babar-raza/tbcv/pkg/models"
)

const frontmatterConfig = `
enabled: true
profile: default
rules:
  frontmatter_required:
    enabled: true
    level: error
  frontmatter_required_fields:
    enabled: true
    level: warning
    params:
      fields: ["title", "description"]
profiles:
  default:
    rules: [frontmatter_required, frontmatter_required_fields]
`

func newLoader(t *testing.T, name, content string) *ruleloader.Loader {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture config: %v", err)
	}
	l := ruleloader.New(dir, nil)
	if err := l.Start(context.Background(), false); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(l.Stop)
	return l
}

func TestFrontmatterValidatorMissingBlock(t *testing.T) {
	l := newLoader(t, "frontmatter", frontmatterConfig)
	v := validators.FrontmatterValidator{}

	report, err := v.Validate(context.Background(), "# Title\n\nNo frontmatter here.\n", validators.VContext{Rules: l})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "frontmatter_missing" {
		t.Fatalf("Issues = %+v, want one frontmatter_missing issue", report.Issues)
	}
	if report.Issues[0].Level != models.IssueError {
		t.Errorf("Level = %q, want error (per rule config)", report.Issues[0].Level)
	}
}

func TestFrontmatterValidatorInvalidYAML(t *testing.T) {
	l := newLoader(t, "frontmatter", frontmatterConfig)
	v := validators.FrontmatterValidator{}

	content := "---\ntitle: [unterminated\n---\n\nbody\n"
	report, err := v.Validate(context.Background(), content, validators.VContext{Rules: l})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "frontmatter_invalid_yaml" {
		t.Fatalf("Issues = %+v, want one frontmatter_invalid_yaml issue", report.Issues)
	}
	if report.Issues[0].Level != models.IssueCritical {
		t.Errorf("Level = %q, want critical", report.Issues[0].Level)
	}
}

func TestFrontmatterValidatorMissingRequiredField(t *testing.T) {
	l := newLoader(t, "frontmatter", frontmatterConfig)
	v := validators.FrontmatterValidator{}

	content := "---\ntitle: Hello\ndescription: \"\"\n---\n\nbody\n"
	report, err := v.Validate(context.Background(), content, validators.VContext{Rules: l})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "frontmatter_missing_field" {
		t.Fatalf("Issues = %+v, want one frontmatter_missing_field issue (blank description)", report.Issues)
	}
}

func TestFrontmatterValidatorAllFieldsPresentIsClean(t *testing.T) {
	l := newLoader(t, "frontmatter", frontmatterConfig)
	v := validators.FrontmatterValidator{}

	content := "---\ntitle: Hello\ndescription: A real description\n---\n\nbody\n"
	report, err := v.Validate(context.Background(), content, validators.VContext{Rules: l})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none", report.Issues)
	}
}

func TestFrontmatterValidatorWithoutRulesAppliesBuiltinDefault(t *testing.T) {
	v := validators.FrontmatterValidator{}

	report, err := v.Validate(context.Background(), "no frontmatter at all\n", validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Code != "frontmatter_missing" {
		t.Fatalf("Issues = %+v, want one frontmatter_missing issue even without a Rules loader", report.Issues)
	}
	if report.Issues[0].Level != models.IssueWarning {
		t.Errorf("Level = %q, want warning (built-in default when unconfigured)", report.Issues[0].Level)
	}
}
