package ruleloader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/babar-raza/tbcv/internal/ruleloader"
	"github.com/babar-raza/tbcv/pkg/models"
)

const seoConfig = `
enabled: true
profile: default
rules:
  missing_meta_description:
    enabled: true
    level: warning
    message: "missing meta description"
profiles:
  default:
    rules: [missing_meta_description]
  strict:
    rules: [missing_meta_description]
    overrides:
      missing_meta_description:
        level: error
family_overrides:
  words:
    profile: strict
`

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture config: %v", err)
	}
}

func TestLoaderResolvesRuleFromDefaultProfile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "seo.yaml", seoConfig)

	l := ruleloader.New(dir, nil)
	if err := l.Start(context.Background(), false); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	rule, ok := l.ResolveRule("seo", "missing_meta_description", models.FamilyPDF)
	if !ok {
		t.Fatal("ResolveRule() = false, want true")
	}
	if rule.Level != models.RuleLevelWarning {
		t.Errorf("Level = %q, want %q (default profile, no family override for pdf)", rule.Level, models.RuleLevelWarning)
	}
}

func TestLoaderAppliesFamilyOverrideProfile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "seo.yaml", seoConfig)

	l := ruleloader.New(dir, nil)
	if err := l.Start(context.Background(), false); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	rule, ok := l.ResolveRule("seo", "missing_meta_description", models.FamilyWords)
	if !ok {
		t.Fatal("ResolveRule() = false, want true")
	}
	if rule.Level != models.RuleLevelError {
		t.Errorf("Level = %q, want %q (words family overrides to the strict profile)", rule.Level, models.RuleLevelError)
	}
}

func TestLoaderGetReturnsNilForUnknownValidator(t *testing.T) {
	dir := t.TempDir()
	l := ruleloader.New(dir, nil)
	if err := l.Start(context.Background(), false); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	if cfg := l.Get("nonexistent"); cfg != nil {
		t.Errorf("Get(nonexistent) = %+v, want nil", cfg)
	}
}

func TestLoaderEnabledRules(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "seo.yaml", seoConfig)

	l := ruleloader.New(dir, nil)
	if err := l.Start(context.Background(), false); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer l.Stop()

	ids := l.EnabledRules("seo", models.FamilyPDF)
	if len(ids) != 1 || ids[0] != "missing_meta_description" {
		t.Errorf("EnabledRules() = %v, want [missing_meta_description]", ids)
	}
}

func TestLoaderStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l := ruleloader.New(dir, nil)
	if err := l.Start(context.Background(), false); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	l.Stop()
	l.Stop() // must not panic
}
