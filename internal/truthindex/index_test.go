package truthindex_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/babar-raza/tbcv/internal/truthindex"
	"github.com/babar-raza/tbcv/pkg/models"
)

const pluginsYAML = `
family: words
records:
  - id: rec-1
    family: words
    kind: plugin
    canonical_name: Words.LoadPlugin
    aliases: ["LoadPlugin", "words-load-plugin"]
    forbidden_patterns: ["Words.ConflictingPlugin"]
  - id: rec-2
    family: words
    kind: plugin
    canonical_name: Words.ConflictingPlugin
    aliases: []
`

func newTestIndex(t *testing.T) *truthindex.Index {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "words.yaml"), []byte(pluginsYAML), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	idx := truthindex.New(dir, nil)
	if err := idx.Start(context.Background(), false); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(idx.Stop)
	return idx
}

func TestExactMatchesCanonicalNameAndAlias(t *testing.T) {
	idx := newTestIndex(t)

	if _, ok := idx.Exact(models.FamilyWords, "Words.LoadPlugin"); !ok {
		t.Error("Exact(canonical name) = false, want true")
	}
	if _, ok := idx.Exact(models.FamilyWords, "LoadPlugin"); !ok {
		t.Error("Exact(alias) = false, want true")
	}
	if _, ok := idx.Exact(models.FamilyWords, "nonexistent"); ok {
		t.Error("Exact(nonexistent) = true, want false")
	}
}

func TestAliasFuzzyMatchesCloseNames(t *testing.T) {
	idx := newTestIndex(t)

	matches := idx.Alias(models.FamilyWords, "words-load-plugin")
	if len(matches) == 0 {
		t.Fatal("Alias() returned no matches for a close alias")
	}
	if matches[0].CanonicalName != "Words.LoadPlugin" {
		t.Errorf("best match = %q, want Words.LoadPlugin", matches[0].CanonicalName)
	}
}

func TestAliasReturnsNothingBelowThreshold(t *testing.T) {
	idx := newTestIndex(t)

	matches := idx.Alias(models.FamilyWords, "completely unrelated text string")
	if len(matches) != 0 {
		t.Errorf("Alias() = %d matches, want 0 for an unrelated query", len(matches))
	}
}

func TestSemanticFallsBackToAliasWithoutEmbeddingDriver(t *testing.T) {
	idx := newTestIndex(t)

	result := idx.Semantic(context.Background(), models.FamilyWords, "LoadPlugin")
	if !result.Fallback {
		t.Error("Fallback = false, want true when no embedding driver is configured")
	}
	if len(result.Records) == 0 {
		t.Error("expected the alias fallback to still find the exact-alias match")
	}
}

func TestAllForFamilyReturnsEveryRecord(t *testing.T) {
	idx := newTestIndex(t)

	recs := idx.AllForFamily(models.FamilyWords)
	if len(recs) != 2 {
		t.Errorf("AllForFamily() = %d records, want 2", len(recs))
	}
}

func TestAllForFamilyUnknownFamilyIsEmpty(t *testing.T) {
	idx := newTestIndex(t)
	if recs := idx.AllForFamily(models.FamilyPDF); len(recs) != 0 {
		t.Errorf("AllForFamily(pdf) = %d records, want 0", len(recs))
	}
}

func TestValidCombinationRejectsForbiddenPair(t *testing.T) {
	idx := newTestIndex(t)

	ok := idx.ValidCombination(models.FamilyWords, []string{"Words.LoadPlugin", "Words.ConflictingPlugin"})
	if ok {
		t.Error("ValidCombination() = true, want false for a forbidden pair")
	}
}

func TestValidCombinationAllowsUnrelatedPair(t *testing.T) {
	idx := newTestIndex(t)

	ok := idx.ValidCombination(models.FamilyWords, []string{"Words.LoadPlugin", "Words.SomethingElse"})
	if !ok {
		t.Error("ValidCombination() = false, want true for a pair with no forbidden relationship")
	}
}

func TestValidCombinationRequiresAtLeastTwoIDs(t *testing.T) {
	idx := newTestIndex(t)
	if !idx.ValidCombination(models.FamilyWords, []string{"Words.LoadPlugin"}) {
		t.Error("ValidCombination() with a single ID should trivially be true")
	}
}

func TestClearDropsFamily(t *testing.T) {
	idx := newTestIndex(t)
	idx.Clear(models.FamilyWords)

	if recs := idx.AllForFamily(models.FamilyWords); len(recs) != 0 {
		t.Errorf("AllForFamily() after Clear() = %d records, want 0", len(recs))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	idx := truthindex.New(dir, nil)
	if err := idx.Start(context.Background(), false); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	idx.Stop()
	idx.Stop() // must not panic
}
