package validators_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/babar-raza/tbcv/internal/validators"
)

func TestLLMValidatorWithoutDriverIsANoop(t *testing.T) {
	v := validators.LLMValidator{}

	report, err := v.Validate(context.Background(), strings.Repeat("word ", 30), validators.VContext{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none without an LLM driver", report.Issues)
	}
}

func TestLLMValidatorSkipsShortContent(t *testing.T) {
	v := validators.LLMValidator{}
	llm := fakeTruthLLM{content: "this line should never be parsed\n"}

	report, err := v.Validate(context.Background(), "short", validators.VContext{LLM: llm})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none for content below the LLM phase minimum length", report.Issues)
	}
}

func TestLLMValidatorReportsToneFindings(t *testing.T) {
	v := validators.LLMValidator{}
	llm := fakeTruthLLM{content: "the introduction is overly informal for a reference doc\n"}

	report, err := v.Validate(context.Background(), strings.Repeat("word ", 30), validators.VContext{LLM: llm})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("Issues = %+v, want one tone finding", report.Issues)
	}
	if report.Issues[0].Code != "llm_tone_finding" || report.Issues[0].Category != "tone" {
		t.Errorf("issue = %+v, want code=llm_tone_finding category=tone", report.Issues[0])
	}
}

func TestLLMValidatorDegradesGracefullyOnDriverError(t *testing.T) {
	v := validators.LLMValidator{}
	llm := fakeTruthLLM{err: errors.New("upstream unavailable")}

	report, err := v.Validate(context.Background(), strings.Repeat("word ", 30), validators.VContext{LLM: llm})
	if err != nil {
		t.Fatalf("Validate() error = %v, want nil (degrade to an empty report)", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %+v, want none when the driver errors", report.Issues)
	}
}
