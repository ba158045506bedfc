package validators

import (
	"context"

	"github.com/babar-raza/tbcv/pkg/contracts"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/rs/zerolog/log"
)

// LLMValidator runs a general tone/clarity/completeness review through
// the configured LLM driver. It has the same graceful-degrade contract as
// the truth validator's LLM phase: any failure yields an empty report
// rather than failing the tier. Tier 3 (semantic).
type LLMValidator struct{}

func (LLMValidator) Kind() models.ValidatorKind { return models.ValidatorLLM }

func (v LLMValidator) Validate(ctx context.Context, content string, vctx VContext) (*models.ValidationReport, error) {
	report := newReport()
	if vctx.LLM == nil {
		return report, nil
	}
	if len(content) < defaultLLMMinContentLen || len(content) > defaultLLMMaxContentLen {
		return report, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, defaultLLMTimeout)
	defer cancel()

	req := contracts.CompletionRequest{
		Messages: []contracts.ChatMessage{
			{Role: "system", Content: "You review technical documentation for tone, clarity, and completeness. Respond with one finding per line, or nothing if none."},
			{Role: "user", Content: content},
		},
		MaxTokens: 512,
	}

	result, err := vctx.LLM.Complete(callCtx, req)
	if err != nil {
		log.Warn().Err(err).Msg("llm validator: degraded, returning empty report")
		return report, nil
	}

	for _, iss := range parseLLMFindings(result.Content) {
		iss.Code = "llm_tone_finding"
		iss.Category = "tone"
		iss.ValidatorKind = models.ValidatorLLM
		if iss.Confidence < defaultConfidenceFloor {
			continue
		}
		report.Issues = append(report.Issues, iss)
	}
	report.RecomputeConfidence()
	return report, nil
}
