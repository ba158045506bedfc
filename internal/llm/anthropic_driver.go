// Package llm wires TBCV's pluggable LLMDriver and EmbeddingDriver
// contracts to concrete providers, with a failover router and a
// circuit-breaker/backoff wrapper shared by every provider call.
package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/babar-raza/tbcv/pkg/contracts"
)

// AnthropicDriver implements contracts.LLMDriver against the Anthropic
// Messages API, used by the semantic truth validator and the
// recommender's self-critique pass.
type AnthropicDriver struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicDriver builds a driver from an API key and model name.
func NewAnthropicDriver(apiKey, model string) *AnthropicDriver {
	return &AnthropicDriver{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

func (d *AnthropicDriver) Name() string { return "anthropic" }

func (d *AnthropicDriver) Complete(ctx context.Context, req contracts.CompletionRequest) (contracts.CompletionResult, error) {
	var system string
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     d.model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := d.client.Messages.New(ctx, params)
	if err != nil {
		return contracts.CompletionResult{}, fmt.Errorf("anthropic: complete: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return contracts.CompletionResult{
		Content:      content,
		FinishReason: string(resp.StopReason),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
