package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/babar-raza/tbcv/pkg/contracts"
)

// OpenAIEmbeddingDriver implements contracts.EmbeddingDriver against the
// OpenAI embeddings endpoint.
type OpenAIEmbeddingDriver struct {
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
	baseURL    string
}

func NewOpenAIEmbeddingDriver(apiKey, model string, dimensions int) *OpenAIEmbeddingDriver {
	return &OpenAIEmbeddingDriver{
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://api.openai.com/v1",
	}
}

func (d *OpenAIEmbeddingDriver) Dimensions() int { return d.dimensions }

type openAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (d *OpenAIEmbeddingDriver) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(openAIEmbeddingRequest{Model: d.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("openai embed: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai embed: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embed: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai embed: read response: %w", err)
	}

	var parsed openAIEmbeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("openai embed: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai embed: %s", parsed.Error.Message)
	}

	out := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// OllamaEmbeddingDriver implements contracts.EmbeddingDriver against a
// local Ollama instance, for fully offline deployments.
type OllamaEmbeddingDriver struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

func NewOllamaEmbeddingDriver(baseURL, model string, dimensions int) *OllamaEmbeddingDriver {
	return &OllamaEmbeddingDriver{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *OllamaEmbeddingDriver) Dimensions() int { return d.dimensions }

type ollamaEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (d *OllamaEmbeddingDriver) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		body, err := json.Marshal(ollamaEmbeddingRequest{Model: d.model, Input: text})
		if err != nil {
			return nil, fmt.Errorf("ollama embed: encode: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("ollama embed: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("ollama embed: request: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("ollama embed: read response: %w", err)
		}

		var parsed ollamaEmbeddingResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("ollama embed: decode response: %w", err)
		}
		out[i] = parsed.Embedding
	}
	return out, nil
}

var _ contracts.EmbeddingDriver = (*OpenAIEmbeddingDriver)(nil)
var _ contracts.EmbeddingDriver = (*OllamaEmbeddingDriver)(nil)
