package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OllamaClient implements ModelClient using the local Ollama API. Requests
// run non-streaming with Ollama's JSON output format so stage payloads can
// be decoded directly.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// OllamaOption configures the Ollama client.
type OllamaOption func(*OllamaClient)

// WithOllamaModel sets the model name.
func WithOllamaModel(model string) OllamaOption {
	return func(c *OllamaClient) { c.model = model }
}

// NewOllamaClient creates a new Ollama model client. Local models are slow;
// the timeout is generous.
func NewOllamaClient(baseURL string, opts ...OllamaOption) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	c := &OllamaClient{
		baseURL: baseURL,
		model:   "llama3",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Complete sends a stage prompt and returns the model's JSON text.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  c.model,
		System: stageSystemPrompt,
		Prompt: prompt,
		Stream: false,
		Format: "json",
		Options: ollamaOptions{
			Temperature: completionTemperature,
		},
	}

	return completeWithRetry(ctx, "ollama", func(ctx context.Context) (string, error) {
		raw, err := postJSON(ctx, c.httpClient, c.baseURL+"/api/generate", nil, reqBody)
		if err != nil {
			return "", err
		}

		var ollamaResp ollamaResponse
		if err := json.Unmarshal(raw, &ollamaResp); err != nil {
			return "", fmt.Errorf("unmarshal response: %w", err)
		}
		if ollamaResp.Error != "" {
			return "", fmt.Errorf("ollama error: %s", ollamaResp.Error)
		}
		if ollamaResp.Response == "" {
			return "", fmt.Errorf("empty response from ollama")
		}
		return ollamaResp.Response, nil
	})
}
