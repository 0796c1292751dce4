package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient implements ModelClient using the OpenAI Chat Completions API,
// or any OpenAI-compatible service via a custom base URL. Requests pin the
// stage system prompt and JSON response mode so stage outputs decode without
// fence stripping.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*OpenAIClient)

// WithModel sets the model name (default: gpt-4o-mini).
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) { c.model = model }
}

// WithBaseURL overrides the API endpoint (default: https://api.openai.com/v1).
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// NewOpenAIClient creates a new OpenAI model client.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-4o-mini",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a stage prompt and returns the model's JSON text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: stageSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    completionTemperature,
		ResponseFormat: &chatResponseFormat{Type: "json_object"},
	}

	return completeWithRetry(ctx, "openai", func(ctx context.Context) (string, error) {
		raw, err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions",
			map[string]string{"Authorization": "Bearer " + c.apiKey}, reqBody)
		if err != nil {
			return "", err
		}

		var chatResp chatResponse
		if err := json.Unmarshal(raw, &chatResp); err != nil {
			return "", fmt.Errorf("unmarshal response: %w", err)
		}
		if chatResp.Error != nil {
			return "", fmt.Errorf("api error: %s", chatResp.Error.Message)
		}
		if len(chatResp.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}
		return chatResp.Choices[0].Message.Content, nil
	})
}
