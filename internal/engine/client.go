package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// stageSystemPrompt is sent with every provider request. The four stage
// prompts each demand a bare JSON object; repeating the constraint at the
// system level cuts down on fenced or chatty responses that decodeStagePayload
// would otherwise have to reject.
const stageSystemPrompt = "You are a sustainability compliance content generator. " +
	"Always respond with a single JSON object and nothing else: no markdown fences, no commentary."

// completionTemperature keeps stage outputs stable enough that the
// structural validators see consistent shapes across runs.
const completionTemperature = 0.3

// maxCompletionTokens bounds provider responses; the largest stage payload
// (the implementation plan) fits comfortably.
const maxCompletionTokens = 4096

// apiError is a non-200 provider response that may or may not be retryable.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// isRetryable returns true for transient errors (rate limit, server errors).
func (e *apiError) isRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// completeWithRetry runs one provider call with a single backed-off retry on
// transient failures. Non-retryable API errors return immediately.
func completeWithRetry(ctx context.Context, provider string, do func(context.Context) (string, error)) (string, error) {
	const maxAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := do(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var ae *apiError
		if errors.As(err, &ae) && !ae.isRetryable() {
			return "", fmt.Errorf("%s: %w", provider, err)
		}

		if attempt < maxAttempts-1 {
			backoff := time.Duration(attempt+1) * 2 * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return "", fmt.Errorf("%s: %w", provider, lastErr)
}

// postJSON marshals body, posts it with the given headers and returns the
// raw response bytes. Non-200 statuses come back as *apiError so the retry
// wrapper can classify them.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
