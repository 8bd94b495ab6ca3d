// internal/common/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rfp-workers/internal/common/config"
	"rfp-workers/internal/common/logger"
)

var (
	ErrGenerationTimeout = errors.New("GENERATION_TIMEOUT")
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrDisabled          = errors.New("GENAI_DISABLED")
)

// Client calls the external language-model service over HTTP.
type Client struct {
	cfg    config.GenAIConfig
	client *http.Client
	logger logger.Logger
}

func NewClient(cfg config.GenAIConfig, log logger.Logger) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			// No client-level timeout - rely only on context
		},
		logger: log.With(map[string]interface{}{
			"component": "genai",
		}),
	}
}

// Enabled reports whether the service is configured for use. Callers fall
// back to deterministic templated output when it is not.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// Generate sends a prompt to the language-model service and returns the
// generated text. Retries transient failures with exponential backoff.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.cfg.Enabled {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, config.GetDuration(c.cfg.Timeout))
	defer cancel()

	requestBody := map[string]interface{}{
		"system":      systemPrompt,
		"prompt":      userPrompt,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	}

	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// Apply exponential backoff
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
				// Continue with retry
			case <-ctx.Done():
				return "", ErrGenerationTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/api/ai/generate", bytes.NewBuffer(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, lastErr = c.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", ErrGenerationTimeout
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrGenerationTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: no successful response after retries", ErrGenerationFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrGenerationFailed, err)
	}

	if strings.TrimSpace(apiResponse.Text) == "" {
		return "", fmt.Errorf("%w: empty response text", ErrGenerationFailed)
	}

	c.logger.Info("generation completed", map[string]interface{}{
		"chars": len(apiResponse.Text),
	})

	return apiResponse.Text, nil
}
