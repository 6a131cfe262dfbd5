// ABOUTME: OpenAI-compatible chat completions client with structured outputs
// ABOUTME: Sends json_schema response formats and validates replies before returning them
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/logger"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// NewOpenAIClient returns an error when no API key is configured.
func NewOpenAIClient(cfg OpenAIConfig, log *logger.Logger) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat map[string]any `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("completion http %d: %s", e.StatusCode, e.Body)
}

// Complete implements Completer.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string, schema *Schema) (map[string]any, error) {
	const op = "complete"
	if schema == nil {
		return nil, apperr.Validation(op, "schema required")
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schema.Name,
				"schema": schema.Document(),
				"strict": true,
			},
		},
	}

	start := time.Now()
	raw, err := c.post(ctx, "/v1/chat/completions", req)
	if err != nil {
		c.log.Warn("completion request failed", "schema", schema.Name, "error", err, "elapsed", time.Since(start))
		return nil, apperr.Service(op, err)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Service(op, fmt.Errorf("decode response: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.Service(op, errors.New("response has no choices"))
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return nil, apperr.Service(op, fmt.Errorf("model refused: %s", msg.Refusal))
	}

	c.log.Debug("completion received", "schema", schema.Name, "elapsed", time.Since(start))
	return schema.Parse(msg.Content)
}

func (c *OpenAIClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
