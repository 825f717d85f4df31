package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coursegen/coursegen-backend/internal/pkg/httpx"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

// ErrSchemaMismatch wraps model output that could not be parsed against the
// declared schema. Callers treat it as a failed attempt, not a crash.
var ErrSchemaMismatch = errors.New("model output does not match schema")

// Client is the generative backend used by the pipelines. The model name is
// chosen per call; fallback across candidates is the invoker's job, not the
// transport's.
type Client interface {
	// GenerateJSON requests structured output validated against a strict
	// json_schema. The returned map matches the declared shape or the call
	// fails with ErrSchemaMismatch.
	GenerateJSON(ctx context.Context, model, system, user, schemaName string, schema map[string]any) (map[string]any, error)

	// GenerateText requests freeform text. The only guarantee is a non-empty
	// string or an explicit error.
	GenerateText(ctx context.Context, model, system, user string) (string, error)

	// Research runs a web-search-enabled call and returns the research text
	// plus the search queries the model issued.
	Research(ctx context.Context, model, prompt string) (string, []string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeoutSec := 180
	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	maxRetries := 4
	if v := os.Getenv("OPENAI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("service", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type apiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *apiHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *apiHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &apiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.Jitter(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

// -------------------- Responses API --------------------

type responsesRequest struct {
	Model string `json:"model"`

	Input []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"input"`

	Text struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`

	Tools []map[string]any `json:"tools,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
		Action struct {
			Type  string `json:"type,omitempty"`
			Query string `json:"query,omitempty"`
		} `json:"action,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func extractSearchQueries(resp responsesResponse) []string {
	var out []string
	for _, item := range resp.Output {
		if item.Type != "web_search_call" {
			continue
		}
		q := strings.TrimSpace(item.Action.Query)
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

func newInput(system, user string) []struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
} {
	in := make([]struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	}, 0, 2)
	if strings.TrimSpace(system) != "" {
		in = append(in, struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		}{Role: "system", Content: system})
	}
	in = append(in, struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	}{Role: "user", Content: user})
	return in
}

func (c *client) GenerateJSON(ctx context.Context, model, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("model required")
	}
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, errors.New("schema required")
	}

	req := responsesRequest{
		Model:       model,
		Input:       newInput(system, user),
		Temperature: 0.2,
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return nil, err
	}
	if resp.Refusal != "" {
		return nil, fmt.Errorf("model refused: %s", resp.Refusal)
	}

	jsonText := extractOutputText(resp)
	if strings.TrimSpace(jsonText) == "" {
		return nil, fmt.Errorf("%w: empty output_text", ErrSchemaMismatch)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(jsonText), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v; text=%s", ErrSchemaMismatch, err, jsonText)
	}
	return obj, nil
}

func (c *client) GenerateText(ctx context.Context, model, system, user string) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", errors.New("model required")
	}

	req := responsesRequest{
		Model:       model,
		Input:       newInput(system, user),
		Temperature: 0.2,
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}

	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

func (c *client) Research(ctx context.Context, model, prompt string) (string, []string, error) {
	if strings.TrimSpace(model) == "" {
		return "", nil, errors.New("model required")
	}

	req := responsesRequest{
		Model: model,
		Input: newInput("", prompt),
		Tools: []map[string]any{{"type": "web_search"}},
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return "", nil, err
	}
	if resp.Refusal != "" {
		return "", nil, fmt.Errorf("model refused: %s", resp.Refusal)
	}

	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", nil, fmt.Errorf("no output_text found in response")
	}
	return text, extractSearchQueries(resp), nil
}
