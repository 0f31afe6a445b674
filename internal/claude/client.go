// Package claude calls the Anthropic messages API to turn a transcript into
// a summary and task checklist.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TimDavid1111/daily-automation/internal/config"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	maxAttempts      = 3
)

// Task is one actionable item extracted from the transcript.
type Task struct {
	Description string `json:"description"`
}

// Summary is the structured result of a summarization call. It is produced
// here and consumed exactly once by the page writer.
type Summary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Tasks   []Task `json:"tasks"`
}

// MalformedSummaryError means the model's response did not match the
// expected structure. A second call with identical input is unlikely to
// self-correct a persistent mismatch, so this is never retried.
type MalformedSummaryError struct {
	Reason string
}

func (e *MalformedSummaryError) Error() string {
	return "malformed summary response: " + e.Reason
}

// APIError is a non-2xx response from the Anthropic API.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic API error: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Anthropic messages API.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures Client behavior.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Tests point this at a stub server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client from configuration.
func New(cfg config.ClaudeConfig, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		baseURL:   defaultBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Summarize sends the transcript to the model and parses the structured
// result. The title is always the date-derived one; the model's suggestion
// is only a fallback for callers that want it.
//
// Transient failures (network, 429, 5xx) are retried with exponential
// backoff, honoring Retry-After. A response that parses but misses the
// expected fields fails with *MalformedSummaryError and is not retried.
func (c *Client) Summarize(ctx context.Context, transcript string, now time.Time) (*Summary, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	raw, err := c.complete(ctx, buildUserMessage(transcript, now))
	if err != nil {
		return nil, err
	}

	s, err := parseSummary(raw)
	if err != nil {
		return nil, err
	}
	s.Title = PageTitle(now)
	return s, nil
}

// complete performs the messages call with the retry loop and returns the
// model's text output.
func (c *Client) complete(ctx context.Context, userMessage string) (string, error) {
	payload, err := json.Marshal(messageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: userMessage}},
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, backoffDelay(attempt, lastErr)); err != nil {
				return "", err
			}
			c.logger.Warn("retrying anthropic call", "attempt", attempt, "error", lastErr)
		}

		text, err := c.doRequest(ctx, payload)
		if err == nil {
			return text, nil
		}
		if !retryableError(err) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}

func (c *Client) doRequest(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(body)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.retryAfter = resp.Header.Get("Retry-After")
		}
		return "", apiErr
	}

	var parsed messageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &MalformedSummaryError{Reason: "response contains no text content"}
	}
	return text.String(), nil
}

// parseSummary extracts the JSON object from the model output. Models
// occasionally wrap JSON in prose or code fences, so the outermost brace
// pair is tried as a fallback candidate.
func parseSummary(raw string) (*Summary, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &MalformedSummaryError{Reason: "empty response"}
	}

	candidates := []string{raw}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}

	for _, candidate := range candidates {
		var s summaryEnvelope
		if err := json.Unmarshal([]byte(candidate), &s); err != nil {
			continue
		}
		if strings.TrimSpace(s.Summary) == "" {
			continue
		}
		if s.Tasks == nil {
			return nil, &MalformedSummaryError{Reason: "task list field missing"}
		}
		result := &Summary{Title: strings.TrimSpace(s.Title), Summary: strings.TrimSpace(s.Summary)}
		for _, task := range s.Tasks {
			desc := strings.TrimSpace(task.Description)
			if desc == "" {
				continue
			}
			result.Tasks = append(result.Tasks, Task{Description: desc})
		}
		return result, nil
	}

	return nil, &MalformedSummaryError{Reason: "no parseable summary object in response"}
}

// summaryEnvelope distinguishes an absent tasks field from an empty one.
type summaryEnvelope struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Tasks   []Task `json:"tasks"`
}

func retryableError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	var malformed *MalformedSummaryError
	if errors.As(err, &malformed) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Transport-level failure.
	return true
}

// backoffDelay: 1s, 2s between attempts, or Retry-After when provided.
func backoffDelay(attempt int, lastErr error) time.Duration {
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) && apiErr.retryAfter != "" {
		if secs, err := strconv.Atoi(apiErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<(attempt-2)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
