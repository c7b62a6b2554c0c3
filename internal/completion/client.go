// Package completion provides the client for the upstream chat-completion
// provider. The provider credential lives only here, server-side; the
// browser never sees it.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/research-wizard/internal/domain"
)

// ErrCompletionFailed covers every provider failure: transport errors,
// non-success HTTP statuses, and responses missing the reply field. Callers
// substitute a user-visible fallback message and leave session state alone.
var ErrCompletionFailed = errors.New("completion failed")

// Completer produces one assistant reply for an ordered message list that
// starts with a single system entry and ends with the newest user entry.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}

// Config holds configuration for the completion client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultConfig returns default configuration for an OpenAI-compatible
// endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
		Timeout: 60 * time.Second,
	}
}

// Client calls an OpenAI-compatible chat-completion endpoint. Each call is
// at-most-once: there are no retries, and any failure surfaces as
// ErrCompletionFailed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *slog.Logger
}

// NewClient creates a completion client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

type chatCompletionRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message domain.Message `json:"message"`
	} `json:"choices"`
}

// maxErrorBodyBytes bounds how much of a provider error body gets read for
// logging.
const maxErrorBodyBytes = 2048

// Complete sends the message list to the provider and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", ErrCompletionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", ErrCompletionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close completion response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Warn("completion provider returned error status",
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return "", fmt.Errorf("%w: provider status %d", ErrCompletionFailed, resp.StatusCode)
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrCompletionFailed, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: response missing reply content", ErrCompletionFailed)
	}

	return parsed.Choices[0].Message.Content, nil
}
