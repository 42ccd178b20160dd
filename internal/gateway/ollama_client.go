package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/models"
)

// ollamaCompleter runs turns against a local Ollama instance. Credentials are
// still rotated and tracked by the pool, but Ollama ignores the value; quota
// classification only triggers if a fronting proxy returns 429.
type ollamaCompleter struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newOllamaCompleter(cfg *config.Config, logger *zap.Logger) (*ollamaCompleter, error) {
	base := strings.TrimSuffix(cfg.AIBaseURL, "/v1")
	base = strings.TrimSuffix(base, "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", base, err)
	}
	return &ollamaCompleter{
		client:  api.NewClient(parsed, &http.Client{Timeout: cfg.AITimeout}),
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
		logger:  logger.Named("OllamaCompleter"),
	}, nil
}

func (c *ollamaCompleter) complete(ctx context.Context, operation, systemPrompt, userPayload string, cred models.APIKey) (string, error) {
	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPayload},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
	}

	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return "", classifyOllamaError(err, cred.ID)
	}
	if resp.Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrNonRetryable)
	}
	if resp.PromptEvalCount > 0 {
		aiPromptTokens.WithLabelValues(operation).Observe(float64(resp.PromptEvalCount))
	}
	return resp.Message.Content, nil
}

func classifyOllamaError(err error, credID string) error {
	var sErr api.StatusError
	if errors.As(err, &sErr) {
		switch sErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return fmt.Errorf("%w (key %s): %v", ErrQuotaExceeded, credID, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w (key %s): %v", ErrInvalidCredential, credID, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrNonRetryable, err)
}
