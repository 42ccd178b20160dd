package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/models"
)

// openAICompleter talks to any OpenAI-compatible chat completion endpoint.
// Clients are cached per credential id because the key is baked into the
// client config; this is the only place the secret value is used.
type openAICompleter struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger

	mu      sync.Mutex
	clients map[string]*openaigo.Client

	encoder *tiktoken.Tiktoken
}

func newOpenAICompleter(cfg *config.Config, logger *zap.Logger) *openAICompleter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("Could not load tokenizer, prompt token metrics disabled", zap.Error(err))
	}
	return &openAICompleter{
		baseURL:    cfg.AIBaseURL,
		model:      cfg.AIModel,
		httpClient: &http.Client{Timeout: cfg.AITimeout},
		logger:     logger.Named("OpenAICompleter"),
		clients:    make(map[string]*openaigo.Client),
		encoder:    enc,
	}
}

func (c *openAICompleter) clientFor(cred models.APIKey) *openaigo.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[cred.ID]; ok {
		return client
	}
	conf := openaigo.DefaultConfig(cred.Value)
	conf.BaseURL = c.baseURL
	conf.HTTPClient = c.httpClient
	client := openaigo.NewClientWithConfig(conf)
	c.clients[cred.ID] = client
	return client
}

func (c *openAICompleter) complete(ctx context.Context, operation, systemPrompt, userPayload string, cred models.APIKey) (string, error) {
	if c.encoder != nil {
		estimate := len(c.encoder.Encode(systemPrompt, nil, nil)) + len(c.encoder.Encode(userPayload, nil, nil))
		aiPromptTokens.WithLabelValues(operation).Observe(float64(estimate))
	}

	resp, err := c.clientFor(cred).CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: userPayload},
		},
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err, cred.ID)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrNonRetryable)
	}
	if resp.Usage.TotalTokens > 0 {
		c.logger.Debug("AI usage",
			zap.String("operation", operation),
			zap.String("keyID", cred.ID),
			zap.Int("promptTokens", resp.Usage.PromptTokens),
			zap.Int("completionTokens", resp.Usage.CompletionTokens))
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps a transport/provider error onto the gateway
// taxonomy. Only the quota signature (HTTP 429, provider overload, an
// insufficient_quota code) justifies rotating to another credential.
func classifyOpenAIError(err error, credID string) error {
	status := 0
	var code string

	var apiErr *openaigo.APIError
	var reqErr *openaigo.RequestError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatusCode
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
	} else if errors.As(err, &reqErr) {
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusServiceUnavailable,
		code == "insufficient_quota",
		code == "rate_limit_exceeded":
		return fmt.Errorf("%w (key %s): %v", ErrQuotaExceeded, credID, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w (key %s): %v", ErrInvalidCredential, credID, err)
	default:
		return fmt.Errorf("%w: %v", ErrNonRetryable, err)
	}
}
