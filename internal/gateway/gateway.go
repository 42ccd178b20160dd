// Package gateway is the boundary to the LLM backend. It owns the operation
// prompts, attaches credentials to outbound calls, validates response shapes
// and classifies failures into the retry taxonomy the turn resolver acts on.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/models"
)

// Operation names, used for logging and metrics labels.
const (
	OpAdvanceExploration = "advance_exploration"
	OpResolveCombat      = "resolve_combat"
	OpCraftItem          = "craft_item"
)

// Gateway invokes one of the named model operations with a credential and
// returns a validated, strongly-typed result.
type Gateway interface {
	AdvanceExploration(ctx context.Context, req ExplorationRequest, cred models.APIKey) (*ExplorationResult, error)
	ResolveCombat(ctx context.Context, req CombatRequest, cred models.APIKey) (*CombatResult, error)
	CraftItem(ctx context.Context, req CraftRequest, cred models.APIKey) (*CraftResult, error)
}

// completer is the raw transport: one system prompt, one JSON user payload,
// one text reply. Implementations classify their own transport errors.
type completer interface {
	complete(ctx context.Context, operation, systemPrompt, userPayload string, cred models.APIKey) (string, error)
}

type aiGateway struct {
	completer completer
	logger    *zap.Logger
}

// New builds a Gateway for the configured backend type.
func New(cfg *config.Config, logger *zap.Logger) (Gateway, error) {
	log := logger.Named("Gateway")
	switch cfg.AIClientType {
	case "openai":
		log.Info("Using OpenAI-compatible AI backend",
			zap.String("baseURL", cfg.AIBaseURL), zap.String("model", cfg.AIModel))
		return &aiGateway{completer: newOpenAICompleter(cfg, log), logger: log}, nil
	case "ollama":
		log.Info("Using Ollama AI backend",
			zap.String("baseURL", cfg.AIBaseURL), zap.String("model", cfg.AIModel))
		c, err := newOllamaCompleter(cfg, log)
		if err != nil {
			return nil, err
		}
		return &aiGateway{completer: c, logger: log}, nil
	default:
		return nil, fmt.Errorf("unknown AI client type %q", cfg.AIClientType)
	}
}

func (g *aiGateway) AdvanceExploration(ctx context.Context, req ExplorationRequest, cred models.APIKey) (*ExplorationResult, error) {
	raw, err := g.invoke(ctx, OpAdvanceExploration, explorationSystemPrompt, req, cred)
	if err != nil {
		return nil, err
	}
	res, err := parseExplorationResult(raw)
	if err != nil {
		aiRequestsTotal.WithLabelValues(OpAdvanceExploration, "error_malformed").Inc()
		return nil, err
	}
	return res, nil
}

func (g *aiGateway) ResolveCombat(ctx context.Context, req CombatRequest, cred models.APIKey) (*CombatResult, error) {
	raw, err := g.invoke(ctx, OpResolveCombat, combatSystemPrompt, req, cred)
	if err != nil {
		return nil, err
	}
	res, err := parseCombatResult(raw)
	if err != nil {
		aiRequestsTotal.WithLabelValues(OpResolveCombat, "error_malformed").Inc()
		return nil, err
	}
	return res, nil
}

func (g *aiGateway) CraftItem(ctx context.Context, req CraftRequest, cred models.APIKey) (*CraftResult, error) {
	raw, err := g.invoke(ctx, OpCraftItem, craftSystemPrompt, req, cred)
	if err != nil {
		return nil, err
	}
	res, err := parseCraftResult(raw)
	if err != nil {
		aiRequestsTotal.WithLabelValues(OpCraftItem, "error_malformed").Inc()
		return nil, err
	}
	return res, nil
}

func (g *aiGateway) invoke(ctx context.Context, operation, systemPrompt string, payload any, cred models.APIKey) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrNonRetryable, err)
	}

	log := g.logger.With(zap.String("operation", operation), zap.String("keyID", cred.ID))
	log.Debug("Dispatching AI request", zap.Int("payloadBytes", len(body)))

	start := time.Now()
	raw, err := g.completer.complete(ctx, operation, systemPrompt, string(body), cred)
	duration := time.Since(start)

	if err != nil {
		status := "error"
		switch {
		case errors.Is(err, ErrQuotaExceeded):
			status = "error_quota"
		case errors.Is(err, ErrInvalidCredential):
			status = "error_auth"
		}
		aiRequestsTotal.WithLabelValues(operation, status).Inc()
		log.Warn("AI request failed", zap.Duration("duration", duration), zap.Error(err))
		return "", err
	}

	aiRequestsTotal.WithLabelValues(operation, "success").Inc()
	aiRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	log.Debug("AI request completed",
		zap.Duration("duration", duration), zap.Int("responseChars", len(raw)))
	return raw, nil
}
