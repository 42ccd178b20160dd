// Package engine drives a single game turn: optimistic narration append,
// exploration/combat dispatch through the LLM gateway with credential
// rotation, response merge, and hand-off of the settled snapshot to the
// session store.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"adventure-server/internal/gateway"
	"adventure-server/internal/keypool"
	"adventure-server/internal/messaging"
	"adventure-server/internal/models"
)

const (
	// playerActionPrefix marks the player's own line in the story log.
	playerActionPrefix = "> "

	// combatLogDepth bounds the recent-history window sent on combat turns.
	// Exploration turns send the full story instead; combat rounds are
	// frequent and latency-sensitive, exploration is not.
	combatLogDepth = 5

	deathNarration       = "Your wounds overcome you. Darkness closes in, and your story ends here."
	combatEndedNarration = "The fight is over. You catch your breath and survey the aftermath."
	combatContinueChoice = "Continue"
	fallbackRetryChoice  = "Try something else"

	// openingAction is the synthetic action that produces the first scene.
	openingAction = "Set the opening scene and introduce the character's situation."
)

// StateSink receives fully settled snapshots. A turn that fails never reaches
// the sink, so persistence only ever sees consistent states.
type StateSink interface {
	Commit(ctx context.Context, state *models.GameState) error
}

// Resolver is the turn engine. One Process call per session at a time; the
// caller serializes submissions.
type Resolver struct {
	gateway gateway.Gateway
	keys    *keypool.Pool
	events  messaging.EventPublisher
	logger  *zap.Logger
}

// NewResolver wires the turn engine with its collaborators.
func NewResolver(gw gateway.Gateway, keys *keypool.Pool, events messaging.EventPublisher, logger *zap.Logger) *Resolver {
	return &Resolver{
		gateway: gw,
		keys:    keys,
		events:  events,
		logger:  logger.Named("TurnResolver"),
	}
}

// Process resolves one player action against the given snapshot and returns
// the next snapshot. The input state is never mutated. On failure the
// returned state keeps the optimistic action line, restores the pre-turn
// choices and clears the loading flag; nothing is persisted.
func (r *Resolver) Process(ctx context.Context, sink StateSink, current *models.GameState, action string) (*models.GameState, error) {
	if current.IsGameOver {
		return nil, models.ErrGameOver
	}

	log := r.logger.With(zap.Stringer("gameID", current.ID), zap.Bool("isCombat", current.IsCombat))
	log.Info("Processing turn", zap.Int("storyLen", len(current.Story)))

	st := current.Clone()
	prevChoices := append([]string(nil), st.Choices...)

	// Optimistic append: the player's line is visible immediately and stays
	// in place even when the backend call fails.
	st.Story = append(st.Story, playerActionPrefix+action)
	st.Choices = nil
	st.IsLoading = true

	var err error
	if st.IsCombat {
		err = r.processCombat(ctx, log, st, action)
	} else {
		err = r.processExploration(ctx, log, st, action)
	}
	if err != nil {
		if len(prevChoices) == 0 {
			prevChoices = []string{fallbackRetryChoice}
		}
		st.Choices = prevChoices
		st.IsLoading = false
		log.Warn("Turn failed", zap.Error(err))
		return st, err
	}

	r.applyGameOverCheck(ctx, log, st)
	st.IsLoading = false

	if err := sink.Commit(ctx, st); err != nil {
		log.Error("Settled turn could not be persisted", zap.Error(err))
		return st, fmt.Errorf("turn settled but saving failed: %w", err)
	}
	log.Info("Turn settled", zap.Int("storyLen", len(st.Story)), zap.Bool("isGameOver", st.IsGameOver))
	return st, nil
}

// Start generates the opening scene for a fresh game. Unlike Process there
// is no player line to append; the narration simply becomes the first story
// entry.
func (r *Resolver) Start(ctx context.Context, sink StateSink, current *models.GameState) (*models.GameState, error) {
	if current.GameStarted {
		return nil, fmt.Errorf("%w: game already started", models.ErrBadRequest)
	}

	log := r.logger.With(zap.Stringer("gameID", current.ID))
	log.Info("Starting new game",
		zap.String("scenario", current.ScenarioTitle), zap.String("difficulty", current.Difficulty))

	st := current.Clone()
	st.IsLoading = true

	if err := r.processExploration(ctx, log, st, openingAction); err != nil {
		log.Warn("Opening scene generation failed", zap.Error(err))
		return nil, err
	}

	st.GameStarted = true
	st.IsLoading = false
	if err := sink.Commit(ctx, st); err != nil {
		log.Error("Opening scene could not be persisted", zap.Error(err))
		return st, fmt.Errorf("turn settled but saving failed: %w", err)
	}
	log.Info("Game started", zap.Int("storyLen", len(st.Story)))
	return st, nil
}

func (r *Resolver) processExploration(ctx context.Context, log *zap.Logger, st *models.GameState, action string) error {
	serialized, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to serialize game state: %w", err)
	}
	req := gateway.ExplorationRequest{
		GameState:     string(serialized),
		PlayerAction:  action,
		Difficulty:    st.Difficulty,
		GMPersonality: st.GMPersonality,
	}

	var res *gateway.ExplorationResult
	err = r.withCredentialRotation(ctx, log, func(cred models.APIKey) error {
		var callErr error
		res, callErr = r.gateway.AdvanceExploration(ctx, req, cred)
		return callErr
	})
	if err != nil {
		return err
	}

	mergeExploration(st, res)
	r.publishExplorationEvents(ctx, st, res)
	return nil
}

func (r *Resolver) processCombat(ctx context.Context, log *zap.Logger, st *models.GameState, action string) error {
	req := gateway.CombatRequest{
		PlayerAction: action,
		PlayerState:  st.PlayerState,
		Enemies:      st.Enemies,
		CombatLog:    st.LastStoryEntries(combatLogDepth),
	}

	var res *gateway.CombatResult
	err := r.withCredentialRotation(ctx, log, func(cred models.APIKey) error {
		var callErr error
		res, callErr = r.gateway.ResolveCombat(ctx, req, cred)
		return callErr
	})
	if err != nil {
		return err
	}

	loot := mergeCombat(st, res)
	if len(loot) > 0 {
		r.publish(ctx, models.GameEvent{
			Type:   models.EventCombatLoot,
			GameID: st.ID,
			Items:  loot,
		})
	}
	return nil
}

// withCredentialRotation runs call with credentials from the pool, rotating
// on quota failures only. The attempt budget is the number of usable keys at
// entry; attempts are strictly sequential.
func (r *Resolver) withCredentialRotation(ctx context.Context, log *zap.Logger, call func(cred models.APIKey) error) error {
	budget := r.keys.EnabledCount()
	if budget == 0 {
		return models.ErrNoCredentialsAvailable
	}

	attempts := 0
	for {
		cred, ok := r.keys.SelectUsable()
		if !ok {
			return models.ErrAllCredentialsExhausted
		}
		attempts++

		err := call(cred)
		if err == nil {
			r.keys.MarkValid(cred.ID)
			return nil
		}

		if gateway.IsRetryable(err) {
			r.keys.MarkFailed(cred.ID, keypool.FailureQuotaExceeded)
			if attempts >= budget {
				return models.ErrAllCredentialsExhausted
			}
			log.Warn("Credential hit quota, rotating",
				zap.String("keyID", cred.ID), zap.Int("attempt", attempts))
			continue
		}
		if errors.Is(err, gateway.ErrInvalidCredential) {
			r.keys.MarkFailed(cred.ID, keypool.FailureInvalid)
		}
		return err
	}
}

// applyGameOverCheck runs identically after either branch: a merge leaving
// health at or below zero ends the game no matter what the raw response said.
func (r *Resolver) applyGameOverCheck(ctx context.Context, log *zap.Logger, st *models.GameState) {
	if st.PlayerState.Health > 0 || st.IsGameOver {
		return
	}
	st.IsGameOver = true
	st.Story = append(st.Story, deathNarration)
	st.Choices = []string{}
	log.Info("Player died, forcing game over")
	r.publish(ctx, models.GameEvent{
		Type:    models.EventGameOver,
		GameID:  st.ID,
		Message: deathNarration,
	})
}

func (r *Resolver) publishExplorationEvents(ctx context.Context, st *models.GameState, res *gateway.ExplorationResult) {
	markers := []struct {
		kind    models.GameEventType
		payload string
	}{
		{models.EventNewCharacter, res.NewCharacter},
		{models.EventNewQuest, res.NewQuest},
		{models.EventNewLocation, res.NewLocation},
		{models.EventGlobalEvent, res.GlobalEvent},
	}
	for _, m := range markers {
		if m.payload == "" {
			continue
		}
		r.publish(ctx, models.GameEvent{Type: m.kind, GameID: st.ID, Message: m.payload})
	}
}

func (r *Resolver) publish(ctx context.Context, event models.GameEvent) {
	if err := r.events.PublishGameEvent(ctx, event); err != nil {
		r.logger.Warn("Failed to publish game event",
			zap.String("type", string(event.Type)), zap.Error(err))
	}
}
