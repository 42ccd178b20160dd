package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"adventure-server/internal/gateway"
	"adventure-server/internal/models"
)

// Craft resolves an item-combination attempt through the same credential
// rotation as a turn. On success one instance of each consumed item is
// removed (first match, duplicates survive), the created item is appended,
// and a single narrative line records the outcome either way. When no
// response could be obtained at all, the inventory is left untouched.
func (r *Resolver) Craft(ctx context.Context, sink StateSink, current *models.GameState, ingredients []string) (*models.GameState, error) {
	if current.IsGameOver {
		return nil, models.ErrGameOver
	}

	log := r.logger.With(zap.Stringer("gameID", current.ID))
	log.Info("Processing craft attempt", zap.Strings("ingredients", ingredients))

	req := gateway.CraftRequest{
		Ingredients:  ingredients,
		PlayerSkills: current.Skills,
	}

	var res *gateway.CraftResult
	err := r.withCredentialRotation(ctx, log, func(cred models.APIKey) error {
		var callErr error
		res, callErr = r.gateway.CraftItem(ctx, req, cred)
		return callErr
	})
	if err != nil {
		log.Warn("Craft attempt failed", zap.Error(err))
		return nil, err
	}

	st := current.Clone()
	for _, item := range res.ConsumedItems {
		st.Inventory = removeFirstMatch(st.Inventory, item)
	}
	if res.Success && res.CreatedItem != "" {
		st.Inventory = append(st.Inventory, res.CreatedItem)
	}
	st.Story = append(st.Story, res.Message)

	if err := sink.Commit(ctx, st); err != nil {
		log.Error("Settled craft could not be persisted", zap.Error(err))
		return st, fmt.Errorf("craft settled but saving failed: %w", err)
	}
	log.Info("Craft settled",
		zap.Bool("success", res.Success), zap.String("createdItem", res.CreatedItem))
	return st, nil
}
