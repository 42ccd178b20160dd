package engine

import (
	"adventure-server/internal/gateway"
	"adventure-server/internal/models"
)

// mergeExploration folds an exploration result into the snapshot. Every list
// is an authoritative wholesale replacement; keeping inventory and discovered
// locations complete is the model's responsibility, not enforced here.
func mergeExploration(st *models.GameState, res *gateway.ExplorationResult) {
	st.Story = append(st.Story, res.Story)
	st.PlayerState = res.PlayerState
	st.Inventory = orEmpty(res.Inventory)
	st.Skills = orEmpty(res.Skills)
	st.Quests = orEmpty(res.Quests)
	st.Choices = orEmpty(res.Choices)
	st.WorldState = res.WorldState
	st.CurrentLocation = res.CurrentLocation
	st.DiscoveredLocations = orEmpty(res.DiscoveredLocations)
	st.SceneEntities = orEmpty(res.SceneEntities)
	st.Companions = orEmpty(res.Companions)
	st.IsCombat = res.IsCombat
	st.Enemies = res.Enemies
	st.ActiveEffects = res.ActiveEffects
	if st.ActiveEffects == nil {
		st.ActiveEffects = []models.ActiveEffect{}
	}
	if res.ImagePrompt != "" {
		st.ImagePrompt = res.ImagePrompt
	}
}

// mergeCombat folds a combat round in: narration first, then either the
// combat-ended epilogue (loot concatenated onto inventory, synthetic continue
// choice) or the ongoing-fight update with the model's choices verbatim.
// Returns the looted items, if any, for the loot notification.
func mergeCombat(st *models.GameState, res *gateway.CombatResult) []string {
	st.Story = append(st.Story, res.TurnNarration)
	st.PlayerState = res.UpdatedPlayerState

	if !res.IsCombatOver {
		st.IsCombat = true
		st.Enemies = res.UpdatedEnemies
		st.Choices = orEmpty(res.Choices)
		return nil
	}

	st.Story = append(st.Story, combatEndedNarration)
	var loot []string
	if res.Rewards != nil && len(res.Rewards.Items) > 0 {
		loot = res.Rewards.Items
		// Concatenation, no dedup: inventory is a multiset.
		st.Inventory = append(st.Inventory, loot...)
	}
	st.IsCombat = false
	st.Enemies = nil
	st.Choices = []string{combatContinueChoice}
	return loot
}

// removeFirstMatch removes one instance of item from inventory, leaving any
// duplicates in place.
func removeFirstMatch(inventory []string, item string) []string {
	for i, v := range inventory {
		if v == item {
			return append(inventory[:i:i], inventory[i+1:]...)
		}
	}
	return inventory
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
