package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"adventure-server/internal/models"
)

// Request payloads, one per operation. These are serialized verbatim as the
// user message; the matching system prompt describes the expected reply shape.

// ExplorationRequest carries the full serialized state as model context.
type ExplorationRequest struct {
	GameState     string `json:"gameState"`
	PlayerAction  string `json:"playerAction"`
	Difficulty    string `json:"difficulty"`
	GMPersonality string `json:"gmPersonality"`
}

// CombatRequest is deliberately narrower: only the vitals, the enemies, and a
// bounded recent log, keeping request size flat during long fights.
type CombatRequest struct {
	PlayerAction string             `json:"playerAction"`
	PlayerState  models.PlayerState `json:"playerState"`
	Enemies      []models.Enemy     `json:"enemies"`
	CombatLog    []string           `json:"combatLog"`
}

// CraftRequest describes an item-combination attempt.
type CraftRequest struct {
	Ingredients  []string `json:"ingredients"`
	PlayerSkills []string `json:"playerSkills"`
}

// ExplorationResult is the validated reply of an exploration turn. List
// fields replace their state counterparts wholesale on merge.
type ExplorationResult struct {
	Story               string                `json:"story"`
	PlayerState         models.PlayerState    `json:"playerState"`
	Inventory           []string              `json:"inventory"`
	Skills              []string              `json:"skills"`
	Quests              []string              `json:"quests"`
	Choices             []string              `json:"choices"`
	WorldState          models.WorldState     `json:"worldState"`
	CurrentLocation     string                `json:"currentLocation"`
	DiscoveredLocations []string              `json:"discoveredLocations"`
	SceneEntities       []string              `json:"sceneEntities"`
	Companions          []string              `json:"companions"`
	IsCombat            bool                  `json:"isCombat"`
	Enemies             []models.Enemy        `json:"enemies"`
	ActiveEffects       []models.ActiveEffect `json:"activeEffects"`
	NewCharacter        string                `json:"newCharacter,omitempty"`
	NewQuest            string                `json:"newQuest,omitempty"`
	NewLocation         string                `json:"newLocation,omitempty"`
	GlobalEvent         string                `json:"globalEvent,omitempty"`
	ImagePrompt         string                `json:"imagePrompt,omitempty"`
}

// CombatRewards is loot granted when a fight ends.
type CombatRewards struct {
	Items      []string `json:"items,omitempty"`
	Experience int      `json:"experience,omitempty"`
}

// CombatResult is the validated reply of a combat turn.
type CombatResult struct {
	TurnNarration      string             `json:"turnNarration"`
	UpdatedPlayerState models.PlayerState `json:"updatedPlayerState"`
	UpdatedEnemies     []models.Enemy     `json:"updatedEnemies"`
	Choices            []string           `json:"choices"`
	IsCombatOver       bool               `json:"isCombatOver"`
	Rewards            *CombatRewards     `json:"rewards,omitempty"`
}

// CraftResult is the validated reply of a crafting attempt.
type CraftResult struct {
	Success       bool     `json:"success"`
	ConsumedItems []string `json:"consumedItems"`
	CreatedItem   string   `json:"createdItem,omitempty"`
	Message       string   `json:"message"`
}

// Wire shapes use pointers for required fields so a missing key is
// distinguishable from a zero value and fails fast as ErrMalformedResponse
// instead of defaulting silently.

type explorationWire struct {
	Story               *string               `json:"story"`
	PlayerState         *models.PlayerState   `json:"playerState"`
	Inventory           []string              `json:"inventory"`
	Skills              []string              `json:"skills"`
	Quests              []string              `json:"quests"`
	Choices             []string              `json:"choices"`
	WorldState          *models.WorldState    `json:"worldState"`
	CurrentLocation     *string               `json:"currentLocation"`
	DiscoveredLocations []string              `json:"discoveredLocations"`
	SceneEntities       []string              `json:"sceneEntities"`
	Companions          []string              `json:"companions"`
	IsCombat            bool                  `json:"isCombat"`
	Enemies             []models.Enemy        `json:"enemies"`
	ActiveEffects       []models.ActiveEffect `json:"activeEffects"`
	NewCharacter        string                `json:"newCharacter"`
	NewQuest            string                `json:"newQuest"`
	NewLocation         string                `json:"newLocation"`
	GlobalEvent         string                `json:"globalEvent"`
	ImagePrompt         string                `json:"imagePrompt"`
}

func parseExplorationResult(raw string) (*ExplorationResult, error) {
	var w explorationWire
	if err := json.Unmarshal([]byte(extractJSON(raw)), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var missing []string
	if w.Story == nil || *w.Story == "" {
		missing = append(missing, "story")
	}
	if w.PlayerState == nil {
		missing = append(missing, "playerState")
	}
	if w.Choices == nil {
		missing = append(missing, "choices")
	}
	if w.WorldState == nil {
		missing = append(missing, "worldState")
	}
	if w.CurrentLocation == nil || *w.CurrentLocation == "" {
		missing = append(missing, "currentLocation")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}
	if w.IsCombat && len(w.Enemies) == 0 {
		return nil, fmt.Errorf("%w: isCombat set with no enemies", ErrMalformedResponse)
	}
	return &ExplorationResult{
		Story:               *w.Story,
		PlayerState:         *w.PlayerState,
		Inventory:           w.Inventory,
		Skills:              w.Skills,
		Quests:              w.Quests,
		Choices:             w.Choices,
		WorldState:          *w.WorldState,
		CurrentLocation:     *w.CurrentLocation,
		DiscoveredLocations: w.DiscoveredLocations,
		SceneEntities:       w.SceneEntities,
		Companions:          w.Companions,
		IsCombat:            w.IsCombat,
		Enemies:             w.Enemies,
		ActiveEffects:       w.ActiveEffects,
		NewCharacter:        w.NewCharacter,
		NewQuest:            w.NewQuest,
		NewLocation:         w.NewLocation,
		GlobalEvent:         w.GlobalEvent,
		ImagePrompt:         w.ImagePrompt,
	}, nil
}

type combatWire struct {
	TurnNarration      *string             `json:"turnNarration"`
	UpdatedPlayerState *models.PlayerState `json:"updatedPlayerState"`
	UpdatedEnemies     []models.Enemy      `json:"updatedEnemies"`
	Choices            []string            `json:"choices"`
	IsCombatOver       *bool               `json:"isCombatOver"`
	Rewards            *CombatRewards      `json:"rewards"`
}

func parseCombatResult(raw string) (*CombatResult, error) {
	var w combatWire
	if err := json.Unmarshal([]byte(extractJSON(raw)), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var missing []string
	if w.TurnNarration == nil || *w.TurnNarration == "" {
		missing = append(missing, "turnNarration")
	}
	if w.UpdatedPlayerState == nil {
		missing = append(missing, "updatedPlayerState")
	}
	if w.IsCombatOver == nil {
		missing = append(missing, "isCombatOver")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}
	if !*w.IsCombatOver {
		if len(w.UpdatedEnemies) == 0 {
			return nil, fmt.Errorf("%w: ongoing combat with no updatedEnemies", ErrMalformedResponse)
		}
		if len(w.Choices) == 0 {
			return nil, fmt.Errorf("%w: ongoing combat with no choices", ErrMalformedResponse)
		}
	}
	return &CombatResult{
		TurnNarration:      *w.TurnNarration,
		UpdatedPlayerState: *w.UpdatedPlayerState,
		UpdatedEnemies:     w.UpdatedEnemies,
		Choices:            w.Choices,
		IsCombatOver:       *w.IsCombatOver,
		Rewards:            w.Rewards,
	}, nil
}

type craftWire struct {
	Success       *bool    `json:"success"`
	ConsumedItems []string `json:"consumedItems"`
	CreatedItem   string   `json:"createdItem"`
	Message       *string  `json:"message"`
}

func parseCraftResult(raw string) (*CraftResult, error) {
	var w craftWire
	if err := json.Unmarshal([]byte(extractJSON(raw)), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var missing []string
	if w.Success == nil {
		missing = append(missing, "success")
	}
	if w.Message == nil || *w.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}
	if *w.Success && len(w.ConsumedItems) == 0 {
		return nil, fmt.Errorf("%w: successful craft with no consumedItems", ErrMalformedResponse)
	}
	return &CraftResult{
		Success:       *w.Success,
		ConsumedItems: w.ConsumedItems,
		CreatedItem:   w.CreatedItem,
		Message:       *w.Message,
	}, nil
}

// extractJSON strips markdown code fences and surrounding prose that models
// sometimes wrap around the JSON body.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
