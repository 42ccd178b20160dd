package gateway

import (
	"errors"
	"net/http"
	"testing"

	openaigo "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validExplorationJSON = `{
	"story": "You push through the thicket and find a ruined watchtower.",
	"playerState": {"health": 90, "sanity": 80, "hunger": 60, "thirst": 55},
	"inventory": ["Rusty Knife", "Waterskin"],
	"skills": ["Foraging"],
	"quests": ["Find shelter before nightfall"],
	"choices": ["Climb the tower", "Search the rubble", "Move on"],
	"worldState": {"day": 2, "timeOfDay": "dusk", "weather": "overcast"},
	"currentLocation": "Ruined Watchtower",
	"discoveredLocations": ["Forest Edge", "Ruined Watchtower"],
	"sceneEntities": ["Crows"],
	"companions": [],
	"activeEffects": [],
	"newLocation": "Ruined Watchtower"
}`

func TestParseExplorationResult(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		res, err := parseExplorationResult(validExplorationJSON)
		require.NoError(t, err)
		assert.Equal(t, "Ruined Watchtower", res.CurrentLocation)
		assert.Equal(t, 90, res.PlayerState.Health)
		assert.Len(t, res.Choices, 3)
		assert.Equal(t, "Ruined Watchtower", res.NewLocation)
		assert.False(t, res.IsCombat)
	})

	t.Run("markdown fenced response", func(t *testing.T) {
		res, err := parseExplorationResult("```json\n" + validExplorationJSON + "\n```")
		require.NoError(t, err)
		assert.Equal(t, 2, res.WorldState.Day)
	})

	t.Run("missing required field is malformed", func(t *testing.T) {
		_, err := parseExplorationResult(`{"story": "something happened", "choices": []}`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedResponse)
		assert.Contains(t, err.Error(), "playerState")
	})

	t.Run("combat without enemies is malformed", func(t *testing.T) {
		_, err := parseExplorationResult(`{
			"story": "A goblin leaps out!",
			"playerState": {"health": 90, "sanity": 80, "hunger": 60, "thirst": 55},
			"choices": ["Fight"],
			"worldState": {"day": 1, "timeOfDay": "night"},
			"currentLocation": "Forest",
			"isCombat": true
		}`)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("not JSON at all", func(t *testing.T) {
		_, err := parseExplorationResult("The goblin attacks you for 5 damage.")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestParseCombatResult(t *testing.T) {
	t.Run("ongoing combat", func(t *testing.T) {
		res, err := parseCombatResult(`{
			"turnNarration": "Your blade bites into the goblin's shoulder.",
			"updatedPlayerState": {"health": 85, "sanity": 80, "hunger": 60, "thirst": 55, "ap": 2, "maxAp": 6},
			"updatedEnemies": [{"id": "g1", "name": "Goblin", "health": 8}],
			"choices": ["Attack (2 AP)", "Defend (1 AP)"],
			"isCombatOver": false
		}`)
		require.NoError(t, err)
		assert.False(t, res.IsCombatOver)
		require.NotNil(t, res.UpdatedPlayerState.AP)
		assert.Equal(t, 2, *res.UpdatedPlayerState.AP)
		assert.Len(t, res.UpdatedEnemies, 1)
	})

	t.Run("combat over with rewards", func(t *testing.T) {
		res, err := parseCombatResult(`{
			"turnNarration": "The goblin collapses.",
			"updatedPlayerState": {"health": 80, "sanity": 80, "hunger": 60, "thirst": 55},
			"updatedEnemies": [],
			"choices": [],
			"isCombatOver": true,
			"rewards": {"items": ["Goblin Ear"], "experience": 25}
		}`)
		require.NoError(t, err)
		assert.True(t, res.IsCombatOver)
		require.NotNil(t, res.Rewards)
		assert.Equal(t, []string{"Goblin Ear"}, res.Rewards.Items)
	})

	t.Run("ongoing combat requires enemies and choices", func(t *testing.T) {
		_, err := parseCombatResult(`{
			"turnNarration": "The fight rages on.",
			"updatedPlayerState": {"health": 80, "sanity": 80, "hunger": 60, "thirst": 55},
			"isCombatOver": false
		}`)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("missing isCombatOver is malformed, not defaulted", func(t *testing.T) {
		_, err := parseCombatResult(`{
			"turnNarration": "You swing wide.",
			"updatedPlayerState": {"health": 80, "sanity": 80, "hunger": 60, "thirst": 55},
			"updatedEnemies": [{"id": "g1", "name": "Goblin", "health": 20}],
			"choices": ["Attack"]
		}`)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestParseCraftResult(t *testing.T) {
	t.Run("successful craft", func(t *testing.T) {
		res, err := parseCraftResult(`{
			"success": true,
			"consumedItems": ["Stick", "Flint"],
			"createdItem": "Flint Axe",
			"message": "You lash the flint to the stick and get a crude axe."
		}`)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "Flint Axe", res.CreatedItem)
	})

	t.Run("failed craft keeps message", func(t *testing.T) {
		res, err := parseCraftResult(`{
			"success": false,
			"consumedItems": [],
			"message": "The mushroom and the rope refuse to become anything useful."
		}`)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Empty(t, res.ConsumedItems)
	})

	t.Run("success without consumed items is malformed", func(t *testing.T) {
		_, err := parseCraftResult(`{"success": true, "message": "done"}`)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestClassifyOpenAIError(t *testing.T) {
	t.Run("429 is quota", func(t *testing.T) {
		err := classifyOpenAIError(&openaigo.APIError{HTTPStatusCode: http.StatusTooManyRequests}, "k1")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		assert.True(t, IsRetryable(err))
	})

	t.Run("provider unavailable is quota", func(t *testing.T) {
		err := classifyOpenAIError(&openaigo.APIError{HTTPStatusCode: http.StatusServiceUnavailable}, "k1")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("insufficient_quota code is quota", func(t *testing.T) {
		err := classifyOpenAIError(&openaigo.APIError{HTTPStatusCode: http.StatusBadRequest, Code: "insufficient_quota"}, "k1")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("401 is an invalid credential, not quota", func(t *testing.T) {
		err := classifyOpenAIError(&openaigo.APIError{HTTPStatusCode: http.StatusUnauthorized}, "k1")
		assert.ErrorIs(t, err, ErrInvalidCredential)
		assert.False(t, IsRetryable(err))
	})

	t.Run("server error is non-retryable", func(t *testing.T) {
		err := classifyOpenAIError(&openaigo.APIError{HTTPStatusCode: http.StatusInternalServerError}, "k1")
		assert.ErrorIs(t, err, ErrNonRetryable)
		assert.False(t, IsRetryable(err))
	})

	t.Run("plain transport error is non-retryable", func(t *testing.T) {
		err := classifyOpenAIError(errors.New("connection refused"), "k1")
		assert.ErrorIs(t, err, ErrNonRetryable)
	})
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("Here you go:\n```json\n{\"a\":1}\n```\nEnjoy!"))
	assert.Equal(t, `{"a":1}`, extractJSON(`{"a":1}`))
	assert.Equal(t, `{"a": {"b": 2}}`, extractJSON(`noise {"a": {"b": 2}} trailing`))
}
