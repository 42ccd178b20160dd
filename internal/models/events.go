package models

import "github.com/google/uuid"

// GameEventType names the discrete notifications a settled turn can emit.
type GameEventType string

const (
	EventNewCharacter GameEventType = "new_character"
	EventNewQuest     GameEventType = "new_quest"
	EventNewLocation  GameEventType = "new_location"
	EventGlobalEvent  GameEventType = "global_event"
	EventCombatLoot   GameEventType = "combat_loot"
	EventGameOver     GameEventType = "game_over"
)

// GameEvent is a side-notification observed by the UI layer. It is not part
// of the game state; losing one does not corrupt a session.
type GameEvent struct {
	Type    GameEventType `json:"type"`
	GameID  uuid.UUID     `json:"gameId"`
	Message string        `json:"message,omitempty"`
	Items   []string      `json:"items,omitempty"`
}
