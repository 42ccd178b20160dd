package models

import (
	"time"

	"github.com/google/uuid"
)

// SaveFile is one persisted session snapshot. There is at most one save per
// session id; saving again overwrites the previous snapshot.
type SaveFile struct {
	ID            uuid.UUID  `json:"id"`
	CharacterName string     `json:"characterName"`
	ScenarioTitle string     `json:"scenarioTitle"`
	SavedAt       time.Time  `json:"savedAt"`
	State         *GameState `json:"state,omitempty"`
}

// SaveSummary is the listing row: the denormalized fields without the payload.
type SaveSummary struct {
	ID            uuid.UUID `json:"id"`
	CharacterName string    `json:"characterName"`
	ScenarioTitle string    `json:"scenarioTitle"`
	SavedAt       time.Time `json:"savedAt"`
}

// HallOfFameEntry records a finished run. Written at most once per session id.
type HallOfFameEntry struct {
	ID            uuid.UUID `json:"id"`
	CharacterName string    `json:"characterName"`
	ScenarioTitle string    `json:"scenarioTitle"`
	Outcome       string    `json:"outcome"`
	DaysSurvived  int       `json:"daysSurvived"`
	RecordedAt    time.Time `json:"recordedAt"`
}
