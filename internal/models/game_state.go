package models

import "github.com/google/uuid"

// Difficulty levels accepted at game creation.
const (
	DifficultyEasy   = "easy"
	DifficultyNormal = "normal"
	DifficultyHard   = "hard"
)

// PlayerState holds the character's vitals. Values are conceptually 0..100 but
// are not clamped here; the narrator model is trusted to return sane numbers.
type PlayerState struct {
	Health  int  `json:"health"`
	Sanity  int  `json:"sanity"`
	Hunger  int  `json:"hunger"`
	Thirst  int  `json:"thirst"`
	Stamina *int `json:"stamina,omitempty"`
	Mana    *int `json:"mana,omitempty"`
	AP      *int `json:"ap,omitempty"`
	MaxAP   *int `json:"maxAp,omitempty"`
}

// Enemy is a combatant present while the session is in combat mode.
type Enemy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Health      int    `json:"health"`
	MaxHealth   int    `json:"maxHealth,omitempty"`
	Description string `json:"description,omitempty"`
}

// WorldState tracks the passage of in-game time.
type WorldState struct {
	Day       int    `json:"day"`
	TimeOfDay string `json:"timeOfDay"`
	Weather   string `json:"weather,omitempty"`
}

// ActiveEffect is a named buff or debuff with a human-readable description.
type ActiveEffect struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GameState is the full snapshot of one play session. It is owned by the
// session store (single writer); the turn resolver works on a Clone and hands
// back a new snapshot only when the turn settles or fails.
type GameState struct {
	ID uuid.UUID `json:"id"`

	// Immutable scenario configuration, captured at creation.
	CharacterName string `json:"characterName"`
	ScenarioTitle string `json:"scenarioTitle"`
	Difficulty    string `json:"difficulty"`
	GMPersonality string `json:"gmPersonality"`

	Story               []string       `json:"story"`
	PlayerState         PlayerState    `json:"playerState"`
	Inventory           []string       `json:"inventory"`
	Skills              []string       `json:"skills"`
	Quests              []string       `json:"quests"`
	Choices             []string       `json:"choices"`
	CurrentLocation     string         `json:"currentLocation"`
	DiscoveredLocations []string       `json:"discoveredLocations"`
	SceneEntities       []string       `json:"sceneEntities"`
	Companions          []string       `json:"companions"`
	WorldState          WorldState     `json:"worldState"`
	ActiveEffects       []ActiveEffect `json:"activeEffects"`

	IsCombat bool    `json:"isCombat"`
	Enemies  []Enemy `json:"enemies,omitempty"`

	// Side channel from the exploration flow; carried but not interpreted.
	ImagePrompt string `json:"imagePrompt,omitempty"`

	// Session lifecycle flags.
	IsGameOver  bool `json:"isGameOver"`
	GameStarted bool `json:"gameStarted"`
	IsLoading   bool `json:"isLoading"`
}

// NewGameState builds a fresh, not-yet-started session snapshot with a new
// id and baseline vitals.
func NewGameState(characterName, scenarioTitle, difficulty, gmPersonality string) *GameState {
	return &GameState{
		ID:            uuid.New(),
		CharacterName: characterName,
		ScenarioTitle: scenarioTitle,
		Difficulty:    difficulty,
		GMPersonality: gmPersonality,
		Story:         []string{},
		PlayerState:   PlayerState{Health: 100, Sanity: 100, Hunger: 100, Thirst: 100},
		Inventory:     []string{},
		Skills:        []string{},
		Quests:        []string{},
		Choices:       []string{},
		WorldState:    WorldState{Day: 1, TimeOfDay: "morning"},
	}
}

// Clone returns a deep copy of the state. Slices are copied so a failed turn
// cannot leave partial mutations behind in the caller's snapshot.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Story = append([]string(nil), s.Story...)
	c.Inventory = append([]string(nil), s.Inventory...)
	c.Skills = append([]string(nil), s.Skills...)
	c.Quests = append([]string(nil), s.Quests...)
	c.Choices = append([]string(nil), s.Choices...)
	c.DiscoveredLocations = append([]string(nil), s.DiscoveredLocations...)
	c.SceneEntities = append([]string(nil), s.SceneEntities...)
	c.Companions = append([]string(nil), s.Companions...)
	c.Enemies = append([]Enemy(nil), s.Enemies...)
	c.ActiveEffects = append([]ActiveEffect(nil), s.ActiveEffects...)
	c.PlayerState = s.PlayerState.clone()
	return &c
}

func (p PlayerState) clone() PlayerState {
	c := p
	c.Stamina = cloneIntPtr(p.Stamina)
	c.Mana = cloneIntPtr(p.Mana)
	c.AP = cloneIntPtr(p.AP)
	c.MaxAP = cloneIntPtr(p.MaxAP)
	return c
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// LastStoryEntries returns up to n most recent story lines, oldest first.
// Used as the bounded combat log; exploration sends the full history.
func (s *GameState) LastStoryEntries(n int) []string {
	if n <= 0 || len(s.Story) == 0 {
		return nil
	}
	if len(s.Story) <= n {
		return append([]string(nil), s.Story...)
	}
	return append([]string(nil), s.Story[len(s.Story)-n:]...)
}
