package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adventure-server/internal/models"
	"adventure-server/internal/storage"
)

// Session is one live playthrough. It owns the authoritative state snapshot,
// serializes turns (one in flight at a time), and persists settled states
// through the save repository. When a commit first carries a finished game,
// the session writes the hall of fame entry; the repository's write-once
// semantics keep replays from producing duplicates.
type Session struct {
	mu           sync.Mutex
	id           uuid.UUID
	current      *models.GameState
	inFlight     bool
	fameRecorded bool

	saves  storage.SaveRepository
	fame   storage.HallOfFameRepository
	logger *zap.Logger
}

func newSession(st *models.GameState, saves storage.SaveRepository, fame storage.HallOfFameRepository, logger *zap.Logger) *Session {
	return &Session{
		id:      st.ID,
		current: st,
		// A loaded game that already ended has its entry on record.
		fameRecorded: st.IsGameOver,
		saves:        saves,
		fame:         fame,
		logger:       logger.Named("Session").With(zap.Stringer("gameID", st.ID)),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// State returns a deep copy of the current snapshot.
func (s *Session) State() *models.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// BeginTurn claims the session's single turn slot and returns a working copy
// of the current state. Callers must release the slot with EndTurn.
func (s *Session) BeginTurn() (*models.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return nil, models.ErrTurnInProgress
	}
	s.inFlight = true
	return s.current.Clone(), nil
}

func (s *Session) EndTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// Adopt replaces the current snapshot without persisting it. Used for the
// state a failed turn leaves behind: the player's line stays visible, but
// only settled turns reach storage.
func (s *Session) Adopt(st *models.GameState) {
	if st == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = st
}

// Commit makes st the current snapshot and persists it. Only settled states
// arrive here; mid-turn intermediates are never written.
func (s *Session) Commit(ctx context.Context, st *models.GameState) error {
	s.mu.Lock()
	s.current = st
	recordFame := st.IsGameOver && !s.fameRecorded
	if recordFame {
		s.fameRecorded = true
	}
	s.mu.Unlock()

	if recordFame {
		entry := &models.HallOfFameEntry{
			ID:            st.ID,
			CharacterName: st.CharacterName,
			ScenarioTitle: st.ScenarioTitle,
			Outcome:       lastStoryLine(st),
			DaysSurvived:  st.WorldState.Day,
		}
		if err := s.fame.Record(ctx, entry); err != nil {
			// The run still ends; the leaderboard entry is best effort.
			s.logger.Error("Failed to record hall of fame entry", zap.Error(err))
		}
	}

	save := &models.SaveFile{
		ID:            st.ID,
		CharacterName: st.CharacterName,
		ScenarioTitle: st.ScenarioTitle,
		State:         st,
	}
	if err := s.saves.SaveGame(ctx, save); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", s.id, err)
	}
	return nil
}

func lastStoryLine(st *models.GameState) string {
	if len(st.Story) == 0 {
		return ""
	}
	return st.Story[len(st.Story)-1]
}
