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

// Manager tracks live sessions by game id and restores them from saves on
// demand. Each id maps to at most one live session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	saves  storage.SaveRepository
	fame   storage.HallOfFameRepository
	logger *zap.Logger
}

func NewManager(saves storage.SaveRepository, fame storage.HallOfFameRepository, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		saves:    saves,
		fame:     fame,
		logger:   logger.Named("SessionManager"),
	}
}

// Create starts a live session around a fresh game state.
func (m *Manager) Create(st *models.GameState) *Session {
	sess := newSession(st, m.saves, m.fame, m.logger)
	m.mu.Lock()
	m.sessions[st.ID] = sess
	m.mu.Unlock()
	m.logger.Info("Session created", zap.Stringer("gameID", st.ID))
	return sess
}

// Get returns the live session for id, or models.ErrSessionNotFound.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return sess, nil
}

// Load returns the live session for id, restoring it from the save
// repository when none is resident.
func (m *Manager) Load(ctx context.Context, id uuid.UUID) (*Session, error) {
	if sess, err := m.Get(id); err == nil {
		return sess, nil
	}

	save, err := m.saves.LoadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if save.State == nil {
		return nil, fmt.Errorf("save %s has no state payload: %w", id, models.ErrNotFound)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored it while we were loading.
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	sess := newSession(save.State, m.saves, m.fame, m.logger)
	m.sessions[id] = sess
	m.logger.Info("Session restored from save", zap.Stringer("gameID", id))
	return sess, nil
}

// Remove drops the live session for id, if any. The persisted save is not
// touched.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
