package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"adventure-server/internal/models"
)

var (
	_ SaveRepository       = (*MemorySaveRepository)(nil)
	_ HallOfFameRepository = (*MemoryHallOfFameRepository)(nil)
)

// MemorySaveRepository keeps saves in a map. Used when no database is
// configured and in tests.
type MemorySaveRepository struct {
	mu    sync.RWMutex
	saves map[uuid.UUID]*models.SaveFile
}

func NewMemorySaveRepository() *MemorySaveRepository {
	return &MemorySaveRepository{saves: make(map[uuid.UUID]*models.SaveFile)}
}

func (r *MemorySaveRepository) SaveGame(_ context.Context, save *models.SaveFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	save.SavedAt = time.Now().UTC()
	stored := *save
	if save.State != nil {
		stored.State = save.State.Clone()
	}
	r.saves[save.ID] = &stored
	return nil
}

func (r *MemorySaveRepository) LoadGame(_ context.Context, id uuid.UUID) (*models.SaveFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.saves[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *stored
	if stored.State != nil {
		out.State = stored.State.Clone()
	}
	return &out, nil
}

func (r *MemorySaveRepository) ListSaves(_ context.Context) ([]models.SaveSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summaries := make([]models.SaveSummary, 0, len(r.saves))
	for _, s := range r.saves {
		summaries = append(summaries, models.SaveSummary{
			ID:            s.ID,
			CharacterName: s.CharacterName,
			ScenarioTitle: s.ScenarioTitle,
			SavedAt:       s.SavedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SavedAt.After(summaries[j].SavedAt)
	})
	return summaries, nil
}

func (r *MemorySaveRepository) DeleteSave(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.saves[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.saves, id)
	return nil
}

// MemoryHallOfFameRepository keeps finished-run entries in a map, write-once
// per id like its PostgreSQL counterpart.
type MemoryHallOfFameRepository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]models.HallOfFameEntry
}

func NewMemoryHallOfFameRepository() *MemoryHallOfFameRepository {
	return &MemoryHallOfFameRepository{entries: make(map[uuid.UUID]models.HallOfFameEntry)}
}

func (r *MemoryHallOfFameRepository) Record(_ context.Context, entry *models.HallOfFameEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.ID]; ok {
		return nil
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	r.entries[entry.ID] = *entry
	return nil
}

func (r *MemoryHallOfFameRepository) List(_ context.Context) ([]models.HallOfFameEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]models.HallOfFameEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DaysSurvived != entries[j].DaysSurvived {
			return entries[i].DaysSurvived > entries[j].DaysSurvived
		}
		return entries[i].RecordedAt.After(entries[j].RecordedAt)
	})
	return entries, nil
}
