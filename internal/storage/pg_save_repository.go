package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

const (
	upsertSaveQuery = `
        INSERT INTO game_saves (id, character_name, scenario_title, saved_at, state)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            character_name = EXCLUDED.character_name,
            scenario_title = EXCLUDED.scenario_title,
            saved_at = EXCLUDED.saved_at,
            state = EXCLUDED.state
    `
	getSaveQuery = `
        SELECT id, character_name, scenario_title, saved_at, state
        FROM game_saves
        WHERE id = $1
    `
	listSavesQuery = `
        SELECT id, character_name, scenario_title, saved_at
        FROM game_saves
        ORDER BY saved_at DESC
    `
	deleteSaveQuery = `DELETE FROM game_saves WHERE id = $1`
)

var _ SaveRepository = (*pgSaveRepository)(nil)

type pgSaveRepository struct {
	db     Querier
	logger *zap.Logger
}

// NewPgSaveRepository creates the PostgreSQL-backed save repository.
func NewPgSaveRepository(db Querier, logger *zap.Logger) SaveRepository {
	return &pgSaveRepository{
		db:     db,
		logger: logger.Named("PgSaveRepo"),
	}
}

func (r *pgSaveRepository) SaveGame(ctx context.Context, save *models.SaveFile) error {
	save.SavedAt = time.Now().UTC()

	payload, err := json.Marshal(save.State)
	if err != nil {
		return fmt.Errorf("failed to serialize game state for save %s: %w", save.ID, err)
	}

	_, err = r.db.Exec(ctx, upsertSaveQuery,
		save.ID,
		save.CharacterName,
		save.ScenarioTitle,
		save.SavedAt,
		payload,
	)
	if err != nil {
		r.logger.Error("Failed to upsert game save",
			zap.String("saveID", save.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to save game %s: %w", save.ID, err)
	}

	r.logger.Debug("Game save written", zap.String("saveID", save.ID.String()))
	return nil
}

func (r *pgSaveRepository) LoadGame(ctx context.Context, id uuid.UUID) (*models.SaveFile, error) {
	var (
		save    models.SaveFile
		payload []byte
	)
	err := r.db.QueryRow(ctx, getSaveQuery, id).Scan(
		&save.ID,
		&save.CharacterName,
		&save.ScenarioTitle,
		&save.SavedAt,
		&payload,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to load game save",
			zap.String("saveID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to load game %s: %w", id, err)
	}

	save.State = &models.GameState{}
	if err := json.Unmarshal(payload, save.State); err != nil {
		r.logger.Error("Stored game state is unreadable",
			zap.String("saveID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to decode stored state for %s: %w", id, err)
	}
	return &save, nil
}

func (r *pgSaveRepository) ListSaves(ctx context.Context) ([]models.SaveSummary, error) {
	rows, err := r.db.Query(ctx, listSavesQuery)
	if err != nil {
		r.logger.Error("Failed to list game saves", zap.Error(err))
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.SaveSummary, 0)
	for rows.Next() {
		var s models.SaveSummary
		if err := rows.Scan(&s.ID, &s.CharacterName, &s.ScenarioTitle, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan save summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while reading save summaries: %w", err)
	}
	return summaries, nil
}

func (r *pgSaveRepository) DeleteSave(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteSaveQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete game save",
			zap.String("saveID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to delete save %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Game save deleted", zap.String("saveID", id.String()))
	return nil
}
