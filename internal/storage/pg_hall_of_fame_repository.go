package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"adventure-server/internal/models"
)

const (
	insertFameEntryQuery = `
        INSERT INTO hall_of_fame (id, character_name, scenario_title, outcome, days_survived, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING
    `
	listFameEntriesQuery = `
        SELECT id, character_name, scenario_title, outcome, days_survived, recorded_at
        FROM hall_of_fame
        ORDER BY days_survived DESC, recorded_at DESC
    `
)

var _ HallOfFameRepository = (*pgHallOfFameRepository)(nil)

type pgHallOfFameRepository struct {
	db     Querier
	logger *zap.Logger
}

// NewPgHallOfFameRepository creates the PostgreSQL-backed hall of fame
// repository. Record relies on the primary key for its write-once guarantee.
func NewPgHallOfFameRepository(db Querier, logger *zap.Logger) HallOfFameRepository {
	return &pgHallOfFameRepository{
		db:     db,
		logger: logger.Named("PgHallOfFameRepo"),
	}
}

func (r *pgHallOfFameRepository) Record(ctx context.Context, entry *models.HallOfFameEntry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	tag, err := r.db.Exec(ctx, insertFameEntryQuery,
		entry.ID,
		entry.CharacterName,
		entry.ScenarioTitle,
		entry.Outcome,
		entry.DaysSurvived,
		entry.RecordedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record hall of fame entry",
			zap.String("entryID", entry.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to record hall of fame entry %s: %w", entry.ID, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Debug("Hall of fame entry already recorded",
			zap.String("entryID", entry.ID.String()))
		return nil
	}

	r.logger.Info("Hall of fame entry recorded",
		zap.String("entryID", entry.ID.String()),
		zap.String("characterName", entry.CharacterName),
		zap.Int("daysSurvived", entry.DaysSurvived))
	return nil
}

func (r *pgHallOfFameRepository) List(ctx context.Context) ([]models.HallOfFameEntry, error) {
	rows, err := r.db.Query(ctx, listFameEntriesQuery)
	if err != nil {
		r.logger.Error("Failed to list hall of fame entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list hall of fame entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.HallOfFameEntry, 0)
	for rows.Next() {
		var e models.HallOfFameEntry
		if err := rows.Scan(&e.ID, &e.CharacterName, &e.ScenarioTitle, &e.Outcome, &e.DaysSurvived, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hall of fame entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while reading hall of fame entries: %w", err)
	}
	return entries, nil
}
