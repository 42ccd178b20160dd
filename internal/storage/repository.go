package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"adventure-server/internal/models"
)

// Querier abstracts the pgx connection surface the repositories need, so they
// work against *pgxpool.Pool and pgx.Tx alike.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SaveRepository persists session snapshots. There is at most one save per
// session id: SaveGame overwrites any prior snapshot for the same id.
type SaveRepository interface {
	SaveGame(ctx context.Context, save *models.SaveFile) error
	LoadGame(ctx context.Context, id uuid.UUID) (*models.SaveFile, error)
	ListSaves(ctx context.Context) ([]models.SaveSummary, error)
	DeleteSave(ctx context.Context, id uuid.UUID) error
}

// HallOfFameRepository records finished runs. Record is idempotent per
// session id; replays of the same finished session leave a single entry.
type HallOfFameRepository interface {
	Record(ctx context.Context, entry *models.HallOfFameEntry) error
	List(ctx context.Context) ([]models.HallOfFameEntry, error)
}
