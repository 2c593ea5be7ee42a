package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatusUpdated     = "updated"
	StatusUnchanged   = "unchanged"
	StatusNotModified = "not_modified"
	StatusFailed      = "failed"
)

// RefreshRecord is one catalog refresh attempt.
type RefreshRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Forced     bool      `db:"forced" json:"forced"`
	Status     string    `db:"status" json:"status"`
	Format     string    `db:"format" json:"format"`
	Items      int       `db:"items" json:"items"`
	Error      string    `db:"error" json:"error"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

type RefreshRepository interface {
	SaveRefresh(ctx context.Context, record *RefreshRecord) error
	RecentRefreshes(ctx context.Context, limit int) ([]RefreshRecord, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS catalog_refreshes (
	id          UUID PRIMARY KEY,
	forced      BOOLEAN NOT NULL,
	status      TEXT NOT NULL,
	format      TEXT NOT NULL DEFAULT '',
	items       INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS catalog_refreshes_started_at_idx ON catalog_refreshes (started_at DESC);`

type refreshRepository struct {
	db *pgxpool.Pool
}

func NewRefreshRepository(db *pgxpool.Pool) RefreshRepository {
	return &refreshRepository{
		db: db,
	}
}

// EnsureSchema creates the audit table if it does not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create catalog_refreshes table: %w", err)
	}
	return nil
}

func (r *refreshRepository) SaveRefresh(ctx context.Context, record *RefreshRecord) error {
	query := `
	INSERT INTO catalog_refreshes (id, forced, status, format, items, error, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id)
	DO UPDATE SET status = $3, format = $4, items = $5, error = $6, finished_at = $8`
	_, err := r.db.Exec(ctx, query,
		record.ID, record.Forced, record.Status, record.Format, record.Items, record.Error,
		record.StartedAt, record.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save refresh %s: %w", record.ID, err)
	}

	return nil
}

func (r *refreshRepository) RecentRefreshes(ctx context.Context, limit int) ([]RefreshRecord, error) {
	query := `
	SELECT id, forced, status, format, items, error, started_at, finished_at
	FROM catalog_refreshes
	ORDER BY started_at DESC
	LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query refreshes: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[RefreshRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to read refreshes: %w", err)
	}
	return records, nil
}

type nopRefreshRepository struct{}

// NewNopRefreshRepository discards refresh records; used when no database is
// configured.
func NewNopRefreshRepository() RefreshRepository {
	return nopRefreshRepository{}
}

func (nopRefreshRepository) SaveRefresh(context.Context, *RefreshRecord) error { return nil }

func (nopRefreshRepository) RecentRefreshes(context.Context, int) ([]RefreshRecord, error) {
	return nil, nil
}
