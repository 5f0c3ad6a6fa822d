package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/journal-portal/backend/internal/domain"
)

type SyncMappingRepository struct {
	db dbtx
}

func NewSyncMappingRepository(db dbtx) *SyncMappingRepository {
	return &SyncMappingRepository{db: db}
}

const mappingColumns = `id, submission_id, journal_id, ojs_submission_id, sync_direction, sync_status, last_synced_at, metadata, created_at`

func scanMapping(row pgx.Row) (*domain.SyncMapping, error) {
	m := &domain.SyncMapping{}
	var metadata []byte
	err := row.Scan(
		&m.ID,
		&m.SubmissionID,
		&m.JournalID,
		&m.RemoteSubmissionID,
		&m.SyncDirection,
		&m.SyncStatus,
		&m.LastSyncedAt,
		&metadata,
		&m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Metadata = metadata
	return m, nil
}

func (r *SyncMappingRepository) Create(ctx context.Context, m *domain.SyncMapping) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO ojs_sync_mappings (id, submission_id, journal_id, ojs_submission_id, sync_direction, sync_status, last_synced_at, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	if m.LastSyncedAt.IsZero() {
		m.LastSyncedAt = m.CreatedAt
	}

	_, err := r.db.Exec(ctx, query,
		m.ID,
		m.SubmissionID,
		m.JournalID,
		m.RemoteSubmissionID,
		m.SyncDirection,
		m.SyncStatus,
		m.LastSyncedAt,
		jsonb(m.Metadata),
		m.CreatedAt,
	)
	return err
}

func (r *SyncMappingRepository) Update(ctx context.Context, m *domain.SyncMapping) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE ojs_sync_mappings
		SET sync_direction = $2, sync_status = $3, last_synced_at = $4, metadata = $5
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, m.ID, m.SyncDirection, m.SyncStatus, m.LastSyncedAt, jsonb(m.Metadata))
	return err
}

func (r *SyncMappingRepository) GetByRemoteID(ctx context.Context, journalID uuid.UUID, remoteID int) (*domain.SyncMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + mappingColumns + ` FROM ojs_sync_mappings WHERE journal_id = $1 AND ojs_submission_id = $2`
	return scanMapping(r.db.QueryRow(ctx, query, journalID, remoteID))
}

func (r *SyncMappingRepository) GetBySubmission(ctx context.Context, submissionID uuid.UUID) (*domain.SyncMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + mappingColumns + ` FROM ojs_sync_mappings WHERE submission_id = $1`
	return scanMapping(r.db.QueryRow(ctx, query, submissionID))
}

func (r *SyncMappingRepository) ListByJournal(ctx context.Context, journalID uuid.UUID) ([]*domain.SyncMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `SELECT ` + mappingColumns + ` FROM ojs_sync_mappings WHERE journal_id = $1 ORDER BY ojs_submission_id`
	rows, err := r.db.Query(ctx, query, journalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SyncMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// jsonb passes nil for empty metadata so the column stays NULL.
func jsonb(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
