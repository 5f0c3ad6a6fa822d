package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/journal-portal/backend/internal/domain"
)

type JournalRepository struct {
	db dbtx
}

func NewJournalRepository(db dbtx) *JournalRepository {
	return &JournalRepository{db: db}
}

const journalColumns = `id, name, short_name, ojs_base_url, ojs_api_key, ojs_section_id, ojs_enabled, created_at`

func scanJournal(row pgx.Row) (*domain.Journal, error) {
	j := &domain.Journal{}
	err := row.Scan(
		&j.ID,
		&j.Name,
		&j.ShortName,
		&j.OJSBaseURL,
		&j.OJSAPIKey,
		&j.OJSSectionID,
		&j.OJSEnabled,
		&j.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Journal, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + journalColumns + ` FROM journals WHERE id = $1`
	return scanJournal(r.db.QueryRow(ctx, query, id))
}

func (r *JournalRepository) List(ctx context.Context) ([]*domain.Journal, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+journalColumns+` FROM journals ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var journals []*domain.Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		journals = append(journals, j)
	}
	return journals, rows.Err()
}
