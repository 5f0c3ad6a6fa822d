package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/journal-portal/backend/internal/domain"
)

type SubmissionRepository struct {
	db dbtx
}

func NewSubmissionRepository(db dbtx) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO submissions (id, journal_id, title, abstract, status, corresponding_author_id, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.JournalID,
		s.Title,
		s.Abstract,
		s.Status,
		s.CorrespondingAuthorID,
		s.SubmittedAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, journal_id, title, abstract, status, corresponding_author_id, submitted_at, created_at, updated_at
		FROM submissions WHERE id = $1
	`

	s := &domain.Submission{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.JournalID,
		&s.Title,
		&s.Abstract,
		&s.Status,
		&s.CorrespondingAuthorID,
		&s.SubmittedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SubmissionRepository) Update(ctx context.Context, s *domain.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE submissions
		SET title = $2, abstract = $3, status = $4, corresponding_author_id = $5, submitted_at = $6, updated_at = $7
		WHERE id = $1
	`

	s.UpdatedAt = time.Now()
	tag, err := r.db.Exec(ctx, query, s.ID, s.Title, s.Abstract, s.Status, s.CorrespondingAuthorID, s.SubmittedAt, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
