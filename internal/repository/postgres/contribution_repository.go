package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/journal-portal/backend/internal/domain"
)

type ContributionRepository struct {
	db dbtx
}

func NewContributionRepository(db dbtx) *ContributionRepository {
	return &ContributionRepository{db: db}
}

const contributionColumns = `id, submission_id, profile_id, "order", created_at`

func (r *ContributionRepository) GetOrCreate(ctx context.Context, c *domain.AuthorContribution) (*domain.AuthorContribution, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()

	insert := `
		INSERT INTO author_contributions (id, submission_id, profile_id, "order", created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (submission_id, profile_id) DO NOTHING
		RETURNING ` + contributionColumns

	out := &domain.AuthorContribution{}
	err := r.db.QueryRow(ctx, insert, c.ID, c.SubmissionID, c.ProfileID, c.Order, c.CreatedAt).
		Scan(&out.ID, &out.SubmissionID, &out.ProfileID, &out.Order, &out.CreatedAt)
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	existing := `SELECT ` + contributionColumns + ` FROM author_contributions WHERE submission_id = $1 AND profile_id = $2`
	err = r.db.QueryRow(ctx, existing, c.SubmissionID, c.ProfileID).
		Scan(&out.ID, &out.SubmissionID, &out.ProfileID, &out.Order, &out.CreatedAt)
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}

func (r *ContributionRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*domain.AuthorContribution, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + contributionColumns + ` FROM author_contributions WHERE submission_id = $1 ORDER BY "order", created_at`
	rows, err := r.db.Query(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuthorContribution
	for rows.Next() {
		c := &domain.AuthorContribution{}
		if err := rows.Scan(&c.ID, &c.SubmissionID, &c.ProfileID, &c.Order, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
