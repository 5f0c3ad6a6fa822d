package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/journal-portal/backend/internal/domain"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(db dbtx) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO documents (id, submission_id, title, document_type, file_name, file_path, file_size, mime_type, created_by_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()

	_, err := r.db.Exec(ctx, query,
		d.ID,
		d.SubmissionID,
		d.Title,
		d.DocumentType,
		d.FileName,
		d.FilePath,
		d.FileSize,
		d.MimeType,
		d.CreatedByID,
		d.CreatedAt,
	)
	return err
}

func (r *DocumentRepository) ExistsByFileName(ctx context.Context, submissionID uuid.UUID, fileName string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE submission_id = $1 AND file_name = $2)`,
		submissionID, fileName,
	).Scan(&exists)
	return exists, err
}

func (r *DocumentRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, submission_id, title, document_type, file_name, file_path, file_size, mime_type, created_by_id, created_at
		FROM documents WHERE submission_id = $1 ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d := &domain.Document{}
		if err := rows.Scan(
			&d.ID,
			&d.SubmissionID,
			&d.Title,
			&d.DocumentType,
			&d.FileName,
			&d.FilePath,
			&d.FileSize,
			&d.MimeType,
			&d.CreatedByID,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
