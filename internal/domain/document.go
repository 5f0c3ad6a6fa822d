package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentManuscript        DocumentType = "MANUSCRIPT"
	DocumentSupplementary     DocumentType = "SUPPLEMENTARY"
	DocumentReviewerResponse  DocumentType = "REVIEWER_RESPONSE"
	DocumentRevisedManuscript DocumentType = "REVISED_MANUSCRIPT"
	DocumentFinalVersion      DocumentType = "FINAL_VERSION"
)

type Document struct {
	ID           uuid.UUID    `json:"id"`
	SubmissionID uuid.UUID    `json:"submission_id"`
	Title        string       `json:"title"`
	DocumentType DocumentType `json:"document_type"`
	FileName     string       `json:"file_name"`
	FilePath     string       `json:"-"`
	FileSize     int64        `json:"file_size"`
	MimeType     string       `json:"mime_type,omitempty"`
	CreatedByID  uuid.UUID    `json:"created_by_id"`
	CreatedAt    time.Time    `json:"created_at"`
}

type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	ExistsByFileName(ctx context.Context, submissionID uuid.UUID, fileName string) (bool, error)
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*Document, error)
}
