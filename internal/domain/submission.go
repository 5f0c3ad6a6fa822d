package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SubmissionStatus string

const (
	SubmissionDraft       SubmissionStatus = "DRAFT"
	SubmissionSubmitted   SubmissionStatus = "SUBMITTED"
	SubmissionUnderReview SubmissionStatus = "UNDER_REVIEW"
	SubmissionPublished   SubmissionStatus = "PUBLISHED"
	SubmissionRejected    SubmissionStatus = "REJECTED"
)

// ojsStatuses maps OJS STATUS_* codes onto local submission states.
var ojsStatuses = map[int]SubmissionStatus{
	1: SubmissionSubmitted,
	2: SubmissionUnderReview,
	3: SubmissionPublished,
	4: SubmissionRejected,
	5: SubmissionDraft,
}

// StatusFromOJS maps a remote status code, falling back to SUBMITTED.
func StatusFromOJS(code int) SubmissionStatus {
	if s, ok := ojsStatuses[code]; ok {
		return s
	}
	return SubmissionSubmitted
}

type Submission struct {
	ID                    uuid.UUID        `json:"id"`
	JournalID             uuid.UUID        `json:"journal_id"`
	Title                 string           `json:"title"`
	Abstract              string           `json:"abstract,omitempty"`
	Status                SubmissionStatus `json:"status"`
	CorrespondingAuthorID *uuid.UUID       `json:"corresponding_author_id,omitempty"`
	SubmittedAt           *time.Time       `json:"submitted_at,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

type SubmissionRepository interface {
	Create(ctx context.Context, s *Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	Update(ctx context.Context, s *Submission) error
}

// AuthorContribution links a profile to a submission in author order.
type AuthorContribution struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	ProfileID    uuid.UUID `json:"profile_id"`
	Order        int       `json:"order"`
	CreatedAt    time.Time `json:"created_at"`
}

type ContributionRepository interface {
	// GetOrCreate returns the existing row for (submission, profile) or inserts c.
	GetOrCreate(ctx context.Context, c *AuthorContribution) (*AuthorContribution, bool, error)
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*AuthorContribution, error)
}
