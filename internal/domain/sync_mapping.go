package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SyncDirection string

const (
	SyncFromRemote SyncDirection = "from_ojs"
	SyncToRemote   SyncDirection = "to_ojs"
)

type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncMapping records which OJS submission a local submission corresponds to.
// (RemoteSubmissionID, JournalID) and SubmissionID are both unique.
type SyncMapping struct {
	ID                 uuid.UUID       `json:"id"`
	SubmissionID       uuid.UUID       `json:"submission_id"`
	JournalID          uuid.UUID       `json:"journal_id"`
	RemoteSubmissionID int             `json:"ojs_submission_id"`
	SyncDirection      SyncDirection   `json:"sync_direction"`
	SyncStatus         SyncStatus      `json:"sync_status"`
	LastSyncedAt       time.Time       `json:"last_synced_at"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

type SyncMappingRepository interface {
	Create(ctx context.Context, m *SyncMapping) error
	Update(ctx context.Context, m *SyncMapping) error
	GetByRemoteID(ctx context.Context, journalID uuid.UUID, remoteID int) (*SyncMapping, error)
	GetBySubmission(ctx context.Context, submissionID uuid.UUID) (*SyncMapping, error)
	ListByJournal(ctx context.Context, journalID uuid.UUID) ([]*SyncMapping, error)
}
