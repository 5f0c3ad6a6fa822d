package domain

import "context"

// Repositories bundles the repositories bound to one connection or transaction.
type Repositories struct {
	Journals      JournalRepository
	Submissions   SubmissionRepository
	Profiles      ProfileRepository
	Contributions ContributionRepository
	Documents     DocumentRepository
	Mappings      SyncMappingRepository
}

// TxManager runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
