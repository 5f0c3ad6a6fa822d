package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/journal-portal/backend/internal/domain"
	"github.com/journal-portal/backend/internal/storage"
	"github.com/journal-portal/backend/pkg/ojs"
)

// ExportResult describes one push of a local submission to OJS. Warning is
// set when the remote submission exists but some later step failed.
type ExportResult struct {
	SubmissionID       uuid.UUID `json:"submission_id"`
	RemoteSubmissionID int       `json:"ojs_submission_id"`
	Created            bool      `json:"created"`
	FilesUploaded      int       `json:"files_uploaded"`
	FilesSkipped       int       `json:"files_skipped"`
	Warning            string    `json:"warning,omitempty"`
}

type ExportUsecase struct {
	repos   domain.Repositories
	clients ClientFactory
	files   *storage.FileStore
	metrics *SyncMetrics
	logger  *slog.Logger
}

func NewExportUsecase(repos domain.Repositories, clients ClientFactory, files *storage.FileStore, metrics *SyncMetrics, logger *slog.Logger) *ExportUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportUsecase{
		repos:   repos,
		clients: clients,
		files:   files,
		metrics: metrics,
		logger:  logger.With("component", "export"),
	}
}

// PushSubmission creates or updates the OJS counterpart of a local
// submission and uploads its documents.
func (u *ExportUsecase) PushSubmission(ctx context.Context, submissionID uuid.UUID) (*ExportResult, error) {
	sub, err := u.repos.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	journal, err := loadSyncJournal(ctx, u.repos.Journals, sub.JournalID)
	if err != nil {
		return nil, err
	}
	mapping, err := u.repos.Mappings.GetBySubmission(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup mapping: %w", err)
	}

	client := u.clients(journal)
	var res *ExportResult
	if mapping == nil {
		res, err = u.pushNew(ctx, client, journal, sub)
	} else {
		res, err = u.pushExisting(ctx, client, journal, sub, mapping)
	}

	switch {
	case err != nil:
		u.metrics.export(ctx, "failed")
	case res.Warning != "":
		u.metrics.export(ctx, "partial")
	default:
		u.metrics.export(ctx, "synced")
	}
	return res, err
}

func (u *ExportUsecase) pushNew(ctx context.Context, client OJSClient, journal *domain.Journal, sub *domain.Submission) (*ExportResult, error) {
	locale := client.Locale()
	remote, err := client.CreateSubmission(ctx, ojs.SubmissionPayload{SectionID: journal.OJSSectionID, Locale: locale})
	if err != nil {
		return nil, fmt.Errorf("create remote submission: %w", err)
	}

	mapping := &domain.SyncMapping{
		SubmissionID:       sub.ID,
		JournalID:          journal.ID,
		RemoteSubmissionID: remote.ID,
		SyncDirection:      domain.SyncToRemote,
		SyncStatus:         domain.SyncStatusSynced,
		LastSyncedAt:       time.Now(),
		Metadata:           snapshot(remote),
	}
	if err := u.repos.Mappings.Create(ctx, mapping); err != nil {
		return nil, fmt.Errorf("record mapping for remote submission %d: %w", remote.ID, err)
	}
	u.logger.Info("created remote submission", "submission_id", sub.ID, "ojs_submission_id", remote.ID)

	res := &ExportResult{SubmissionID: sub.ID, RemoteSubmissionID: remote.ID, Created: true}
	var warnings []string

	payload, err := u.publicationPayload(ctx, journal, sub, locale)
	if err == nil {
		_, err = client.CreatePublication(ctx, remote.ID, payload)
	}
	if err != nil {
		warnings = append(warnings, "publication: "+err.Error())
	}
	warnings = append(warnings, u.uploadDocuments(ctx, client, sub, remote.ID, res)...)

	if len(warnings) > 0 {
		res.Warning = strings.Join(warnings, "; ")
		mapping.SyncStatus = domain.SyncStatusPartial
		if err := u.repos.Mappings.Update(ctx, mapping); err != nil {
			u.logger.Warn("update mapping status", "submission_id", sub.ID, "error", err)
		}
		u.logger.Warn("push finished with warnings", "submission_id", sub.ID, "warning", res.Warning)
	}
	return res, nil
}

func (u *ExportUsecase) pushExisting(ctx context.Context, client OJSClient, journal *domain.Journal, sub *domain.Submission, mapping *domain.SyncMapping) (*ExportResult, error) {
	locale := client.Locale()
	payload := ojs.SubmissionPayload{
		SectionID: journal.OJSSectionID,
		Locale:    locale,
		Title:     ojs.LocalizedString{locale: sub.Title},
		Abstract:  ojs.LocalizedString{locale: sub.Abstract},
	}
	if err := client.UpdateSubmission(ctx, mapping.RemoteSubmissionID, payload); err != nil {
		mapping.SyncStatus = domain.SyncStatusFailed
		if uerr := u.repos.Mappings.Update(ctx, mapping); uerr != nil {
			u.logger.Warn("update mapping status", "submission_id", sub.ID, "error", uerr)
		}
		return nil, fmt.Errorf("update remote submission %d: %w", mapping.RemoteSubmissionID, err)
	}

	res := &ExportResult{SubmissionID: sub.ID, RemoteSubmissionID: mapping.RemoteSubmissionID}
	warnings := u.uploadDocuments(ctx, client, sub, mapping.RemoteSubmissionID, res)

	mapping.LastSyncedAt = time.Now()
	mapping.SyncStatus = domain.SyncStatusSynced
	mapping.Metadata = snapshot(payload)
	if len(warnings) > 0 {
		res.Warning = strings.Join(warnings, "; ")
		mapping.SyncStatus = domain.SyncStatusPartial
	}
	if err := u.repos.Mappings.Update(ctx, mapping); err != nil {
		return nil, fmt.Errorf("refresh mapping: %w", err)
	}
	return res, nil
}

func (u *ExportUsecase) publicationPayload(ctx context.Context, journal *domain.Journal, sub *domain.Submission, locale string) (ojs.PublicationPayload, error) {
	payload := ojs.PublicationPayload{
		SectionID: journal.OJSSectionID,
		Title:     ojs.LocalizedString{locale: sub.Title},
		Abstract:  ojs.LocalizedString{locale: sub.Abstract},
		Authors:   []ojs.AuthorPayload{},
	}
	contribs, err := u.repos.Contributions.ListBySubmission(ctx, sub.ID)
	if err != nil {
		return payload, fmt.Errorf("list authors: %w", err)
	}
	for _, c := range contribs {
		p, err := u.repos.Profiles.GetByID(ctx, c.ProfileID)
		if err != nil {
			return payload, fmt.Errorf("load author profile: %w", err)
		}
		if p == nil {
			continue
		}
		given, family := splitName(p.DisplayName)
		a := ojs.AuthorPayload{
			GivenName:      ojs.LocalizedString{locale: given},
			FamilyName:     ojs.LocalizedString{locale: family},
			Email:          p.Email,
			Seq:            len(payload.Authors),
			PrimaryContact: len(payload.Authors) == 0,
			IncludeInList:  true,
		}
		if p.ORCID != "" {
			a.ORCID = "https://orcid.org/" + p.ORCID
		}
		if p.Affiliation != "" {
			a.Affiliation = ojs.LocalizedString{locale: p.Affiliation}
		}
		payload.Authors = append(payload.Authors, a)
	}
	return payload, nil
}

// uploadDocuments sends every local document whose name is not already on
// the remote submission. It returns one warning per failure.
func (u *ExportUsecase) uploadDocuments(ctx context.Context, client OJSClient, sub *domain.Submission, remoteID int, res *ExportResult) []string {
	docs, err := u.repos.Documents.ListBySubmission(ctx, sub.ID)
	if err != nil {
		return []string{"list documents: " + err.Error()}
	}
	if len(docs) == 0 {
		return nil
	}

	existing := map[string]bool{}
	remoteFiles, err := client.ListSubmissionFiles(ctx, remoteID)
	if err != nil {
		u.logger.Info("could not list remote files, uploading all", "ojs_submission_id", remoteID, "error", err)
	}
	for i := range remoteFiles {
		existing[remoteFiles[i].FileName(client.Locale())] = true
	}

	var warnings []string
	for _, doc := range docs {
		if existing[doc.FileName] {
			res.FilesSkipped++
			continue
		}
		data, err := u.files.Read(doc.FilePath)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("read %s: %v", doc.FileName, err))
			continue
		}
		if _, err := client.UploadFile(ctx, remoteID, doc.FileName, data, ojs.FileStageSubmission); err != nil {
			warnings = append(warnings, fmt.Sprintf("upload %s: %v", doc.FileName, err))
			continue
		}
		existing[doc.FileName] = true
		res.FilesUploaded++
	}
	return warnings
}

// splitName splits a display name into given and family parts at the last
// space.
func splitName(name string) (given, family string) {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, " ")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// Mappings lists the sync mappings of a journal ordered by OJS id.
func (u *ExportUsecase) Mappings(ctx context.Context, journalID uuid.UUID) (*domain.Journal, []*domain.SyncMapping, error) {
	journal, err := u.repos.Journals.GetByID(ctx, journalID)
	if err != nil {
		return nil, nil, fmt.Errorf("load journal: %w", err)
	}
	if journal == nil {
		return nil, nil, ErrJournalNotFound
	}
	mappings, err := u.repos.Mappings.ListByJournal(ctx, journalID)
	if err != nil {
		return nil, nil, fmt.Errorf("list mappings: %w", err)
	}
	return journal, mappings, nil
}
