package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/singleflight"

	"github.com/journal-portal/backend/internal/domain"
	"github.com/journal-portal/backend/internal/storage"
	"github.com/journal-portal/backend/pkg/ojs"
)

var (
	ErrJournalNotFound      = errors.New("journal not found")
	ErrJournalNotConfigured = errors.New("journal has no OJS connection configured")
	ErrSubmissionNotFound   = errors.New("submission not found")
)

// OJSClient is the part of the OJS API the sync usecases use.
type OJSClient interface {
	Locale() string
	ListSubmissions(ctx context.Context) ([]ojs.Submission, error)
	ListSubmissionFiles(ctx context.Context, submissionID int) ([]ojs.SubmissionFile, error)
	GalleyFiles(sub *ojs.Submission) []ojs.SubmissionFile
	DownloadFile(ctx context.Context, sub *ojs.Submission, f *ojs.SubmissionFile) ([]byte, string, bool)
	CreateSubmission(ctx context.Context, payload ojs.SubmissionPayload) (*ojs.Submission, error)
	CreatePublication(ctx context.Context, submissionID int, payload ojs.PublicationPayload) (*ojs.Publication, error)
	UpdateSubmission(ctx context.Context, submissionID int, payload ojs.SubmissionPayload) error
	UploadFile(ctx context.Context, submissionID int, fileName string, data []byte, fileStage int) (*ojs.SubmissionFile, error)
}

// ClientFactory builds a client for a journal's OJS install.
type ClientFactory func(j *domain.Journal) OJSClient

// NewClientFactory returns a factory producing real OJS clients with opts.
func NewClientFactory(opts ...ojs.Option) ClientFactory {
	return func(j *domain.Journal) OJSClient {
		return ojs.NewClient(j.OJSBaseURL, j.OJSAPIKey, opts...)
	}
}

// ImportSummary is the outcome of one journal import.
type ImportSummary struct {
	Total           int      `json:"total"`
	Imported        int      `json:"imported"`
	Updated         int      `json:"updated"`
	Skipped         int      `json:"skipped"`
	Errors          int      `json:"errors"`
	ErrorDetails    []string `json:"error_details"`
	FilesImported   int      `json:"files_imported"`
	FilesSkipped    int      `json:"files_skipped"`
	ReviewsImported int      `json:"reviews_imported"`
}

type outcome string

const (
	outcomeImported outcome = "imported"
	outcomeUpdated  outcome = "updated"
	outcomeSkipped  outcome = "skipped"
	outcomeError    outcome = "error"
)

type itemResult struct {
	outcome outcome
	files   fileCounts
	reviews int
	written []string
}

type ImportUsecase struct {
	journals domain.JournalRepository
	tx       domain.TxManager
	clients  ClientFactory
	files    *storage.FileStore
	metrics  *SyncMetrics
	logger   *slog.Logger
	strip    *bluemonday.Policy

	// group collapses concurrent imports of the same journal into one run.
	group singleflight.Group
}

func NewImportUsecase(journals domain.JournalRepository, tx domain.TxManager, clients ClientFactory, files *storage.FileStore, metrics *SyncMetrics, logger *slog.Logger) *ImportUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportUsecase{
		journals: journals,
		tx:       tx,
		clients:  clients,
		files:    files,
		metrics:  metrics,
		logger:   logger.With("component", "import"),
		strip:    bluemonday.StrictPolicy(),
	}
}

// Journal loads a journal and checks that it can be synced.
func (u *ImportUsecase) Journal(ctx context.Context, journalID uuid.UUID) (*domain.Journal, error) {
	return loadSyncJournal(ctx, u.journals, journalID)
}

func loadSyncJournal(ctx context.Context, repo domain.JournalRepository, journalID uuid.UUID) (*domain.Journal, error) {
	journal, err := repo.GetByID(ctx, journalID)
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	if journal == nil {
		return nil, ErrJournalNotFound
	}
	if !journal.OJSConfigured() {
		return nil, ErrJournalNotConfigured
	}
	return journal, nil
}

// ImportJournal pulls every submission of the journal's OJS install into
// the local database. A call made while an import of the same journal is
// running waits for that run and shares its summary.
func (u *ImportUsecase) ImportJournal(ctx context.Context, journalID uuid.UUID, reporter ProgressReporter) (*ImportSummary, error) {
	v, err, shared := u.group.Do(journalID.String(), func() (any, error) {
		return u.importJournal(ctx, journalID, reporter)
	})
	if shared {
		u.logger.Info("joined running import", "journal_id", journalID)
	}
	summary, _ := v.(*ImportSummary)
	return summary, err
}

// StartImport runs ImportJournal in the background and delivers its result
// on the returned channel. It joins an import already in flight.
func (u *ImportUsecase) StartImport(ctx context.Context, journalID uuid.UUID, reporter ProgressReporter) <-chan singleflight.Result {
	return u.group.DoChan(journalID.String(), func() (any, error) {
		return u.importJournal(ctx, journalID, reporter)
	})
}

func (u *ImportUsecase) importJournal(ctx context.Context, journalID uuid.UUID, reporter ProgressReporter) (*ImportSummary, error) {
	if reporter == nil {
		reporter = DiscardProgress
	}
	fail := func(err error) (*ImportSummary, error) {
		reporter.Report(ProgressState{JournalID: journalID, Stage: StageFailed, Message: err.Error()})
		return nil, err
	}

	journal, err := u.Journal(ctx, journalID)
	if err != nil {
		return fail(err)
	}
	log := u.logger.With("journal_id", journalID)
	client := u.clients(journal)

	reporter.Report(ProgressState{JournalID: journalID, Stage: StageFetching, Message: "Fetching submissions from OJS"})
	remote, err := client.ListSubmissions(ctx)
	if err != nil {
		return fail(fmt.Errorf("fetch submissions: %w", err))
	}
	log.Info("fetched remote submissions", "count", len(remote))

	summary := &ImportSummary{Total: len(remote), ErrorDetails: []string{}}
	for i := range remote {
		if err := ctx.Err(); err != nil {
			reporter.Report(ProgressState{JournalID: journalID, Stage: StageFailed, Current: i, Total: len(remote), Message: err.Error()})
			return summary, err
		}
		sub := &remote[i]

		res, err := u.importOne(ctx, client, journal, sub)
		if err != nil {
			u.cleanup(res.written)
			summary.Errors++
			summary.ErrorDetails = append(summary.ErrorDetails, fmt.Sprintf("submission %d: %v", sub.ID, err))
			log.Warn("submission import failed", "ojs_submission_id", sub.ID, "error", err)
			res.outcome = outcomeError
		} else {
			switch res.outcome {
			case outcomeImported:
				summary.Imported++
			case outcomeUpdated:
				summary.Updated++
			case outcomeSkipped:
				summary.Skipped++
			}
			summary.FilesImported += res.files.imported
			summary.FilesSkipped += res.files.skipped
			summary.ReviewsImported += res.reviews
			u.metrics.file(ctx, "imported", res.files.imported)
			u.metrics.file(ctx, "skipped", res.files.skipped)
		}
		u.metrics.submission(ctx, string(res.outcome))

		reporter.Report(ProgressState{
			JournalID:  journalID,
			Stage:      StageImporting,
			Current:    i + 1,
			Total:      len(remote),
			Percentage: percent(i+1, len(remote)),
			Message:    fmt.Sprintf("Processed submission %d", sub.ID),
			Imported:   summary.Imported,
			Updated:    summary.Updated,
			Skipped:    summary.Skipped,
			Errors:     summary.Errors,
		})
	}

	reporter.Report(ProgressState{
		JournalID:  journalID,
		Stage:      StageCompleted,
		Current:    len(remote),
		Total:      len(remote),
		Percentage: 100,
		Message:    "Import completed",
		Imported:   summary.Imported,
		Updated:    summary.Updated,
		Skipped:    summary.Skipped,
		Errors:     summary.Errors,
	})
	log.Info("import finished",
		"total", summary.Total, "imported", summary.Imported, "updated", summary.Updated,
		"skipped", summary.Skipped, "errors", summary.Errors, "files", summary.FilesImported)
	return summary, nil
}

// importOne imports a single remote submission in its own transaction.
func (u *ImportUsecase) importOne(ctx context.Context, client OJSClient, journal *domain.Journal, remote *ojs.Submission) (itemResult, error) {
	pub := remote.FirstPublication()
	if pub == nil {
		u.logger.Debug("submission has no publication, skipping", "ojs_submission_id", remote.ID)
		return itemResult{outcome: outcomeSkipped}, nil
	}

	var res itemResult
	err := u.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		res = itemResult{}
		mapping, err := repos.Mappings.GetByRemoteID(ctx, journal.ID, remote.ID)
		if err != nil {
			return fmt.Errorf("lookup mapping: %w", err)
		}
		if mapping == nil {
			return u.createFromRemote(ctx, client, repos, journal, remote, pub, &res)
		}
		return u.updateFromRemote(ctx, client, repos, mapping, remote, pub, &res)
	})
	return res, err
}

func (u *ImportUsecase) createFromRemote(ctx context.Context, client OJSClient, repos domain.Repositories, journal *domain.Journal, remote *ojs.Submission, pub *ojs.Publication, res *itemResult) error {
	locale := client.Locale()
	sub := &domain.Submission{
		JournalID:   journal.ID,
		Title:       u.plainText(pub.Title.Value(locale)),
		Abstract:    u.plainText(pub.Abstract.Value(locale)),
		Status:      domain.StatusFromOJS(remote.Status),
		SubmittedAt: parseOJSTime(remote.DateSubmitted),
	}
	if sub.Title == "" {
		sub.Title = fmt.Sprintf("OJS submission %d", remote.ID)
	}
	if err := repos.Submissions.Create(ctx, sub); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}

	authors, err := u.linkAuthors(ctx, repos, sub, pub, locale)
	if err != nil {
		return err
	}
	if len(authors) > 0 {
		first := authors[0]
		sub.CorrespondingAuthorID = &first
		if err := repos.Submissions.Update(ctx, sub); err != nil {
			return fmt.Errorf("set corresponding author: %w", err)
		}
	}

	if err := u.importFiles(ctx, client, repos, sub, remote, res); err != nil {
		return err
	}
	res.reviews = u.importReviews(remote)

	mapping := &domain.SyncMapping{
		SubmissionID:       sub.ID,
		JournalID:          journal.ID,
		RemoteSubmissionID: remote.ID,
		SyncDirection:      domain.SyncFromRemote,
		SyncStatus:         domain.SyncStatusSynced,
		LastSyncedAt:       time.Now(),
		Metadata:           snapshot(remote),
	}
	if err := repos.Mappings.Create(ctx, mapping); err != nil {
		return fmt.Errorf("create mapping: %w", err)
	}
	res.outcome = outcomeImported
	return nil
}

func (u *ImportUsecase) updateFromRemote(ctx context.Context, client OJSClient, repos domain.Repositories, mapping *domain.SyncMapping, remote *ojs.Submission, pub *ojs.Publication, res *itemResult) error {
	sub, err := repos.Submissions.GetByID(ctx, mapping.SubmissionID)
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("mapped submission %s: %w", mapping.SubmissionID, ErrSubmissionNotFound)
	}

	locale := client.Locale()
	if title := u.plainText(pub.Title.Value(locale)); title != "" {
		sub.Title = title
	}
	sub.Abstract = u.plainText(pub.Abstract.Value(locale))
	sub.Status = domain.StatusFromOJS(remote.Status)
	if err := repos.Submissions.Update(ctx, sub); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}

	if err := u.importFiles(ctx, client, repos, sub, remote, res); err != nil {
		return err
	}
	res.reviews = u.importReviews(remote)

	mapping.LastSyncedAt = time.Now()
	mapping.SyncStatus = domain.SyncStatusSynced
	mapping.Metadata = snapshot(remote)
	if err := repos.Mappings.Update(ctx, mapping); err != nil {
		return fmt.Errorf("update mapping: %w", err)
	}
	res.outcome = outcomeUpdated
	return nil
}

// cleanup removes files written by an item whose transaction rolled back.
func (u *ImportUsecase) cleanup(paths []string) {
	for _, p := range paths {
		if err := u.files.Remove(p); err != nil {
			u.logger.Warn("remove orphaned file", "path", p, "error", err)
		}
	}
}

// plainText strips markup and collapses whitespace.
func (u *ImportUsecase) plainText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(u.strip.Sanitize(s))), " ")
}

// snapshot renders v as the raw metadata stored on a mapping.
func snapshot(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// parseOJSTime reads the "2006-01-02 15:04:05" timestamps OJS emits.
func parseOJSTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.DateTime, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
