package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/journal-portal/backend/internal/domain"
	"github.com/journal-portal/backend/internal/storage"
	"github.com/journal-portal/backend/pkg/ojs"
)

type importFixture struct {
	store   *memStore
	client  *fakeOJS
	files   *storage.FileStore
	journal *domain.Journal
	uc      *ImportUsecase
}

func newImportFixture(t *testing.T, subs ...ojs.Submission) *importFixture {
	t.Helper()
	store := newMemStore()
	journal := store.addJournal(domain.Journal{
		Name:       "Test Journal",
		OJSBaseURL: "https://ojs.example.org/index.php/test",
		OJSAPIKey:  "key",
		OJSEnabled: true,
	})
	client := newFakeOJS(subs...)
	files := storage.NewFileStore(afero.NewMemMapFs(), "/media")
	uc := NewImportUsecase(store.repos().Journals, store, client.factory(), files, nil, nil)
	return &importFixture{store: store, client: client, files: files, journal: journal, uc: uc}
}

func (f *importFixture) run(t *testing.T) *ImportSummary {
	t.Helper()
	summary, err := f.uc.ImportJournal(context.Background(), f.journal.ID, nil)
	require.NoError(t, err)
	return summary
}

func pdfBytes() []byte {
	return append([]byte("%PDF-1.5\n"), make([]byte, 1500)...)
}

func TestImportJournal_CreatesSubmissionMappingAndAuthors(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(7, 3, "Deep <i>Sea</i> Vents",
		remoteAuthor(2, 1, "Grace", "Hopper", "grace@example.org", ""),
		remoteAuthor(1, 0, "Ada", "Lovelace", "ada@example.org", "https://orcid.org/0000-0001-0000-0001"),
	))

	summary := f.run(t)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 0, summary.Errors)
	assert.Empty(t, summary.ErrorDetails)

	require.Len(t, f.store.mappings, 1)
	m := f.store.mappings[0]
	assert.Equal(t, 7, m.RemoteSubmissionID)
	assert.Equal(t, domain.SyncFromRemote, m.SyncDirection)
	assert.Equal(t, domain.SyncStatusSynced, m.SyncStatus)
	assert.Contains(t, string(m.Metadata), `"id":7`)

	sub := f.store.submissions[m.SubmissionID]
	assert.Equal(t, "Deep Sea Vents", sub.Title)
	assert.Equal(t, "Abstract of Deep Sea Vents", sub.Abstract)
	assert.Equal(t, domain.SubmissionPublished, sub.Status)

	contribs, _ := f.store.repos().Contributions.ListBySubmission(context.Background(), sub.ID)
	require.Len(t, contribs, 2)
	first, _ := f.store.repos().Profiles.GetByID(context.Background(), contribs[0].ProfileID)
	assert.Equal(t, "Ada Lovelace", first.DisplayName)
	assert.Equal(t, "0000-0001-0000-0001", first.ORCID)
	require.NotNil(t, sub.CorrespondingAuthorID)
	assert.Equal(t, first.ID, *sub.CorrespondingAuthorID)

	user := f.store.users[first.UserID]
	assert.True(t, strings.HasPrefix(user.PasswordHash, "!"))
}

func TestImportJournal_SecondRunUpdates(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(11, 1, "Original", remoteAuthor(1, 0, "A", "B", "a@example.org", "")))
	f.client.files[11] = []ojs.SubmissionFile{{ID: 90, FileStage: ojs.FileStageSubmission, Name: ojs.LocalizedString{"en_US": "paper.pdf"}}}
	f.client.downloads[90] = pdfBytes()

	first := f.run(t)
	assert.Equal(t, 1, first.Imported)
	assert.Equal(t, 1, first.FilesImported)

	f.client.submissions[0].Status = 2
	f.client.submissions[0].Publications[0].Title = ojs.LocalizedString{"en_US": "Revised"}

	second := f.run(t)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, 0, second.FilesImported)
	assert.Equal(t, 1, second.FilesSkipped)

	require.Len(t, f.store.submissions, 1)
	require.Len(t, f.store.mappings, 1)
	sub := f.store.submissions[f.store.mappings[0].SubmissionID]
	assert.Equal(t, "Revised", sub.Title)
	assert.Equal(t, domain.SubmissionUnderReview, sub.Status)
	assert.Len(t, f.store.documentsOf(sub.ID), 1)
}

func TestImportJournal_BatchIsolation(t *testing.T) {
	var subs []ojs.Submission
	for i := 1; i <= 5; i++ {
		subs = append(subs, remoteSubmission(i, 1, "Paper", remoteAuthor(100+i, 0, "Author", "N", "", "")))
	}
	f := newImportFixture(t, subs...)
	f.store.failMappingFor = 3

	summary := f.run(t)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 4, summary.Imported+summary.Updated+summary.Skipped)
	require.Len(t, summary.ErrorDetails, 1)
	assert.Contains(t, summary.ErrorDetails[0], "submission 3")

	// The failed item left nothing behind.
	assert.Len(t, f.store.submissions, 4)
	assert.Len(t, f.store.mappings, 4)
	p, _ := f.store.repos().Profiles.GetByEmail(context.Background(), "ojs-author-103@imported.invalid")
	assert.Nil(t, p)
}

func TestImportJournal_NoPublicationIsSkipped(t *testing.T) {
	f := newImportFixture(t, ojs.Submission{ID: 4, Status: 1}, remoteSubmission(5, 1, "Kept"))

	summary := f.run(t)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Imported)
}

func TestImportJournal_ORCIDWinsOverEmail(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(1, 1, "T",
		remoteAuthor(1, 0, "Sam", "Smith", "other@example.org", "0000-0002-0000-0002")))
	byORCID := f.store.addProfile(domain.Profile{Email: "sam@example.org", ORCID: "0000-0002-0000-0002"}, false)
	f.store.addProfile(domain.Profile{Email: "other@example.org", DisplayName: "Someone Else"}, false)

	f.run(t)

	require.Len(t, f.store.contributions, 1)
	assert.Equal(t, byORCID.ID, f.store.contributions[0].ProfileID)
	// Empty display name gets backfilled, nothing else changes.
	got := f.store.profiles[byORCID.ID]
	assert.Equal(t, "Sam Smith", got.DisplayName)
	assert.Equal(t, "sam@example.org", got.Email)
	assert.Len(t, f.store.profiles, 2)
}

func TestImportJournal_EmailMatchIgnoresCase(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(1, 1, "T",
		remoteAuthor(1, 0, "Ada", "Lovelace", "Ada@Example.ORG", "")))
	existing := f.store.addProfile(domain.Profile{Email: "ada@example.org", DisplayName: "Ada"}, false)

	summary := f.run(t)
	assert.Equal(t, 0, summary.Errors)
	require.Len(t, f.store.contributions, 1)
	assert.Equal(t, existing.ID, f.store.contributions[0].ProfileID)
	assert.Len(t, f.store.profiles, 1)
}

func TestImportJournal_DuplicateAuthorsKeepOrderContiguous(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(1, 1, "T",
		remoteAuthor(1, 0, "Ada", "Lovelace", "ada@example.org", ""),
		remoteAuthor(2, 1, "Ada", "L.", "ada@example.org", ""),
		remoteAuthor(3, 2, "Grace", "Hopper", "grace@example.org", ""),
	))

	f.run(t)

	subID := f.store.mappings[0].SubmissionID
	contribs, _ := f.store.repos().Contributions.ListBySubmission(context.Background(), subID)
	require.Len(t, contribs, 2)
	for i, c := range contribs {
		assert.Equal(t, i, c.Order)
	}
	second, _ := f.store.repos().Profiles.GetByID(context.Background(), contribs[1].ProfileID)
	assert.Equal(t, "grace@example.org", second.Email)
}

func TestImportJournal_ExistingDisplayNameKept(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(1, 1, "T", remoteAuthor(1, 0, "New", "Name", "x@example.org", "")))
	existing := f.store.addProfile(domain.Profile{Email: "x@example.org", DisplayName: "Kept Name"}, false)

	f.run(t)
	assert.Equal(t, "Kept Name", f.store.profiles[existing.ID].DisplayName)
}

func TestImportJournal_FileClassificationAndSkips(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(3, 1, "T", remoteAuthor(1, 0, "A", "B", "a@example.org", "")))
	f.client.files[3] = []ojs.SubmissionFile{
		{ID: 1, FileStage: ojs.FileStageProofCopyedited, MimeType: "application/msword", Name: ojs.LocalizedString{"en_US": "galley.doc"}},
		{ID: 2, FileStage: ojs.FileStageProofCopyedited, MimeType: "application/pdf", Name: ojs.LocalizedString{"en_US": "final.pdf"}},
		{ID: 3, FileStage: ojs.FileStageReviewRevision, Name: ojs.LocalizedString{"en_US": "data.csv"}},
		{ID: 4, FileStage: ojs.FileStageSubmission, Name: ojs.LocalizedString{"en_US": "missing.pdf"}},
	}
	f.client.downloads[1] = pdfBytes()
	f.client.downloads[2] = pdfBytes()
	f.client.downloads[3] = []byte("a,b,c\n1,2,3\n")

	summary := f.run(t)
	assert.Equal(t, 3, summary.FilesImported)
	assert.Equal(t, 1, summary.FilesSkipped)
	assert.Equal(t, 0, summary.Errors)

	subID := f.store.mappings[0].SubmissionID
	types := map[string]domain.DocumentType{}
	for _, d := range f.store.documentsOf(subID) {
		types[d.FileName] = d.DocumentType
		stored, err := f.files.Read(d.FilePath)
		require.NoError(t, err)
		assert.Equal(t, d.FileSize, int64(len(stored)))
		assert.Equal(t, *f.store.submissions[subID].CorrespondingAuthorID, d.CreatedByID)
	}
	assert.Equal(t, domain.DocumentManuscript, types["galley.doc"])
	assert.Equal(t, domain.DocumentFinalVersion, types["final.pdf"])
	assert.Equal(t, domain.DocumentSupplementary, types["data.csv"])
}

func TestImportJournal_FilesFallBackToGalleys(t *testing.T) {
	sub := remoteSubmission(8, 3, "T", remoteAuthor(1, 0, "A", "B", "a@example.org", ""))
	sub.Publications[0].Galleys = []ojs.Galley{{ID: 2, SubmissionFileID: 77}}
	f := newImportFixture(t, sub)
	f.client.filesErr = errors.New("403 forbidden")
	f.client.downloads[77] = pdfBytes()

	summary := f.run(t)
	assert.Equal(t, 1, summary.FilesImported)
	docs := f.store.documentsOf(f.store.mappings[0].SubmissionID)
	require.Len(t, docs, 1)
	assert.Equal(t, "file-77", docs[0].FileName)
	assert.Equal(t, "application/pdf", docs[0].MimeType)
}

func TestImportJournal_CreatorFallsBackToSuperuser(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(9, 1, "No authors"))
	f.client.files[9] = []ojs.SubmissionFile{{ID: 5, Name: ojs.LocalizedString{"en_US": "a.pdf"}}}
	f.client.downloads[5] = pdfBytes()

	// No authors and no superuser: the file cannot be owned.
	summary := f.run(t)
	assert.Equal(t, 0, summary.FilesImported)
	assert.Equal(t, 1, summary.FilesSkipped)

	admin := f.store.addProfile(domain.Profile{Email: "admin@example.org", DisplayName: "Admin"}, true)
	summary = f.run(t)
	assert.Equal(t, 1, summary.FilesImported)
	docs := f.store.documentsOf(f.store.mappings[0].SubmissionID)
	require.Len(t, docs, 1)
	assert.Equal(t, admin.ID, docs[0].CreatedByID)
}

func TestImportJournal_ReviewsAreNotImported(t *testing.T) {
	sub := remoteSubmission(1, 2, "T")
	sub.ReviewRounds = []ojs.ReviewRound{{ID: 1, Round: 1}, {ID: 2, Round: 2}}
	f := newImportFixture(t, sub)

	summary := f.run(t)
	assert.Equal(t, 0, summary.ReviewsImported)
	assert.Equal(t, 1, summary.Imported)
}

func TestImportJournal_ProgressStages(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(1, 1, "A"), remoteSubmission(2, 1, "B"))
	var states []ProgressState
	reporter := ProgressFunc(func(s ProgressState) { states = append(states, s) })

	_, err := f.uc.ImportJournal(context.Background(), f.journal.ID, reporter)
	require.NoError(t, err)

	require.Len(t, states, 4)
	assert.Equal(t, StageFetching, states[0].Stage)
	assert.Equal(t, StageImporting, states[1].Stage)
	assert.Equal(t, 50, states[1].Percentage)
	assert.Equal(t, StageCompleted, states[3].Stage)
	assert.Equal(t, 100, states[3].Percentage)
	assert.Equal(t, 2, states[3].Imported)
}

func TestImportJournal_FetchFailure(t *testing.T) {
	f := newImportFixture(t)
	f.client.listErr = errors.New("connection refused")
	cache := NewProgressCache(10, 0)

	summary, err := f.uc.ImportJournal(context.Background(), f.journal.ID, cache)
	require.Error(t, err)
	assert.Nil(t, summary)

	state, ok := cache.Get(f.journal.ID)
	require.True(t, ok)
	assert.Equal(t, StageFailed, state.Stage)
	assert.True(t, state.Done())
}

func TestImportJournal_JournalErrors(t *testing.T) {
	f := newImportFixture(t)
	_, err := f.uc.ImportJournal(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrJournalNotFound)

	unconfigured := f.store.addJournal(domain.Journal{Name: "Local only"})
	_, err = f.uc.ImportJournal(context.Background(), unconfigured.ID, nil)
	assert.ErrorIs(t, err, ErrJournalNotConfigured)
}

func TestStartImport_JoinsRunningImport(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(1, 1, "A"))
	f.client.release = make(chan struct{})
	f.client.entered = make(chan struct{}, 1)

	first := f.uc.StartImport(context.Background(), f.journal.ID, nil)
	<-f.client.entered
	second := f.uc.StartImport(context.Background(), f.journal.ID, nil)
	close(f.client.release)

	r1, r2 := <-first, <-second
	require.NoError(t, r1.Err)
	require.NoError(t, r2.Err)
	assert.True(t, r1.Shared)
	assert.Same(t, r1.Val, r2.Val)
	assert.Equal(t, 1, f.client.listCalls)
	assert.Len(t, f.store.submissions, 1)
}

func TestImportJournal_ConcurrentCallsShareOneRun(t *testing.T) {
	f := newImportFixture(t, remoteSubmission(1, 1, "A"))
	f.client.release = make(chan struct{})
	f.client.entered = make(chan struct{}, 2)

	var wg sync.WaitGroup
	results := make([]*ImportSummary, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = f.uc.ImportJournal(context.Background(), f.journal.ID, nil)
	}()
	<-f.client.entered

	joined := f.uc.StartImport(context.Background(), f.journal.ID, nil)
	close(f.client.release)
	wg.Wait()
	r := <-joined

	assert.Equal(t, 1, f.client.listCalls)
	assert.Same(t, results[0], r.Val)
}
