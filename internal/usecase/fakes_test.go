package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/journal-portal/backend/internal/domain"
	"github.com/journal-portal/backend/pkg/ojs"
)

// memStore is an in-memory database. WithinTx snapshots all tables and
// restores them when fn fails.
type memStore struct {
	mu sync.Mutex

	journals      map[uuid.UUID]domain.Journal
	submissions   map[uuid.UUID]domain.Submission
	users         map[uuid.UUID]domain.User
	profiles      map[uuid.UUID]domain.Profile
	contributions []domain.AuthorContribution
	documents     []domain.Document
	mappings      []domain.SyncMapping

	// failMappingFor makes Mappings.Create fail for this remote id.
	failMappingFor int
}

func newMemStore() *memStore {
	return &memStore{
		journals:    map[uuid.UUID]domain.Journal{},
		submissions: map[uuid.UUID]domain.Submission{},
		users:       map[uuid.UUID]domain.User{},
		profiles:    map[uuid.UUID]domain.Profile{},
	}
}

type memSnapshot struct {
	submissions   map[uuid.UUID]domain.Submission
	users         map[uuid.UUID]domain.User
	profiles      map[uuid.UUID]domain.Profile
	contributions []domain.AuthorContribution
	documents     []domain.Document
	mappings      []domain.SyncMapping
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		submissions:   cloneMap(s.submissions),
		users:         cloneMap(s.users),
		profiles:      cloneMap(s.profiles),
		contributions: append([]domain.AuthorContribution(nil), s.contributions...),
		documents:     append([]domain.Document(nil), s.documents...),
		mappings:      append([]domain.SyncMapping(nil), s.mappings...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = snap.submissions
	s.users = snap.users
	s.profiles = snap.profiles
	s.contributions = snap.contributions
	s.documents = snap.documents
	s.mappings = snap.mappings
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	snap := s.snapshot()
	if err := fn(ctx, s.repos()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) repos() domain.Repositories {
	return domain.Repositories{
		Journals:      memJournals{s},
		Submissions:   memSubmissions{s},
		Profiles:      memProfiles{s},
		Contributions: memContributions{s},
		Documents:     memDocuments{s},
		Mappings:      memMappings{s},
	}
}

func (s *memStore) addJournal(j domain.Journal) *domain.Journal {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	s.journals[j.ID] = j
	return &j
}

func (s *memStore) addProfile(p domain.Profile, superuser bool) *domain.Profile {
	user := domain.User{ID: uuid.New(), Email: p.Email, IsSuperuser: superuser}
	s.users[user.ID] = user
	p.ID = uuid.New()
	p.UserID = user.ID
	s.profiles[p.ID] = p
	return &p
}

func (s *memStore) documentsOf(submissionID uuid.UUID) []domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Document
	for _, d := range s.documents {
		if d.SubmissionID == submissionID {
			out = append(out, d)
		}
	}
	return out
}

type memJournals struct{ s *memStore }

func (r memJournals) GetByID(_ context.Context, id uuid.UUID) (*domain.Journal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.journals[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (r memJournals) List(context.Context) ([]*domain.Journal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Journal
	for _, j := range r.s.journals {
		j := j
		out = append(out, &j)
	}
	return out, nil
}

type memSubmissions struct{ s *memStore }

func (r memSubmissions) Create(_ context.Context, sub *domain.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt
	r.s.submissions[sub.ID] = *sub
	return nil
}

func (r memSubmissions) GetByID(_ context.Context, id uuid.UUID) (*domain.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r memSubmissions) Update(_ context.Context, sub *domain.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.submissions[sub.ID]; !ok {
		return errors.New("no such submission")
	}
	sub.UpdatedAt = time.Now()
	r.s.submissions[sub.ID] = *sub
	return nil
}

type memProfiles struct{ s *memStore }

func (r memProfiles) find(match func(p domain.Profile) bool) *domain.Profile {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.profiles {
		if match(p) {
			return &p
		}
	}
	return nil
}

func (r memProfiles) GetByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.find(func(p domain.Profile) bool { return p.ID == id }), nil
}

func (r memProfiles) GetByORCID(_ context.Context, orcid string) (*domain.Profile, error) {
	return r.find(func(p domain.Profile) bool { return p.ORCID == orcid }), nil
}

func (r memProfiles) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	return r.find(func(p domain.Profile) bool { return strings.EqualFold(p.Email, email) }), nil
}

func (r memProfiles) CreateWithUser(_ context.Context, user *domain.User, profile *domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return errors.New("duplicate email")
		}
	}
	user.ID = uuid.New()
	profile.ID = uuid.New()
	profile.UserID = user.ID
	r.s.users[user.ID] = *user
	r.s.profiles[profile.ID] = *profile
	return nil
}

func (r memProfiles) UpdateDisplayName(_ context.Context, id uuid.UUID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := r.s.profiles[id]
	p.DisplayName = name
	r.s.profiles[id] = p
	return nil
}

func (r memProfiles) FirstSuperuserProfile(context.Context) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.profiles {
		if r.s.users[p.UserID].IsSuperuser {
			return &p, nil
		}
	}
	return nil, nil
}

type memContributions struct{ s *memStore }

func (r memContributions) GetOrCreate(_ context.Context, c *domain.AuthorContribution) (*domain.AuthorContribution, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.contributions {
		if existing.SubmissionID == c.SubmissionID && existing.ProfileID == c.ProfileID {
			return &existing, false, nil
		}
	}
	c.ID = uuid.New()
	r.s.contributions = append(r.s.contributions, *c)
	return c, true, nil
}

func (r memContributions) ListBySubmission(_ context.Context, submissionID uuid.UUID) ([]*domain.AuthorContribution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.AuthorContribution
	for _, c := range r.s.contributions {
		if c.SubmissionID == submissionID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

type memDocuments struct{ s *memStore }

func (r memDocuments) Create(_ context.Context, d *domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = uuid.New()
	r.s.documents = append(r.s.documents, *d)
	return nil
}

func (r memDocuments) ExistsByFileName(_ context.Context, submissionID uuid.UUID, fileName string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.documents {
		if d.SubmissionID == submissionID && d.FileName == fileName {
			return true, nil
		}
	}
	return false, nil
}

func (r memDocuments) ListBySubmission(_ context.Context, submissionID uuid.UUID) ([]*domain.Document, error) {
	var out []*domain.Document
	for _, d := range r.s.documentsOf(submissionID) {
		d := d
		out = append(out, &d)
	}
	return out, nil
}

type memMappings struct{ s *memStore }

func (r memMappings) Create(_ context.Context, m *domain.SyncMapping) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failMappingFor != 0 && m.RemoteSubmissionID == r.s.failMappingFor {
		return errors.New("mapping insert failed")
	}
	for _, existing := range r.s.mappings {
		if existing.SubmissionID == m.SubmissionID ||
			(existing.JournalID == m.JournalID && existing.RemoteSubmissionID == m.RemoteSubmissionID) {
			return errors.New("duplicate mapping")
		}
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	r.s.mappings = append(r.s.mappings, *m)
	return nil
}

func (r memMappings) Update(_ context.Context, m *domain.SyncMapping) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.mappings {
		if r.s.mappings[i].ID == m.ID {
			r.s.mappings[i] = *m
			return nil
		}
	}
	return errors.New("no such mapping")
}

func (r memMappings) find(match func(m domain.SyncMapping) bool) *domain.SyncMapping {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.mappings {
		if match(m) {
			return &m
		}
	}
	return nil
}

func (r memMappings) GetByRemoteID(_ context.Context, journalID uuid.UUID, remoteID int) (*domain.SyncMapping, error) {
	return r.find(func(m domain.SyncMapping) bool {
		return m.JournalID == journalID && m.RemoteSubmissionID == remoteID
	}), nil
}

func (r memMappings) GetBySubmission(_ context.Context, submissionID uuid.UUID) (*domain.SyncMapping, error) {
	return r.find(func(m domain.SyncMapping) bool { return m.SubmissionID == submissionID }), nil
}

func (r memMappings) ListByJournal(_ context.Context, journalID uuid.UUID) ([]*domain.SyncMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.SyncMapping
	for _, m := range r.s.mappings {
		if m.JournalID == journalID {
			m := m
			out = append(out, &m)
		}
	}
	return out, nil
}

type upload struct {
	submissionID int
	name         string
	data         []byte
}

// fakeOJS is a scripted OJS client.
type fakeOJS struct {
	mu sync.Mutex

	submissions []ojs.Submission
	listErr     error
	listCalls   int
	// release, when set, blocks ListSubmissions until closed.
	release chan struct{}
	entered chan struct{}

	files     map[int][]ojs.SubmissionFile
	filesErr  error
	downloads map[int][]byte

	nextRemoteID   int
	createdShells  []ojs.SubmissionPayload
	publications   map[int]ojs.PublicationPayload
	publicationErr error
	updates        map[int]ojs.SubmissionPayload
	updateErr      error
	uploads        []upload
	uploadErr      error
}

func newFakeOJS(subs ...ojs.Submission) *fakeOJS {
	return &fakeOJS{
		submissions:  subs,
		files:        map[int][]ojs.SubmissionFile{},
		downloads:    map[int][]byte{},
		nextRemoteID: 500,
		publications: map[int]ojs.PublicationPayload{},
		updates:      map[int]ojs.SubmissionPayload{},
	}
}

func (f *fakeOJS) factory() ClientFactory {
	return func(*domain.Journal) OJSClient { return f }
}

func (f *fakeOJS) Locale() string { return "en_US" }

func (f *fakeOJS) ListSubmissions(ctx context.Context) ([]ojs.Submission, error) {
	f.mu.Lock()
	f.listCalls++
	release, entered := f.release, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]ojs.Submission(nil), f.submissions...), nil
}

func (f *fakeOJS) ListSubmissionFiles(_ context.Context, id int) ([]ojs.SubmissionFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.filesErr != nil {
		return nil, f.filesErr
	}
	return append([]ojs.SubmissionFile(nil), f.files[id]...), nil
}

func (f *fakeOJS) GalleyFiles(sub *ojs.Submission) []ojs.SubmissionFile {
	return ojs.NewClient("https://ojs.example.org/index.php/j", "").GalleyFiles(sub)
}

func (f *fakeOJS) DownloadFile(_ context.Context, _ *ojs.Submission, file *ojs.SubmissionFile) ([]byte, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.downloads[file.ID]
	if !ok {
		return nil, "", false
	}
	return data, "direct_url", true
}

func (f *fakeOJS) CreateSubmission(_ context.Context, payload ojs.SubmissionPayload) (*ojs.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRemoteID++
	f.createdShells = append(f.createdShells, payload)
	return &ojs.Submission{ID: f.nextRemoteID}, nil
}

func (f *fakeOJS) CreatePublication(_ context.Context, id int, payload ojs.PublicationPayload) (*ojs.Publication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publicationErr != nil {
		return nil, f.publicationErr
	}
	f.publications[id] = payload
	return &ojs.Publication{ID: 1, SubmissionID: id}, nil
}

func (f *fakeOJS) UpdateSubmission(_ context.Context, id int, payload ojs.SubmissionPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[id] = payload
	return nil
}

func (f *fakeOJS) UploadFile(_ context.Context, id int, name string, data []byte, _ int) (*ojs.SubmissionFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, upload{submissionID: id, name: name, data: data})
	return &ojs.SubmissionFile{ID: len(f.uploads), SubmissionID: id}, nil
}

// remoteSubmission builds a remote submission with one publication.
func remoteSubmission(id, status int, title string, authors ...ojs.Author) ojs.Submission {
	return ojs.Submission{
		ID:     id,
		Status: status,
		Publications: []ojs.Publication{{
			ID:       id * 10,
			Title:    ojs.LocalizedString{"en_US": title},
			Abstract: ojs.LocalizedString{"en_US": "<p>Abstract of <b>" + title + "</b></p>"},
			Authors:  authors,
		}},
	}
}

func remoteAuthor(id, seq int, given, family, email, orcid string) ojs.Author {
	return ojs.Author{
		ID:         id,
		Seq:        seq,
		GivenName:  ojs.LocalizedString{"en_US": given},
		FamilyName: ojs.LocalizedString{"en_US": family},
		Email:      email,
		ORCID:      orcid,
	}
}
