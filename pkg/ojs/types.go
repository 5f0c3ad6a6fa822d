package ojs

import (
	"bytes"
	"encoding/json"
	"path"
	"sort"
	"strconv"
	"strings"
)

// OJS workflow file stages (SUBMISSION_FILE_* constants).
const (
	FileStageSubmission      = 2
	FileStageNote            = 3
	FileStageReviewFile      = 4
	FileStageReviewAttach    = 5
	FileStageFinal           = 6
	FileStageCopyedit        = 9
	FileStageProofCopyedited = 10
	FileStageProductionReady = 11
	FileStageAttachment      = 13
	FileStageReviewRevision  = 15
)

// LocalizedString is an OJS multilingual field. The API returns either a
// plain string or an object keyed by locale ("en_US", "fr_CA", ...).
type LocalizedString map[string]string

func (l *LocalizedString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = LocalizedString{"": s}
		return nil
	}
	// Empty localized fields come back as [] from some OJS versions.
	if data[0] == '[' {
		*l = nil
		return nil
	}
	m := map[string]*string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(LocalizedString, len(m))
	for k, v := range m {
		if v != nil {
			out[k] = *v
		}
	}
	*l = out
	return nil
}

// Value returns the text for locale, falling back to any non-empty
// translation in stable key order.
func (l LocalizedString) Value(locale string) string {
	if v := strings.TrimSpace(l[locale]); v != "" {
		return v
	}
	if v := strings.TrimSpace(l[""]); v != "" {
		return v
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := strings.TrimSpace(l[k]); v != "" {
			return v
		}
	}
	return ""
}

// ListResponse is the envelope of every OJS collection endpoint.
type ListResponse[T any] struct {
	ItemsMax int `json:"itemsMax"`
	Items    []T `json:"items"`
}

type Submission struct {
	ID                   int           `json:"id"`
	ContextID            int           `json:"contextId"`
	Status               int           `json:"status"`
	StageID              int           `json:"stageId"`
	DateSubmitted        string        `json:"dateSubmitted"`
	LastModified         string        `json:"lastModified"`
	Locale               string        `json:"locale"`
	CurrentPublicationID int           `json:"currentPublicationId"`
	Publications         []Publication `json:"publications"`
	ReviewRounds         []ReviewRound `json:"reviewRounds"`
	URLWorkflow          string        `json:"urlWorkflow"`
	URLPublished         string        `json:"urlPublished"`
}

// FirstPublication returns the first publication entry, or nil.
func (s *Submission) FirstPublication() *Publication {
	if len(s.Publications) == 0 {
		return nil
	}
	return &s.Publications[0]
}

// GalleyForFile finds the galley rendering the given submission file.
func (s *Submission) GalleyForFile(fileID int) (*Publication, *Galley) {
	for i := range s.Publications {
		pub := &s.Publications[i]
		for j := range pub.Galleys {
			g := &pub.Galleys[j]
			if g.SubmissionFileID == fileID || (g.File != nil && g.File.ID == fileID) {
				return pub, g
			}
		}
	}
	return nil, nil
}

type Publication struct {
	ID             int             `json:"id"`
	SubmissionID   int             `json:"submissionId"`
	SectionID      int             `json:"sectionId"`
	Status         int             `json:"status"`
	Version        int             `json:"version"`
	Title          LocalizedString `json:"title"`
	FullTitle      LocalizedString `json:"fullTitle"`
	Abstract       LocalizedString `json:"abstract"`
	DatePublished  string          `json:"datePublished"`
	PrimaryContact int             `json:"primaryContactId"`
	Authors        []Author        `json:"authors"`
	Galleys        []Galley        `json:"galleys"`
}

// SortedAuthors returns the authors ordered by their seq value.
func (p *Publication) SortedAuthors() []Author {
	out := make([]Author, len(p.Authors))
	copy(out, p.Authors)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

type Author struct {
	ID             int             `json:"id"`
	GivenName      LocalizedString `json:"givenName"`
	FamilyName     LocalizedString `json:"familyName"`
	Email          string          `json:"email"`
	ORCID          string          `json:"orcid"`
	Affiliation    LocalizedString `json:"affiliation"`
	Country        string          `json:"country"`
	Seq            int             `json:"seq"`
	PrimaryContact bool            `json:"primaryContact"`
}

// FullName joins given and family name for the locale.
func (a *Author) FullName(locale string) string {
	return strings.TrimSpace(a.GivenName.Value(locale) + " " + a.FamilyName.Value(locale))
}

// NormalizeORCID strips the resolver prefix so "https://orcid.org/0000-..."
// and "0000-..." compare equal.
func NormalizeORCID(orcid string) string {
	orcid = strings.TrimSpace(orcid)
	for _, prefix := range []string{"https://orcid.org/", "http://orcid.org/", "orcid.org/"} {
		orcid = strings.TrimPrefix(orcid, prefix)
	}
	return strings.ToUpper(strings.Trim(orcid, "/"))
}

type Galley struct {
	ID               int             `json:"id"`
	Label            string          `json:"label"`
	Locale           string          `json:"locale"`
	SubmissionFileID int             `json:"submissionFileId"`
	File             *SubmissionFile `json:"file"`
	URLPublished     string          `json:"urlPublished"`
	URLRemote        string          `json:"urlRemote"`
}

type SubmissionFile struct {
	ID           int             `json:"id"`
	FileID       int             `json:"fileId"`
	SubmissionID int             `json:"submissionId"`
	FileStage    int             `json:"fileStage"`
	MimeType     string          `json:"mimetype"`
	Name         LocalizedString `json:"name"`
	Path         string          `json:"path"`
	URL          string          `json:"url"`
	// GalleyURL is set when the descriptor was derived from a galley.
	GalleyURL string `json:"galleyUrl,omitempty"`
}

// FileName picks a usable file name: localized name, path base, then id.
func (f *SubmissionFile) FileName(locale string) string {
	if name := f.Name.Value(locale); name != "" {
		return name
	}
	if f.Path != "" {
		return path.Base(f.Path)
	}
	return "file-" + strconv.Itoa(f.ID)
}

type ReviewRound struct {
	ID      int    `json:"id"`
	Round   int    `json:"round"`
	StageID int    `json:"stageId"`
	Status  int    `json:"statusId"`
	Label   string `json:"status"`
}

type User struct {
	ID         int             `json:"id"`
	UserName   string          `json:"userName"`
	Email      string          `json:"email"`
	FullName   string          `json:"fullName"`
	GivenName  LocalizedString `json:"givenName"`
	FamilyName LocalizedString `json:"familyName"`
	ORCID      string          `json:"orcid"`
	Disabled   bool            `json:"disabled"`
}

// --- push payloads ---

type SubmissionPayload struct {
	SectionID int    `json:"sectionId"`
	Locale    string `json:"locale"`
	// Title and Abstract are only honoured by PUT on existing submissions.
	Title    LocalizedString `json:"title,omitempty"`
	Abstract LocalizedString `json:"abstract,omitempty"`
}

type PublicationPayload struct {
	SectionID int             `json:"sectionId,omitempty"`
	Title     LocalizedString `json:"title"`
	Abstract  LocalizedString `json:"abstract"`
	Authors   []AuthorPayload `json:"authors"`
}

type AuthorPayload struct {
	GivenName      LocalizedString `json:"givenName"`
	FamilyName     LocalizedString `json:"familyName"`
	Email          string          `json:"email"`
	ORCID          string          `json:"orcid,omitempty"`
	Affiliation    LocalizedString `json:"affiliation,omitempty"`
	Seq            int             `json:"seq"`
	PrimaryContact bool            `json:"primaryContact"`
	IncludeInList  bool            `json:"includeInBrowse"`
}
