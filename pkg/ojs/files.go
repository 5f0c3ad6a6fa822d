package ojs

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// minFileSize is the size under which a body containing markup is treated as
// an error page rather than a real file.
const minFileSize = 1000

var (
	// Any opening tag (<b>, <br/>, <!doctype ...>) or closing tag (</td>).
	htmlTagRe = regexp.MustCompile(`(?i)<(?:[a-z!][a-z0-9-]*[\s>/]|/[a-z][a-z0-9-]*\s*>)`)

	errNotApplicable = errors.New("strategy not applicable")
	errNotAFile      = errors.New("response is not a file")
)

// FileStrategy is one way of obtaining the bytes of a submission file.
type FileStrategy struct {
	Name  string
	Fetch func(ctx context.Context, c *Client, sub *Submission, f *SubmissionFile) ([]byte, error)
}

// DefaultFileStrategies are tried in order until one yields a real file.
var DefaultFileStrategies = []FileStrategy{
	{Name: "direct_url", Fetch: fetchDirectURL},
	{Name: "files_dir", Fetch: fetchFilesDir},
	{Name: "file_api", Fetch: fetchInternalFileAPI},
	{Name: "galley", Fetch: fetchGalley},
}

// DownloadFile walks the strategy chain and returns the first payload that
// looks like an actual file, along with the name of the strategy that
// produced it. ok is false when every strategy failed.
func (c *Client) DownloadFile(ctx context.Context, sub *Submission, f *SubmissionFile) (data []byte, strategy string, ok bool) {
	for _, s := range DefaultFileStrategies {
		body, err := s.Fetch(ctx, c, sub, f)
		if err == nil && !LooksLikeFile(body) {
			err = errNotAFile
		}
		if err != nil {
			if !errors.Is(err, errNotApplicable) {
				c.logger.Debug("file strategy failed", "strategy", s.Name, "submission_id", sub.ID, "file_id", f.ID, "error", err)
			}
			continue
		}
		return body, s.Name, true
	}
	c.logger.Info("no strategy could download file", "submission_id", sub.ID, "file_id", f.ID)
	return nil, "", false
}

// LooksLikeFile rejects empty bodies and short bodies carrying HTML markup,
// which is what OJS serves for login redirects and error pages.
func LooksLikeFile(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	return len(body) >= minFileSize || !htmlTagRe.Match(body)
}

func fetchDirectURL(ctx context.Context, c *Client, _ *Submission, f *SubmissionFile) ([]byte, error) {
	if f.URL == "" {
		return nil, errNotApplicable
	}
	return c.doRequest(ctx, http.MethodGet, f.URL, nil, "", true)
}

func fetchFilesDir(ctx context.Context, c *Client, _ *Submission, f *SubmissionFile) ([]byte, error) {
	if f.Path == "" {
		return nil, errNotApplicable
	}
	segments := strings.Split(strings.TrimLeft(f.Path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return c.doRequest(ctx, http.MethodGet, c.siteURL()+"/files/"+strings.Join(segments, "/"), nil, "", false)
}

// fetchInternalFileAPI uses the undocumented handler the OJS web UI downloads
// through. It answers errors with a JSON envelope instead of an HTTP status.
func fetchInternalFileAPI(ctx context.Context, c *Client, sub *Submission, f *SubmissionFile) ([]byte, error) {
	stageID := sub.StageID
	if stageID == 0 {
		stageID = 1
	}
	params := url.Values{}
	params.Set("submissionFileId", strconv.Itoa(f.ID))
	params.Set("submissionId", strconv.Itoa(sub.ID))
	params.Set("stageId", strconv.Itoa(stageID))
	u := c.baseURL + "/$$$call$$$/api/file/file-api/download-file?" + params.Encode()

	body, header, err := c.doRequestWithHeaders(ctx, http.MethodGet, u, nil, "", true)
	if err != nil {
		return nil, err
	}
	if isJSONContent(header.Get("Content-Type")) && gjson.ValidBytes(body) {
		if status := gjson.GetBytes(body, "status"); status.Exists() && !status.Bool() {
			return nil, fmt.Errorf("file api error: %s", gjson.GetBytes(body, "content").String())
		}
		if e := gjson.GetBytes(body, "error"); e.Exists() {
			return nil, fmt.Errorf("file api error: %s", e.String())
		}
	}
	return body, nil
}

// isJSONContent reports whether the response was served as JSON rather than
// as a file that happens to contain JSON.
func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func fetchGalley(ctx context.Context, c *Client, sub *Submission, f *SubmissionFile) ([]byte, error) {
	u := f.GalleyURL
	if u == "" {
		fresh, err := c.GetSubmission(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		_, g := fresh.GalleyForFile(f.ID)
		if g == nil {
			return nil, errNotApplicable
		}
		u = c.GalleyDownloadURL(sub.ID, g)
	}
	return c.doRequest(ctx, http.MethodGet, u, nil, "", true)
}

// GalleyDownloadURL is the public download link of a galley.
func (c *Client) GalleyDownloadURL(submissionID int, g *Galley) string {
	if g.URLRemote != "" {
		return g.URLRemote
	}
	fileID := g.SubmissionFileID
	if fileID == 0 && g.File != nil {
		fileID = g.File.ID
	}
	return fmt.Sprintf("%s/article/download/%d/%d/%d", c.baseURL, submissionID, g.ID, fileID)
}

// GalleyFiles derives file descriptors from a submission's galleys, for use
// when the files endpoint is not available to the API key.
func (c *Client) GalleyFiles(sub *Submission) []SubmissionFile {
	var files []SubmissionFile
	for i := range sub.Publications {
		for j := range sub.Publications[i].Galleys {
			g := &sub.Publications[i].Galleys[j]
			if g.File == nil && g.SubmissionFileID == 0 {
				continue
			}
			var f SubmissionFile
			if g.File != nil {
				f = *g.File
			} else {
				f = SubmissionFile{ID: g.SubmissionFileID, FileStage: FileStageProductionReady}
			}
			if f.SubmissionID == 0 {
				f.SubmissionID = sub.ID
			}
			f.GalleyURL = c.GalleyDownloadURL(sub.ID, g)
			files = append(files, f)
		}
	}
	return files
}
