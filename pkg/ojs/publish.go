package ojs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
)

// CreateSubmission creates an empty submission shell in the journal.
func (c *Client) CreateSubmission(ctx context.Context, payload SubmissionPayload) (*Submission, error) {
	var sub Submission
	if err := c.sendJSON(ctx, http.MethodPost, "/submissions", payload, &sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	if sub.ID == 0 {
		return nil, fmt.Errorf("create submission: response carried no id")
	}
	return &sub, nil
}

// CreatePublication attaches a publication version with its authors.
func (c *Client) CreatePublication(ctx context.Context, submissionID int, payload PublicationPayload) (*Publication, error) {
	var pub Publication
	endpoint := "/submissions/" + strconv.Itoa(submissionID) + "/publications"
	if err := c.sendJSON(ctx, http.MethodPost, endpoint, payload, &pub); err != nil {
		return nil, fmt.Errorf("create publication for submission %d: %w", submissionID, err)
	}
	return &pub, nil
}

// UpdateSubmission overwrites submission data on an existing remote id.
func (c *Client) UpdateSubmission(ctx context.Context, submissionID int, payload SubmissionPayload) error {
	endpoint := "/submissions/" + strconv.Itoa(submissionID)
	if err := c.sendJSON(ctx, http.MethodPut, endpoint, payload, nil); err != nil {
		return fmt.Errorf("update submission %d: %w", submissionID, err)
	}
	return nil
}

// UploadFile sends one file as multipart form data into the given stage.
func (c *Client) UploadFile(ctx context.Context, submissionID int, fileName string, data []byte, fileStage int) (*SubmissionFile, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("fileStage", strconv.Itoa(fileStage)); err != nil {
		return nil, err
	}
	if err := w.WriteField("name["+c.locale+"]", fileName); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	endpoint := c.apiURL("/submissions/"+strconv.Itoa(submissionID)+"/files", nil)
	body, err := c.doRequest(ctx, http.MethodPost, endpoint, &buf, w.FormDataContentType(), true)
	if err != nil {
		return nil, fmt.Errorf("upload %s to submission %d: %w", fileName, submissionID, err)
	}

	var f SubmissionFile
	if len(body) > 0 {
		// Older installs answer with an empty or non-JSON body.
		_ = json.Unmarshal(body, &f)
	}
	return &f, nil
}
