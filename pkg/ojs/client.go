// Package ojs is a client for the Open Journal Systems REST API (v1),
// including the cookie workaround some hosted OJS installs need before
// they will answer API calls.
package ojs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultUserAgent mimics a desktop browser; bot filters in front of
	// several OJS hosts reject obvious API clients outright.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	DefaultPageSize = 100
	DefaultLocale   = "en_US"
)

var ErrNotFound = errors.New("ojs: resource not found")

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ojs %s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client talks to one OJS journal. It is safe to reuse across calls but
// not designed for concurrent imports against the same instance.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	userAgent      string
	locale         string
	pageSize       int
	challengeDelay time.Duration
	logger         *slog.Logger

	sessionOnce sync.Once
}

// Option configures the OJS client.
type Option func(*Client)

// WithHTTPClient uses a shallow copy of hc; the caller's client is never
// modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.httpClient = &clone
	}
}

func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }
func WithLocale(locale string) Option { return func(c *Client) { c.locale = locale } }
func WithPageSize(n int) Option { return func(c *Client) { c.pageSize = n } }
func WithChallengeDelay(d time.Duration) Option { return func(c *Client) { c.challengeDelay = d } }
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.httpClient.Timeout = d } }

// NewClient creates a client for the journal at baseURL, e.g.
// "https://ojs.example.org/index.php/myjournal".
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		userAgent:      DefaultUserAgent,
		locale:         DefaultLocale,
		pageSize:       DefaultPageSize,
		challengeDelay: time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		c.httpClient.Jar = jar
	}
	c.logger = c.logger.With("component", "ojs", "journal_url", c.baseURL)
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }
func (c *Client) Locale() string  { return c.locale }

func (c *Client) apiURL(endpoint string, params url.Values) string {
	u := c.baseURL + "/api/v1" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// siteURL strips the "/index.php/<journal>" suffix, leaving the install root
// under which the public files directory lives.
func (c *Client) siteURL() string {
	if idx := strings.Index(c.baseURL, "/index.php"); idx >= 0 {
		return c.baseURL[:idx]
	}
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader, authenticated bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, */*;q=0.8")
	if authenticated && c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// doRequest performs a request and returns the body of a 2xx response.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, body io.Reader, contentType string, authenticated bool) ([]byte, error) {
	data, _, err := c.doRequestWithHeaders(ctx, method, rawURL, body, contentType, authenticated)
	return data, err
}

func (c *Client) doRequestWithHeaders(ctx context.Context, method, rawURL string, body io.Reader, contentType string, authenticated bool) ([]byte, http.Header, error) {
	c.EstablishSession(ctx)

	req, err := c.newRequest(ctx, method, rawURL, body, authenticated)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("ojs %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &APIError{
			Method:     method,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Body:       string(data[:min(500, len(data))]),
		}
	}
	return data, resp.Header, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	body, err := c.doRequest(ctx, http.MethodGet, c.apiURL(endpoint, params), nil, "", true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, payload, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	body, err := c.doRequest(ctx, method, c.apiURL(endpoint, nil), bytes.NewReader(buf), "application/json", true)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", endpoint, err)
	}
	return nil
}

// ListSubmissions fetches every submission of the journal, sorted by id.
func (c *Client) ListSubmissions(ctx context.Context) ([]Submission, error) {
	return FetchAll(ctx, c, "/submissions", c.pageSize, func(s Submission) int { return s.ID })
}

// ListUsers fetches every user account visible to the API key, sorted by id.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return FetchAll(ctx, c, "/users", c.pageSize, func(u User) int { return u.ID })
}

func (c *Client) GetSubmission(ctx context.Context, id int) (*Submission, error) {
	var sub Submission
	if err := c.getJSON(ctx, "/submissions/"+strconv.Itoa(id), nil, &sub); err != nil {
		return nil, fmt.Errorf("get submission %d: %w", id, err)
	}
	return &sub, nil
}

// ListSubmissionFiles returns the file descriptors attached to a submission.
func (c *Client) ListSubmissionFiles(ctx context.Context, submissionID int) ([]SubmissionFile, error) {
	var resp ListResponse[SubmissionFile]
	if err := c.getJSON(ctx, "/submissions/"+strconv.Itoa(submissionID)+"/files", nil, &resp); err != nil {
		return nil, fmt.Errorf("list files of submission %d: %w", submissionID, err)
	}
	return resp.Items, nil
}

// Ping checks connectivity and credentials with the cheapest list call.
func (c *Client) Ping(ctx context.Context) (int, error) {
	var resp ListResponse[Submission]
	params := url.Values{}
	params.Set("count", "1")
	if err := c.getJSON(ctx, "/submissions", params, &resp); err != nil {
		return 0, err
	}
	return resp.ItemsMax, nil
}
