package ojs

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Markers of the JavaScript cookie challenge served by shared hosting
// bot filters in front of OJS installs.
var challengeMarkers = []string{
	"document.cookie",
	"challenge-platform",
	"humans_21909",
	"slowAES.decrypt",
}

var challengeCookieRe = regexp.MustCompile(`document\.cookie\s*=\s*["']\s*([A-Za-z0-9_\-]+)=([^;"']*)`)

// EstablishSession primes the cookie jar with an unauthenticated request to
// the journal home page. When the response is a bot challenge, the cookie the
// challenge script would set is extracted and the request is retried once.
// A 409 is treated as a challenge even when its body carries no script.
// It runs at most once per client; failures are logged and ignored.
func (c *Client) EstablishSession(ctx context.Context) {
	c.sessionOnce.Do(func() {
		if err := c.establishSession(ctx); err != nil {
			c.logger.Warn("session bootstrap failed, continuing without cookies", "error", err)
		}
	})
}

func (c *Client) establishSession(ctx context.Context) error {
	status, body, err := c.fetchHome(ctx)
	if err != nil {
		return err
	}
	if !isChallenge(status, body) {
		c.logger.Debug("session established", "status", status)
		return nil
	}

	// Without a script cookie the retry relies on whatever Set-Cookie the
	// challenge response already put in the jar.
	if name, value, ok := ExtractChallengeCookie(body); ok {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return err
		}
		c.httpClient.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
		c.logger.Info("bot challenge cookie injected, retrying", "cookie", name)
	} else {
		c.logger.Info("bot challenge detected without script cookie, retrying", "status", status)
	}

	select {
	case <-time.After(c.challengeDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	status, _, err = c.fetchHome(ctx)
	if err != nil {
		return err
	}
	c.logger.Debug("session established after challenge", "status", status)
	return nil
}

func (c *Client) fetchHome(ctx context.Context) (int, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL, nil, false)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}

func isChallenge(status int, body string) bool {
	if status == http.StatusConflict {
		return true
	}
	for _, marker := range challengeMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// ExtractChallengeCookie pulls the name=value pair out of inline script text
// such as `document.cookie = "humans_21909=1; path=/"`.
func ExtractChallengeCookie(body string) (name, value string, ok bool) {
	m := challengeCookieRe.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}
