// Package gitlab provides a minimal client for the GitLab v4 REST API
// surface needed to resolve releases and compare revisions.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/fetch"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

const (
	// DefaultBaseURL is the API root of gitlab.com.
	DefaultBaseURL = "https://gitlab.com/api/v4"

	// ComparePerPage is the page size requested from the compare endpoint.
	ComparePerPage = 1000

	// DiffPerPage is the page size requested from the commit diff endpoint.
	DiffPerPage = 1000000

	// TokenHeader carries the private access credential.
	TokenHeader = "PRIVATE-TOKEN"

	// maxJSONResponseBytes is the upper bound on JSON API response size (64 MB).
	// Diff pages of large commits are big; anything beyond this is refused.
	maxJSONResponseBytes = 64 << 20

	defaultUserAgent = "patchlaunch/dev"
)

var (
	// ErrNetwork marks transport failures and unexpected statuses.
	ErrNetwork = fetch.ErrNetwork

	// ErrNotFound marks 404/410 responses.
	ErrNotFound = fetch.ErrNotFound

	// ErrAPIFormat is returned when a response cannot be decoded or lacks a
	// required field.
	ErrAPIFormat = errors.New("unexpected API response format")
)

// StatusError is returned for non-2xx responses.
type StatusError = fetch.StatusError

// Client queries one GitLab project.
type Client struct {
	httpClient *http.Client
	baseURL    string
	projectID  string
	token      string
	userAgent  string
	logger     logger.Logger
}

// ClientOption configures a Client during construction.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *Client) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) ClientOption {
	return func(g *Client) {
		if base != "" {
			g.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithToken sets the private access token.
func WithToken(token string) ClientOption {
	return func(g *Client) {
		g.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log logger.Logger) ClientOption {
	return func(g *Client) {
		if log != nil {
			g.logger = log
		}
	}
}

// NewClient creates a Client for projectID, which may be numeric or a
// "group/project" path.
func NewClient(projectID string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		projectID:  projectID,
		userAgent:  defaultUserAgent,
		logger:     logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListReleases returns the project's releases, newest first as ordered by the server.
// Only the newest release must be well formed; older entries missing a tag or
// commit are skipped.
func (c *Client) ListReleases(ctx context.Context) ([]Release, error) {
	var raw []wireRelease
	if err := c.getJSON(ctx, c.projectURL("releases", nil), &raw); err != nil {
		return nil, errors.Wrap(err, "listing releases")
	}

	releases := make([]Release, 0, len(raw))

	for i, wr := range raw {
		r, err := wr.toRelease()
		if err != nil {
			if i == 0 {
				return nil, errors.Wrap(err, "listing releases: latest release")
			}

			c.logger.Debug("skipping malformed release", "index", i, "error", err)

			continue
		}

		releases = append(releases, r)
	}

	return releases, nil
}

// Compare returns the commits reachable from to but not from from, oldest first.
func (c *Client) Compare(ctx context.Context, from, to string) ([]Commit, error) {
	query := url.Values{}
	query.Set("from", from)
	query.Set("to", to)
	query.Set("per_page", strconv.Itoa(ComparePerPage))

	var raw wireCompare
	if err := c.getJSON(ctx, c.projectURL("repository/compare", query), &raw); err != nil {
		return nil, errors.Wrapf(err, "comparing %s...%s", from, to)
	}

	commits := make([]Commit, 0, len(raw.Commits))

	for i, wc := range raw.Commits {
		if wc.ID == "" {
			return nil, errors.Wrapf(ErrAPIFormat, "comparing %s...%s: commit %d has no id", from, to, i)
		}

		commits = append(commits, Commit(wc))
	}

	return commits, nil
}

// CommitDiff returns one page (1-based) of the file diffs of a commit. An
// empty slice means there are no more pages.
func (c *Client) CommitDiff(ctx context.Context, sha string, page int) ([]Diff, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(DiffPerPage))
	query.Set("page", strconv.Itoa(page))

	var raw []wireDiff
	if err := c.getJSON(ctx, c.projectURL("repository/commits/"+url.PathEscape(sha)+"/diff", query), &raw); err != nil {
		return nil, errors.Wrapf(err, "diff of %s page %d", sha, page)
	}

	diffs := make([]Diff, 0, len(raw))

	for i, wd := range raw {
		if wd.OldPath == "" || wd.NewPath == "" {
			return nil, errors.Wrapf(ErrAPIFormat, "diff of %s page %d: entry %d has no path", sha, page, i)
		}

		diffs = append(diffs, Diff(wd))
	}

	return diffs, nil
}

func (c *Client) projectURL(suffix string, query url.Values) string {
	u := fmt.Sprintf("%s/projects/%s/%s", c.baseURL, url.PathEscape(c.projectID), suffix)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return u
}

// getJSON performs a GET and decodes a JSON body into out.
func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, reqURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only response body

	c.logger.Debug("gitlab response", "url", redactURL(reqURL), "status", resp.StatusCode)

	if !fetch.IsSuccess(resp.StatusCode) {
		return fetch.NewStatusError(http.MethodGet, redactURL(reqURL), resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(out); err != nil {
		return errors.Mark(errors.Wrap(err, "decoding response"), ErrAPIFormat)
	}

	return nil
}

// doRequest creates and executes an HTTP request with the common API headers.
func (c *Client) doRequest(ctx context.Context, method, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	// The token only goes to the configured API host.
	if c.token != "" && sameHost(req.URL, c.baseURL) {
		req.Header.Set(TokenHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "requesting %s", redactURL(reqURL)), ErrNetwork)
	}

	return resp, nil
}

func sameHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}

	return strings.EqualFold(reqURL.Host, base.Host)
}

// redactURL strips query parameters and fragments for safe inclusion in
// logs and errors.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}
