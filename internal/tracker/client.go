// Package tracker is a thin client for the three GitHub issue operations the
// reporter needs: search by fingerprint marker, create, and comment.
//
// Every call is a single request. Nothing is retried; callers decide what a
// failure means.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/eussiror/internal/metrics"
)

const (
	// Version is reported in the User-Agent header.
	Version = "0.1.0"

	// FingerprintMarker is embedded next to the fingerprint in every issue body.
	FingerprintMarker = "eussiror:fingerprint"

	// DefaultTimeout bounds a single tracker request when no HTTP client is supplied.
	DefaultTimeout = 10 * time.Second

	defaultBaseURL   = "https://api.github.com"
	defaultVersion   = "2022-11-28"
	defaultUserAgent = "eussiror/" + Version
	acceptHeader     = "application/vnd.github+json"
)

// IssueNumber identifies an issue within the repository.
type IssueNumber int

// CommentID identifies an issue comment.
type CommentID int64

// IssueRequest is the payload for creating an issue. Empty labels and
// assignees are left out of the request entirely.
type IssueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

type commentRequest struct {
	Body string `json:"body"`
}

type searchResponse struct {
	Items []struct {
		Number IssueNumber `json:"number"`
	} `json:"items"`
}

type issueResponse struct {
	Number IssueNumber `json:"number"`
}

type commentResponse struct {
	ID CommentID `json:"id"`
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom API base URL (GitHub Enterprise, tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithVersion sets the X-GitHub-Api-Version header.
func WithVersion(version string) ClientOption {
	return func(c *Client) {
		c.version = version
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// Client talks to the GitHub REST API on behalf of one repository.
type Client struct {
	token      string
	repository string
	baseURL    string
	version    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a client for repository ("owner/name") authenticated with token.
func NewClient(token, repository string, opts ...ClientOption) *Client {
	c := &Client{
		token:      token,
		repository: repository,
		baseURL:    defaultBaseURL,
		version:    defaultVersion,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(DefaultTimeout)
	}
	return c
}

// NewHTTPClient returns an HTTP client with a fixed timeout whose transport
// emits OpenTelemetry client spans.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// SearchQuery builds the issue search query matching fingerprint in open issue bodies.
func SearchQuery(repository, fingerprint string) string {
	return fmt.Sprintf(`repo:%s is:issue is:open "%s:%s" in:body`, repository, FingerprintMarker, fingerprint)
}

// Marker returns the hidden HTML comment that tags an issue body with fingerprint.
func Marker(fingerprint string) string {
	return fmt.Sprintf("<!-- %s:%s -->", FingerprintMarker, fingerprint)
}

// FindIssue searches for an open issue carrying fingerprint.
// A non-success status, an unreadable body or an empty result is a miss, not
// an error; only a request that could not be performed returns an error.
func (c *Client) FindIssue(ctx context.Context, fingerprint string) (IssueNumber, bool, error) {
	params := url.Values{}
	params.Set("q", SearchQuery(c.repository, fingerprint))
	params.Set("per_page", "1")

	status, body, err := c.do(ctx, "find_issue", http.MethodGet, c.baseURL+"/search/issues?"+params.Encode(), nil)
	if err != nil {
		return 0, false, err
	}
	if !isSuccess(status) {
		return 0, false, nil
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, false, nil
	}
	if len(result.Items) == 0 {
		return 0, false, nil
	}
	return result.Items[0].Number, true, nil
}

// CreateIssue opens a new issue and returns its number.
func (c *Client) CreateIssue(ctx context.Context, req IssueRequest) (IssueNumber, error) {
	const op = "create issue"

	status, body, err := c.do(ctx, "create_issue", http.MethodPost, c.repoURL("/issues"), req)
	if err != nil {
		return 0, err
	}
	if !isSuccess(status) {
		return 0, &APIError{Op: op, StatusCode: status, Body: string(body)}
	}

	var result issueResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to unmarshal %s response: %w", op, err)
	}
	return result.Number, nil
}

// AddComment posts body as a comment on issue number and returns the comment ID.
func (c *Client) AddComment(ctx context.Context, number IssueNumber, body string) (CommentID, error) {
	const op = "add comment"

	status, respBody, err := c.do(ctx, "add_comment", http.MethodPost,
		c.repoURL(fmt.Sprintf("/issues/%d/comments", number)), commentRequest{Body: body})
	if err != nil {
		return 0, err
	}
	if !isSuccess(status) {
		return 0, &APIError{Op: op, StatusCode: status, Body: string(respBody)}
	}

	var result commentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, fmt.Errorf("failed to unmarshal %s response: %w", op, err)
	}
	return result.ID, nil
}

func (c *Client) repoURL(suffix string) string {
	return c.baseURL + "/repos/" + c.repository + suffix
}

// do performs one request and returns the status code and full response body.
func (c *Client) do(ctx context.Context, operation, method, endpoint string, payload any) (int, []byte, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveTrackerRequest(operation, time.Since(start))
	}()

	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", c.version)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
