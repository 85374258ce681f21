// Package github is a small client for the GitHub REST endpoints the editor
// needs: repository contents, the authenticated user and rate limits.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/log"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// ErrNotAFile is returned when a contents path names a directory.
var ErrNotAFile = errors.New("path is not a file")

// Options configures a Client.
type Options struct {
	APIURL string // defaults to DefaultAPIURL
	Owner  string
	Repo   string
	Branch string // empty means the repository default branch
	// HTTPClient is the base transport. The token source is layered on top.
	HTTPClient *http.Client
}

// Client talks to one repository.
type Client struct {
	http    *http.Client
	baseURL string
	owner   string
	repo    string
	branch  string
}

// NewClient returns a client authenticated by ts. A nil ts sends
// unauthenticated requests, which is enough for public repositories.
func NewClient(ts oauth2.TokenSource, opts Options) *Client {
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	hc := base
	if ts != nil {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		hc = oauth2.NewClient(ctx, ts)
		hc.Timeout = base.Timeout
	}

	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		http:    hc,
		baseURL: apiURL,
		owner:   opts.Owner,
		repo:    opts.Repo,
		branch:  opts.Branch,
	}
}

// Repo returns "owner/repo".
func (c *Client) Repo() string { return c.owner + "/" + c.repo }

// File is a decoded repository file.
type File struct {
	Path    string
	SHA     string
	Size    int
	Content []byte
}

type contentsResponse struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// GetFile reads one file from the configured branch. Missing files fail
// with an error matching domain.ErrNotFound.
func (c *Client) GetFile(ctx context.Context, path string) (*File, error) {
	endpoint := c.contentsURL(path)
	if c.branch != "" {
		endpoint += "?ref=" + url.QueryEscape(c.branch)
	}

	var resp contentsResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Type != "file" {
		return nil, fmt.Errorf("%s: %w", path, ErrNotAFile)
	}

	data, err := decodeContent(resp.Encoding, resp.Content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &File{Path: resp.Path, SHA: resp.SHA, Size: resp.Size, Content: data}, nil
}

func decodeContent(encoding, raw string) ([]byte, error) {
	if encoding != "" && encoding != "base64" {
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	// GitHub wraps base64 at 60 columns.
	return base64.StdEncoding.DecodeString(strings.ReplaceAll(raw, "\n", ""))
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"commit"`
}

// Commit describes the result of a PutFile.
type Commit struct {
	FileSHA string
	SHA     string
	URL     string
}

// PutFile creates or updates path. sha must be the current blob sha when
// the file exists and empty when it does not.
func (c *Client) PutFile(ctx context.Context, path string, data []byte, message, sha string) (*Commit, error) {
	body := putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(data),
		SHA:     sha,
		Branch:  c.branch,
	}

	var resp putResponse
	if err := c.do(ctx, http.MethodPut, c.contentsURL(path), body, &resp); err != nil {
		return nil, err
	}
	log.Info(log.CatGitHub, "file committed", "repo", c.Repo(), "path", path, "commit", resp.Commit.SHA)
	return &Commit{FileSHA: resp.Content.SHA, SHA: resp.Commit.SHA, URL: resp.Commit.HTMLURL}, nil
}

// User is the authenticated account.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// AuthenticatedUser returns the owner of the token.
func (c *Client) AuthenticatedUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RateLimit is the core API quota.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimit reports the remaining core quota.
func (c *Client) RateLimit(ctx context.Context) (*RateLimit, error) {
	var resp struct {
		Rate struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			Reset     int64 `json:"reset"`
		} `json:"rate"`
	}
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/rate_limit", nil, &resp); err != nil {
		return nil, err
	}
	return &RateLimit{
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		Reset:     time.Unix(resp.Rate.Reset, 0),
	}, nil
}

func (c *Client) contentsURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(c.owner), url.PathEscape(c.repo), strings.Join(segments, "/"))
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.UpstreamError{Service: "github", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug(log.CatGitHub, "api call", "method", method, "url", endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps a failed response to an error with a message a user can
// act on.
func (c *Client) statusError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)

	upstream := &domain.UpstreamError{Service: "github", Status: resp.StatusCode, Description: payload.Message}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		upstream.Description = "Authentication failed. Please log in again."
	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
			upstream.Description = "API rate limit exceeded. Resets at " + time.Unix(reset, 0).Local().Format(time.Kitchen)
		} else {
			upstream.Description = "Permission denied. Check repository access."
		}
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, resp.Request.URL.Path)
	}
	return upstream
}
