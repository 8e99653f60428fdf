// Package github implements adapter.ContentStore on top of the GitHub
// Contents API. Every entry lives as a file in a repository branch; the
// blob SHA doubles as the revision token. All payloads cross the wire
// base64-encoded, so this package is the only place that transcodes.
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
	"strings"
	"time"

	"github.com/kashw/keepsake/internal/adapter"
)

const defaultBaseURL = "https://api.github.com"

// Options configures a Client.
type Options struct {
	// BaseURL overrides the GitHub API root, mainly for tests.
	BaseURL string
	// Repo is the "owner/name" of the content repository.
	Repo string
	// Branch is the revision line all reads and writes target.
	Branch string
	// Token is the access credential sent on every request.
	Token string
	// HTTPClient overrides the default client (20s timeout).
	HTTPClient *http.Client
}

// Client talks to the Contents API for a single repository + branch.
type Client struct {
	baseURL    string
	repo       string
	branch     string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client. Repo and Token are expected to be validated
// by the caller; an empty Token still works against public repositories
// for reads but every write will come back ErrUnauthorized.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	branch := opts.Branch
	if branch == "" {
		branch = "main"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		repo:       opts.Repo,
		branch:     branch,
		token:      opts.Token,
		httpClient: httpClient,
	}
}

// contentsEntry is the wire shape of a Contents API object.
type contentsEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Type     string `json:"type"` // "file" or "dir"
	Content  string `json:"content,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type writeResponse struct {
	Content *contentsEntry `json:"content"`
}

type deleteRequest struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch"`
}

// FetchEntry retrieves a single file with decoded content. Asking for a
// directory path returns the directory entry without content.
func (c *Client) FetchEntry(ctx context.Context, path string) (*adapter.Entry, error) {
	body, err := c.do(ctx, http.MethodGet, path, true, nil)
	if err != nil {
		return nil, err
	}

	// The API returns an array for directories and an object for files.
	if isJSONArray(body) {
		return &adapter.Entry{
			Name: lastSegment(path),
			Path: path,
			Kind: adapter.KindDir,
		}, nil
	}

	var raw contentsEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding entry %q: %v", adapter.ErrUnavailable, path, err)
	}
	return c.toEntry(raw, true)
}

// WriteEntry creates or updates a file. With an empty revision the current
// SHA is resolved by fetching first, matching create-or-update semantics;
// a caller-supplied revision is passed through untouched so stale tokens
// surface as ErrPreconditionFailed.
func (c *Client) WriteEntry(ctx context.Context, path string, content []byte, message, revision string) (string, error) {
	if revision == "" {
		existing, err := c.FetchEntry(ctx, path)
		switch {
		case err == nil:
			revision = existing.Revision
		case errors.Is(err, adapter.ErrNotFound):
			// Fresh create.
		default:
			return "", err
		}
	}

	reqBody, err := json.Marshal(writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
		SHA:     revision,
	})
	if err != nil {
		return "", err
	}

	body, err := c.do(ctx, http.MethodPut, path, false, reqBody)
	if err != nil {
		return "", err
	}
	var resp writeResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Content == nil {
		return "", fmt.Errorf("%w: unexpected write response for %q", adapter.ErrUnavailable, path)
	}
	return resp.Content.SHA, nil
}

// ListDirectory lists the immediate children of a directory.
func (c *Client) ListDirectory(ctx context.Context, path string) ([]adapter.Entry, error) {
	body, err := c.do(ctx, http.MethodGet, path, true, nil)
	if err != nil {
		return nil, err
	}
	if !isJSONArray(body) {
		return nil, fmt.Errorf("%w: %q is not a directory", adapter.ErrNotFound, path)
	}

	var raws []contentsEntry
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("%w: decoding listing %q: %v", adapter.ErrUnavailable, path, err)
	}
	entries := make([]adapter.Entry, 0, len(raws))
	for _, raw := range raws {
		e, err := c.toEntry(raw, false)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// DeleteEntry removes a file, resolving its current SHA first.
func (c *Client) DeleteEntry(ctx context.Context, path, message string) error {
	existing, err := c.FetchEntry(ctx, path)
	if err != nil {
		return err
	}

	reqBody, err := json.Marshal(deleteRequest{
		Message: message,
		SHA:     existing.Revision,
		Branch:  c.branch,
	})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, path, false, reqBody)
	return err
}

// do performs one Contents API call and maps failure statuses to the
// adapter sentinels.
func (c *Client) do(ctx context.Context, method, path string, withRef bool, body []byte) ([]byte, error) {
	u := c.contentsURL(path)
	if withRef {
		u += "?ref=" + url.QueryEscape(c.branch)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", adapter.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", adapter.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", adapter.ErrNotFound, path)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", adapter.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		// The API answers 409/422 when the supplied SHA is stale.
		return nil, fmt.Errorf("%w: %s", adapter.ErrPreconditionFailed, path)
	default:
		return nil, fmt.Errorf("%w: status %d for %s %s", adapter.ErrUnavailable, resp.StatusCode, method, path)
	}
}

// contentsURL escapes each path segment individually so names with spaces
// survive while slashes keep their meaning.
func (c *Client) contentsURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, c.repo, strings.Join(segments, "/"))
}

// toEntry converts a wire entry, decoding base64 content when asked. The
// API wraps encoded content at 60 columns, so whitespace is stripped
// before decoding.
func (c *Client) toEntry(raw contentsEntry, withContent bool) (*adapter.Entry, error) {
	kind := adapter.KindFile
	if raw.Type == "dir" {
		kind = adapter.KindDir
	}
	e := &adapter.Entry{
		Name:     raw.Name,
		Path:     raw.Path,
		Kind:     kind,
		Size:     raw.Size,
		Revision: raw.SHA,
	}
	if withContent && kind == adapter.KindFile && raw.Content != "" {
		compact := strings.Map(dropSpace, raw.Content)
		decoded, err := base64.StdEncoding.DecodeString(compact)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding content of %q: %v", adapter.ErrUnavailable, raw.Path, err)
		}
		e.Content = decoded
	}
	return e, nil
}

func dropSpace(r rune) rune {
	if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
		return -1
	}
	return r
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

func lastSegment(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return parts[len(parts)-1]
}
