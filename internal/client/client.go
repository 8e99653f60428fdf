// Package client is the typed façade over the vault's HTTP API: one
// method per endpoint, bearer token attached, JSON decoded, and transport
// failures normalized so callers can tell an unreachable server from a
// rejected request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kashw/keepsake/internal/model"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. "http://localhost:3000".
	BaseURL string
	// HTTPClient overrides the default client (10s timeout, matching the
	// UI's login patience).
	HTTPClient *http.Client
	// Token is the bearer credential for authenticated calls; Login sets
	// it on success.
	Token string
}

// Client calls the vault API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a Client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		token:      opts.Token,
	}
}

// APIError is the single failure channel for every call.
type APIError struct {
	// Status is the HTTP status, zero when the server was unreachable.
	Status int
	// Message is human-readable and safe to show in the UI.
	Message string
	// Unreachable is true for transport failures (refused connection,
	// timeout) as opposed to a server that answered with an error.
	Unreachable bool
}

func (e *APIError) Error() string {
	if e.Unreachable {
		return "could not reach server: " + e.Message
	}
	return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
}

// Register creates the deployment's account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.postJSON(ctx, "/api/register", body, false, nil)
}

// Login authenticates and remembers the returned token for subsequent
// calls.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.postJSON(ctx, "/api/login", body, false, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// ListMemories lists a virtual folder in a category.
func (c *Client) ListMemories(ctx context.Context, category, folder string) ([]model.Item, error) {
	path := "/api/memories/" + url.PathEscape(category) + "?folder=" + url.QueryEscape(folder)
	var items []model.Item
	if err := c.getJSON(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateFolder creates a named folder under parent.
func (c *Client) CreateFolder(ctx context.Context, category, parent, name string) error {
	body := map[string]string{"name": name, "parent": parent}
	return c.postJSON(ctx, "/api/folders/"+url.PathEscape(category), body, true, nil)
}

// UploadFiles uploads a batch into a folder as one multipart request.
func (c *Client) UploadFiles(ctx context.Context, category, folder string, files []model.Upload) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Content); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	path := "/api/upload/" + url.PathEscape(category) + "?folder=" + url.QueryEscape(folder)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.send(req, nil)
}

// Letters returns all letters, newest first.
func (c *Client) Letters(ctx context.Context) ([]model.Letter, error) {
	var letters []model.Letter
	if err := c.getJSON(ctx, "/api/letters", &letters); err != nil {
		return nil, err
	}
	return letters, nil
}

// SaveLetter stores a letter and returns the created record.
func (c *Client) SaveLetter(ctx context.Context, title, content string) (model.Letter, error) {
	body := map[string]string{"title": title, "content": content}
	var letter model.Letter
	if err := c.postJSON(ctx, "/api/letters", body, true, &letter); err != nil {
		return model.Letter{}, err
	}
	return letter, nil
}

// Stats returns the vault's counters.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	if err := c.getJSON(ctx, "/api/stats", &stats); err != nil {
		return model.Stats{}, err
	}
	return stats, nil
}

// FetchBinary retrieves a stored binary through the proxy.
func (c *Client) FetchBinary(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/proxy?path="+url.QueryEscape(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error(), Unreachable: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.send(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, authed bool, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.send(req, out)
}

// send performs the request and folds every failure into *APIError.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: err.Error(), Unreachable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Message: "reading response: " + err.Error(), Unreachable: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := http.StatusText(resp.StatusCode)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}
