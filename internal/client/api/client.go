// Package api is the HTTP client for the storyboard server, used by the
// terminal client and the scene store.
package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
)

const (
	// DefaultTimeout bounds non-streaming requests
	DefaultTimeout = 60 * time.Second

	archiveURLHeader = "X-Export-Archive-Url"
	maxEventBytes    = 1 << 20
)

// Error is a problem response returned by the server
type Error struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

// Is maps the status code onto the domain sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case domain.ErrValidation:
		return e.Status == http.StatusBadRequest
	case domain.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case domain.ErrForbidden:
		return e.Status == http.StatusForbidden
	case domain.ErrNotFound:
		return e.Status == http.StatusNotFound
	case domain.ErrConflict:
		return e.Status == http.StatusConflict
	case domain.ErrUpstream:
		return e.Status == http.StatusBadGateway
	}
	return false
}

// Session is the body of signup, login and refresh responses
type Session struct {
	User      *models.User `json:"user,omitempty"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Export is a downloaded workbook
type Export struct {
	Filename   string
	Data       []byte
	ArchiveURL string
}

// Client talks to the storyboard HTTP API with a bearer session token
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	// streamClient has no timeout; chat turns are bounded by the context
	streamClient *http.Client
}

// NewClient creates a client with default settings
func NewClient(baseURL string) *Client {
	return NewClientWithConfig(baseURL, &http.Client{Timeout: DefaultTimeout})
}

// NewClientWithConfig creates a client around a custom http.Client
func NewClientWithConfig(baseURL string, httpClient *http.Client) *Client {
	stream := *httpClient
	stream.Timeout = 0
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		streamClient: &stream,
	}
}

// SetToken sets the session token sent as a bearer token
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current session token
func (c *Client) Token() string {
	return c.token
}

// Signup creates an account and keeps its session token
func (c *Client) Signup(ctx context.Context, req *services.SignupRequest) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

// Login opens a session and keeps its token
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	req := services.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", &req, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

// Me returns the logged in user
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListProjects returns active projects, most recently touched first
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project
func (c *Client) CreateProject(ctx context.Context, req *services.CreateProjectRequest) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject returns one project
func (c *Client) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListScenes returns a project's scenes in display order
func (c *Client) ListScenes(ctx context.Context, projectID string) ([]models.Scene, error) {
	var scenes []models.Scene
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(projectID)+"/scenes", nil, &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// CreateScene creates an empty scene at orderIndex
func (c *Client) CreateScene(ctx context.Context, projectID string, orderIndex int) (*models.Scene, error) {
	var s models.Scene
	req := services.CreateSceneRequest{OrderIndex: orderIndex}
	if err := c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(projectID)+"/scenes", &req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateScene sends a partial update. A pointer to an empty value clears the field.
func (c *Client) UpdateScene(ctx context.Context, id string, update *models.SceneUpdate) (*models.Scene, error) {
	var s models.Scene
	if err := c.do(ctx, http.MethodPatch, "/api/scenes/"+url.PathEscape(id), update, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteScene removes a scene
func (c *Client) DeleteScene(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/scenes/"+url.PathEscape(id), nil, nil)
}

// ReorderScenes renumbers scenes server side in one transaction
func (c *Client) ReorderScenes(ctx context.Context, projectID string, ids []string) ([]models.Scene, error) {
	var scenes []models.Scene
	req := services.ReorderScenesRequest{SceneIDs: ids}
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(projectID)+"/scenes/order", &req, &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// Export downloads the workbook for the given project and scenes
func (c *Client) Export(ctx context.Context, req *services.ExportRequest) (*Export, error) {
	resp, err := c.send(ctx, c.httpClient, http.MethodPost, "/api/export", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}

	return &Export{
		Filename:   filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		Data:       data,
		ArchiveURL: resp.Header.Get(archiveURLHeader),
	}, nil
}

// Chat runs one assistant turn and calls onEvent for each streamed event.
// It returns when the stream ends, onEvent fails or ctx is cancelled.
func (c *Client) Chat(ctx context.Context, req *services.ChatRequest, onEvent func(services.ChatEvent) error) error {
	resp, err := c.send(ctx, c.streamClient, http.MethodPost, "/api/chat", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue // blank separators and ": keepalive" comments
		}
		if data == "[DONE]" {
			return nil
		}

		var event services.ChatEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return fmt.Errorf("decode chat event: %w", err)
		}
		if err := onEvent(event); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read chat stream: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) error {
	resp, err := c.send(ctx, c.httpClient, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *Error
func (c *Client) send(ctx context.Context, httpClient *http.Client, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, apiErr); err != nil {
			apiErr.Detail = strings.TrimSpace(string(raw))
		}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}

// filenameFromDisposition reads the RFC 5987 filename* parameter
func filenameFromDisposition(header string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		value, ok := strings.CutPrefix(part, "filename*=UTF-8''")
		if !ok {
			continue
		}
		if name, err := url.PathUnescape(value); err == nil {
			return name
		}
		return value
	}
	return ""
}

// IsUnauthorized reports whether err means the session is missing or expired
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
