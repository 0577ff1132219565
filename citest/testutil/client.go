package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// TestClient provides HTTP client utilities for testing.
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTestClient creates a new test HTTP client.
func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// RequestOption configures HTTP requests.
type RequestOption func(*http.Request)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithQuery adds query parameters.
func WithQuery(params map[string]string) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Response wraps an HTTP response with helpers.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// String returns the response body as a string.
func (r *Response) String() string {
	return string(r.Body)
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// APIError matches the server's error envelope.
func (r *Response) APIError() (*ErrorDetail, error) {
	var envelope struct {
		Error ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Error, nil
}

// ErrorDetail is the error payload inside the server's error envelope.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Get performs an HTTP GET request.
func (c *TestClient) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs an HTTP POST request with a JSON body.
func (c *TestClient) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts...)
}

// Put performs an HTTP PUT request with a JSON body.
func (c *TestClient) Put(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body, opts...)
}

// Delete performs an HTTP DELETE request.
func (c *TestClient) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts...)
}

// do performs the actual HTTP request.
func (c *TestClient) do(ctx context.Context, method, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	fullURL := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// ---- Session Helpers ----

// View mirrors the wire view: response text so far, loading state and the
// last failure in presentable form.
type View struct {
	Data      string `json:"data"`
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
}

// Session mirrors the wire representation of a session.
type Session struct {
	ID         string   `json:"id"`
	BasePrompt string   `json:"basePrompt"`
	Profile    string   `json:"profile,omitempty"`
	State      string   `json:"state"`
	View       View     `json:"view"`
	History    []string `json:"history,omitempty"`
}

// Substitution binds one custom placeholder key to a literal value.
type Substitution struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CreateSessionRequest is the body for POST /session.
type CreateSessionRequest struct {
	BasePrompt    string                `json:"basePrompt"`
	Profile       string                `json:"profile,omitempty"`
	Config        *types.EndpointConfig `json:"config,omitempty"`
	Files         []string              `json:"files,omitempty"`
	Substitutions []Substitution        `json:"substitutions,omitempty"`
	Start         bool                  `json:"start,omitempty"`
}

// CreateSession creates a new session.
func (c *TestClient) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	resp, err := c.Post(ctx, "/session", req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to create session: %d - %s", resp.StatusCode, resp.String())
	}

	var session Session
	if err := resp.JSON(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession retrieves a session by ID.
func (c *TestClient) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	resp, err := c.Get(ctx, "/session/"+sessionID)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to get session: %d - %s", resp.StatusCode, resp.String())
	}

	var session Session
	if err := resp.JSON(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions lists all sessions.
func (c *TestClient) ListSessions(ctx context.Context) ([]Session, error) {
	resp, err := c.Get(ctx, "/session")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to list sessions: %d - %s", resp.StatusCode, resp.String())
	}

	var sessions []Session
	if err := resp.JSON(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession deletes a session.
func (c *TestClient) DeleteSession(ctx context.Context, sessionID string) error {
	resp, err := c.Delete(ctx, "/session/"+sessionID)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("failed to delete session: %d - %s", resp.StatusCode, resp.String())
	}
	return nil
}

// Submit sends a follow-up query to a session. The response text arrives
// over the event stream; the returned snapshot shows the loading view.
func (c *TestClient) Submit(ctx context.Context, sessionID, query string) (*Session, error) {
	resp, err := c.Post(ctx, "/session/"+sessionID+"/submit", map[string]string{
		"query": query,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to submit: %d - %s", resp.StatusCode, resp.String())
	}

	var session Session
	if err := resp.JSON(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CancelSession cancels the in-flight invocation of a session.
func (c *TestClient) CancelSession(ctx context.Context, sessionID string) (*Session, error) {
	resp, err := c.Post(ctx, "/session/"+sessionID+"/cancel", struct{}{})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to cancel session: %d - %s", resp.StatusCode, resp.String())
	}

	var session Session
	if err := resp.JSON(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Regenerate re-runs the session's last request.
func (c *TestClient) Regenerate(ctx context.Context, sessionID string) (*Session, error) {
	resp, err := c.Post(ctx, "/session/"+sessionID+"/regenerate", struct{}{})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to regenerate: %d - %s", resp.StatusCode, resp.String())
	}

	var session Session
	if err := resp.JSON(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// AwaitResponse polls the session until the in-flight invocation settles
// and returns the final snapshot.
func (c *TestClient) AwaitResponse(ctx context.Context, sessionID string, timeout time.Duration) (*Session, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		session, err := c.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !session.View.IsLoading {
			return session, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil, fmt.Errorf("session %s still loading after %v", sessionID, timeout)
}

// ---- Profile Helpers ----

// PutProfileRequest is the body for PUT /profile/{name}.
type PutProfileRequest struct {
	Description string               `json:"description,omitempty"`
	Config      types.EndpointConfig `json:"config"`
}

// PutProfile creates or updates a stored profile.
func (c *TestClient) PutProfile(ctx context.Context, name, description string, cfg types.EndpointConfig) (*types.Profile, error) {
	resp, err := c.Put(ctx, "/profile/"+name, PutProfileRequest{
		Description: description,
		Config:      cfg,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to save profile: %d - %s", resp.StatusCode, resp.String())
	}

	var p types.Profile
	if err := resp.JSON(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile retrieves a profile by name.
func (c *TestClient) GetProfile(ctx context.Context, name string) (*types.Profile, error) {
	resp, err := c.Get(ctx, "/profile/"+name)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to get profile: %d - %s", resp.StatusCode, resp.String())
	}

	var p types.Profile
	if err := resp.JSON(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles lists all profiles.
func (c *TestClient) ListProfiles(ctx context.Context) ([]types.Profile, error) {
	resp, err := c.Get(ctx, "/profile")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to list profiles: %d - %s", resp.StatusCode, resp.String())
	}

	var profiles []types.Profile
	if err := resp.JSON(&profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// DeleteProfile deletes a stored profile.
func (c *TestClient) DeleteProfile(ctx context.Context, name string) error {
	resp, err := c.Delete(ctx, "/profile/"+name)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("failed to delete profile: %d - %s", resp.StatusCode, resp.String())
	}
	return nil
}
