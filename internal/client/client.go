package client

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

	"deploytracker/internal/models"
	"deploytracker/internal/services"
)

// Client talks to a running tracker's JSON API. All calls made through
// one Client share a session, so drafts and added deployments persist
// between calls for as long as the server keeps the session.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithSession resumes an existing session instead of starting a new one.
func WithSession(id string) Option {
	return func(c *Client) {
		c.sessionID = strings.TrimSpace(id)
	}
}

func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:8080"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// SessionID is the session the server assigned, empty before the first call.
func (c *Client) SessionID() string {
	return c.sessionID
}

type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionID != "" {
		req.Header.Set(services.SessionHeaderKey, c.sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if id := resp.Header.Get(services.SessionHeaderKey); id != "" {
		c.sessionID = id
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

func (c *Client) ListDeployments(ctx context.Context) ([]models.Deployment, error) {
	var deployments []models.Deployment
	if err := c.do(ctx, http.MethodGet, "/api/v1/deployments", nil, &deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

// NewDeployment carries the draft fields to set before adding. Empty
// Environment or Status keep the draft's current value.
type NewDeployment struct {
	Name        string `json:"name"`
	Environment string `json:"environment,omitempty"`
	Status      string `json:"status,omitempty"`
}

func (c *Client) AddDeployment(ctx context.Context, d NewDeployment) (models.Deployment, error) {
	var created models.Deployment
	if err := c.do(ctx, http.MethodPost, "/api/v1/deployments", d, &created); err != nil {
		return models.Deployment{}, err
	}
	return created, nil
}

func (c *Client) UpdateDraft(ctx context.Context, field models.DraftField, value string) (models.Draft, error) {
	body := map[string]string{"field": string(field), "value": value}
	var draft models.Draft
	if err := c.do(ctx, http.MethodPatch, "/api/v1/draft", body, &draft); err != nil {
		return models.Draft{}, err
	}
	return draft, nil
}

func (c *Client) Chart(ctx context.Context) ([]models.ChartPoint, error) {
	var points []models.ChartPoint
	if err := c.do(ctx, http.MethodGet, "/api/v1/chart", nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *Client) Summary(ctx context.Context) (services.Snapshot, error) {
	var snap services.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/summary", nil, &snap); err != nil {
		return services.Snapshot{}, err
	}
	return snap, nil
}

// EndSession asks the server to discard this client's session. The next
// call starts a fresh session seeded like a new visitor.
func (c *Client) EndSession(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}
	if err := c.do(ctx, http.MethodDelete, "/api/v1/session", nil, nil); err != nil {
		return err
	}
	c.sessionID = ""
	return nil
}
