// ABOUTME: HTTP client for a running painlog server.
// ABOUTME: Used by the CLI's --server mode; failures without a reply wrap wizard.ErrTransport.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/painlog/internal/history"
	"github.com/harperreed/painlog/internal/httpapi"
	"github.com/harperreed/painlog/internal/models"
	"github.com/harperreed/painlog/internal/wizard"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the JSON API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a bearer session token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken changes the session token, typically after Register or Login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Register creates a user and adopts the returned token.
func (c *Client) Register(ctx context.Context, name, phone string) (*httpapi.AuthResponse, error) {
	var resp httpapi.AuthResponse
	body := map[string]string{"name": name, "phone": phone}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		c.token = resp.Token
	}
	return &resp, nil
}

// Login finds a user by phone and adopts the returned token.
func (c *Client) Login(ctx context.Context, phone string) (*httpapi.AuthResponse, error) {
	var resp httpapi.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"phone": phone}, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		c.token = resp.Token
	}
	return &resp, nil
}

// GetUser loads a user by ID.
func (c *Client) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var resp httpapi.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/user/"+strconv.FormatInt(id, 10), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// SubmitEntry posts an entry. A non-empty key is sent as Idempotency-Key.
func (c *Client) SubmitEntry(ctx context.Context, req httpapi.SubmitEntryRequest, idempotencyKey string) (*models.PainEntry, error) {
	var headers http.Header
	if idempotencyKey != "" {
		headers = http.Header{httpapi.IdempotencyHeader: []string{idempotencyKey}}
	}
	var resp httpapi.SubmitEntryResponse
	if err := c.do(ctx, http.MethodPost, "/api/pain-entry", req, headers, &resp); err != nil {
		return nil, err
	}
	return resp.PainEntry, nil
}

// ListEntries returns a user's entries newest first.
func (c *Client) ListEntries(ctx context.Context, userID int64, limit int) ([]*models.PainEntry, error) {
	path := "/api/pain-entries/" + strconv.FormatInt(userID, 10)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp httpapi.EntriesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Summary fetches the history aggregation. An empty tz uses the server default.
func (c *Client) Summary(ctx context.Context, userID int64, tz string) (*history.Summary, error) {
	path := "/api/pain-entries/" + strconv.FormatInt(userID, 10) + "/summary"
	if tz != "" {
		path += "?tz=" + url.QueryEscape(tz)
	}
	var resp httpapi.SummaryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Summary, nil
}

// SubmitterFor lets a wizard save entries for userID through the server.
func (c *Client) SubmitterFor(userID int64) wizard.Submitter {
	return wizard.SubmitterFunc(func(ctx context.Context, sub wizard.Submission) (*models.PainEntry, error) {
		level := sub.PainLevel
		return c.SubmitEntry(ctx, httpapi.SubmitEntryRequest{
			UserID:    userID,
			BodyPart:  string(sub.BodyPart),
			PainLevel: &level,
			FormData:  sub.FormData,
		}, sub.IdempotencyKey)
	})
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers http.Header, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", wizard.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", wizard.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload httpapi.ErrorResponse
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
