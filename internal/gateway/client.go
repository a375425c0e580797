// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sagedesk/sage-tui/internal/util"
)

// Configuration constants for the Sage backend API.
const (
	// DefaultBasePath is the API prefix all chat endpoints live under.
	DefaultBasePath = "/api/v1/chat"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultRequestsPerSecond limits outbound request rate.
	DefaultRequestsPerSecond = 5

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client for all backend requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// Sentinel errors for common backend failures. Callers branch with
// errors.Is; anything else is a network failure.
var (
	// ErrNotFound indicates the resource does not exist or is not accessible.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the auth token is missing, invalid, or expired.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the server rejected the request for rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// APIError is a non-sentinel error response from the backend.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("API error (HTTP %d)", e.Status)
}

// apiErrorResponse matches the backend's error body shape.
type apiErrorResponse struct {
	Detail string `json:"detail"`
}

// TokenSource supplies the bearer token for each request. An empty token
// with a nil error means the request goes out unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource wrapping a fixed string. Useful in tests
// and for tokens passed on the command line.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() (string, error) {
	return string(t), nil
}

// Client is the HTTP client for the Sage backend.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the backend at baseURL. The base URL is
// the server root; the API prefix is appended internally.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: sharedHTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
	}
}

// WithTimeout sets the request timeout. It replaces the shared client
// with a dedicated one so pooling settings are preserved.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	dedicated := *sharedHTTPClient
	dedicated.Timeout = timeout
	c.httpClient = &dedicated
	return c
}

// WithRateLimit sets the outbound requests-per-second budget.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client. Tests use this to
// point at an httptest server without TLS.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// endpoint joins the base URL, API prefix, and path.
func (c *Client) endpoint(path string) string {
	return c.baseURL + DefaultBasePath + path
}

// logRequest logs an API request without exposing sensitive data.
// GATEWAY: Secure logging - never log headers (auth) or bodies (user text).
func logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs status and duration only, never the body.
func logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// do performs a request against the backend: rate limit, auth header,
// status mapping, size-limited body read.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sage-tui/"+util.Version)

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read auth token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	logResponse(resp, time.Since(start))

	// SECURITY: Limit response size to prevent memory exhaustion
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, mapStatusError(resp.StatusCode, data)
	}
	return data, nil
}

// mapStatusError converts an HTTP error status into a typed error.
func mapStatusError(status int, body []byte) error {
	detail := ""
	var errResp apiErrorResponse
	if json.Unmarshal(body, &errResp) == nil {
		detail = errResp.Detail
	}

	switch status {
	case http.StatusNotFound:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, detail)
		}
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
		}
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Status: status, Detail: detail}
	}
}

// getJSON performs a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// ListSessions fetches one page of the persisted session list. Pages are
// 1-based as the backend counts them.
func (c *Client) ListSessions(ctx context.Context, page, pageSize int) (*SessionList, error) {
	q := url.Values{}
	q.Set("page", util.IntToString(page))
	q.Set("page_size", util.IntToString(pageSize))

	var list SessionList
	if err := c.getJSON(ctx, "/sessions?"+q.Encode(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetSession fetches one session with a window of its messages.
func (c *Client) GetSession(ctx context.Context, id int64, limit, offset int) (*SessionDetail, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", util.IntToString(limit))
	}
	if offset > 0 {
		q.Set("offset", util.IntToString(offset))
	}
	path := "/sessions/" + util.Int64ToString(id)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var detail SessionDetail
	if err := c.getJSON(ctx, path, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateSession creates a new persisted or incognito session.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResult, error) {
	data, err := c.do(ctx, http.MethodPost, "/sessions", req)
	if err != nil {
		return nil, err
	}
	var result CreateSessionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// PatchSession updates the mutable fields of a session.
func (c *Client) PatchSession(ctx context.Context, id int64, patch SessionPatch) error {
	if patch.IsZero() {
		return nil
	}
	_, err := c.do(ctx, http.MethodPatch, "/sessions/"+util.Int64ToString(id), patch)
	return err
}

// DeleteSession removes a session. A 404 is treated as success so the
// delete is idempotent from the caller's point of view.
func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/sessions/"+util.Int64ToString(id), nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// =============================================================================
// SEND
// =============================================================================

// Send posts a user message and returns the assistant reply. A nil ChatID
// asks the server to allocate a new session.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	data, err := c.do(ctx, http.MethodPost, "/send", req)
	if err != nil {
		return nil, err
	}
	var result SendResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// =============================================================================
// SEARCH AND INCOGNITO
// =============================================================================

// SearchSessions runs a free-text search over the persisted sessions.
func (c *Client) SearchSessions(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("query", query)
	if limit > 0 {
		q.Set("limit", util.IntToString(limit))
	}

	var resp SearchResponse
	if err := c.getJSON(ctx, "/sessions/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearIncognito asks the server to drop any incognito residue it holds.
func (c *Client) ClearIncognito(ctx context.Context) (*ClearIncognitoResult, error) {
	data, err := c.do(ctx, http.MethodDelete, "/incognito/clear", nil)
	if err != nil {
		return nil, err
	}
	var result ClearIncognitoResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// GetModeStatus reports the server's view of incognito state.
func (c *Client) GetModeStatus(ctx context.Context) (*ModeStatus, error) {
	var status ModeStatus
	if err := c.getJSON(ctx, "/mode/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}
