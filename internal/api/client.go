package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrUnauthorized is returned when the server denies the session. The
// client has already cleared the stored token and fired the invalidator
// by the time the caller sees it.
var ErrUnauthorized = errors.New("unauthorized")

// APIError carries a non-2xx response through to the caller untouched.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed: status %d: %s", e.Status, e.Body)
}

// TokenSource provides the current bearer token. The pipeline reads the
// token from durable storage on every call rather than from in-memory
// session state, so it never sees a stale closure over an old token.
// Implemented by session.Store.
type TokenSource interface {
	Token() (string, error)
	Clear() error
}

// Invalidator is notified when the server rejects the session.
type Invalidator func()

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
	}
}

const maxResponseBody = 1 << 20 // 1 MiB

// Client is the shared request pipeline for the platform backend. Every
// call attaches the stored token as a bearer credential when present; a
// 401 clears the stored token and fires the invalidator exactly once for
// that response.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	invalidate Invalidator
}

// NewClient creates a client for the given server. invalidate may be nil
// when no session manager is wired (e.g. the login call itself).
func NewClient(cfg Config, tokens TokenSource, invalidate Invalidator) *Client {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultConfig().ServerURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.ServerURL,
		tokens:     tokens,
		invalidate: invalidate,
	}
}

// Login exchanges credentials for a session token via POST /login.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.New("login response carries no access token")
	}
	return &resp, nil
}

// CheckPermission asks the RBAC service whether the user may perform the
// action on the object.
func (c *Client) CheckPermission(ctx context.Context, action, object, userID string) (bool, error) {
	var resp permissionResponse
	err := c.do(ctx, http.MethodPost, "/rbac/permissions", nil, permissionRequest{
		Action: action,
		Object: object,
		UserID: userID,
	}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Allowed, nil
}

// DeviceStatus fetches the heartbeat status for a single device.
func (c *Client) DeviceStatus(ctx context.Context, deviceID string) (*DeviceStatus, error) {
	query := url.Values{"device_id": []string{deviceID}}
	var resp DeviceStatus
	if err := c.do(ctx, http.MethodGet, "/automatic/device-status", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TraderDevicesStatus fetches the aggregate device status for a user.
func (c *Client) TraderDevicesStatus(ctx context.Context, traderID string) ([]TraderDeviceStatus, error) {
	query := url.Values{"trader_id": []string{traderID}}
	var resp traderDevicesResponse
	if err := c.do(ctx, http.MethodGet, "/automatic/trader-devices-status", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// do runs one request through the pipeline.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token, err := c.tokens.Token(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.send(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Str("path", path).Msg("api request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("api request")

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized()
		return ErrUnauthorized
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// send issues the request, retrying transport-level failures on
// body-less idempotent calls before surfacing them.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || req.Body != nil {
		return c.httpClient.Do(req)
	}

	return backoff.Retry(ctx, func() (*http.Response, error) {
		return c.httpClient.Do(req)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
}

// handleUnauthorized clears the stored token and raises the invalidation
// signal, once per denied response.
func (c *Client) handleUnauthorized() {
	if err := c.tokens.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear session after denial")
	}
	if c.invalidate != nil {
		c.invalidate()
	}
}
