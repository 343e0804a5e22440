// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the local backend address. Explicit IPv4 loopback:
	// "localhost" can resolve to ::1 on dual-stack hosts while the backend
	// binds only the v4 socket.
	DefaultBaseURL = "http://127.0.0.1:5001"

	// DefaultTimeout bounds a full chat round-trip. Generation behind the
	// backend can take tens of seconds, so this is deliberately generous.
	DefaultTimeout = 90 * time.Second

	// healthTimeout bounds the liveness probe. Health must answer fast or
	// the backend is treated as down.
	healthTimeout = 3 * time.Second

	// maxResponseSize caps how much of a response body we read (1MB).
	maxResponseSize = 1 * 1024 * 1024
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes gateway failures so callers can branch on the
// failure class without string matching.
type ErrorType int

const (
	// ErrTypeUnknown is an unclassified error.
	ErrTypeUnknown ErrorType = iota

	// ErrTypeBackend means the backend answered with a structured failure:
	// the transport worked, the request did not.
	ErrTypeBackend

	// ErrTypeTransport means the exchange itself failed: non-2xx status or
	// a body that does not parse as the expected shape.
	ErrTypeTransport

	// ErrTypeTimeout means the request exceeded its deadline.
	ErrTypeTimeout

	// ErrTypeConnection means the backend could not be reached at all.
	ErrTypeConnection
)

// ClientError is a structured gateway error.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for common failure modes.
var (
	// ErrBackendDown means the backend is not reachable on its port.
	ErrBackendDown = &ClientError{
		Type:    ErrTypeConnection,
		Message: "backend is not reachable (is the server running?)",
	}

	// ErrTimeout means a request exceeded its deadline.
	ErrTimeout = &ClientError{
		Type:    ErrTypeTimeout,
		Message: "request timed out",
	}

	// ErrEmptyMessage means a chat was attempted with no content.
	ErrEmptyMessage = &ClientError{
		Type:    ErrTypeBackend,
		Message: "message is empty",
	}
)

// backendError builds a structured-failure error carrying the backend's
// own error text.
func backendError(msg string) *ClientError {
	if msg == "" {
		msg = "backend reported an unspecified error"
	}
	return &ClientError{Type: ErrTypeBackend, Message: msg}
}

// transportError builds a transport-failure error.
func transportError(msg string, cause error) *ClientError {
	return &ClientError{Type: ErrTypeTransport, Message: msg, Cause: cause}
}

// IsBackendError reports whether err is a structured backend failure.
func IsBackendError(err error) bool {
	return hasErrorType(err, ErrTypeBackend)
}

// IsTransportError reports whether err is a transport failure.
func IsTransportError(err error) bool {
	return hasErrorType(err, ErrTypeTransport)
}

// IsTimeout reports whether err is a deadline failure.
func IsTimeout(err error) bool {
	return hasErrorType(err, ErrTypeTimeout)
}

// IsBackendDown reports whether err means the backend was unreachable.
func IsBackendDown(err error) bool {
	return hasErrorType(err, ErrTypeConnection)
}

func hasErrorType(err error, t ErrorType) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == t
}

// =============================================================================
// CLIENT
// =============================================================================

// ClientConfig holds gateway client configuration.
type ClientConfig struct {
	// BaseURL is the backend base URL (no trailing slash).
	BaseURL string

	// Timeout bounds a full chat round-trip.
	Timeout time.Duration

	// HTTPClient allows injecting a custom transport. Nil uses a default.
	HTTPClient *http.Client

	// AuthToken is sent as a bearer token on every request when set.
	AuthToken string
}

// DefaultConfig returns the standard local-backend configuration.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// Client talks to the pymolchat backend over HTTP.
type Client struct {
	baseURL   string
	timeout   time.Duration
	http      *http.Client
	authToken string
}

// NewClient creates a gateway client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a gateway client. Zero-value fields are
// filled from DefaultConfig.
func NewClientWithConfig(cfg ClientConfig) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		timeout:   cfg.Timeout,
		http:      cfg.HTTPClient,
		authToken: cfg.AuthToken,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Chat sends a user message and returns the backend's explanation and
// generated commands. A structured failure from the backend comes back
// as a backend error carrying the backend's own text; a non-2xx status
// or unparseable body comes back as a transport error.
func (c *Client) Chat(ctx context.Context, message string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return nil, transportError("failed to encode request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.post(ctx, "/api/chat", body)
	if err != nil {
		return nil, c.classifyDialError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transportError(fmt.Sprintf("chat request failed with status %d", resp.StatusCode), nil)
	}

	var parsed chatResponseBody
	if err := decodeJSON(resp.Body, &parsed); err != nil {
		return nil, transportError("failed to parse chat response", err)
	}
	if parsed.Success == nil {
		return nil, transportError("chat response missing success flag", nil)
	}
	if !*parsed.Success {
		return nil, backendError(parsed.Error)
	}

	log.Printf("GATEWAY_CHAT | status=%d commands=%d duration=%v",
		resp.StatusCode, len(parsed.PyMOLCommands), time.Since(start).Round(time.Millisecond))

	result := &ChatResult{
		Message:   parsed.Message,
		Commands:  parsed.PyMOLCommands,
		SessionID: parsed.SessionID,
	}
	if ts, err := time.Parse(time.RFC3339, parsed.Timestamp); err == nil {
		result.Timestamp = ts
	} else {
		result.Timestamp = time.Now()
	}
	return result, nil
}

// ClearHistory asks the backend to reset its conversation state. Any 2xx
// status is success; the body is not interpreted.
func (c *Client) ClearHistory(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.post(ctx, "/api/clear", nil)
	if err != nil {
		return c.classifyDialError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transportError(fmt.Sprintf("clear request failed with status %d", resp.StatusCode), nil)
	}
	return nil
}

// Health probes backend liveness. It uses a short deadline independent of
// the chat timeout so the caller can poll without blocking.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, transportError("failed to build health request", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classifyDialError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transportError(fmt.Sprintf("health request failed with status %d", resp.StatusCode), nil)
	}

	var parsed healthResponseBody
	if err := decodeJSON(resp.Body, &parsed); err != nil {
		return nil, transportError("failed to parse health response", err)
	}
	return &HealthStatus{
		Status:         parsed.Status,
		AgentAvailable: parsed.PyMOLAgentAvailable,
	}, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)
	return c.http.Do(req)
}

// authorize attaches the bearer token, when one is configured.
func (c *Client) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// classifyDialError maps low-level transport errors to typed failures.
func (c *Client) classifyDialError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ClientError{Type: ErrTypeUnknown, Message: "request canceled", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: ErrBackendDown.Message, Cause: err}
}

func decodeJSON(r io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseSize))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// drainAndClose empties and closes a response body so the underlying
// connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxResponseSize))
	_ = body.Close()
}
