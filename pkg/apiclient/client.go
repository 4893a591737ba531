package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the restaurant REST backend. A Client without a token can
// only reach the public auth endpoints; use WithToken for customer calls.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// NewWithHTTPClient is used when the caller owns the transport (tests, proxies).
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WithToken returns a copy bound to a customer's bearer token. The HTTP
// client is shared.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Envelope is the uniform shape every backend response is folded into.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Status  int             `json:"-"`

	cause error
}

// Err converts a failed envelope into *APIError (the backend answered) or
// *TransportError (it did not, or the answer was unreadable).
func (e Envelope) Err() error {
	if e.Success {
		return nil
	}
	if e.cause != nil {
		return &TransportError{Err: e.cause}
	}
	return &APIError{Status: e.Status, Message: e.Error}
}

// Decode unmarshals Data into out. A successful envelope with no data
// leaves out untouched.
func (e Envelope) Decode(out interface{}) error {
	if err := e.Err(); err != nil {
		return err
	}
	if out == nil || len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return &TransportError{Err: fmt.Errorf("failed to decode response data: %w", err)}
	}
	return nil
}

// APIError is a business failure reported by the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
	}
	return "backend error: " + e.Message
}

// TransportError covers network failures and undecodable responses.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport error: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Call performs one request and normalizes whatever comes back. It never
// returns a Go error; failures are carried in the envelope.
func (c *Client) Call(ctx context.Context, method, path string, body interface{}) Envelope {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return Envelope{cause: fmt.Errorf("failed to marshal request body: %w", err)}
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return Envelope{cause: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Envelope{cause: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Envelope{Status: resp.StatusCode, cause: fmt.Errorf("failed to read response body: %w", err)}
	}

	return normalize(resp.StatusCode, respBody)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.Call(ctx, method, path, body).Decode(out)
}

func normalize(status int, body []byte) Envelope {
	env := Envelope{Status: status}
	ok := status >= 200 && status < 300

	var fields map[string]json.RawMessage
	isObject := len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &fields) == nil

	if !isObject {
		env.Success = ok
		if ok {
			env.Data = json.RawMessage(body)
		} else {
			env.Error = messageOrStatus(strings.TrimSpace(string(body)), status)
		}
		return env
	}

	env.Success = ok
	if raw, exists := fields["success"]; exists {
		var flag bool
		if err := json.Unmarshal(raw, &flag); err == nil {
			env.Success = ok && flag
		}
	}

	if raw, exists := fields["data"]; exists {
		env.Data = raw
	} else {
		env.Data = json.RawMessage(body)
	}

	if !env.Success {
		env.Data = nil
		env.Error = messageOrStatus(firstString(fields, "message", "error"), status)
	}
	return env
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, exists := fields[key]
		if !exists {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func messageOrStatus(msg string, status int) string {
	if msg != "" {
		return msg
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "request failed"
}
