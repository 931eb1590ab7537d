// Package api is the typed boundary to the backend REST API. Every response
// arrives in a {success, data, detail} envelope; payloads are decoded into
// typed shapes immediately here so the rest of the core never handles
// untyped data.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnauthorized signals a 401 from the backend. It is fatal for the
// session: callers clear durable session state and force a re-login. Never
// retried.
var ErrUnauthorized = errors.New("unauthorized")

// ErrTimeout signals that the request hit the client's deadline. Distinct
// from other network failures so the UI can say "timed out" rather than
// "failed".
var ErrTimeout = errors.New("request timed out")

// RequestError is a request-level failure: the backend answered, but with
// success=false or a non-2xx status. Detail carries the backend's message
// verbatim for user-facing display.
type RequestError struct {
	Status int
	Detail string
}

func (e *RequestError) Error() string {
	return e.Detail
}

// envelope is the JSON wrapper every endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Detail  string          `json:"detail,omitempty"`
}

// TokenFunc supplies the current bearer token, or "" when logged out.
type TokenFunc func() string

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	tokenFn TokenFunc
	log     zerolog.Logger
}

// NewClient creates a backend API client. tokenFn may be nil for
// unauthenticated use. timeout bounds each request (the search flow uses 60
// seconds); on expiry the request aborts and surfaces ErrTimeout.
func NewClient(baseURL string, tokenFn TokenFunc, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{},
		timeout: timeout,
		tokenFn: tokenFn,
		log:     log.With().Str("client", "backend_api").Logger(),
	}
}

// do issues one request and decodes the envelope. out may be nil when the
// caller only cares about success.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokenFn != nil {
		if token := c.tokenFn(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.log.Warn().Str("path", path).Dur("timeout", c.timeout).Msg("Request timed out")
			return ErrTimeout
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !env.Success || resp.StatusCode >= 400 {
		detail := env.Detail
		if detail == "" {
			detail = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return &RequestError{Status: resp.StatusCode, Detail: detail}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode payload: %w", err)
		}
	}

	return nil
}
