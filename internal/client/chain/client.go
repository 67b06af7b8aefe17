package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ipmarket/internal/session"
)

// Client is the shared call core for the remote ledger and registry
// services. Every call resolves to exactly one of three outcomes: a decoded
// ok-payload, a RejectError (the service answered and said no), or a
// TransportError (the answer never arrived). Workflows rely on that split to
// decide whether a step is retryable.
type Client struct {
	httpClient *http.Client
	host       string
	principal  string
}

func NewClient(httpClient *http.Client, host string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		host:       strings.TrimRight(strings.TrimSpace(host), "/"),
	}
}

// WithCaller returns a copy of the client that sends the given principal on
// every call. Mutating operations are rejected remotely when it is absent.
func (c *Client) WithCaller(principal string) *Client {
	if c == nil {
		return nil
	}
	cp := *c
	cp.principal = strings.TrimSpace(principal)
	return &cp
}

// callerFor resolves the principal for one call. A caller fixed with
// WithCaller wins; otherwise the session carried on the context is used.
func (c *Client) callerFor(ctx context.Context) string {
	if c.principal != "" {
		return c.principal
	}
	if sess, ok := session.FromContext(ctx); ok {
		return sess.Principal
	}
	return ""
}

type resultEnvelope struct {
	Ok  json.RawMessage `json:"ok"`
	Err *remoteError    `json:"err"`
}

type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("client is nil")
	}
	fullURL := c.host + normalizePath(path)
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if principal := c.callerFor(ctx); principal != "" {
		req.Header.Set("X-Caller-Principal", principal)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	// A non-2xx here comes from the boundary in front of the service, not
	// from the service's own result value. The call may or may not have
	// executed, so classify it as transport.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			Op:  method + " " + path,
			Err: fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}
	var env resultEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &TransportError{Op: method + " " + path, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if env.Err != nil {
		return &RejectError{Code: strings.TrimSpace(env.Err.Code), Message: env.Err.Message}
	}
	if out != nil && len(env.Ok) > 0 {
		if err := json.Unmarshal(env.Ok, out); err != nil {
			return &TransportError{Op: method + " " + path, Err: fmt.Errorf("malformed ok payload: %w", err)}
		}
	}
	return nil
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
