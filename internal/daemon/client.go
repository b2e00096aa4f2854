// Package daemon specifies only the client contract for an optional,
// separately-implemented long-lived browser daemon. Daemon internals are out
// of scope per spec.md §1; pwgo only needs to lease a browser endpoint from
// one if present, and gracefully fall back otherwise.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dev-console/pwgo/internal/logging"
)

// Client leases browser endpoints from a daemon process over HTTP, mirroring
// the teacher's bridge.IsConnectionError / DoHTTP localhost-only transport
// idiom (internal/bridge/conn.go in the teacher repo).
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client talking to the daemon at baseURL (e.g.
// "http://127.0.0.1:7891").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// LeaseKey identifies the pool the daemon should hand out a browser from:
// "{namespace}:{browser}:{headless|headful}".
func LeaseKey(namespace, browser string, headless bool) string {
	mode := "headful"
	if headless {
		mode = "headless"
	}
	return fmt.Sprintf("%s:%s:%s", namespace, browser, mode)
}

// LeaseResponse is the daemon's reply to a successful lease request.
type LeaseResponse struct {
	CDPEndpoint string `json:"cdpEndpoint"`
	SessionID   string `json:"sessionId"`
}

// Lease requests a browser endpoint keyed by key. Any daemon error (refused
// connection, any status other than 200, malformed body) is returned for the caller to log and
// fall back from — daemon unavailability is never fatal to acquisition.
func (c *Client) Lease(ctx context.Context, key string) (*LeaseResponse, error) {
	reqBody, err := json.Marshal(map[string]string{"key": key})
	if err != nil {
		return nil, fmt.Errorf("daemon: marshal lease request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lease", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("daemon: build lease request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		logging.L().Debugw("daemon: lease request failed, caller should fall back", "error", err)
		return nil, fmt.Errorf("daemon: lease request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon: lease returned status %d", resp.StatusCode)
	}

	var lease LeaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&lease); err != nil {
		return nil, fmt.Errorf("daemon: decode lease response: %w", err)
	}
	return &lease, nil
}

// IsReachable does a best-effort health probe. The broker does not call
// it, and the lease attempt is never gated on it (Lease already falls back
// cleanly on any error).
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
