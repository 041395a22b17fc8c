// Package cloudsync pushes the snapshot to a user-configured HTTP endpoint.
package cloudsync

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

	"nzql/internal/core"
)

// ErrNoEndpoint is returned when no sync URL is configured.
var ErrNoEndpoint = errors.New("no sync endpoint configured")

// maxResponseBytes caps how much of the response body is read.
const maxResponseBytes = 64 << 10

// Result is the outcome of one push. Time is the server-reported sync time,
// or the client's own clock in RFC 3339 when the server reports none.
type Result struct {
	Success bool
	Time    string
}

// Client performs one-shot pushes. It never retries.
type Client struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a sync client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, now: time.Now}
}

// Push POSTs the snapshot as JSON to url. Any 2xx status counts as success
// unless the body is JSON that explicitly reports a failure.
func (c *Client) Push(ctx context.Context, url string, data core.AppData) (Result, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{}, ErrNoEndpoint
	}

	body, err := json.Marshal(data)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("pushing snapshot: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("reading sync response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("pushing snapshot: unexpected status %d", resp.StatusCode)
	}

	reply := parseReply(raw)
	if reply.failed() {
		msg := reply.Message
		if msg == "" {
			msg = "endpoint reported failure"
		}
		return Result{}, fmt.Errorf("pushing snapshot: %s", msg)
	}

	ts := strings.TrimSpace(reply.Time)
	if ts == "" {
		ts = c.now().UTC().Format(time.RFC3339)
	}
	return Result{Success: true, Time: ts}, nil
}

type reply struct {
	Success *bool  `json:"success"`
	Status  string `json:"status"`
	Time    string `json:"time"`
	Message string `json:"message"`
}

// parseReply reads an optional JSON reply. Non-JSON bodies yield an empty
// reply, which counts as success.
func parseReply(raw []byte) reply {
	var r reply
	if len(bytes.TrimSpace(raw)) == 0 {
		return r
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return reply{}
	}
	return r
}

func (r reply) failed() bool {
	if r.Success != nil && !*r.Success {
		return true
	}
	return strings.EqualFold(r.Status, "error")
}
