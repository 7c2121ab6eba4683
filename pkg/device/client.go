// Package device implements the HTTP client for the on-device replay agent.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/devicelab-dev/replay-runner/pkg/core"
	"github.com/devicelab-dev/replay-runner/pkg/logger"
)

// Action kind constants for DispatchAction.
const (
	GestureTap       = "tap"
	GestureLongPress = "long_press"
	GestureSwipe     = "swipe"
	GestureScroll    = "scroll"
)

// Keyboard operation constants.
const (
	KeyboardInput = "input"
	KeyboardClear = "clear"
)

// Recording operation constants. The endpoint family is shared with the
// recorder; replay itself never calls it.
const (
	RecordingStart = "start"
	RecordingStop  = "stop"
)

// DefaultTimeout bounds every agent round trip.
const DefaultTimeout = 10 * time.Second

// DefaultPingTimeout bounds the liveness probe, which should answer fast.
const DefaultPingTimeout = 3 * time.Second

// Client communicates with the replay agent on one device.
// The host:port pair comes from an external port bridge and is assumed
// reachable; the client only verifies liveness via Ping.
type Client struct {
	http        *http.Client
	baseURL     string
	pingTimeout time.Duration
}

// NewClient creates a client for the agent at host:port.
func NewClient(host string, port int) *Client {
	return &Client{
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL:     fmt.Sprintf("http://%s:%d", host, port),
		pingTimeout: DefaultPingTimeout,
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// SetPingTimeout overrides the liveness probe timeout.
func (c *Client) SetPingTimeout(d time.Duration) {
	c.pingTimeout = d
}

// BaseURL returns the agent base URL, for log lines.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request makes an HTTP request to the agent and decodes the envelope.
func (c *Client) request(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	start := time.Now()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Debug("%s %s [%v] ERROR: %v", method, path, elapsed, err)
		return nil, core.ErrRequestFailed.WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.ErrRequestFailed.WithCause(err)
	}

	logger.Debug("%s %s [%v] %d", method, path, elapsed, resp.StatusCode)

	if resp.StatusCode >= 400 {
		return nil, core.ErrRequestFailed.WithMessage(
			fmt.Sprintf("agent error %d: %s", resp.StatusCode, string(respBody)))
	}

	var envelope Response
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, core.ErrMalformedPayload.WithCause(err)
	}

	return &envelope, nil
}

// Ping reports whether the agent answers the liveness probe with a success
// payload within the probe timeout. It never returns an error: any network
// failure or non-success payload reads as false.
func (c *Client) Ping() bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.pingTimeout)
	defer cancel()

	resp, err := c.request(ctx, http.MethodGet, "/ping", nil)
	if err != nil {
		return false
	}
	return resp.OK()
}

// FetchState pulls the current accessibility-tree snapshot. The agent wraps
// the snapshot as a JSON string inside the envelope's data field, so the
// payload is decoded twice.
func (c *Client) FetchState() (*Snapshot, error) {
	resp, err := c.request(context.Background(), http.MethodGet, "/state", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, core.ErrRequestFailed.WithMessage(
			fmt.Sprintf("state fetch rejected: %s", resp.Message))
	}

	var inner string
	if err := json.Unmarshal(resp.Data, &inner); err != nil {
		return nil, core.ErrMalformedPayload.WithCause(err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(inner), &snap); err != nil {
		return nil, core.ErrMalformedPayload.WithCause(err)
	}

	return &snap, nil
}

// DispatchAction sends a gesture request to POST /action/{kind}.
// All failures come back as a typed ActionResult, never an error return.
func (c *Client) DispatchAction(kind string, params map[string]interface{}) ActionResult {
	return c.post("/action/"+kind, params)
}

// Tap dispatches a single tap at the given coordinates.
func (c *Client) Tap(x, y int) ActionResult {
	return c.DispatchAction(GestureTap, map[string]interface{}{"x": x, "y": y})
}

// LongPress dispatches a press-and-hold at the given coordinates.
func (c *Client) LongPress(x, y, durationMs int) ActionResult {
	return c.DispatchAction(GestureLongPress, map[string]interface{}{
		"x": x, "y": y, "duration_ms": durationMs,
	})
}

// Swipe dispatches a two-point gesture.
func (c *Client) Swipe(kind string, x1, y1, x2, y2, durationMs int) ActionResult {
	return c.DispatchAction(kind, map[string]interface{}{
		"start_x": x1, "start_y": y1,
		"end_x": x2, "end_y": y2,
		"duration_ms": durationMs,
	})
}

// InputText sends text to whatever element currently holds device focus.
func (c *Client) InputText(text string) ActionResult {
	return c.post("/keyboard/"+KeyboardInput, map[string]interface{}{"text": text})
}

// Recording controls the agent's recording endpoint family.
func (c *Client) Recording(op string) ActionResult {
	return c.post("/recording/"+op, nil)
}

func (c *Client) post(path string, body interface{}) ActionResult {
	resp, err := c.request(context.Background(), http.MethodPost, path, body)
	if err != nil {
		return ActionResult{Success: false, Message: err.Error(), Err: err}
	}
	if !resp.OK() {
		rejected := core.ErrActionRejected.WithMessage(resp.Message)
		return ActionResult{Success: false, Message: resp.Message, Err: rejected}
	}
	return ActionResult{Success: true, Message: resp.Message}
}

// Close releases idle connections. Safe to call repeatedly and without a
// successful Ping ever having happened.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
