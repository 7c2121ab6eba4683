package device

import (
	"encoding/json"
	"fmt"
)

// Response is the envelope every agent endpoint returns.
// Status is "success" on success; anything else indicates an error.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// OK returns true if the response reports success.
func (r *Response) OK() bool {
	return r.Status == "success"
}

// Node is one accessibility-tree element descriptor. Every field is a subset:
// the agent omits attributes an element doesn't carry.
type Node struct {
	Index              int    `json:"index"`
	ResourceID         string `json:"resourceId,omitempty"`
	ContentDescription string `json:"contentDescription,omitempty"`
	Text               string `json:"text,omitempty"`
	ClassName          string `json:"className,omitempty"`
	Bounds             string `json:"bounds,omitempty"` // "[x1,y1][x2,y2]"
}

// Snapshot is one point-in-time capture of the device UI: the exposed
// accessibility tree in agent order plus an opaque phone-state blob.
type Snapshot struct {
	Nodes      []Node          `json:"a11y_tree"`
	PhoneState json.RawMessage `json:"phone_state,omitempty"`
}

// Rect is a parsed bounds rectangle.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// Center returns the midpoint, the tap target for a resolved element.
func (r Rect) Center() (x, y int) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// ParseBounds parses the agent's "[x1,y1][x2,y2]" bounds notation.
func ParseBounds(s string) (Rect, error) {
	var r Rect
	n, err := fmt.Sscanf(s, "[%d,%d][%d,%d]", &r.X1, &r.Y1, &r.X2, &r.Y2)
	if err != nil || n != 4 {
		return Rect{}, fmt.Errorf("malformed bounds %q", s)
	}
	return r, nil
}

// ActionResult is the outcome of one dispatched action. Failures are carried
// as values, never panics, so the engine can record them per step.
type ActionResult struct {
	Success bool
	Message string
	Err     error // Typed transport error when Success is false
}
