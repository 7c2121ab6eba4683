package workflow

import (
	"fmt"
	"time"
)

// ActionType identifies what a step does on the device.
type ActionType string

// Action type constants. The set is extensible: executors report unknown
// actions as skipped rather than failing the run.
const (
	ActionTap       ActionType = "tap"
	ActionLongPress ActionType = "long_press"
	ActionSwipe     ActionType = "swipe"
	ActionScroll    ActionType = "scroll"
	ActionInputText ActionType = "input_text"
	ActionWait      ActionType = "wait"
	ActionComplete  ActionType = "complete"
)

// Point is a literal screen coordinate recorded at capture time.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("coordinates(%d,%d)", p.X, p.Y)
}

// Gesture is a two-point swipe/scroll path with a duration.
type Gesture struct {
	StartX     int `json:"startX"     yaml:"startX"`
	StartY     int `json:"startY"     yaml:"startY"`
	EndX       int `json:"endX"       yaml:"endX"`
	EndY       int `json:"endY"       yaml:"endY"`
	DurationMs int `json:"durationMs" yaml:"durationMs"`
}

// Completion is the payload of a complete step: the recorded verdict the run
// should end with.
type Completion struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Step is one recorded interaction. Exactly one action-specific payload is
// populated, consistent with Action; Validate enforces this.
type Step struct {
	ID     string     `json:"id"   yaml:"id"`
	Name   string     `json:"name" yaml:"name"`
	Action ActionType `json:"action" yaml:"action" validate:"required"`

	// Optional element target for tap/long_press/swipe/scroll.
	Selector *ElementSelector `json:"selector,omitempty" yaml:"selector,omitempty"`

	// Action-specific payloads.
	Coordinates *Point      `json:"coordinates,omitempty" yaml:"coordinates,omitempty"` // tap, long_press
	Gesture     *Gesture    `json:"gesture,omitempty"     yaml:"gesture,omitempty"`     // swipe, scroll
	Text        string      `json:"text,omitempty"        yaml:"text,omitempty"`        // input_text
	DurationMs  int         `json:"durationMs,omitempty"  yaml:"durationMs,omitempty"`  // wait, long_press hold time
	Completion  *Completion `json:"completion,omitempty"  yaml:"completion,omitempty"`  // complete
}

// Describe returns a human-readable one-liner for progress output.
func (s *Step) Describe() string {
	switch {
	case s.Selector != nil:
		return string(s.Action) + ": " + s.Selector.Describe()
	case s.Coordinates != nil:
		return string(s.Action) + ": " + s.Coordinates.String()
	case s.Action == ActionInputText:
		return `input_text: "` + s.Text + `"`
	case s.Action == ActionWait:
		return fmt.Sprintf("wait: %dms", s.DurationMs)
	default:
		return string(s.Action)
	}
}

// Validate checks the action/payload pairing for a single step.
func (s *Step) Validate() error {
	if s.Selector != nil {
		if err := s.Selector.Validate(); err != nil {
			return err
		}
	}

	switch s.Action {
	case ActionTap, ActionLongPress:
		if s.Selector == nil && s.Coordinates == nil {
			return fmt.Errorf("%s step needs a selector or coordinates", s.Action)
		}
		if s.Gesture != nil || s.Text != "" || s.Completion != nil {
			return fmt.Errorf("%s step carries a foreign payload", s.Action)
		}
	case ActionSwipe, ActionScroll:
		if s.Selector == nil && s.Gesture == nil {
			return fmt.Errorf("%s step needs a selector or gesture", s.Action)
		}
		if s.Coordinates != nil || s.Text != "" || s.Completion != nil {
			return fmt.Errorf("%s step carries a foreign payload", s.Action)
		}
	case ActionInputText:
		if s.Text == "" {
			return fmt.Errorf("input_text step has no text")
		}
		if s.Selector != nil || s.Coordinates != nil || s.Gesture != nil || s.Completion != nil {
			return fmt.Errorf("input_text step carries a foreign payload")
		}
	case ActionWait:
		if s.DurationMs <= 0 {
			return fmt.Errorf("wait step needs a positive durationMs")
		}
		if s.Selector != nil || s.Coordinates != nil || s.Gesture != nil || s.Text != "" || s.Completion != nil {
			return fmt.Errorf("wait step carries a foreign payload")
		}
	case ActionComplete:
		if s.Coordinates != nil || s.Gesture != nil || s.Text != "" || s.DurationMs != 0 {
			return fmt.Errorf("complete step carries a foreign payload")
		}
	case "":
		return fmt.Errorf("step has no action")
	default:
		// Unknown actions pass validation; the executor skips them.
	}

	return nil
}

// Workflow is an ordered, named list of steps. Step order is execution order
// and is immutable during a run.
type Workflow struct {
	ID          string    `json:"id"          yaml:"id"`
	Name        string    `json:"name"        yaml:"name" validate:"required"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	IsActive    bool      `json:"isActive"    yaml:"isActive"`
	CreatedAt   time.Time `json:"createdAt"   yaml:"createdAt"`
	Steps       []Step    `json:"steps"       yaml:"steps" validate:"dive"`

	// SourcePath records where the document was loaded from, for error messages.
	SourcePath string `json:"-" yaml:"-"`
}
