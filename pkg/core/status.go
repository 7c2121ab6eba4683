package core

// ReplayStatus represents the lifecycle state of a replay run.
type ReplayStatus int

const (
	StatusPending   ReplayStatus = iota // Created, not yet started
	StatusRunning                       // Stepping through the workflow
	StatusPaused                        // Blocked at a step boundary, waiting for resume
	StatusCompleted                     // All steps executed (or a complete step reported success)
	StatusFailed                        // Engine-level failure, or a complete step reported failure
	StatusCancelled                     // Cancelled at a step boundary
)

// String returns the string representation of ReplayStatus.
func (s ReplayStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state.
func (s ReplayStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// MarshalJSON serializes the status as its string form.
func (s ReplayStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// StepOutcome classifies the result of a single step execution.
type StepOutcome int

const (
	OutcomeSuccess StepOutcome = iota // Action dispatched and acknowledged
	OutcomeFailed                     // Transport or resolution failure
	OutcomeSkipped                    // Step recognized but not executable (e.g. unknown action)
)

// String returns the string representation of StepOutcome.
func (o StepOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the outcome as its string form.
func (o StepOutcome) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}
