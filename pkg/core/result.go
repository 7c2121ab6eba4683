package core

// StepExecutionResult captures the complete outcome of executing a single step.
type StepExecutionResult struct {
	// Identity
	StepID   string `json:"stepId"`
	StepName string `json:"stepName"`

	// Status
	Outcome StepOutcome `json:"result"`

	// Output
	Message    string `json:"message,omitempty"` // Human-readable explanation
	DurationMs int64  `json:"durationMs"`

	// Targeting detail: description of whichever selector link (or literal
	// coordinates) actually produced the action.
	SelectorUsed string `json:"selectorUsed,omitempty"`
	FallbackUsed bool   `json:"fallbackUsed,omitempty"`

	// Error detail, present only when Outcome is OutcomeFailed.
	Error string `json:"error,omitempty"`
}

// Success returns true if the step succeeded.
func (r *StepExecutionResult) Success() bool {
	return r.Outcome == OutcomeSuccess
}

// ReplayProgress captures the live state of one replay run.
// It has exactly one writer (the engine's run loop); observers receive copies.
type ReplayProgress struct {
	// Identity
	RunID        string `json:"runId"`
	WorkflowID   string `json:"workflowId"`
	WorkflowName string `json:"workflowName"`

	// Status
	Status ReplayStatus `json:"status"`

	// Counters. CompletedSteps is monotonic non-decreasing for the life of
	// the run; StepResults is append-only.
	TotalSteps     int                   `json:"totalSteps"`
	CompletedSteps int                   `json:"completedSteps"`
	StepResults    []StepExecutionResult `json:"stepResults"`

	// Engine-level failure only; step failures live in StepResults.
	Error string `json:"error,omitempty"`
}

// ProgressPercent returns completed/total as a percentage.
// A zero-step workflow reports 0, not NaN.
func (p *ReplayProgress) ProgressPercent() float64 {
	if p.TotalSteps == 0 {
		return 0
	}
	return float64(p.CompletedSteps) / float64(p.TotalSteps) * 100
}

// SuccessCount returns the number of successful step results.
func (p *ReplayProgress) SuccessCount() int {
	n := 0
	for i := range p.StepResults {
		if p.StepResults[i].Outcome == OutcomeSuccess {
			n++
		}
	}
	return n
}

// FailedCount returns the number of failed step results.
func (p *ReplayProgress) FailedCount() int {
	n := 0
	for i := range p.StepResults {
		if p.StepResults[i].Outcome == OutcomeFailed {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand to observers while the run
// loop keeps mutating the original.
func (p *ReplayProgress) Clone() *ReplayProgress {
	cp := *p
	cp.StepResults = make([]StepExecutionResult, len(p.StepResults))
	copy(cp.StepResults, p.StepResults)
	return &cp
}
