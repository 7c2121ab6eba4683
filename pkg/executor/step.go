// Package executor drives replay execution: a step executor that maps one
// recorded step to device transport calls, and an engine that orchestrates a
// full workflow run with pause/resume/cancel and progress fan-out.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/replay-runner/pkg/core"
	"github.com/devicelab-dev/replay-runner/pkg/device"
	"github.com/devicelab-dev/replay-runner/pkg/logger"
	"github.com/devicelab-dev/replay-runner/pkg/resolver"
	"github.com/devicelab-dev/replay-runner/pkg/workflow"
)

// Transport is the device surface the executor needs.
// Implemented by device.Client; faked in tests.
type Transport interface {
	Ping() bool
	FetchState() (*device.Snapshot, error)
	Tap(x, y int) device.ActionResult
	LongPress(x, y, durationMs int) device.ActionResult
	Swipe(kind string, x1, y1, x2, y2, durationMs int) device.ActionResult
	InputText(text string) device.ActionResult
	Close()
}

// Gesture defaults when the recorded payload omits them.
const (
	DefaultLongPressMs = 500
	DefaultGestureMs   = 300
	// DefaultScrollDelta is the vertical distance of a selector-only
	// swipe/scroll that recorded no end point.
	DefaultScrollDelta = 400
)

// StepExecutor maps one workflow step to transport calls, resolving the
// step's selector against a fresh snapshot when one is present.
type StepExecutor struct {
	transport Transport
}

// NewStepExecutor creates a step executor on the given transport.
func NewStepExecutor(t Transport) *StepExecutor {
	return &StepExecutor{transport: t}
}

// Execute runs a single step. Every outcome, including a panic in the
// resolution path, is wrapped into a StepExecutionResult; the executor never
// raises across this boundary.
func (e *StepExecutor) Execute(ctx context.Context, step *workflow.Step) (result *core.StepExecutionResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("step %s panicked: %v", step.ID, r)
			result = &core.StepExecutionResult{
				StepID:   step.ID,
				StepName: step.Name,
				Outcome:  core.OutcomeFailed,
				Message:  "internal executor failure",
				Error:    fmt.Sprintf("panic: %v", r),
			}
		}
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	switch step.Action {
	case workflow.ActionTap:
		result = e.pointGesture(step, false)
	case workflow.ActionLongPress:
		result = e.pointGesture(step, true)
	case workflow.ActionSwipe:
		result = e.pathGesture(step, device.GestureSwipe)
	case workflow.ActionScroll:
		result = e.pathGesture(step, device.GestureScroll)
	case workflow.ActionInputText:
		result = e.inputText(step)
	case workflow.ActionWait:
		result = e.wait(ctx, step)
	case workflow.ActionComplete:
		result = e.complete(step)
	default:
		result = &core.StepExecutionResult{
			StepID:   step.ID,
			StepName: step.Name,
			Outcome:  core.OutcomeSkipped,
			Message:  fmt.Sprintf("action %q is not supported", step.Action),
		}
	}

	return result
}

// target is a resolved dispatch point plus the bookkeeping of how it was found.
type target struct {
	x, y         int
	selectorUsed string
	fallbackUsed bool
}

// resolveSelector matches the step's selector chain against a freshly fetched
// snapshot and returns the center of the matched node's bounds. A fetch
// failure, an exhausted chain, or unparseable bounds on the match all count as
// resolution failure; the per-action coordinate fallback policy lives in the
// gesture handlers.
func (e *StepExecutor) resolveSelector(step *workflow.Step) (target, error) {
	snap, err := e.transport.FetchState()
	if err != nil {
		return target{}, err
	}

	res := resolver.Resolve(snap, step.Selector)
	if !res.Found() {
		return target{}, core.ErrElementNotFound.WithMessage(
			fmt.Sprintf("no node matches %s or its fallbacks", step.Selector.Describe()))
	}

	rect, err := device.ParseBounds(res.Node.Bounds)
	if err != nil {
		return target{}, core.ErrElementNotFound.WithCause(err)
	}

	x, y := rect.Center()
	return target{x: x, y: y, selectorUsed: res.SelectorUsed, fallbackUsed: res.FallbackUsed}, nil
}

// pointGesture handles tap and long_press. Policy for the selector-vs-
// coordinates precedence: the selector is tried first; when resolution fails
// the recorded literal coordinates take over if present; only when neither
// path yields a point does the step fail with element not found.
func (e *StepExecutor) pointGesture(step *workflow.Step, long bool) *core.StepExecutionResult {
	var tgt target
	var resolveErr error

	switch {
	case step.Selector != nil:
		tgt, resolveErr = e.resolveSelector(step)
		if resolveErr != nil && step.Coordinates != nil {
			logger.Warn("step %s: selector resolution failed (%v), using recorded coordinates", step.ID, resolveErr)
			tgt = target{x: step.Coordinates.X, y: step.Coordinates.Y, selectorUsed: step.Coordinates.String()}
			resolveErr = nil
		}
	case step.Coordinates != nil:
		tgt = target{x: step.Coordinates.X, y: step.Coordinates.Y, selectorUsed: step.Coordinates.String()}
	default:
		resolveErr = core.ErrElementNotFound.WithMessage("step has neither selector nor coordinates")
	}
	if resolveErr != nil {
		return failedResult(step, "element not found", resolveErr)
	}

	var res device.ActionResult
	if long {
		hold := step.DurationMs
		if hold <= 0 {
			hold = DefaultLongPressMs
		}
		res = e.transport.LongPress(tgt.x, tgt.y, hold)
	} else {
		res = e.transport.Tap(tgt.x, tgt.y)
	}

	return actionResult(step, tgt, res, fmt.Sprintf("%s at (%d,%d)", step.Action, tgt.x, tgt.y))
}

// pathGesture handles swipe and scroll with the same precedence as tap: the
// recorded gesture path is the literal-coordinate fallback. A resolved element
// replaces the recorded start point; the recorded end point is kept when
// present, otherwise the gesture defaults to an upward scroll.
func (e *StepExecutor) pathGesture(step *workflow.Step, kind string) *core.StepExecutionResult {
	g := step.Gesture
	durationMs := DefaultGestureMs
	if g != nil && g.DurationMs > 0 {
		durationMs = g.DurationMs
	}

	var tgt target
	if step.Selector != nil {
		resolved, err := e.resolveSelector(step)
		switch {
		case err == nil:
			tgt = resolved
		case g != nil:
			logger.Warn("step %s: selector resolution failed (%v), using recorded gesture", step.ID, err)
			tgt = target{x: g.StartX, y: g.StartY, selectorUsed: workflow.Point{X: g.StartX, Y: g.StartY}.String()}
		default:
			return failedResult(step, "element not found", err)
		}
	} else {
		tgt = target{x: g.StartX, y: g.StartY, selectorUsed: workflow.Point{X: g.StartX, Y: g.StartY}.String()}
	}

	x1, y1 := tgt.x, tgt.y
	x2, y2 := x1, y1-DefaultScrollDelta
	if g != nil {
		x2, y2 = g.EndX, g.EndY
	}

	res := e.transport.Swipe(kind, x1, y1, x2, y2, durationMs)
	return actionResult(step, tgt, res,
		fmt.Sprintf("%s from (%d,%d) to (%d,%d)", step.Action, x1, y1, x2, y2))
}

// inputText dispatches to whatever element currently holds device focus; the
// recording is expected to have focused the field in a prior step.
func (e *StepExecutor) inputText(step *workflow.Step) *core.StepExecutionResult {
	res := e.transport.InputText(step.Text)
	return actionResult(step, target{}, res, fmt.Sprintf("typed %d characters", len(step.Text)))
}

// wait sleeps the recorded duration. The sleep is cancel-interruptible so a
// cancelled run is not stuck behind a long recorded pause.
func (e *StepExecutor) wait(ctx context.Context, step *workflow.Step) *core.StepExecutionResult {
	d := time.Duration(step.DurationMs) * time.Millisecond
	start := time.Now()

	select {
	case <-time.After(d):
		return &core.StepExecutionResult{
			StepID:   step.ID,
			StepName: step.Name,
			Outcome:  core.OutcomeSuccess,
			Message:  fmt.Sprintf("waited %dms", step.DurationMs),
		}
	case <-ctx.Done():
		return failedResult(step,
			fmt.Sprintf("wait interrupted after %dms", time.Since(start).Milliseconds()),
			ctx.Err())
	}
}

func (e *StepExecutor) complete(step *workflow.Step) *core.StepExecutionResult {
	outcome := core.OutcomeSuccess
	message := "workflow complete"
	if step.Completion != nil {
		message = step.Completion.Message
		if message == "" {
			message = "workflow complete"
		}
		if !step.Completion.Success {
			outcome = core.OutcomeFailed
		}
	}

	result := &core.StepExecutionResult{
		StepID:   step.ID,
		StepName: step.Name,
		Outcome:  outcome,
		Message:  message,
	}
	if outcome == core.OutcomeFailed {
		result.Error = message
	}
	return result
}

func actionResult(step *workflow.Step, tgt target, res device.ActionResult, okMessage string) *core.StepExecutionResult {
	out := &core.StepExecutionResult{
		StepID:       step.ID,
		StepName:     step.Name,
		SelectorUsed: tgt.selectorUsed,
		FallbackUsed: tgt.fallbackUsed,
	}

	if res.Success {
		out.Outcome = core.OutcomeSuccess
		out.Message = okMessage
		if res.Message != "" {
			out.Message = res.Message
		}
		return out
	}

	out.Outcome = core.OutcomeFailed
	out.Message = res.Message
	if res.Err != nil {
		out.Error = res.Err.Error()
	} else {
		out.Error = res.Message
	}
	return out
}

func failedResult(step *workflow.Step, message string, err error) *core.StepExecutionResult {
	return &core.StepExecutionResult{
		StepID:   step.ID,
		StepName: step.Name,
		Outcome:  core.OutcomeFailed,
		Message:  message,
		Error:    err.Error(),
	}
}
