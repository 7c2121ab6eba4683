package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/replay-runner/pkg/core"
	"github.com/devicelab-dev/replay-runner/pkg/device"
	"github.com/devicelab-dev/replay-runner/pkg/logger"
	"github.com/devicelab-dev/replay-runner/pkg/workflow"
)

// ProgressCallback receives a progress snapshot after every completed step and
// at terminal transitions. Callbacks run synchronously in registration order;
// a misbehaving callback is isolated and cannot abort the run.
type ProgressCallback func(*core.ReplayProgress)

// Connection defaults.
const (
	DefaultConnectAttempts   = 3
	DefaultConnectRetryDelay = time.Second
)

// EngineConfig tunes the replay engine.
type EngineConfig struct {
	ConnectAttempts   int           // Liveness probes before Connect gives up
	ConnectRetryDelay time.Duration // Delay between probes
}

func (c *EngineConfig) applyDefaults() {
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = DefaultConnectAttempts
	}
	if c.ConnectRetryDelay <= 0 {
		c.ConnectRetryDelay = DefaultConnectRetryDelay
	}
}

// Engine replays one workflow at a time against one device connection.
// It is not reentrant: overlapping ExecuteWorkflow calls are rejected.
// Pause, Resume and Cancel may be called from concurrent goroutines; they set
// cooperative flags the run loop observes at step boundaries.
type Engine struct {
	transport Transport
	exec      *StepExecutor
	config    EngineConfig

	mu        sync.Mutex
	cond      *sync.Cond
	connected bool
	running   bool
	pauseReq  bool
	cancelReq bool
	runCancel context.CancelFunc
	progress  *core.ReplayProgress
	callbacks []ProgressCallback
}

// New creates an engine for the device agent at host:port. The host:port pair
// is produced by an external port bridge; the engine only verifies liveness.
func New(host string, port int, cfg EngineConfig) *Engine {
	return NewWithTransport(device.NewClient(host, port), cfg)
}

// NewWithTransport creates an engine on an explicit transport.
func NewWithTransport(t Transport, cfg EngineConfig) *Engine {
	cfg.applyDefaults()
	e := &Engine{
		transport: t,
		exec:      NewStepExecutor(t),
		config:    cfg,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// AddProgressCallback registers an observer. Registration order is invocation
// order.
func (e *Engine) AddProgressCallback(fn ProgressCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = append(e.callbacks, fn)
}

// Connect verifies the device answers the liveness probe, retrying a bounded
// number of times. It must precede ExecuteWorkflow.
func (e *Engine) Connect(ctx context.Context) error {
	for attempt := 1; attempt <= e.config.ConnectAttempts; attempt++ {
		if e.transport.Ping() {
			e.mu.Lock()
			e.connected = true
			e.mu.Unlock()
			logger.Info("device connected after %d probe(s)", attempt)
			return nil
		}

		if attempt < e.config.ConnectAttempts {
			select {
			case <-time.After(e.config.ConnectRetryDelay):
			case <-ctx.Done():
				return core.ErrDeviceUnreachable.WithCause(ctx.Err())
			}
		}
	}

	logger.Error("device did not answer after %d probes", e.config.ConnectAttempts)
	return core.ErrDeviceUnreachable
}

// Disconnect releases the transport session. Idempotent; safe even if Connect
// never succeeded.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	e.transport.Close()
}

// Progress returns a snapshot of the current (or last) run's progress, or nil
// before the first run.
func (e *Engine) Progress() *core.ReplayProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.progress == nil {
		return nil
	}
	return e.progress.Clone()
}

// Pause requests a cooperative pause at the next step boundary. A step already
// dispatched runs to its own completion.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running && !e.cancelReq {
		e.pauseReq = true
		e.cond.Broadcast()
	}
}

// Resume releases a pending or active pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseReq = false
	e.cond.Broadcast()
}

// Cancel requests cancellation. It wakes a paused run and interrupts a wait
// step's sleep; an in-flight transport call finishes under its own timeout.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.cancelReq = true
	e.pauseReq = false
	if e.runCancel != nil {
		e.runCancel()
	}
	e.cond.Broadcast()
}

// ExecuteWorkflow replays every step of the workflow in recorded order and
// returns the final progress. Engine-level failures (validation, missing
// connection) set status failed before any step executes and are also returned
// as the error; step-level failures are recorded per step and never abort the
// run on their own.
func (e *Engine) ExecuteWorkflow(ctx context.Context, wf *workflow.Workflow) (*core.ReplayProgress, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, core.ErrRunInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := &core.ReplayProgress{
		RunID:        uuid.NewString(),
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Status:       core.StatusPending,
		TotalSteps:   len(wf.Steps),
	}

	e.running = true
	e.pauseReq = false
	e.cancelReq = false
	e.runCancel = cancel
	e.progress = progress
	connected := e.connected
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.runCancel = nil
		e.mu.Unlock()
	}()

	// A cancelled context must also wake a paused run loop.
	go func() {
		<-runCtx.Done()
		e.cond.Broadcast()
	}()

	if err := workflow.Validate(wf); err != nil {
		wrapped := core.ErrInvalidWorkflow.WithCause(err)
		return e.failRun(progress, wrapped), wrapped
	}
	if !connected {
		return e.failRun(progress, core.ErrNotConnected), core.ErrNotConnected
	}

	e.setStatus(progress, core.StatusRunning)
	logger.Info("replaying workflow %q (%d steps)", wf.Name, len(wf.Steps))

	for i := range wf.Steps {
		if e.stopAtBoundary(runCtx, progress) {
			return progress, nil
		}

		step := &wf.Steps[i]
		result := e.exec.Execute(runCtx, step)

		e.mu.Lock()
		progress.StepResults = append(progress.StepResults, *result)
		progress.CompletedSteps++
		snapshot := progress.Clone()
		e.mu.Unlock()

		logger.Info("step %d/%d %s: %s", i+1, len(wf.Steps), step.Describe(), result.Outcome)
		e.fireCallbacks(snapshot)

		// A complete step is a terminal marker: the run ends here regardless
		// of remaining steps, with the verdict the step recorded.
		if step.Action == workflow.ActionComplete {
			if result.Success() {
				e.finish(progress, core.StatusCompleted, "")
			} else {
				e.finish(progress, core.StatusFailed, result.Message)
			}
			return progress, nil
		}
	}

	// A cancel that landed during the final step (e.g. interrupting its wait)
	// still terminates the run as cancelled.
	e.mu.Lock()
	cancelled := e.cancelReq || runCtx.Err() != nil
	e.mu.Unlock()
	if cancelled {
		e.finish(progress, core.StatusCancelled, "")
		return progress, nil
	}

	e.finish(progress, core.StatusCompleted, "")
	return progress, nil
}

// ExecuteSingleStep runs one step standalone, with no progress bookkeeping.
func (e *Engine) ExecuteSingleStep(ctx context.Context, step *workflow.Step) *core.StepExecutionResult {
	if err := step.Validate(); err != nil {
		return failedResult(step, "invalid step", core.ErrInvalidWorkflow.WithCause(err))
	}

	e.mu.Lock()
	connected := e.connected
	e.mu.Unlock()
	if !connected {
		return failedResult(step, "not connected", core.ErrNotConnected)
	}

	return e.exec.Execute(ctx, step)
}

// stopAtBoundary observes pause and cancel requests between steps. It blocks
// while paused (status reads paused throughout) and returns true when the run
// must stop, having already moved progress to its terminal status.
func (e *Engine) stopAtBoundary(ctx context.Context, progress *core.ReplayProgress) bool {
	e.mu.Lock()

	for e.pauseReq && !e.cancelReq && ctx.Err() == nil {
		if progress.Status != core.StatusPaused {
			progress.Status = core.StatusPaused
			logger.Info("run paused")
		}
		e.cond.Wait()
	}

	if progress.Status == core.StatusPaused {
		progress.Status = core.StatusRunning
		logger.Info("run resumed")
	}

	cancelled := e.cancelReq || ctx.Err() != nil
	e.mu.Unlock()

	if cancelled {
		e.finish(progress, core.StatusCancelled, "")
		return true
	}
	return false
}

// failRun marks an engine-level failure before any step executed.
func (e *Engine) failRun(progress *core.ReplayProgress, err error) *core.ReplayProgress {
	logger.Error("run failed: %v", err)
	e.finish(progress, core.StatusFailed, err.Error())
	return progress
}

// finish moves progress to a terminal status and notifies observers.
func (e *Engine) finish(progress *core.ReplayProgress, status core.ReplayStatus, errMsg string) {
	e.mu.Lock()
	progress.Status = status
	if errMsg != "" {
		progress.Error = errMsg
	}
	snapshot := progress.Clone()
	e.mu.Unlock()

	logger.Info("run %s: %d/%d steps", status, snapshot.CompletedSteps, snapshot.TotalSteps)
	e.fireCallbacks(snapshot)
}

func (e *Engine) setStatus(progress *core.ReplayProgress, status core.ReplayStatus) {
	e.mu.Lock()
	progress.Status = status
	e.mu.Unlock()
}

// fireCallbacks invokes every observer with the snapshot, in registration
// order. Each call is isolated: a panic is logged and swallowed.
func (e *Engine) fireCallbacks(snapshot *core.ReplayProgress) {
	e.mu.Lock()
	callbacks := make([]ProgressCallback, len(e.callbacks))
	copy(callbacks, e.callbacks)
	e.mu.Unlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("progress callback panicked: %v", r)
				}
			}()
			cb(snapshot)
		}()
	}
}
