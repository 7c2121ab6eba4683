package executor

import (
	"sync"

	"github.com/devicelab-dev/replay-runner/pkg/core"
	"github.com/devicelab-dev/replay-runner/pkg/device"
)

// gestureCall records one dispatched gesture. Point gestures leave the end
// coordinates zero.
type gestureCall struct {
	kind           string
	x1, y1, x2, y2 int
	durationMs     int
}

// fakeTransport is an in-memory Transport for executor and engine tests.
// Safe for concurrent use; the engine run loop executes on its own goroutine.
type fakeTransport struct {
	mu sync.Mutex

	pingOK    bool
	pingAfter int // When > 0, Ping answers true from the Nth probe on
	pingSeen  int

	snapshot *device.Snapshot
	stateErr error

	reject bool // When set, every dispatch fails with an action_rejected

	gestures  []gestureCall
	texts     []string
	closed    int
	onGesture func() // Runs during each dispatch, for test orchestration
}

func (f *fakeTransport) Ping() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingSeen++
	if f.pingAfter > 0 {
		return f.pingSeen >= f.pingAfter
	}
	return f.pingOK
}

func (f *fakeTransport) FetchState() (*device.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return f.snapshot, nil
}

func (f *fakeTransport) Tap(x, y int) device.ActionResult {
	return f.dispatch(gestureCall{kind: device.GestureTap, x1: x, y1: y})
}

func (f *fakeTransport) LongPress(x, y, durationMs int) device.ActionResult {
	return f.dispatch(gestureCall{kind: device.GestureLongPress, x1: x, y1: y, durationMs: durationMs})
}

func (f *fakeTransport) Swipe(kind string, x1, y1, x2, y2, durationMs int) device.ActionResult {
	return f.dispatch(gestureCall{kind: kind, x1: x1, y1: y1, x2: x2, y2: y2, durationMs: durationMs})
}

func (f *fakeTransport) InputText(text string) device.ActionResult {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	reject := f.reject
	f.mu.Unlock()
	if reject {
		return f.rejection()
	}
	return device.ActionResult{Success: true}
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeTransport) dispatch(g gestureCall) device.ActionResult {
	f.mu.Lock()
	f.gestures = append(f.gestures, g)
	hook := f.onGesture
	reject := f.reject
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if reject {
		return f.rejection()
	}
	return device.ActionResult{Success: true}
}

func (f *fakeTransport) rejection() device.ActionResult {
	err := core.ErrActionRejected.WithMessage("injected rejection")
	return device.ActionResult{Success: false, Message: err.Message, Err: err}
}

func (f *fakeTransport) calls() []gestureCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gestureCall, len(f.gestures))
	copy(out, f.gestures)
	return out
}

func (f *fakeTransport) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingSeen
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func loginSnapshot() *device.Snapshot {
	return &device.Snapshot{
		Nodes: []device.Node{
			{Index: 0, Text: "Welcome back"},
			{Index: 1, ResourceID: "com.app:id/login_button", Text: "Log in", Bounds: "[100,200][300,260]"},
			{Index: 2, ResourceID: "com.app:id/email_field", Bounds: "[100,300][980,380]"},
			{Index: 3, ContentDescription: "Feed list", Bounds: "[0,400][1080,1800]"},
		},
	}
}
