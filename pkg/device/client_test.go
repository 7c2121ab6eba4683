package device

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/replay-runner/pkg/core"
)

// fakeAgent is a scripted stand-in for the on-device agent.
type fakeAgent struct {
	mux      *http.ServeMux
	server   *httptest.Server
	requests []string
}

func newFakeAgent(t *testing.T) *fakeAgent {
	t.Helper()
	a := &fakeAgent{mux: http.NewServeMux()}
	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.requests = append(a.requests, r.Method+" "+r.URL.Path)
		a.mux.ServeHTTP(w, r)
	})
	a.server = httptest.NewServer(wrapped)
	t.Cleanup(a.server.Close)
	return a
}

func (a *fakeAgent) client(t *testing.T) *Client {
	t.Helper()
	u, err := url.Parse(a.server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewClient(u.Hostname(), port)
}

func (a *fakeAgent) respond(path string, resp Response) {
	a.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
}

// serveState wires GET /state with the double-encoded snapshot payload the
// agent produces: the envelope's data field is a JSON string holding the
// snapshot document.
func (a *fakeAgent) serveState(t *testing.T, snap Snapshot) {
	t.Helper()
	inner, err := json.Marshal(snap)
	require.NoError(t, err)
	quoted, err := json.Marshal(string(inner))
	require.NoError(t, err)
	a.respond("/state", Response{Status: "success", Data: quoted})
}

func TestPing(t *testing.T) {
	agent := newFakeAgent(t)
	agent.respond("/ping", Response{Status: "success", Message: "pong"})

	client := agent.client(t)
	defer client.Close()

	assert.True(t, client.Ping())
	assert.Equal(t, []string{"GET /ping"}, agent.requests)
}

func TestPingNonSuccessPayload(t *testing.T) {
	agent := newFakeAgent(t)
	agent.respond("/ping", Response{Status: "error", Message: "agent booting"})

	assert.False(t, agent.client(t).Ping())
}

func TestPingUnreachableAgent(t *testing.T) {
	agent := newFakeAgent(t)
	client := agent.client(t)
	agent.server.Close()

	client.SetPingTimeout(200 * time.Millisecond)
	assert.False(t, client.Ping())
}

func TestFetchState(t *testing.T) {
	agent := newFakeAgent(t)
	agent.serveState(t, Snapshot{
		Nodes: []Node{
			{Index: 0, ResourceID: "com.app:id/login_button", Bounds: "[100,200][300,260]"},
			{Index: 1, Text: "Welcome back"},
		},
		PhoneState: json.RawMessage(`{"orientation":"portrait"}`),
	})

	client := agent.client(t)
	defer client.Close()

	snap, err := client.FetchState()
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, "com.app:id/login_button", snap.Nodes[0].ResourceID)
	assert.Equal(t, "Welcome back", snap.Nodes[1].Text)
	assert.JSONEq(t, `{"orientation":"portrait"}`, string(snap.PhoneState))
}

func TestFetchStateRejected(t *testing.T) {
	agent := newFakeAgent(t)
	agent.respond("/state", Response{Status: "error", Message: "screen is off"})

	_, err := agent.client(t).FetchState()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRequestFailed)
	assert.Contains(t, err.Error(), "screen is off")
}

func TestFetchStateMalformedInnerPayload(t *testing.T) {
	agent := newFakeAgent(t)
	// data holds a JSON string, but its content is not a snapshot document.
	quoted, err := json.Marshal("{broken")
	require.NoError(t, err)
	agent.respond("/state", Response{Status: "success", Data: quoted})

	_, err = agent.client(t).FetchState()
	assert.ErrorIs(t, err, core.ErrMalformedPayload)
}

func TestFetchStateDataNotAString(t *testing.T) {
	agent := newFakeAgent(t)
	// Single-encoded payload: the agent contract is string-wrapped.
	agent.respond("/state", Response{Status: "success", Data: json.RawMessage(`{"a11y_tree":[]}`)})

	_, err := agent.client(t).FetchState()
	assert.ErrorIs(t, err, core.ErrMalformedPayload)
}

func TestTapDispatch(t *testing.T) {
	agent := newFakeAgent(t)
	var got map[string]interface{}
	agent.mux.HandleFunc("/action/tap", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Response{Status: "success", Message: "tapped"})
	})

	res := agent.client(t).Tap(200, 230)
	assert.True(t, res.Success)
	assert.Equal(t, "tapped", res.Message)
	assert.Equal(t, float64(200), got["x"])
	assert.Equal(t, float64(230), got["y"])
}

func TestSwipeDispatch(t *testing.T) {
	agent := newFakeAgent(t)
	var got map[string]interface{}
	agent.mux.HandleFunc("/action/scroll", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Response{Status: "success"})
	})

	res := agent.client(t).Swipe(GestureScroll, 540, 1600, 540, 400, 250)
	assert.True(t, res.Success)
	assert.Equal(t, float64(1600), got["start_y"])
	assert.Equal(t, float64(400), got["end_y"])
	assert.Equal(t, float64(250), got["duration_ms"])
}

func TestDispatchActionRejected(t *testing.T) {
	agent := newFakeAgent(t)
	agent.respond("/action/tap", Response{Status: "error", Message: "coordinates off screen"})

	res := agent.client(t).Tap(99999, 99999)
	assert.False(t, res.Success)
	assert.Equal(t, "coordinates off screen", res.Message)
	assert.ErrorIs(t, res.Err, core.ErrActionRejected)
}

func TestDispatchActionAgentError(t *testing.T) {
	agent := newFakeAgent(t)
	agent.mux.HandleFunc("/action/tap", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	res := agent.client(t).Tap(1, 1)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, core.ErrRequestFailed)
}

func TestDispatchActionUnreachable(t *testing.T) {
	agent := newFakeAgent(t)
	client := agent.client(t)
	agent.server.Close()

	client.SetTimeout(200 * time.Millisecond)
	res := client.Tap(1, 1)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, core.ErrRequestFailed)
}

func TestInputText(t *testing.T) {
	agent := newFakeAgent(t)
	var got map[string]interface{}
	agent.mux.HandleFunc("/keyboard/input", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Response{Status: "success"})
	})

	res := agent.client(t).InputText("user@example.com")
	assert.True(t, res.Success)
	assert.Equal(t, "user@example.com", got["text"])
}

func TestRecordingControl(t *testing.T) {
	agent := newFakeAgent(t)
	agent.respond("/recording/start", Response{Status: "success", Message: "recording"})

	res := agent.client(t).Recording(RecordingStart)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"POST /recording/start"}, agent.requests)
}

func TestCloseIsRepeatable(t *testing.T) {
	agent := newFakeAgent(t)
	client := agent.client(t)
	client.Close()
	client.Close()
}
