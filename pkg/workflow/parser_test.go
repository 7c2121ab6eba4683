package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordedDoc = `{
  "id": "wf-checkout",
  "name": "Checkout happy path",
  "isActive": true,
  "steps": [
    {
      "id": "step-1",
      "name": "Tap login",
      "action": "tap",
      "selector": {
        "type": "resource_id",
        "value": "login_button",
        "confidence": 0.92,
        "fallback": {"type": "text", "value": "Log in"}
      },
      "coordinates": {"x": 540, "y": 1200}
    },
    {"id": "step-2", "name": "Enter email", "action": "input_text", "text": "user@example.com"},
    {"id": "step-3", "name": "Settle", "action": "wait", "durationMs": 500},
    {"id": "step-4", "name": "Done", "action": "complete", "completion": {"success": true, "message": "checkout done"}}
  ]
}`

func TestParseRecordedDocument(t *testing.T) {
	wf, err := Parse([]byte(recordedDoc), "checkout.json")
	require.NoError(t, err)

	assert.Equal(t, "wf-checkout", wf.ID)
	assert.Equal(t, "Checkout happy path", wf.Name)
	assert.Equal(t, "checkout.json", wf.SourcePath)
	require.Len(t, wf.Steps, 4)

	tap := wf.Steps[0]
	assert.Equal(t, ActionTap, tap.Action)
	require.NotNil(t, tap.Selector)
	assert.Equal(t, SelectorResourceID, tap.Selector.Kind)
	require.NotNil(t, tap.Selector.Fallback)
	assert.Equal(t, SelectorText, tap.Selector.Fallback.Kind)
	require.NotNil(t, tap.Coordinates)
	assert.Equal(t, 540, tap.Coordinates.X)

	require.NotNil(t, wf.Steps[3].Completion)
	assert.True(t, wf.Steps[3].Completion.Success)
}

func TestParseAssignsMissingIDs(t *testing.T) {
	doc := `{"name": "No ids", "steps": [{"name": "Pause", "action": "wait", "durationMs": 100}]}`
	wf, err := Parse([]byte(doc), "")
	require.NoError(t, err)

	assert.NotEmpty(t, wf.ID)
	assert.Equal(t, "step-1", wf.Steps[0].ID)
}

func TestParseClampsConfidence(t *testing.T) {
	doc := `{"name": "Clamp", "steps": [
		{"name": "Tap", "action": "tap",
		 "selector": {"type": "text", "value": "OK", "confidence": 3.5}}
	]}`
	wf, err := Parse([]byte(doc), "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, wf.Steps[0].Selector.Confidence)
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"), "broken.json")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "broken.json", perr.Path)
	assert.Contains(t, perr.Error(), "invalid JSON")
}

func TestParseYAMLDocument(t *testing.T) {
	doc := `
name: Scroll feed
steps:
  - name: Scroll down
    action: scroll
    gesture:
      startX: 540
      startY: 1600
      endX: 540
      endY: 400
      durationMs: 250
`
	wf, err := ParseYAML([]byte(doc), "feed.yaml")
	require.NoError(t, err)
	require.Len(t, wf.Steps, 1)
	require.NotNil(t, wf.Steps[0].Gesture)
	assert.Equal(t, 1600, wf.Steps[0].Gesture.StartY)
}

func TestParseFileDetectsFormatByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "wf.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(recordedDoc), 0o644))
	yamlPath := filepath.Join(dir, "wf.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: From YAML\nsteps: []\n"), 0o644))

	wf, err := ParseFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Checkout happy path", wf.Name)

	wf, err = ParseFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "From YAML", wf.Name)

	_, err = ParseFile(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)
}

func TestValidateRejectsMissingName(t *testing.T) {
	_, err := Parse([]byte(`{"steps": []}`), "unnamed.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name")
}

func TestValidateAcceptsEmptyStepList(t *testing.T) {
	wf, err := Parse([]byte(`{"name": "Empty"}`), "")
	require.NoError(t, err)
	assert.Empty(t, wf.Steps)
}

func TestStepValidatePayloadPairing(t *testing.T) {
	sel := &ElementSelector{Kind: SelectorText, Value: "OK"}

	cases := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{"tap without target", Step{Action: ActionTap}, "selector or coordinates"},
		{"tap with gesture payload", Step{Action: ActionTap, Selector: sel, Gesture: &Gesture{}}, "foreign payload"},
		{"swipe without path", Step{Action: ActionSwipe}, "selector or gesture"},
		{"swipe with coordinates", Step{Action: ActionSwipe, Gesture: &Gesture{}, Coordinates: &Point{}}, "foreign payload"},
		{"input without text", Step{Action: ActionInputText}, "no text"},
		{"input with selector", Step{Action: ActionInputText, Text: "x", Selector: sel}, "foreign payload"},
		{"wait without duration", Step{Action: ActionWait}, "positive durationMs"},
		{"wait with text", Step{Action: ActionWait, DurationMs: 100, Text: "x"}, "foreign payload"},
		{"complete with coordinates", Step{Action: ActionComplete, Coordinates: &Point{}}, "foreign payload"},
		{"missing action", Step{}, "no action"},
		{"tap with bad selector", Step{Action: ActionTap, Selector: &ElementSelector{Kind: SelectorText}}, "no value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorContains(t, tc.step.Validate(), tc.wantErr)
		})
	}
}

func TestStepValidateAccepts(t *testing.T) {
	sel := &ElementSelector{Kind: SelectorResourceID, Value: "field"}

	valid := []Step{
		{Action: ActionTap, Selector: sel},
		{Action: ActionTap, Coordinates: &Point{X: 10, Y: 20}},
		{Action: ActionLongPress, Selector: sel, DurationMs: 800},
		{Action: ActionSwipe, Gesture: &Gesture{StartX: 1, StartY: 2, EndX: 3, EndY: 4}},
		{Action: ActionScroll, Selector: sel},
		{Action: ActionInputText, Text: "hello"},
		{Action: ActionWait, DurationMs: 250},
		{Action: ActionComplete},
		{Action: ActionComplete, Completion: &Completion{Success: false, Message: "gave up"}},
		{Action: "shake"}, // unknown actions pass; the executor skips them
	}
	for _, step := range valid {
		assert.NoError(t, step.Validate(), "action %s", step.Action)
	}
}

func TestValidateReportsStepPosition(t *testing.T) {
	doc := `{"name": "Broken", "steps": [
		{"name": "OK", "action": "wait", "durationMs": 10},
		{"name": "Bad", "action": "tap"}
	]}`
	_, err := Parse([]byte(doc), "broken.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2 (Bad)")
}

func TestSaveFileRoundTrip(t *testing.T) {
	wf, err := Parse([]byte(recordedDoc), "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, SaveFile(wf, path))

	loaded, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, loaded.ID)
	assert.Len(t, loaded.Steps, len(wf.Steps))
}
