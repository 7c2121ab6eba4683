package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ParseError represents a document error with location info.
type ParseError struct {
	Path    string
	Message string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

var validate = validator.New()

// ParseFile parses a workflow document. Recorded documents are JSON;
// hand-written ones may be YAML, detected by extension.
func ParseFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is a user-provided workflow file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	default:
		return Parse(data, path)
	}
}

// Parse parses JSON workflow content.
func Parse(data []byte, sourcePath string) (*Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return finishParse(&wf, sourcePath)
}

// ParseYAML parses YAML workflow content.
func ParseYAML(data []byte, sourcePath string) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	return finishParse(&wf, sourcePath)
}

func finishParse(wf *Workflow, sourcePath string) (*Workflow, error) {
	wf.SourcePath = sourcePath

	// Recorded documents always carry an id; tolerate hand-written ones that don't.
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}

	for i := range wf.Steps {
		if wf.Steps[i].ID == "" {
			wf.Steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
		if sel := wf.Steps[i].Selector; sel != nil {
			sel.Normalize()
		}
	}

	if err := Validate(wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// Validate checks a workflow document: struct-level rules plus the
// action/payload pairing of every step. An empty step list is valid.
func Validate(wf *Workflow) error {
	if err := validate.Struct(wf); err != nil {
		return &ParseError{Path: wf.SourcePath, Message: err.Error()}
	}

	for i := range wf.Steps {
		if err := wf.Steps[i].Validate(); err != nil {
			return &ParseError{
				Path:    wf.SourcePath,
				Message: fmt.Sprintf("step %d (%s): %v", i+1, wf.Steps[i].Name, err),
			}
		}
	}
	return nil
}

// SaveFile writes the canonical JSON form of a workflow document.
func SaveFile(wf *Workflow, path string) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow file: %w", err)
	}
	return nil
}
