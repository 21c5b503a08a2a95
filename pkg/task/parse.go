package task

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/taskgraph/pkg/errors"
)

// Format identifies the encoding of a workflow document.
type Format string

// Supported workflow encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the workflow encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer workflow format from %q", path)
	}
}

// Parse decodes a workflow document. The document is either a bare task list
// or a {name, tasks} mapping.
func Parse(data []byte, format Format) (*Workflow, error) {
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		return parseYAML(data)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported workflow format %q", format)
	}
}

// ReadFile reads and decodes a workflow file, inferring the format from its extension.
func ReadFile(path string) (*Workflow, error) {
	if err := errors.ValidateWorkflowFilename(path); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "workflow file %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}

	wf, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	if wf.Name == "" {
		wf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return wf, nil
}

// Marshal encodes a workflow in the given format.
func Marshal(wf *Workflow, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(wf, "", "  ")
	case FormatYAML:
		return yaml.Marshal(wf)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported workflow format %q", format)
	}
}

func parseJSON(data []byte) (*Workflow, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "workflow document is empty")
	}

	if trimmed[0] == '[' {
		var tasks []Task
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode workflow JSON")
		}
		return &Workflow{Tasks: tasks}, nil
	}

	var wf Workflow
	if err := json.Unmarshal(trimmed, &wf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode workflow JSON")
	}
	return &wf, nil
}

func parseYAML(data []byte) (*Workflow, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode workflow YAML")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "workflow document is empty")
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var tasks []Task
		if err := root.Decode(&tasks); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode workflow YAML")
		}
		return &Workflow{Tasks: tasks}, nil
	case yaml.MappingNode:
		var wf Workflow
		if err := root.Decode(&wf); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode workflow YAML")
		}
		return &wf, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "workflow YAML must be a list or a mapping")
	}
}
