package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxNodeIDLength bounds node identifiers accepted from callers (hidden sets, API requests).
const maxNodeIDLength = 1024

// ValidateNodeID validates a node identifier supplied by a caller, typically as
// part of a visibility set. Identifiers are generated by the builder, so anything
// outside their alphabet is rejected early instead of silently matching nothing.
//
// The validation rules:
//   - No empty identifiers
//   - Maximum length of 1024 characters
//   - No control characters or whitespace
//   - No leading, trailing or doubled slashes
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidNodeID, "node id cannot be empty")
	}

	if len(id) > maxNodeIDLength {
		return New(ErrCodeInvalidNodeID, "node id too long (max %d characters)", maxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidNodeID, "node id contains invalid characters: %q", id)
		}
	}

	if strings.HasPrefix(id, "/") || strings.HasSuffix(id, "/") || strings.Contains(id, "//") {
		return New(ErrCodeInvalidNodeID, "node id has malformed path segments: %q", id)
	}

	return nil
}

// ValidateNodeIDs validates every identifier and returns the first failure.
func ValidateNodeIDs(ids []string) error {
	for _, id := range ids {
		if err := ValidateNodeID(id); err != nil {
			return err
		}
	}
	return nil
}

// workflowExtensions lists the file extensions accepted for workflow definitions.
var workflowExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// ValidateWorkflowFilename validates that a workflow file has a supported extension.
func ValidateWorkflowFilename(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "workflow path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "workflow path contains invalid characters")
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !workflowExtensions[ext] {
		return New(ErrCodeInvalidFormat, "unsupported workflow file extension %q (must be .json, .yaml or .yml)", ext)
	}

	return nil
}
