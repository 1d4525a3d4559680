package gctx

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the backing resource does not exist.
	ErrNotFound = errors.New("gctx: not found")
	// ErrFormat is returned when the container cannot be opened or a text
	// GCT file cannot be parsed.
	ErrFormat = errors.New("gctx: invalid format")
	// ErrStructure is returned when a required item is absent or unusable.
	ErrStructure = errors.New("gctx: invalid structure")
	// ErrClosed is returned when reading from a closed Reader.
	ErrClosed = errors.New("gctx: reader closed")
)

// StructureError reports the container path that could not be used.
type StructureError struct {
	Path   string
	Reason string
	Err    error
}

func (e *StructureError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("gctx: %s: %v", e.Path, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("gctx: %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("gctx: %s: missing", e.Path)
}

// Unwrap exposes both ErrStructure and the underlying cause.
func (e *StructureError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStructure}
	}
	return []error{ErrStructure, e.Err}
}
