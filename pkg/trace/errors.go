package trace

import (
	"errors"
	"fmt"
)

// Sentinel errors for trace runs.
var (
	// ErrNoEntryFiles indicates no entry file could be processed at all.
	ErrNoEntryFiles = errors.New("no entry files could be resolved")
	// ErrUnknownLanguage indicates no language implementation claims the
	// file's extension.
	ErrUnknownLanguage = errors.New("no language registered for extension")
)

// ParseError reports that a file's text could not be parsed for imports.
// The traversal engine records it on the file's node and continues the run.
type ParseError struct {
	Path string
	Line int
	Col  int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %d:%d", e.Path, e.Line, e.Col)
	}

	return fmt.Sprintf("parse error in %s", e.Path)
}
