package table

import (
	"errors"
	"fmt"
	"io/fs"
)

// MissingInputError reports that a required simulator output file does not
// exist for a run. Metric assemblers surface it so the orchestrator can fail
// one metric without aborting the others.
type MissingInputError struct {
	Run  string
	File string
	Err  error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("run %s: missing input file %s", e.Run, e.File)
}

func (e *MissingInputError) Unwrap() error { return e.Err }

// IsMissingInput reports whether err wraps a MissingInputError or a plain
// file-not-found error.
func IsMissingInput(err error) bool {
	var m *MissingInputError
	return errors.As(err, &m) || errors.Is(err, fs.ErrNotExist)
}

// MalformedTableError reports a value that failed numeric coercion, or a row
// whose field count does not match the header.
type MalformedTableError struct {
	File   string
	Line   int // 1-based line number within the file
	Column string
	Value  string
	Err    error
}

func (e *MalformedTableError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s:%d: column %s: cannot parse %q as numeric", e.File, e.Line, e.Column, e.Value)
	}
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *MalformedTableError) Unwrap() error { return e.Err }
