package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FormatError reports an input file that is missing or does not match its schema.
// It is fatal: the pipeline aborts on the first one.
type FormatError struct {
	Path   string
	Line   int // 1-based; 0 when not tied to a row
	Column string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("format error")
	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(filepath.Base(e.Path))
	}
	if e.Line > 0 {
		b.WriteString(fmt.Sprintf(" line %d", e.Line))
	}
	if e.Column != "" {
		b.WriteString(fmt.Sprintf(" column %q", e.Column))
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() error { return e.Err }
