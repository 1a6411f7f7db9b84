package parser

import (
	"fmt"
)

// AssemblerError reports a failure while assembling source text.
// Line is 1-based; Text is the offending source line as written.
type AssemblerError struct {
	Line    int
	Text    string
	Message string
}

func (e *AssemblerError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s\n    %s", e.Line, e.Message, e.Text)
	}
	return e.Message
}

// NewError creates an AssemblerError without line context.
func NewError(format string, args ...interface{}) *AssemblerError {
	return &AssemblerError{Message: fmt.Sprintf(format, args...)}
}

// errorAt attaches line context to an error, preserving an existing
// AssemblerError's message.
func errorAt(line int, text string, err error) *AssemblerError {
	msg := err.Error()
	if e, ok := err.(*AssemblerError); ok {
		msg = e.Message
	}
	return &AssemblerError{Line: line, Text: text, Message: msg}
}
