package tinkerpen

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCaptureUnavailable is returned when no screenshot capability is
	// configured or it cannot be reached.
	ErrCaptureUnavailable = errors.New("screenshot capability unavailable")

	// ErrNoContent is returned when the preview surface has no accessible
	// body to capture.
	ErrNoContent = errors.New("preview has no accessible content")
)

// ExportError describes a failed copy, save or capture action.
// None of these failures touch the fragment buffers or the preview.
type ExportError struct {
	Op     string // "copy", "save", "screenshot"
	Target string // File name or destination, optional
	Err    error  // Underlying cause
	Hint   string // Helpful suggestion
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExportError) Unwrap() error {
	return e.Err
}

// Format returns a message suitable for an alert or a terminal.
func (e *ExportError) Format() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("❌ %s failed", opTitle(e.Op)))
	if e.Target != "" {
		b.WriteString(fmt.Sprintf(" (%s)", e.Target))
	}
	b.WriteString(fmt.Sprintf(": %v\n", e.Err))

	if e.Hint != "" {
		b.WriteString(fmt.Sprintf("\n💡 Tip: %s\n", e.Hint))
	}

	return b.String()
}

// NewExportError creates a new ExportError.
func NewExportError(op, target string, err error) *ExportError {
	return &ExportError{
		Op:     op,
		Target: target,
		Err:    err,
	}
}

// WithHint adds a helpful hint to the error.
func (e *ExportError) WithHint(hint string) *ExportError {
	e.Hint = hint
	return e
}

func opTitle(op string) string {
	if op == "" {
		return "Action"
	}
	return strings.ToUpper(op[:1]) + op[1:]
}
