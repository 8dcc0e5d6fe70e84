package operation

import (
	"fmt"
	"strings"
)

// Report collects the hard violations and soft warnings found for one operation.
type Report struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r Report) Valid() bool { return len(r.Errors) == 0 }

func (r *Report) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidationError rejects an operation before any state is touched.
type ValidationError struct {
	Report Report
}

func (e *ValidationError) Error() string {
	if len(e.Report.Errors) == 0 {
		return "invalid operation"
	}
	return "invalid operation: " + strings.Join(e.Report.Errors, "; ")
}

// Invalid builds a ValidationError carrying a single message.
func Invalid(format string, args ...any) *ValidationError {
	var r Report
	r.Errorf(format, args...)
	return &ValidationError{Report: r}
}

// NotFoundError reports a missing ADD or MODIFY target.
type NotFoundError struct {
	Op     Op
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s target not found: %s", e.Op, e.Target)
}

// UnsupportedOperationError reports an unknown (op, type) pair.
type UnsupportedOperationError struct {
	Op   Op
	Type string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %s %q", e.Op, e.Type)
}
