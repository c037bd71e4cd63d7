package delimited

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDataRows is wrapped by the StructuralError returned for tables with
// no header or no data row.
var ErrNoDataRows = errors.New("no data rows")

// ErrMissingColumns is wrapped by the StructuralError returned when required
// header columns are absent.
var ErrMissingColumns = errors.New("missing required columns")

// StructuralError is a whole-table failure. No records are produced.
type StructuralError struct {
	Reason  error    // ErrNoDataRows, ErrMissingColumns, or a caller-supplied cause
	Missing []string // Required columns absent from the header
}

func (e *StructuralError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%v: %s", e.Reason, strings.Join(e.Missing, ", "))
	}
	return e.Reason.Error()
}

func (e *StructuralError) Unwrap() error { return e.Reason }

// NewStructuralError wraps reason as a StructuralError.
func NewStructuralError(reason error) *StructuralError {
	return &StructuralError{Reason: reason}
}

// IsStructural reports whether err is, or wraps, a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// RowError describes why a single record failed validation.
// Row errors are returned as data, never as the error result of ParseTable.
type RowError struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string { return e.Message }

// rowErrorf builds a RowError with the "Row N: ..." message pattern.
func rowErrorf(line int, field, format string, args ...any) RowError {
	return RowError{
		Line:    line,
		Field:   field,
		Message: fmt.Sprintf("Row %d: ", line) + fmt.Sprintf(format, args...),
	}
}
