// Package apperrors implements the error taxonomy of spec §7: sentinel
// errors for conditions the generator surfaces at run level, plus a
// structured precondition error carrying field-level detail.
package apperrors

import "errors"

var (
	// ErrNotFound is returned when a referenced entity (schedule, course,
	// occurrence) does not exist.
	ErrNotFound = errors.New("apperrors: not found")
	// ErrDataIntegrity indicates the entity store returned inconsistent data
	// (e.g. an unavailability referencing a non-existent weekday).
	ErrDataIntegrity = errors.New("apperrors: data integrity violation")
	// ErrCapacity indicates no room anywhere satisfies a course's equipment
	// and capacity requirements.
	ErrCapacity = errors.New("apperrors: no room satisfies requirements")
	// ErrConflict indicates a commit-time double-booking race with a
	// concurrent writer.
	ErrConflict = errors.New("apperrors: conflicting concurrent write")
	// ErrTimeout indicates generation exceeded its wall-clock budget.
	ErrTimeout = errors.New("apperrors: generation exceeded wall-clock budget")
)

// PreconditionError reports invalid configuration caught before any state
// mutation (end_date <= start_date, empty class, unknown schedule_id, ...).
type PreconditionError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	if e == nil || len(e.FieldErrors) == 0 {
		return "apperrors: precondition failed"
	}
	return "apperrors: precondition failed"
}

// HasErrors reports whether any field-level issue was recorded.
func (e *PreconditionError) HasErrors() bool {
	return e != nil && len(e.FieldErrors) > 0
}

// Add records a field-level precondition failure.
func (e *PreconditionError) Add(field, message string) {
	if e.FieldErrors == nil {
		e.FieldErrors = make(map[string]string)
	}
	e.FieldErrors[field] = message
}

// Kind maps a sentinel or structured error to a stable logging label,
// mirroring application.ErrorKind in the teacher.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDataIntegrity):
		return "data_integrity"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	}
	var pErr *PreconditionError
	if errors.As(err, &pErr) {
		return "precondition"
	}
	return "unexpected"
}
