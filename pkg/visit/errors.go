package visit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by lookups and deletes that reference an id with
// no corresponding record. It is not fatal; callers decide the response.
var ErrNotFound = errors.New("visit not found")

// FieldError represents a single field's validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError reports every violation found in a payload at once.
// A payload that produced a ValidationError was never persisted.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// NewValidationError creates a ValidationError from an ordered list of
// per-field violations.
func NewValidationError(fields []FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// AdmissionDeniedError indicates the client exceeded its admission window.
// The write was not persisted and is not retried internally; the caller
// decides backoff.
type AdmissionDeniedError struct {
	Key        string        // Admitting client identity
	RetryAfter time.Duration // Window duration, a safe upper bound for backoff
}

// Error implements the error interface.
func (e *AdmissionDeniedError) Error() string {
	return fmt.Sprintf("admission denied [key=%s]: rate window exceeded", e.Key)
}

// StorageError represents a failure of the durable medium. It is fatal for
// the current call, never retried internally, and surfaced verbatim.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("insert", "query", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// ExportError represents a failure while serializing visits for export.
type ExportError struct {
	Format  string // Export format ("json", "csv")
	Records int    // Number of records processed before the failure
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, records=%d]: %v", e.Format, e.Records, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, records int, cause error) *ExportError {
	return &ExportError{
		Format:  format,
		Records: records,
		Cause:   cause,
	}
}

// IsAdmissionDenied reports whether err is an AdmissionDeniedError.
func IsAdmissionDenied(err error) bool {
	var e *AdmissionDeniedError
	return errors.As(err, &e)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var e *StorageError
	return errors.As(err, &e)
}
