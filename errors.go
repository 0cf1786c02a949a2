package stockfolio

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds of failures. Every error returned by this package matches one of them
// through errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrResolution = errors.New("resolution failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failed")
)

// ValidationError reports an input that fails a structural or range check.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ResolutionError reports that every price or information source failed for
// Code. Tried lists the sources in the order they were attempted.
type ResolutionError struct {
	Code  string
	Tried []string
	Err   error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve %q", e.Code)
	if len(e.Tried) > 0 {
		msg += " (tried " + strings.Join(e.Tried, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error        { return e.Err }
func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// APIError is an upstream HTTP failure. Status is 0 when the request never got a response.
type APIError struct {
	Status  int
	URL     string
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.URL, e.Message)
	}
	return fmt.Sprintf("%s: http %d: %s", e.URL, e.Status, e.Message)
}

func (e *APIError) Is(target error) bool { return target == ErrResolution }

// NotFoundError reports a reference to an unknown account, holding or dividend.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string        { return fmt.Sprintf("%s not found: %q", e.Kind, e.ID) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a persistence failure. The in-memory state it was
// trying to persist is kept.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string        { return fmt.Sprintf("cannot %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error        { return e.Err }
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
