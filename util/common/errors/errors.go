package errors

import (
	"errors"
	"fmt"
)

// Errors shared by the filesystem and git helpers
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrPathEscape       = errors.New("path escapes its root")
)

// ValidationError is returned when an input fails a precondition
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidArgument) match every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// FileError wraps a failed filesystem operation with the path it targeted
type FileError struct {
	Path    string
	Op      string
	Wrapped error
}

func (e *FileError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Wrapped)
	}
	return fmt.Sprintf("%s %s failed", e.Op, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Wrapped
}

func NewFileError(path, op string, wrapped error) error {
	return &FileError{
		Path:    path,
		Op:      op,
		Wrapped: wrapped,
	}
}

// VCSError wraps a failed git invocation
type VCSError struct {
	Op      string
	Path    string
	Output  string
	Wrapped error
}

func (e *VCSError) Error() string {
	msg := fmt.Sprintf("git %s in %s", e.Op, e.Path)
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Output != "" {
		msg += " (" + e.Output + ")"
	}
	return msg
}

func (e *VCSError) Unwrap() error {
	return e.Wrapped
}

func NewVCSError(op, path string, wrapped error) error {
	return &VCSError{
		Op:      op,
		Path:    path,
		Wrapped: wrapped,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}
