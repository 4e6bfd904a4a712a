package api

import (
	"fmt"
	"net/http"
)

// RepositoryError is a protocol level failure with the status it answers with.
type RepositoryError struct {
	Status  int
	Message string
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewRepositoryError(status int, format string, args ...any) error {
	return &RepositoryError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// BadRequestError is a decode failure of client supplied data.
type BadRequestError struct {
	What string
	Err  error
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.What, e.Err)
}

func (e *BadRequestError) Unwrap() error {
	return e.Err
}

func (e *BadRequestError) StatusCode() int {
	return http.StatusBadRequest
}

func NewBadRequest(what string, err error) error {
	return &BadRequestError{What: what, Err: err}
}
