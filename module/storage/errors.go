package storage

import (
	"errors"
	"fmt"
)

var (
	ErrRepositoryAlreadyExists = errors.New("repository already exists")
	ErrRepositoryNotFound      = errors.New("repository not found")
	ErrStorageAlreadyExists    = errors.New("storage already exists")
	ErrStorageNotFound         = errors.New("storage does not exist")
	ErrStorageUnavailable      = errors.New("storage unavailable")
	ErrFileNotFound            = errors.New("file not found")
	ErrUnsupportedStorageType  = errors.New("unsupported storage type")
	// ErrReservedLocation is returned for file operations inside the repository config directory.
	ErrReservedLocation = errors.New("location is reserved for repository configuration")
)

// CreateError is returned when a storage backend could not be created.
type CreateError struct {
	Storage string
	Err     error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("unable to create storage %s: %v", e.Storage, e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// DeleteError is returned when a storage could not be removed from the registry.
type DeleteError struct {
	Storage string
	Err     error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("unable to delete storage %s: %v", e.Storage, e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}

// UnavailableError is what every BadStorage operation returns. It matches
// ErrStorageUnavailable and unwraps to the original initialization error.
type UnavailableError struct {
	Storage string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("storage %s is unavailable: %v", e.Storage, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrStorageUnavailable
}
