// Package storage defines the persistence capability every repository handler
// talks to, the storage reconstruction records kept in the registry file and
// the backends that implement them.
//
// Backends register a Factory for their StorageType in an init function. A
// backend that cannot be reconstructed is replaced by a BadStorage so the rest
// of the registry keeps working.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nitro-repo/nitro-repo/module/repository/settings"
)

const (
	// RegistryFile is the default name of the JSON list of StorageSaver.
	RegistryFile = "storages.json"
	// StorageConfigFile is written into the root of every storage backend.
	StorageConfigFile = "storage.json"
)

type StorageType string

const (
	LocalStorageType StorageType = "Local"
)

// StorageConfig holds the identity shared by every backend kind.
type StorageConfig struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
}

// StorageSaver is the persisted reconstruction record of a storage.
type StorageSaver struct {
	StorageType   StorageType     `json:"storage_type"`
	GenericConfig StorageConfig   `json:"generic_config"`
	HandlerConfig json.RawMessage `json:"handler_config,omitempty"`
}

func (s StorageSaver) Name() string {
	return s.GenericConfig.ID
}

// Storage is the capability set shared by every repository handler variant.
// Locations are slash separated and relative to the repository root.
type Storage interface {
	// Name is the unique storage id.
	Name() string
	// StorageConfig returns the reconstruction record of this storage.
	StorageConfig() StorageSaver
	// Status is nil for a working backend and the initialization error for a BadStorage.
	Status() error

	// GetReposToLoad enumerates the repositories persisted in this storage.
	GetReposToLoad(ctx context.Context) (map[string]settings.RepositoryConfig, error)
	CreateRepository(ctx context.Context, config settings.RepositoryConfig) error
	// DeleteRepository removes the repository configuration and, with purge, its data.
	DeleteRepository(ctx context.Context, config settings.RepositoryConfig, purge bool) error
	// UpdateRepository rewrites repository.json.
	UpdateRepository(ctx context.Context, config settings.RepositoryConfig) error
	// SaveRepositoryConfig stores a type specific config file (page.json, staging.json, ...).
	// A []byte value is written as is.
	SaveRepositoryConfig(ctx context.Context, config settings.RepositoryConfig, name string, value any) error
	// GetRepositoryConfig loads a type specific config file into dst and reports whether it existed.
	GetRepositoryConfig(ctx context.Context, config settings.RepositoryConfig, name string, dst any) (bool, error)
	// RepositoryFolder returns the local directory of a repository, for integrations that need a real path.
	RepositoryFolder(repository string) (string, error)

	// SaveFile and DeleteFile return ErrReservedLocation for locations inside the config directory.
	SaveFile(ctx context.Context, repository settings.RepositoryConfig, data []byte, location string) error
	DeleteFile(ctx context.Context, repository settings.RepositoryConfig, location string) error
	// GetFile returns ErrFileNotFound when nothing is stored at location.
	GetFile(ctx context.Context, repository settings.RepositoryConfig, location string) ([]byte, error)
	GetFileInformation(ctx context.Context, repository settings.RepositoryConfig, location string) (*StorageFile, error)
	GetFileAsResponse(ctx context.Context, repository settings.RepositoryConfig, location string) (*FileResponse, error)
	ListFiles(ctx context.Context, repository settings.RepositoryConfig, location string) ([]StorageFile, error)
}

// Factory reconstructs (Load) or initializes (Create) a backend from its saver.
type Factory interface {
	Load(ctx context.Context, saver StorageSaver) (Storage, error)
	Create(ctx context.Context, saver StorageSaver) (Storage, error)
}

var (
	factoriesMu sync.RWMutex
	factories   = map[StorageType]Factory{}
)

// RegisterFactory registers the factory for a storage type.
func RegisterFactory(t StorageType, factory Factory) error {
	if len(t) == 0 {
		return errors.New("invalid storage type")
	}
	if factory == nil {
		return errors.New("empty storage factory")
	}
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, exist := factories[t]; exist {
		return fmt.Errorf("storage factory for %s already exists", t)
	}
	factories[t] = factory
	return nil
}

func GetFactory(t StorageType) (Factory, error) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	factory, exist := factories[t]
	if !exist {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStorageType, t)
	}
	return factory, nil
}

// Load reconstructs an existing storage. It never returns nil: when the
// backend cannot be built the result is a BadStorage carrying the error,
// which is also returned.
func Load(ctx context.Context, saver StorageSaver) (Storage, error) {
	factory, err := GetFactory(saver.StorageType)
	if err != nil {
		return NewBadStorage(saver, err), err
	}
	s, err := factory.Load(ctx, saver)
	if err != nil {
		return NewBadStorage(saver, err), err
	}
	return s, nil
}

// Create initializes a brand new backend.
func Create(ctx context.Context, saver StorageSaver) (Storage, error) {
	if err := settings.ValidateName(saver.Name()); err != nil {
		return nil, &CreateError{Storage: saver.Name(), Err: err}
	}
	factory, err := GetFactory(saver.StorageType)
	if err != nil {
		return nil, &CreateError{Storage: saver.Name(), Err: err}
	}
	s, err := factory.Create(ctx, saver)
	if err != nil {
		return nil, &CreateError{Storage: saver.Name(), Err: err}
	}
	return s, nil
}
