package storage

import (
	"context"

	"github.com/nitro-repo/nitro-repo/module/repository/settings"
)

// BadStorage stands in for a storage whose backend failed to initialize.
// Every operation fails with an UnavailableError carrying that failure.
type BadStorage struct {
	saver StorageSaver
	err   error
}

func NewBadStorage(saver StorageSaver, err error) *BadStorage {
	return &BadStorage{saver: saver, err: err}
}

func (b *BadStorage) fail() error {
	return &UnavailableError{Storage: b.saver.Name(), Err: b.err}
}

func (b *BadStorage) Name() string {
	return b.saver.Name()
}

func (b *BadStorage) StorageConfig() StorageSaver {
	return b.saver
}

func (b *BadStorage) Status() error {
	return b.fail()
}

func (b *BadStorage) GetReposToLoad(context.Context) (map[string]settings.RepositoryConfig, error) {
	return nil, b.fail()
}

func (b *BadStorage) CreateRepository(context.Context, settings.RepositoryConfig) error {
	return b.fail()
}

func (b *BadStorage) DeleteRepository(context.Context, settings.RepositoryConfig, bool) error {
	return b.fail()
}

func (b *BadStorage) UpdateRepository(context.Context, settings.RepositoryConfig) error {
	return b.fail()
}

func (b *BadStorage) SaveRepositoryConfig(context.Context, settings.RepositoryConfig, string, any) error {
	return b.fail()
}

func (b *BadStorage) GetRepositoryConfig(context.Context, settings.RepositoryConfig, string, any) (bool, error) {
	return false, b.fail()
}

func (b *BadStorage) RepositoryFolder(string) (string, error) {
	return "", b.fail()
}

func (b *BadStorage) SaveFile(context.Context, settings.RepositoryConfig, []byte, string) error {
	return b.fail()
}

func (b *BadStorage) DeleteFile(context.Context, settings.RepositoryConfig, string) error {
	return b.fail()
}

func (b *BadStorage) GetFile(context.Context, settings.RepositoryConfig, string) ([]byte, error) {
	return nil, b.fail()
}

func (b *BadStorage) GetFileInformation(context.Context, settings.RepositoryConfig, string) (*StorageFile, error) {
	return nil, b.fail()
}

func (b *BadStorage) GetFileAsResponse(context.Context, settings.RepositoryConfig, string) (*FileResponse, error) {
	return nil, b.fail()
}

func (b *BadStorage) ListFiles(context.Context, settings.RepositoryConfig, string) ([]StorageFile, error) {
	return nil, b.fail()
}
