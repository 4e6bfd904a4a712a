package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	cerrors "github.com/nitro-repo/nitro-repo/util/common/errors"
	"github.com/nitro-repo/nitro-repo/util/common/fileutil"

	"github.com/rs/zerolog/log"
)

// LocalConfig is the handler_config of a Local storage.
type LocalConfig struct {
	Location string `json:"location"`
}

func init() {
	if err := RegisterFactory(LocalStorageType, localFactory{}); err != nil {
		panic(err)
	}
}

// NewLocalSaver builds the saver of a filesystem backed storage.
func NewLocalSaver(name, location string, created int64) (StorageSaver, error) {
	raw, err := json.Marshal(LocalConfig{Location: location})
	if err != nil {
		return StorageSaver{}, err
	}
	return StorageSaver{
		StorageType:   LocalStorageType,
		GenericConfig: StorageConfig{ID: name, Created: created},
		HandlerConfig: raw,
	}, nil
}

type localFactory struct{}

func (localFactory) Load(ctx context.Context, saver StorageSaver) (Storage, error) {
	s, err := newLocalStorage(saver)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, cerrors.NewFileError(s.root, "stat", err)
	}
	if !info.IsDir() {
		return nil, cerrors.NewValidationError("location", s.root+" is not a directory")
	}
	return s, nil
}

func (localFactory) Create(ctx context.Context, saver StorageSaver) (Storage, error) {
	s, err := newLocalStorage(saver)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, cerrors.NewFileError(s.root, "create_dir", err)
	}
	data, err := json.MarshalIndent(saver.GenericConfig, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := fileutil.AtomicWriteFile(filepath.Join(s.root, StorageConfigFile), data, 0o644); err != nil {
		return nil, err
	}
	return s, nil
}

// LocalStorage keeps every repository in a directory below its root.
type LocalStorage struct {
	saver StorageSaver
	root  string
}

func newLocalStorage(saver StorageSaver) (*LocalStorage, error) {
	var cfg LocalConfig
	if len(saver.HandlerConfig) > 0 {
		if err := json.Unmarshal(saver.HandlerConfig, &cfg); err != nil {
			return nil, fmt.Errorf("decode local storage config: %w", err)
		}
	}
	if strings.TrimSpace(cfg.Location) == "" {
		return nil, cerrors.NewValidationError("location", "local storage location cannot be empty")
	}
	root, err := filepath.Abs(cfg.Location)
	if err != nil {
		return nil, cerrors.NewFileError(cfg.Location, "resolve", err)
	}
	return &LocalStorage{saver: saver, root: root}, nil
}

func (s *LocalStorage) Name() string {
	return s.saver.Name()
}

func (s *LocalStorage) StorageConfig() StorageSaver {
	return s.saver
}

func (s *LocalStorage) Status() error {
	return nil
}

func (s *LocalStorage) RepositoryFolder(repository string) (string, error) {
	if err := settings.ValidateName(repository); err != nil {
		return "", err
	}
	return filepath.Join(s.root, repository), nil
}

func (s *LocalStorage) configPath(repository, name string) (string, error) {
	folder, err := s.RepositoryFolder(repository)
	if err != nil {
		return "", err
	}
	return filepath.Join(folder, settings.ConfigDir, name), nil
}

func (s *LocalStorage) GetReposToLoad(ctx context.Context) (map[string]settings.RepositoryConfig, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, cerrors.NewFileError(s.root, "read_dir", err)
	}
	repos := make(map[string]settings.RepositoryConfig)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		configPath := filepath.Join(s.root, entry.Name(), settings.ConfigDir, settings.RepositoryConfigFile)
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("storage", s.Name()).Str("path", configPath).Msg("Unable to read repository config")
			}
			continue
		}
		var cfg settings.RepositoryConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			log.Error().Err(err).Str("storage", s.Name()).Str("path", configPath).Msg("Invalid repository config")
			continue
		}
		// The directory is the source of truth for both names.
		cfg.Name = entry.Name()
		cfg.Storage = s.Name()
		if err := cfg.Validate(); err != nil {
			log.Error().Err(err).Str("storage", s.Name()).Str("repository", entry.Name()).Msg("Invalid repository config")
			continue
		}
		repos[cfg.Name] = cfg
	}
	return repos, nil
}

func (s *LocalStorage) CreateRepository(ctx context.Context, config settings.RepositoryConfig) error {
	configPath, err := s.configPath(config.Name, settings.RepositoryConfigFile)
	if err != nil {
		return err
	}
	if fileutil.Exists(configPath) {
		return ErrRepositoryAlreadyExists
	}
	return s.writeJSON(configPath, config)
}

func (s *LocalStorage) UpdateRepository(ctx context.Context, config settings.RepositoryConfig) error {
	configPath, err := s.configPath(config.Name, settings.RepositoryConfigFile)
	if err != nil {
		return err
	}
	return s.writeJSON(configPath, config)
}

func (s *LocalStorage) DeleteRepository(ctx context.Context, config settings.RepositoryConfig, purge bool) error {
	folder, err := s.RepositoryFolder(config.Name)
	if err != nil {
		return err
	}
	if purge {
		if err := os.RemoveAll(folder); err != nil {
			return cerrors.NewFileError(folder, "remove", err)
		}
		return nil
	}
	configDir := filepath.Join(folder, settings.ConfigDir)
	for _, name := range []string{settings.RepositoryConfigFile, settings.PageConfigFile, settings.StagingConfigFile} {
		p := filepath.Join(configDir, name)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return cerrors.NewFileError(p, "remove", err)
		}
	}
	return nil
}

func (s *LocalStorage) SaveRepositoryConfig(ctx context.Context, config settings.RepositoryConfig, name string, value any) error {
	configPath, err := s.configPath(config.Name, name)
	if err != nil {
		return err
	}
	if raw, ok := value.([]byte); ok {
		return fileutil.AtomicWriteFile(configPath, raw, 0o644)
	}
	return s.writeJSON(configPath, value)
}

func (s *LocalStorage) GetRepositoryConfig(ctx context.Context, config settings.RepositoryConfig, name string, dst any) (bool, error) {
	configPath, err := s.configPath(config.Name, name)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, cerrors.NewFileError(configPath, "read", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", configPath, err)
	}
	return true, nil
}

func (s *LocalStorage) writeJSON(target string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(target, data, 0o644)
}

func (s *LocalStorage) resolve(repository settings.RepositoryConfig, location string) (string, error) {
	folder, err := s.RepositoryFolder(repository.Name)
	if err != nil {
		return "", err
	}
	return fileutil.SafeJoin(folder, location)
}

// writableLocation refuses locations that resolve into settings.ConfigDir.
// Those files are only written through the repository config methods.
func writableLocation(location string) error {
	cleaned := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(location)), "/")
	first, _, _ := strings.Cut(cleaned, "/")
	if strings.EqualFold(first, settings.ConfigDir) {
		return fmt.Errorf("%s: %w", location, ErrReservedLocation)
	}
	return nil
}

func (s *LocalStorage) SaveFile(ctx context.Context, repository settings.RepositoryConfig, data []byte, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writableLocation(location); err != nil {
		return err
	}
	target, err := s.resolve(repository, location)
	if err != nil {
		return err
	}
	log.Trace().Str("storage", s.Name()).Str("repository", repository.Name).Str("location", location).Msg("Saving file")
	return fileutil.AtomicWriteFile(target, data, 0o644)
}

func (s *LocalStorage) DeleteFile(ctx context.Context, repository settings.RepositoryConfig, location string) error {
	if err := writableLocation(location); err != nil {
		return err
	}
	target, err := s.resolve(repository, location)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		return cerrors.NewFileError(target, "remove", err)
	}
	return nil
}

func (s *LocalStorage) GetFile(ctx context.Context, repository settings.RepositoryConfig, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.resolve(repository, location)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, cerrors.NewFileError(target, "stat", err)
	}
	if info.IsDir() {
		return nil, ErrFileNotFound
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, cerrors.NewFileError(target, "read", err)
	}
	return data, nil
}

func (s *LocalStorage) GetFileInformation(ctx context.Context, repository settings.RepositoryConfig, location string) (*StorageFile, error) {
	target, err := s.resolve(repository, location)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cerrors.NewFileError(target, "stat", err)
	}
	file := NewStorageFile(cleanLocation(location), info)
	return &file, nil
}

func (s *LocalStorage) GetFileAsResponse(ctx context.Context, repository settings.RepositoryConfig, location string) (*FileResponse, error) {
	target, err := s.resolve(repository, location)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return NotFoundResponse(), nil
		}
		return nil, cerrors.NewFileError(target, "stat", err)
	}
	file := NewStorageFile(cleanLocation(location), info)
	if !info.IsDir() {
		return &FileResponse{Kind: FileResponseFile, Path: target, File: &file}, nil
	}
	files, err := s.ListFiles(ctx, repository, location)
	if err != nil {
		return nil, err
	}
	return &FileResponse{
		Kind:    FileResponseList,
		File:    &file,
		Listing: &StorageDirectoryResponse{Files: files, Directory: file},
	}, nil
}

// ListFiles lists one directory level. The configuration directory is never listed.
func (s *LocalStorage) ListFiles(ctx context.Context, repository settings.RepositoryConfig, location string) ([]StorageFile, error) {
	target, err := s.resolve(repository, location)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, cerrors.NewFileError(target, "read_dir", err)
	}
	base := cleanLocation(location)
	files := make([]StorageFile, 0, len(entries))
	for _, entry := range entries {
		if entry.Name() == settings.ConfigDir || strings.HasPrefix(entry.Name(), ".tmp-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, NewStorageFile(path.Join(base, entry.Name()), info))
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func cleanLocation(location string) string {
	return strings.TrimPrefix(path.Clean("/"+location), "/")
}
