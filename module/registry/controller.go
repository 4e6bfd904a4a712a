// Package registry is the live set of storages and the repositories they host.
//
// Storages start out in the unloaded set after Init reconstructs them from
// the registry file. LoadUnloadedStorages enumerates their repositories and
// publishes them. A storage or repository that fails to load never stops the
// others: a broken storage stays visible as a storage.BadStorage.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nitro-repo/nitro-repo/internal/engine"
	"github.com/nitro-repo/nitro-repo/module/repository"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"
	cerrors "github.com/nitro-repo/nitro-repo/util/common/errors"
	"github.com/nitro-repo/nitro-repo/util/common/fileutil"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog/log"
)

type Controller struct {
	file        string
	concurrency int

	storages cmap.ConcurrentMap[string, *LoadedStorage]
	unloaded cmap.ConcurrentMap[string, *LoadedStorage]

	// persistMu serializes registry file writes together with the existence
	// check of create and recover.
	persistMu sync.Mutex
}

// Init reads the registry file and reconstructs every storage into the
// unloaded set. A missing file is an empty registry. A storage that fails to
// reconstruct is kept as a BadStorage.
func Init(ctx context.Context, file string, concurrency int) (*Controller, error) {
	c := &Controller{
		file:        file,
		concurrency: concurrency,
		storages:    cmap.New[*LoadedStorage](),
		unloaded:    cmap.New[*LoadedStorage](),
	}
	savers, err := readRegistry(file)
	if err != nil {
		return nil, err
	}
	logger := log.Ctx(ctx)
	for _, saver := range savers {
		s, err := storage.Load(ctx, saver)
		if err != nil {
			logger.Error().Err(err).Str("storage", saver.Name()).Str("type", string(saver.StorageType)).Msg("Unable to load storage")
		}
		if !c.unloaded.SetIfAbsent(saver.Name(), newLoadedStorage(s)) {
			logger.Warn().Str("storage", saver.Name()).Msg("Duplicate storage in registry, skipping")
		}
	}
	logger.Info().Int("storages", c.unloaded.Count()).Str("file", file).Msg("Storage registry read")
	return c, nil
}

func readRegistry(file string) ([]storage.StorageSaver, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cerrors.NewFileError(file, "read", err)
	}
	if err := validateRegistry(data); err != nil {
		return nil, err
	}
	var savers []storage.StorageSaver
	if err := json.Unmarshal(data, &savers); err != nil {
		return nil, fmt.Errorf("decode storage registry: %w", err)
	}
	return savers, nil
}

// File is the path of the registry file.
func (c *Controller) File() string {
	return c.file
}

// LoadUnloadedStorages loads the repositories of every unloaded storage on a
// bounded worker pool and publishes the storages. Every storage is published,
// including those whose enumeration failed, unless it was deleted while
// loading. The returned error joins those failures and is informational.
func (c *Controller) LoadUnloadedStorages(ctx context.Context) error {
	pending := c.unloaded.Items()
	jobs := make([]engine.Job, 0, len(pending))
	for name, loaded := range pending {
		jobs = append(jobs, c.loadJob(name, loaded))
	}
	err := engine.NewEngine(c.concurrency, jobs).Execute(ctx)

	c.persistMu.Lock()
	for name, loaded := range pending {
		published := c.unloaded.RemoveCb(name, func(_ string, current *LoadedStorage, exists bool) bool {
			if !exists || current != loaded {
				return false
			}
			c.storages.Set(name, loaded)
			return true
		})
		if !published {
			log.Ctx(ctx).Debug().Str("storage", name).Msg("Storage removed while loading, not publishing")
		}
	}
	c.persistMu.Unlock()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Some storages failed to load")
	}
	return err
}

func (c *Controller) loadJob(name string, loaded *LoadedStorage) engine.Job {
	var configs map[string]settings.RepositoryConfig
	return engine.FuncJob{
		Name: name,
		PreFunc: func(ctx context.Context) error {
			if err := loaded.Status(); err != nil {
				return err
			}
			var err error
			configs, err = loaded.Storage().GetReposToLoad(ctx)
			return err
		},
		ExecuteFunc: func(ctx context.Context) error {
			if failed := loaded.loadRepositories(ctx, configs); failed > 0 {
				return fmt.Errorf("%d repositories failed to load", failed)
			}
			return nil
		},
	}
}

// CreateStorage initializes a new backend and publishes it once the registry
// file has been written.
func (c *Controller) CreateStorage(ctx context.Context, saver storage.StorageSaver) (*LoadedStorage, error) {
	return c.addStorage(ctx, saver, false)
}

// RecoverStorage registers a backend that already holds data and loads its
// repositories before publishing it.
func (c *Controller) RecoverStorage(ctx context.Context, saver storage.StorageSaver) (*LoadedStorage, error) {
	return c.addStorage(ctx, saver, true)
}

func (c *Controller) addStorage(ctx context.Context, saver storage.StorageSaver, existing bool) (*LoadedStorage, error) {
	name := saver.Name()
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if c.StorageExists(name) {
		return nil, &storage.CreateError{Storage: name, Err: storage.ErrStorageAlreadyExists}
	}
	var (
		s   storage.Storage
		err error
	)
	if existing {
		s, err = storage.Load(ctx, saver)
		if err != nil {
			return nil, &storage.CreateError{Storage: name, Err: err}
		}
	} else {
		s, err = storage.Create(ctx, saver)
		if err != nil {
			return nil, err
		}
	}
	loaded := newLoadedStorage(s)
	if existing {
		configs, err := s.GetReposToLoad(ctx)
		if err != nil {
			return nil, &storage.CreateError{Storage: name, Err: err}
		}
		loaded.loadRepositories(ctx, configs)
	}

	savers := append(c.savers(), s.StorageConfig())
	if err := c.writeRegistry(savers); err != nil {
		return nil, err
	}
	c.storages.Set(name, loaded)
	log.Ctx(ctx).Info().Str("storage", name).Bool("recovered", existing).Int("repositories", loaded.RepositoryCount()).Msg("Storage registered")
	return loaded, nil
}

// DeleteStorage removes a storage from the registry. Repository deletion
// failures under PurgeAll and PurgeConfigs are logged and do not fail the
// call. A registry write failure puts the storage back and is returned.
func (c *Controller) DeleteStorage(ctx context.Context, name string, level PurgeLevel) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	from := c.storages
	loaded, ok := from.Pop(name)
	if !ok {
		from = c.unloaded
		if loaded, ok = from.Pop(name); !ok {
			return &storage.DeleteError{Storage: name, Err: storage.ErrStorageNotFound}
		}
	}
	if err := c.writeRegistry(c.savers()); err != nil {
		from.SetIfAbsent(name, loaded)
		return &storage.DeleteError{Storage: name, Err: err}
	}

	logger := log.Ctx(ctx).With().Str("storage", name).Str("purge", string(level)).Logger()
	if visit, purge := level.deletesRepositories(); visit {
		for _, h := range loaded.handlers() {
			if err := loaded.Storage().DeleteRepository(ctx, h.Config(), purge); err != nil {
				logger.Error().Err(err).Str("repository", h.Name()).Msg("Unable to delete repository")
			}
		}
	}
	logger.Info().Msg("Storage deleted")
	return nil
}

// savers returns the reconstruction records of every registered storage.
func (c *Controller) savers() []storage.StorageSaver {
	savers := make([]storage.StorageSaver, 0, c.storages.Count()+c.unloaded.Count())
	for _, m := range []cmap.ConcurrentMap[string, *LoadedStorage]{c.storages, c.unloaded} {
		for item := range m.IterBuffered() {
			savers = append(savers, item.Val.Saver())
		}
	}
	sort.Slice(savers, func(i, j int) bool {
		return savers[i].Name() < savers[j].Name()
	})
	return savers
}

func (c *Controller) writeRegistry(savers []storage.StorageSaver) error {
	if savers == nil {
		savers = []storage.StorageSaver{}
	}
	data, err := json.MarshalIndent(savers, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.file), 0o755); err != nil {
		return cerrors.NewFileError(c.file, "create_dir", err)
	}
	return fileutil.AtomicWriteFile(c.file, data, 0o644)
}

// GetStorage returns a published storage.
func (c *Controller) GetStorage(name string) (*LoadedStorage, bool) {
	return c.storages.Get(name)
}

// StorageExists checks published and still unloaded storages.
func (c *Controller) StorageExists(name string) bool {
	return c.storages.Has(name) || c.unloaded.Has(name)
}

// Repository resolves storage and repository in one step.
func (c *Controller) Repository(storageName, repositoryName string) (*repository.Handler, error) {
	loaded, ok := c.GetStorage(storageName)
	if !ok {
		return nil, storage.ErrStorageNotFound
	}
	h, ok := loaded.Repository(repositoryName)
	if !ok {
		return nil, storage.ErrRepositoryNotFound
	}
	return h, nil
}

// Names of the published storages, sorted.
func (c *Controller) Names() []string {
	names := c.storages.Keys()
	sort.Strings(names)
	return names
}

// Storages returns the published storages sorted by name.
func (c *Controller) Storages() []*LoadedStorage {
	out := make([]*LoadedStorage, 0, c.storages.Count())
	for _, name := range c.Names() {
		if loaded, ok := c.storages.Get(name); ok {
			out = append(out, loaded)
		}
	}
	return out
}

// StorageSavers returns the records of the published storages, sorted by name.
func (c *Controller) StorageSavers() []storage.StorageSaver {
	loaded := c.Storages()
	savers := make([]storage.StorageSaver, 0, len(loaded))
	for _, l := range loaded {
		savers = append(savers, l.Saver())
	}
	return savers
}

// StoragesAsFileList renders the storages as directories of a root listing.
func (c *Controller) StoragesAsFileList() []storage.StorageFile {
	loaded := c.Storages()
	files := make([]storage.StorageFile, 0, len(loaded))
	for _, l := range loaded {
		files = append(files, storage.DirectoryFile(l.Name(), l.Name(), l.Saver().GenericConfig.Created))
	}
	return files
}

// Stats counts published storages by health and their repositories.
type Stats struct {
	Storages     int
	BadStorages  int
	Repositories int
}

func (c *Controller) Stats() Stats {
	var stats Stats
	for item := range c.storages.IterBuffered() {
		stats.Storages++
		if item.Val.Status() != nil {
			stats.BadStorages++
		}
		stats.Repositories += item.Val.RepositoryCount()
	}
	return stats
}

// IsAlreadyExists reports the duplicate-name failures of create operations.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, storage.ErrStorageAlreadyExists) || errors.Is(err, storage.ErrRepositoryAlreadyExists)
}
