package registry

import (
	"context"
	"errors"
	"sort"

	"github.com/nitro-repo/nitro-repo/module/repository"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/gobwas/glob"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog/log"
)

// ErrRepositoryBusy is returned while another create or update of the same
// repository is in flight.
var ErrRepositoryBusy = errors.New("repository is being modified")

// LoadedStorage is a storage plus the handlers of the repositories it hosts.
type LoadedStorage struct {
	storage      storage.Storage
	repositories cmap.ConcurrentMap[string, *repository.Handler]
	// pending reserves names during create and take-modify-put.
	pending cmap.ConcurrentMap[string, struct{}]
}

func newLoadedStorage(s storage.Storage) *LoadedStorage {
	return &LoadedStorage{
		storage:      s,
		repositories: cmap.New[*repository.Handler](),
		pending:      cmap.New[struct{}](),
	}
}

func (l *LoadedStorage) Name() string {
	return l.storage.Name()
}

func (l *LoadedStorage) Storage() storage.Storage {
	return l.storage
}

func (l *LoadedStorage) Saver() storage.StorageSaver {
	return l.storage.StorageConfig()
}

// Status is the initialization error of a BadStorage and nil otherwise.
func (l *LoadedStorage) Status() error {
	return l.storage.Status()
}

func (l *LoadedStorage) Repository(name string) (*repository.Handler, bool) {
	return l.repositories.Get(name)
}

func (l *LoadedStorage) RepositoryCount() int {
	return l.repositories.Count()
}

// Repositories returns the configs of the loaded repositories sorted by name.
// A non-empty filter is a glob matched against the repository name.
func (l *LoadedStorage) Repositories(filter string) ([]settings.RepositoryConfig, error) {
	var matcher glob.Glob
	if filter != "" {
		g, err := glob.Compile(filter)
		if err != nil {
			return nil, err
		}
		matcher = g
	}
	configs := make([]settings.RepositoryConfig, 0, l.repositories.Count())
	for item := range l.repositories.IterBuffered() {
		if matcher != nil && !matcher.Match(item.Key) {
			continue
		}
		configs = append(configs, item.Val.Config())
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name < configs[j].Name
	})
	return configs, nil
}

func (l *LoadedStorage) attach(h *repository.Handler) {
	l.repositories.Set(h.Name(), h)
}

func (l *LoadedStorage) reserve(name string) error {
	if !l.pending.SetIfAbsent(name, struct{}{}) {
		return ErrRepositoryBusy
	}
	return nil
}

func (l *LoadedStorage) release(name string) {
	l.pending.Remove(name)
}

// CreateRepository persists a new repository and publishes its handler. Two
// concurrent creates of the same name never both succeed.
func (l *LoadedStorage) CreateRepository(ctx context.Context, config settings.RepositoryConfig) (*repository.Handler, error) {
	config.Storage = l.Name()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := l.reserve(config.Name); err != nil {
		if errors.Is(err, ErrRepositoryBusy) {
			return nil, storage.ErrRepositoryAlreadyExists
		}
		return nil, err
	}
	defer l.release(config.Name)

	if l.repositories.Has(config.Name) {
		return nil, storage.ErrRepositoryAlreadyExists
	}
	if err := l.storage.CreateRepository(ctx, config); err != nil {
		return nil, err
	}
	handler, err := repository.New(ctx, config, l.storage)
	if err != nil {
		return nil, err
	}
	l.attach(handler)
	log.Ctx(ctx).Info().Str("storage", l.Name()).Str("repository", config.Name).Str("type", string(config.RepositoryType)).Msg("Created repository")
	return handler, nil
}

// DeleteRepository removes the repository from the map and from the storage.
// Without purge the artifacts stay on disk.
func (l *LoadedStorage) DeleteRepository(ctx context.Context, name string, purge bool) error {
	if err := l.reserve(name); err != nil {
		return err
	}
	defer l.release(name)

	handler, ok := l.repositories.Pop(name)
	if !ok {
		return storage.ErrRepositoryNotFound
	}
	if err := l.storage.DeleteRepository(ctx, handler.Config(), purge); err != nil {
		l.repositories.SetIfAbsent(name, handler)
		return err
	}
	return nil
}

// take removes the handler for a take-modify-put update. put must follow.
func (l *LoadedStorage) take(name string) (*repository.Handler, error) {
	if err := l.reserve(name); err != nil {
		return nil, err
	}
	handler, ok := l.repositories.Pop(name)
	if !ok {
		l.release(name)
		return nil, storage.ErrRepositoryNotFound
	}
	return handler, nil
}

func (l *LoadedStorage) put(handler *repository.Handler) {
	l.repositories.Set(handler.Name(), handler)
	l.release(handler.Name())
}

// UpdateRepository applies mutate to a copy of the repository config,
// persists it and swaps in a new handler. On any failure the original handler
// is put back unchanged.
func (l *LoadedStorage) UpdateRepository(ctx context.Context, name string, mutate func(*settings.RepositoryConfig) error) (*repository.Handler, error) {
	original, err := l.take(name)
	if err != nil {
		return nil, err
	}
	updated, err := l.modify(ctx, original, mutate)
	if err != nil {
		l.put(original)
		return nil, err
	}
	l.put(updated)
	return updated, nil
}

func (l *LoadedStorage) modify(ctx context.Context, original *repository.Handler, mutate func(*settings.RepositoryConfig) error) (*repository.Handler, error) {
	config := original.Config()
	if err := mutate(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	updated, err := original.WithConfig(config)
	if err != nil {
		return nil, err
	}
	if err := l.storage.UpdateRepository(ctx, config); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdatePage stores new page settings and content with take-modify-put.
func (l *LoadedStorage) UpdatePage(ctx context.Context, name string, update settings.UpdateRepositoryPage) error {
	original, err := l.take(name)
	if err != nil {
		return err
	}
	updated, err := original.WithPage(ctx, update)
	if err != nil {
		l.put(original)
		return err
	}
	l.put(updated)
	return nil
}

// loadRepositories builds a handler for every repository the storage reports.
// A repository that fails to load is logged and skipped.
func (l *LoadedStorage) loadRepositories(ctx context.Context, configs map[string]settings.RepositoryConfig) int {
	logger := log.Ctx(ctx)
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		handler, err := repository.New(ctx, configs[name], l.storage)
		if err != nil {
			failed++
			logger.Error().Err(err).Str("storage", l.Name()).Str("repository", name).Msg("Error loading repository")
			continue
		}
		logger.Info().Str("storage", l.Name()).Str("repository", name).Msg("Loaded repository")
		l.attach(handler)
	}
	return failed
}

func (l *LoadedStorage) handlers() []*repository.Handler {
	out := make([]*repository.Handler, 0, l.repositories.Count())
	for item := range l.repositories.IterBuffered() {
		out = append(out, item.Val)
	}
	return out
}

// UpdateStaging replaces the release staging target of a Maven repository.
func (l *LoadedStorage) UpdateStaging(ctx context.Context, name string, staging settings.StagingConfig) error {
	original, err := l.take(name)
	if err != nil {
		return err
	}
	updated, err := original.WithStaging(ctx, staging)
	if err != nil {
		l.put(original)
		return err
	}
	l.put(updated)
	return nil
}
