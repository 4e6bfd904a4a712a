// Package repository holds the Handler: a closed union over the protocol
// variants, each bound to its RepositoryConfig and owning storage.
//
// Handlers are immutable. Changing a repository's configuration builds a new
// Handler which replaces the old one in the registry.
package repository

import (
	"context"
	"fmt"

	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/repository/maven"
	"github.com/nitro-repo/nitro-repo/module/repository/npm"
	"github.com/nitro-repo/nitro-repo/module/repository/raw"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"
)

// Handler is one loaded repository. Exactly one variant pointer is set,
// selected by Kind.
type Handler struct {
	kind  settings.RepositoryType
	maven *maven.Repository
	npm   *npm.Repository
	raw   *raw.Repository
}

// New builds the variant matching config.RepositoryType.
func New(ctx context.Context, config settings.RepositoryConfig, s storage.Storage) (*Handler, error) {
	if config.Storage != s.Name() {
		return nil, fmt.Errorf("repository %s belongs to storage %s, not %s", config.Name, config.Storage, s.Name())
	}
	switch config.RepositoryType {
	case settings.Maven:
		m, err := maven.Load(ctx, config, s)
		if err != nil {
			return nil, err
		}
		return &Handler{kind: settings.Maven, maven: m}, nil
	case settings.NPM:
		return &Handler{kind: settings.NPM, npm: npm.New(config, s)}, nil
	case settings.CI, settings.Generic:
		return &Handler{kind: config.RepositoryType, raw: raw.New(config, s)}, nil
	}
	return nil, fmt.Errorf("unsupported repository type %q", config.RepositoryType)
}

func (h *Handler) Kind() settings.RepositoryType {
	return h.kind
}

func (h *Handler) Config() settings.RepositoryConfig {
	switch h.kind {
	case settings.Maven:
		return h.maven.Config()
	case settings.NPM:
		return h.npm.Config()
	case settings.CI, settings.Generic:
		return h.raw.Config()
	}
	panic("unreachable repository kind " + string(h.kind))
}

func (h *Handler) Storage() storage.Storage {
	switch h.kind {
	case settings.Maven:
		return h.maven.Storage()
	case settings.NPM:
		return h.npm.Storage()
	case settings.CI, settings.Generic:
		return h.raw.Storage()
	}
	panic("unreachable repository kind " + string(h.kind))
}

func (h *Handler) Name() string {
	return h.Config().Name
}

// WithConfig returns a new Handler carrying config. Name, storage and type
// cannot change.
func (h *Handler) WithConfig(config settings.RepositoryConfig) (*Handler, error) {
	current := h.Config()
	if config.Name != current.Name || config.Storage != current.Storage || config.RepositoryType != current.RepositoryType {
		return nil, fmt.Errorf("repository %s: name, storage and type are immutable", current.Name)
	}
	c := &Handler{kind: h.kind}
	switch h.kind {
	case settings.Maven:
		c.maven = h.maven.WithConfig(config)
	case settings.NPM:
		c.npm = h.npm.WithConfig(config)
	case settings.CI, settings.Generic:
		c.raw = h.raw.WithConfig(config)
	}
	return c, nil
}

func (h *Handler) requiredAction(req *api.Request) api.Action {
	switch h.kind {
	case settings.Maven:
		return h.maven.RequiredAction(req)
	case settings.NPM:
		return h.npm.RequiredAction(req)
	case settings.CI, settings.Generic:
		return h.raw.RequiredAction(req)
	}
	return api.ActionDeploy
}

func (h *Handler) execute(ctx context.Context, req *api.Request, svc api.Services) (*api.Response, error) {
	switch h.kind {
	case settings.Maven:
		return h.maven.Handle(ctx, req, svc)
	case settings.NPM:
		return h.npm.Handle(ctx, req, svc)
	case settings.CI, settings.Generic:
		return h.raw.Handle(ctx, req, svc)
	}
	return nil, fmt.Errorf("unsupported repository type %q", h.kind)
}
