// Package raw serves CI and Generic repositories: a plain hierarchical file
// store without protocol specific metadata.
package raw

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/rs/zerolog/log"
)

type Repository struct {
	config  settings.RepositoryConfig
	storage storage.Storage
}

func New(config settings.RepositoryConfig, s storage.Storage) *Repository {
	return &Repository{config: config, storage: s}
}

func (r *Repository) Config() settings.RepositoryConfig {
	return r.config
}

func (r *Repository) Storage() storage.Storage {
	return r.storage
}

// WithConfig returns a copy bound to config.
func (r *Repository) WithConfig(config settings.RepositoryConfig) *Repository {
	return &Repository{config: config, storage: r.storage}
}

func (r *Repository) RequiredAction(req *api.Request) api.Action {
	switch req.Method {
	case http.MethodPut, http.MethodPost, http.MethodDelete:
		return api.ActionDeploy
	}
	return api.ActionRead
}

func (r *Repository) Handle(ctx context.Context, req *api.Request, svc api.Services) (*api.Response, error) {
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		file, err := r.storage.GetFileAsResponse(ctx, r.config, req.Path)
		if err != nil {
			return nil, err
		}
		return api.FromFile(file), nil
	case http.MethodPut, http.MethodPost:
		if strings.Trim(req.Path, "/") == "" {
			return nil, api.NewRepositoryError(http.StatusBadRequest, "a file location is required")
		}
		if err := r.storage.SaveFile(ctx, r.config, req.Body, req.Path); err != nil {
			return nil, err
		}
		log.Ctx(ctx).Debug().Str("repository", r.config.Name).Str("location", req.Path).Msg("Stored file")
		svc.PostDeploy(ctx, api.DeployEvent{
			Storage:        r.config.Storage,
			Repository:     r.config.Name,
			RepositoryType: r.config.RepositoryType,
			Project:        req.Path,
			VersionFolder:  req.Path,
			Deployer:       req.Caller.Username,
			Timestamp:      time.Now().UnixMilli(),
		})
		return api.Status(http.StatusCreated), nil
	case http.MethodDelete:
		if err := r.storage.DeleteFile(ctx, r.config, req.Path); err != nil {
			return nil, err
		}
		return api.Status(http.StatusNoContent), nil
	}
	return api.Status(http.StatusMethodNotAllowed), nil
}
