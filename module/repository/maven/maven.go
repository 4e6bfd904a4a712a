// Package maven implements the Maven repository layout: files are served and
// deployed at group/artifact/version/file and the repository policy decides
// which versions may be deployed.
package maven

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
	page    settings.RepositoryPage
	staging *settings.StagingConfig
}

// Load builds the repository and reads its page and staging settings.
func Load(ctx context.Context, config settings.RepositoryConfig, s storage.Storage) (*Repository, error) {
	r := &Repository{config: config, storage: s, page: settings.DefaultRepositoryPage()}
	if _, err := s.GetRepositoryConfig(ctx, config, settings.PageConfigFile, &r.page); err != nil {
		return nil, err
	}
	var staging settings.StagingConfig
	found, err := s.GetRepositoryConfig(ctx, config, settings.StagingConfigFile, &staging)
	if err != nil {
		return nil, err
	}
	if found {
		r.staging = &staging
	}
	return r, nil
}

func (r *Repository) Config() settings.RepositoryConfig {
	return r.config
}

func (r *Repository) Storage() storage.Storage {
	return r.storage
}

func (r *Repository) Page() settings.RepositoryPage {
	return r.page
}

func (r *Repository) Staging() *settings.StagingConfig {
	return r.staging
}

func (r *Repository) WithConfig(config settings.RepositoryConfig) *Repository {
	c := *r
	c.config = config
	return &c
}

func (r *Repository) WithPage(page settings.RepositoryPage) *Repository {
	c := *r
	c.page = page
	return &c
}

func (r *Repository) WithStaging(staging *settings.StagingConfig) *Repository {
	c := *r
	c.staging = staging
	return &c
}

func (r *Repository) RequiredAction(req *api.Request) api.Action {
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		return api.ActionRead
	}
	return api.ActionDeploy
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
		return r.deploy(ctx, req, svc)
	}
	return api.Status(http.StatusMethodNotAllowed), nil
}

func (r *Repository) deploy(ctx context.Context, req *api.Request, svc api.Services) (*api.Response, error) {
	coordinates, isArtifact := ParsePath(req.Path)
	if isArtifact && !r.config.Policy.Accepts(coordinates.Version) {
		return nil, api.NewRepositoryError(http.StatusBadRequest,
			"%s repository %s does not accept version %s", r.config.Policy, r.config.Name, coordinates.Version)
	}
	if err := r.storage.SaveFile(ctx, r.config, req.Body, req.Path); err != nil {
		return nil, err
	}
	logger := log.Ctx(ctx)
	logger.Debug().Str("repository", r.config.Name).Str("location", req.Path).Msg("Deployed file")

	if isArtifact && strings.HasSuffix(coordinates.File, ".pom") {
		event := api.DeployEvent{
			Storage:        r.config.Storage,
			Repository:     r.config.Name,
			RepositoryType: r.config.RepositoryType,
			Project:        coordinates.GroupID + ":" + coordinates.ArtifactID,
			Version:        coordinates.Version,
			VersionFolder:  coordinates.VersionFolder(),
			Deployer:       req.Caller.Username,
			Timestamp:      time.Now().UnixMilli(),
		}
		if pom, err := ParsePom(req.Body); err != nil {
			logger.Warn().Err(err).Str("location", req.Path).Msg("Unable to parse pom, using path coordinates")
		} else if pom.ArtifactID != "" {
			event.Project = pom.Project()
			if pom.Version != "" {
				event.Version = pom.Version
			}
		}
		svc.PostDeploy(ctx, event)

		if r.staging.Enabled() {
			staging := *r.staging
			svc.Tasks.Go(ctx, func(stageCtx context.Context) {
				if err := Stage(stageCtx, StagingJob{
					GitBinary:     svc.GitBinary,
					Storage:       r.storage,
					Repository:    r.config,
					Staging:       staging,
					VersionFolder: coordinates.VersionFolder(),
					Caller:        req.Caller,
				}); err != nil {
					log.Ctx(stageCtx).Error().Err(err).Str("repository", r.config.Name).Msg("Staging to git failed")
				}
			})
		}
	}
	return api.Status(http.StatusCreated), nil
}
