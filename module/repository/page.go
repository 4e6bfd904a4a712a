package repository

import (
	"context"
	"errors"

	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/russross/blackfriday/v2"
)

// ErrPageUnsupported is returned for repository types without a page.
var ErrPageUnsupported = errors.New("Repository type not supported")

// Page returns the page settings and the Markdown source of the repository.
func (h *Handler) Page(ctx context.Context) (settings.UpdateRepositoryPage, error) {
	if h.kind != settings.Maven {
		return settings.UpdateRepositoryPage{}, ErrPageUnsupported
	}
	page := ""
	data, err := h.Storage().GetFile(ctx, h.Config(), settings.ReadmeSource)
	switch {
	case err == nil:
		page = string(data)
	case !errors.Is(err, storage.ErrFileNotFound):
		return settings.UpdateRepositoryPage{}, err
	}
	return settings.UpdateRepositoryPage{Settings: h.maven.Page(), Page: &page}, nil
}

// WithPage persists the page settings and content and returns the Handler
// carrying them. The receiver is left untouched.
func (h *Handler) WithPage(ctx context.Context, update settings.UpdateRepositoryPage) (*Handler, error) {
	if h.kind != settings.Maven {
		return nil, ErrPageUnsupported
	}
	if update.Settings.PageType == "" {
		update.Settings.PageType = settings.PageNone
	}
	config := h.Config()
	s := h.Storage()
	if err := s.SaveRepositoryConfig(ctx, config, settings.PageConfigFile, update.Settings); err != nil {
		return nil, err
	}
	if update.Page != nil {
		source := []byte(*update.Page)
		if err := s.SaveRepositoryConfig(ctx, config, settings.ReadmeSourceFile, source); err != nil {
			return nil, err
		}
		if err := s.SaveRepositoryConfig(ctx, config, settings.ReadmeHTMLFile, RenderPage(update.Settings.PageType, source)); err != nil {
			return nil, err
		}
	}
	return &Handler{kind: h.kind, maven: h.maven.WithPage(update.Settings)}, nil
}

// RenderPage turns the page source into the served HTML.
func RenderPage(pageType settings.PageType, source []byte) []byte {
	if pageType != settings.PageMarkdown {
		return nil
	}
	return blackfriday.Run(source)
}

// Staging returns the release staging target of a Maven repository, nil when
// none is configured.
func (h *Handler) Staging() (*settings.StagingConfig, error) {
	if h.kind != settings.Maven {
		return nil, ErrPageUnsupported
	}
	return h.maven.Staging(), nil
}

// WithStaging persists the staging target and returns the Handler carrying it.
// A config without URL disables staging.
func (h *Handler) WithStaging(ctx context.Context, staging settings.StagingConfig) (*Handler, error) {
	if h.kind != settings.Maven {
		return nil, ErrPageUnsupported
	}
	if err := h.Storage().SaveRepositoryConfig(ctx, h.Config(), settings.StagingConfigFile, staging); err != nil {
		return nil, err
	}
	var next *settings.StagingConfig
	if staging.Enabled() {
		next = &staging
	}
	return &Handler{kind: h.kind, maven: h.maven.WithStaging(next)}, nil
}
