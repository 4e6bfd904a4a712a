package repository

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/nitro-repo/nitro-repo/module/permissions"
	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"

	"github.com/rs/zerolog/log"
)

// Dispatch authorizes req against the repository and runs it on the variant.
// user is nil for anonymous callers. Inactive repositories and the
// configuration directory answer 404.
func (h *Handler) Dispatch(ctx context.Context, req *api.Request, user *permissions.UserPermissions, svc api.Services) (*api.Response, error) {
	config := h.Config()
	if !config.Active || isConfigPath(req.Path) {
		return api.Status(http.StatusNotFound), nil
	}

	action := h.requiredAction(req)
	var (
		allowed bool
		err     error
	)
	switch action {
	case api.ActionRead:
		allowed, err = user.CanRead(config)
	case api.ActionDeploy:
		allowed, err = user.CanDeploy(config)
	case api.ActionLogin:
		allowed = true
	}
	if err != nil {
		return nil, err
	}
	if !allowed {
		log.Ctx(ctx).Debug().
			Str("repository", config.Name).
			Str("action", action.String()).
			Bool("anonymous", user == nil).
			Msg("Request denied")
		if user == nil {
			return nil, api.NewRepositoryError(http.StatusUnauthorized, "Missing Permission `Logged In`")
		}
		if action == api.ActionRead {
			return nil, api.NewRepositoryError(http.StatusForbidden, "Missing Permission `Read Repository`")
		}
		return nil, api.NewRepositoryError(http.StatusForbidden, "Missing Permission `Write Repository`")
	}
	return h.execute(ctx, req, svc)
}

func isConfigPath(p string) bool {
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	return cleaned == settings.ConfigDir || strings.HasPrefix(cleaned, settings.ConfigDir+"/")
}
