// Package npm implements the npm registry protocol on top of a storage.
//
// Tarballs are stored as <package>/<version>/<file> next to the version's
// package.json. Package metadata is generated on request from those files.
package npm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	couchUserPrefix = "-/user/org.couchdb.user:"
	publishCommand  = "publish"
)

var couchUserPattern = regexp.MustCompile(`-/user/org\.couchdb\.user:[a-zA-Z]+`)

type Repository struct {
	config  settings.RepositoryConfig
	storage storage.Storage
	group   *singleflight.Group
}

func New(config settings.RepositoryConfig, s storage.Storage) *Repository {
	return &Repository{config: config, storage: s, group: &singleflight.Group{}}
}

func (r *Repository) Config() settings.RepositoryConfig {
	return r.config
}

func (r *Repository) Storage() storage.Storage {
	return r.storage
}

func (r *Repository) WithConfig(config settings.RepositoryConfig) *Repository {
	return &Repository{config: config, storage: r.storage, group: r.group}
}

// IsLoginPath reports whether p is a couch style user verification path.
func IsLoginPath(p string) bool {
	return couchUserPattern.MatchString(p)
}

func (r *Repository) RequiredAction(req *api.Request) api.Action {
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		return api.ActionRead
	case http.MethodPut:
		if IsLoginPath(req.Path) {
			return api.ActionLogin
		}
	}
	return api.ActionDeploy
}

func (r *Repository) Handle(ctx context.Context, req *api.Request, svc api.Services) (*api.Response, error) {
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		return r.handleGet(ctx, req)
	case http.MethodPut:
		return r.handlePut(ctx, req, svc)
	}
	return api.Status(http.StatusMethodNotAllowed), nil
}

func (r *Repository) handleGet(ctx context.Context, req *api.Request) (*api.Response, error) {
	if _, ok := req.NPMCommand(); !ok {
		file, err := r.storage.GetFileAsResponse(ctx, r.config, req.Path)
		if err != nil {
			return nil, err
		}
		return api.FromFile(file), nil
	}

	if tarball, ok := ParseTarballPath(req.Path); ok {
		log.Ctx(ctx).Debug().
			Str("package", tarball.Package).
			Str("version", tarball.Version).
			Str("location", tarball.Location()).
			Msg("Retrieving package")
		file, err := r.storage.GetFileAsResponse(ctx, r.config, tarball.Location())
		if err != nil {
			return nil, err
		}
		return api.FromFile(file), nil
	}

	metadata, err := r.Metadata(ctx, PackageName(req.Path), req.BaseURL)
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		return api.Status(http.StatusNotFound), nil
	}
	return api.JSON(http.StatusOK, metadata)
}

func (r *Repository) handlePut(ctx context.Context, req *api.Request, svc api.Services) (*api.Response, error) {
	if IsLoginPath(req.Path) {
		return r.login(ctx, req, svc)
	}
	command, ok := req.NPMCommand()
	if !ok {
		return api.Text(http.StatusBadRequest, "Missing NPM-Command"), nil
	}
	log.Ctx(ctx).Trace().Str("path", req.Path).Str("command", command).Msg("NPM command")
	if command != publishCommand {
		return api.Text(http.StatusBadRequest, "Bad Request "+command), nil
	}
	if err := r.Publish(ctx, req.Body, req.Caller, svc); err != nil {
		return nil, err
	}
	return api.Status(http.StatusOK), nil
}

func (r *Repository) login(ctx context.Context, req *api.Request, svc api.Services) (*api.Response, error) {
	if !utf8.Valid(req.Body) {
		return nil, api.NewBadRequest("login body", errInvalidUTF8)
	}
	var body LoginRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, api.NewBadRequest("login body", err)
	}
	username := req.Path[strings.Index(req.Path, couchUserPrefix)+len(couchUserPrefix):]
	if svc.Credentials == nil {
		return api.Status(http.StatusUnauthorized), nil
	}
	ok, err := svc.Credentials.VerifyCredentials(ctx, username, body.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Ctx(ctx).Trace().Str("user", username).Msg("User request was not authorized")
		return api.Status(http.StatusUnauthorized), nil
	}
	log.Ctx(ctx).Trace().Str("user", username).Msg("User request was authorized")
	return api.JSON(http.StatusCreated, LoginResponse{OK: "user '" + username + "' created"})
}

// Publish stores every attachment under every version in the request, each
// with the version's package.json. A failure part way through leaves the
// files already written in place.
func (r *Repository) Publish(ctx context.Context, body []byte, caller api.Caller, svc api.Services) error {
	var publish PublishRequest
	if err := json.Unmarshal(body, &publish); err != nil {
		return api.NewBadRequest("publish body", err)
	}
	if publish.Name == "" {
		return api.NewRepositoryError(http.StatusBadRequest, "package name is required")
	}
	if !ValidPackageName(publish.Name) {
		return api.NewRepositoryError(http.StatusBadRequest, "invalid package name %q", publish.Name)
	}
	if len(publish.Versions) == 0 || len(publish.Attachments) == 0 {
		return api.NewRepositoryError(http.StatusBadRequest, "publish needs at least one version and one attachment")
	}
	for version := range publish.Versions {
		if !ValidVersion(version) {
			return api.NewRepositoryError(http.StatusBadRequest, "invalid version %q", version)
		}
	}
	for key := range publish.Attachments {
		// Attachment keys follow the package name shape: file or @scope/file.
		if !ValidPackageName(key) {
			return api.NewRepositoryError(http.StatusBadRequest, "invalid attachment name %q", key)
		}
	}

	attachmentKeys := sortedKeys(publish.Attachments)
	versions := sortedKeys(publish.Versions)
	for _, key := range attachmentKeys {
		attachment := publish.Attachments[key]
		if attachment == nil {
			return api.NewRepositoryError(http.StatusBadRequest, "attachment %s has no data", key)
		}
		data, err := base64.StdEncoding.DecodeString(attachment.Data)
		if err != nil {
			return api.NewBadRequest("attachment "+key, err)
		}
		fileName := key[strings.LastIndex(key, "/")+1:]
		for _, version := range versions {
			versionFolder := publish.Name + "/" + version
			log.Ctx(ctx).Trace().
				Str("package", publish.Name).
				Str("version", version).
				Str("file", fileName).
				Msg("Publishing")
			if err := r.storage.SaveFile(ctx, r.config, data, versionFolder+"/"+fileName); err != nil {
				return err
			}
			if err := r.storage.SaveFile(ctx, r.config, publish.Versions[version], versionFolder+"/"+packageJSON); err != nil {
				return err
			}
			svc.PostDeploy(ctx, api.DeployEvent{
				Storage:        r.config.Storage,
				Repository:     r.config.Name,
				RepositoryType: r.config.RepositoryType,
				Project:        publish.Name,
				Version:        version,
				VersionFolder:  versionFolder,
				Deployer:       caller.Username,
				Timestamp:      time.Now().UnixMilli(),
			})
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
