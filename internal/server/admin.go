package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nitro-repo/nitro-repo/module/auth"
	"github.com/nitro-repo/nitro-repo/module/registry"
	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"
	cerrors "github.com/nitro-repo/nitro-repo/util/common/errors"
)

func (s *Server) routeStorages(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/storages", s.admin(s.handleListStorages))
	mux.HandleFunc("POST /api/storages", s.admin(s.handleCreateStorage))
	mux.HandleFunc("POST /api/storages/recover", s.admin(s.handleRecoverStorage))
	mux.HandleFunc("DELETE /api/storages/{storage}", s.admin(s.handleDeleteStorage))
}

func (s *Server) routeRepositories(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/repositories/{storage}", s.repositoryManager(s.handleListRepositories))
	mux.HandleFunc("POST /api/repositories/{storage}", s.repositoryManager(s.handleCreateRepository))
	mux.HandleFunc("GET /api/repositories/{storage}/{repository}", s.repositoryManager(s.handleGetRepository))
	mux.HandleFunc("DELETE /api/repositories/{storage}/{repository}", s.repositoryManager(s.handleDeleteRepository))
	mux.HandleFunc("PUT /api/repositories/{storage}/{repository}/{setting}/{value}", s.repositoryManager(s.handleUpdateRepository))
	mux.HandleFunc("GET /api/repositories/{storage}/{repository}/page", s.repositoryManager(s.handleGetPage))
	mux.HandleFunc("PUT /api/repositories/{storage}/{repository}/page", s.repositoryManager(s.handleUpdatePage))
	mux.HandleFunc("GET /api/repositories/{storage}/{repository}/staging", s.repositoryManager(s.handleGetStaging))
	mux.HandleFunc("PUT /api/repositories/{storage}/{repository}/staging", s.repositoryManager(s.handleUpdateStaging))
}

type userHandler func(w http.ResponseWriter, r *http.Request, user *auth.User)

// guard resolves the caller and runs check on its permissions before next.
func (s *Server) guard(check func(*auth.User) error, next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.currentUser(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := check(user); err != nil {
			writeUnauthorized(w, r, user == nil, err)
			return
		}
		next(w, r, user)
	}
}

func (s *Server) admin(next userHandler) http.HandlerFunc {
	return s.guard(func(u *auth.User) error { return permissionsOf(u).CanAdmin() }, next)
}

func (s *Server) repositoryManager(next userHandler) http.HandlerFunc {
	return s.guard(func(u *auth.User) error { return permissionsOf(u).CanEditRepositories() }, next)
}

func decodeBody(w http.ResponseWriter, r *http.Request, what string, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, r, api.NewBadRequest(what, err))
		return false
	}
	return true
}

type storageStatus struct {
	storage.StorageSaver
	Repositories int    `json:"repositories"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleListStorages(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	loaded := s.controller.Storages()
	out := make([]storageStatus, 0, len(loaded))
	for _, l := range loaded {
		status := storageStatus{StorageSaver: l.Saver(), Repositories: l.RepositoryCount()}
		if err := l.Status(); err != nil {
			status.Error = err.Error()
		}
		out = append(out, status)
	}
	writeJSON(w, http.StatusOK, out)
}

// newStorageRequest creates or recovers a Local storage.
type newStorageRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (req newStorageRequest) saver() (storage.StorageSaver, error) {
	if req.Location == "" {
		return storage.StorageSaver{}, cerrors.NewValidationError("location", "location is required")
	}
	return storage.NewLocalSaver(req.Name, req.Location, time.Now().UnixMilli())
}

func (s *Server) handleCreateStorage(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	s.addStorage(w, r, s.controller.CreateStorage)
}

func (s *Server) handleRecoverStorage(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	s.addStorage(w, r, s.controller.RecoverStorage)
}

func (s *Server) addStorage(w http.ResponseWriter, r *http.Request, add func(ctx context.Context, saver storage.StorageSaver) (*registry.LoadedStorage, error)) {
	var body newStorageRequest
	if !decodeBody(w, r, "storage", &body) {
		return
	}
	saver, err := body.saver()
	if err != nil {
		writeError(w, r, err)
		return
	}
	loaded, err := add(r.Context(), saver)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, storageStatus{StorageSaver: loaded.Saver(), Repositories: loaded.RepositoryCount()})
}

func (s *Server) handleDeleteStorage(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	level := registry.PurgeRemoveFromList
	if value := r.URL.Query().Get("purge"); value != "" {
		parsed, err := registry.ParsePurgeLevel(value)
		if err != nil {
			writeError(w, r, api.NewBadRequest("purge", err))
			return
		}
		level = parsed
	}
	if err := s.controller.DeleteStorage(r.Context(), r.PathValue("storage"), level); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadedStorage(w http.ResponseWriter, r *http.Request) (*registry.LoadedStorage, bool) {
	loaded, ok := s.controller.GetStorage(r.PathValue("storage"))
	if !ok {
		writeError(w, r, storage.ErrStorageNotFound)
		return nil, false
	}
	return loaded, true
}

func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	loaded, ok := s.loadedStorage(w, r)
	if !ok {
		return
	}
	configs, err := loaded.Repositories(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, r, api.NewBadRequest("filter", err))
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

type newRepositoryRequest struct {
	Name           string                  `json:"name"`
	RepositoryType settings.RepositoryType `json:"repository_type"`
}

func (s *Server) handleCreateRepository(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	loaded, ok := s.loadedStorage(w, r)
	if !ok {
		return
	}
	var body newRepositoryRequest
	if !decodeBody(w, r, "repository", &body) {
		return
	}
	handler, err := loaded.CreateRepository(r.Context(), settings.NewRepositoryConfig(loaded.Name(), body.Name, body.RepositoryType))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, handler.Config())
}

type repositoryInfo struct {
	settings.RepositoryConfig
	Page    *settings.RepositoryPage `json:"page,omitempty"`
	Staging bool                     `json:"staging,omitempty"`
}

func (s *Server) handleGetRepository(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	handler, err := s.controller.Repository(r.PathValue("storage"), r.PathValue("repository"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	info := repositoryInfo{RepositoryConfig: handler.Config()}
	if allInfo, _ := strconv.ParseBool(r.URL.Query().Get("all_info")); allInfo && handler.Kind() == settings.Maven {
		page, err := handler.Page(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		info.Page = &page.Settings
		staging, err := handler.Staging()
		if err != nil {
			writeError(w, r, err)
			return
		}
		info.Staging = staging.Enabled()
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteRepository(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	loaded, ok := s.loadedStorage(w, r)
	if !ok {
		return
	}
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge_repository"))
	if err := loaded.DeleteRepository(r.Context(), r.PathValue("repository"), purge); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applySetting changes one of the mutable repository fields.
func applySetting(config *settings.RepositoryConfig, setting, value string) error {
	switch setting {
	case "visibility":
		v, err := settings.ParseVisibility(value)
		if err != nil {
			return cerrors.NewValidationError(setting, err.Error())
		}
		config.Visibility = v
	case "active":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return cerrors.NewValidationError(setting, err.Error())
		}
		config.Active = v
	case "policy":
		v, err := settings.ParsePolicy(value)
		if err != nil {
			return cerrors.NewValidationError(setting, err.Error())
		}
		config.Policy = v
	default:
		return cerrors.NewValidationError(setting, "unknown repository setting")
	}
	return nil
}

func (s *Server) handleUpdateRepository(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	loaded, ok := s.loadedStorage(w, r)
	if !ok {
		return
	}
	setting, value := r.PathValue("setting"), r.PathValue("value")
	handler, err := loaded.UpdateRepository(r.Context(), r.PathValue("repository"), func(config *settings.RepositoryConfig) error {
		return applySetting(config, setting, value)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, handler.Config())
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	handler, err := s.controller.Repository(r.PathValue("storage"), r.PathValue("repository"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := handler.Page(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	loaded, ok := s.loadedStorage(w, r)
	if !ok {
		return
	}
	var body settings.UpdateRepositoryPage
	if !decodeBody(w, r, "page", &body) {
		return
	}
	if err := loaded.UpdatePage(r.Context(), r.PathValue("repository"), body); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stagingView hides the staging password.
type stagingView struct {
	URL         string `json:"url"`
	Branch      string `json:"branch"`
	Directory   string `json:"directory"`
	Username    string `json:"username"`
	HasPassword bool   `json:"has_password"`
}

func (s *Server) handleGetStaging(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	handler, err := s.controller.Repository(r.PathValue("storage"), r.PathValue("repository"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	staging, err := handler.Staging()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !staging.Enabled() {
		writeJSON(w, http.StatusOK, stagingView{})
		return
	}
	writeJSON(w, http.StatusOK, stagingView{
		URL:         staging.URL,
		Branch:      staging.Branch,
		Directory:   staging.Directory,
		Username:    staging.Username,
		HasPassword: staging.Password != "",
	})
}

func (s *Server) handleUpdateStaging(w http.ResponseWriter, r *http.Request, _ *auth.User) {
	loaded, ok := s.loadedStorage(w, r)
	if !ok {
		return
	}
	var body settings.StagingConfig
	if !decodeBody(w, r, "staging", &body) {
		return
	}
	if err := loaded.UpdateStaging(r.Context(), r.PathValue("repository"), body); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
