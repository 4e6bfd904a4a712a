package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nitro-repo/nitro-repo/module/permissions"
	"github.com/nitro-repo/nitro-repo/module/registry"
	"github.com/nitro-repo/nitro-repo/module/repository"
	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/storage"
	cerrors "github.com/nitro-repo/nitro-repo/util/common/errors"

	"github.com/rs/zerolog/log"
)

// statusOf maps an error to the HTTP status and message sent to the client.
// Unknown errors are 500 without details.
func statusOf(err error) (int, string) {
	var (
		repoErr       *api.RepositoryError
		badRequest    *api.BadRequestError
		missing       *permissions.MissingPermission
		permissionErr *permissions.PermissionError
		validation    *cerrors.ValidationError
		createErr     *storage.CreateError
	)
	switch {
	case errors.As(err, &repoErr):
		return repoErr.Status, repoErr.Message
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, badRequest.Error()
	case errors.As(err, &missing):
		return http.StatusForbidden, missing.Error()
	case errors.As(err, &permissionErr):
		return http.StatusInternalServerError, permissionErr.Error()
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.Is(err, storage.ErrStorageAlreadyExists),
		errors.Is(err, storage.ErrRepositoryAlreadyExists),
		errors.Is(err, registry.ErrRepositoryBusy):
		return http.StatusConflict, err.Error()
	case errors.As(err, &createErr):
		return http.StatusBadRequest, createErr.Error()
	case errors.Is(err, storage.ErrStorageNotFound),
		errors.Is(err, storage.ErrRepositoryNotFound),
		errors.Is(err, storage.ErrFileNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, repository.ErrPageUnsupported):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, cerrors.ErrPathEscape),
		errors.Is(err, storage.ErrReservedLocation):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusOf(err)
	event := log.Ctx(r.Context()).Debug()
	if status >= http.StatusInternalServerError {
		event = log.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg("Request failed")
	writeJSON(w, status, errorBody{Error: message})
}

// writeUnauthorized answers a missing or insufficient identity: 401 for
// anonymous callers, 403 otherwise.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, anonymous bool, err error) {
	if anonymous {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Missing Permission `Logged In`"})
		return
	}
	writeError(w, r, err)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if value == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.Warn().Err(err).Msg("Unable to write response")
	}
}
