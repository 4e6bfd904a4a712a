package server

import (
	"bytes"
	"html/template"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/nitro-repo/nitro-repo/module/repository"
	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/rs/zerolog/log"
)

func (s *Server) routeProtocol(mux *http.ServeMux) {
	mux.HandleFunc("GET /storages/{$}", s.handleStorageRoot)
	mux.HandleFunc("GET /storages/{storage}", s.handleStorageListing)
	mux.HandleFunc("GET /storages/{storage}/{$}", s.handleStorageListing)
	mux.HandleFunc("/storages/{storage}/{repository}", s.handleRepository)
	mux.HandleFunc("/storages/{storage}/{repository}/{path...}", s.handleRepository)
}

// handleStorageRoot lists the storages as directories.
func (s *Server) handleStorageRoot(w http.ResponseWriter, r *http.Request) {
	root := storage.DirectoryFile("storages", "", 0)
	s.writeListing(w, r, &storage.StorageDirectoryResponse{Files: s.controller.StoragesAsFileList(), Directory: root})
}

// handleStorageListing lists the repositories of a storage as directories.
// Hidden repositories are only listed to repository managers.
func (s *Server) handleStorageListing(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("storage")
	loaded, ok := s.controller.GetStorage(name)
	if !ok {
		writeError(w, r, storage.ErrStorageNotFound)
		return
	}
	user, err := s.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	showHidden := permissionsOf(user).CanEditRepositories() == nil
	configs, err := loaded.Repositories("")
	if err != nil {
		writeError(w, r, err)
		return
	}
	files := make([]storage.StorageFile, 0, len(configs))
	for _, config := range configs {
		if config.Visibility == settings.Hidden && !showHidden {
			continue
		}
		files = append(files, storage.DirectoryFile(config.Name, path.Join(name, config.Name), config.Created))
	}
	directory := storage.DirectoryFile(name, name, loaded.Saver().GenericConfig.Created)
	s.writeListing(w, r, &storage.StorageDirectoryResponse{Files: files, Directory: directory})
}

func (s *Server) handleRepository(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storageName, repositoryName := r.PathValue("storage"), r.PathValue("repository")
	handler, err := s.controller.Repository(storageName, repositoryName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body []byte
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodySize))
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
			return
		}
	}
	req := &api.Request{
		Method:  r.Method,
		Path:    r.PathValue("path"),
		Header:  r.Header,
		Body:    body,
		BaseURL: baseURL(r, storageName, repositoryName),
		Caller:  user.Caller(),
	}
	resp, err := handler.Dispatch(ctx, req, permissionsOf(user), s.services)
	config := handler.Config()
	if err != nil {
		status, _ := statusOf(err)
		s.metrics.RepositoryRequests.WithLabelValues(storageName, repositoryName, string(config.RepositoryType), strconv.Itoa(status)).Inc()
		writeError(w, r, err)
		return
	}
	s.metrics.RepositoryRequests.WithLabelValues(storageName, repositoryName, string(config.RepositoryType), strconv.Itoa(resp.Status)).Inc()
	s.writeResponse(w, r, req, handler, resp)
}

// baseURL is the absolute URL of the repository root as the client sees it.
func baseURL(r *http.Request, storageName, repositoryName string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(forwarded, ",")[0]))
	}
	return scheme + "://" + r.Host + "/storages/" + storageName + "/" + repositoryName
}

func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, req *api.Request, handler *repository.Handler, resp *api.Response) {
	if resp.File != nil {
		switch resp.File.Kind {
		case storage.FileResponseFile:
			s.serveFile(w, r, resp.File)
			return
		case storage.FileResponseList:
			s.writeListing(w, r, resp.File.Listing)
			return
		default:
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found"})
			return
		}
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	if len(resp.Body) > 0 {
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	w.WriteHeader(resp.Status)
	if r.Method == http.MethodHead || len(resp.Body) == 0 {
		return
	}
	if _, err := w.Write(resp.Body); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Str("repository", handler.Name()).Msg("Unable to write response")
	}
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, file *storage.FileResponse) {
	f, err := os.Open(file.Path)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found"})
			return
		}
		writeError(w, r, err)
		return
	}
	defer f.Close()
	name := path.Base(file.Path)
	if file.File != nil {
		name = file.File.Name
		w.Header().Set("Content-Type", file.File.Mime)
	}
	http.ServeContent(w, r, name, file.ModTime(), f)
}

// writeListing renders a directory as JSON or HTML depending on Accept.
// Other explicit media types are refused.
func (s *Server) writeListing(w http.ResponseWriter, r *http.Request, listing *storage.StorageDirectoryResponse) {
	accept := r.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "text/html"):
		var buf bytes.Buffer
		if err := listingTemplate.Execute(&buf, listing); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			w.Write(buf.Bytes())
		}
	case (&api.Request{Header: r.Header}).WantsJSON():
		writeJSON(w, http.StatusOK, listing)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Unsupported Accept header " + accept})
	}
}

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head><title>Index of /{{.Directory.FullPath}}</title></head>
<body>
<h1>Index of /{{.Directory.FullPath}}</h1>
<table>
<tr><th>Name</th><th>Size</th><th>Type</th></tr>
{{- range .Files}}
<tr><td><a href="{{.Name}}{{if .Directory}}/{{end}}">{{.Name}}{{if .Directory}}/{{end}}</a></td><td>{{.Size}}</td><td>{{.Mime}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))
