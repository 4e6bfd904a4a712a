package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nitro-repo/nitro-repo/internal/database"
	"github.com/nitro-repo/nitro-repo/module/auth"
	"github.com/nitro-repo/nitro-repo/module/permissions"
	"github.com/nitro-repo/nitro-repo/module/registry"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server     *httptest.Server
	controller *registry.Controller
	users      *database.Store
	sessions   *auth.MemorySessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	controller, err := registry.Init(ctx, filepath.Join(dir, storage.RegistryFile), 2)
	require.NoError(t, err)
	require.NoError(t, controller.LoadUnloadedStorages(ctx))
	saver, err := storage.NewLocalSaver("main", filepath.Join(dir, "main"), time.Now().UnixMilli())
	require.NoError(t, err)
	loaded, err := controller.CreateStorage(ctx, saver)
	require.NoError(t, err)
	for _, repo := range []struct {
		name string
		kind settings.RepositoryType
	}{{"files", settings.Generic}, {"releases", settings.Maven}, {"npm", settings.NPM}} {
		_, err := loaded.CreateRepository(ctx, settings.NewRepositoryConfig("main", repo.name, repo.kind))
		require.NoError(t, err)
	}

	users, err := database.Open(ctx, filepath.Join(dir, database.DatabaseFile))
	require.NoError(t, err)
	t.Cleanup(func() { users.Close() })
	for _, u := range []database.NewUser{
		{Username: "admin", Email: "admin@example.com", Password: "admin", Permissions: permissions.UserPermissions{Admin: true}},
		{Username: "deployer", Email: "deployer@example.com", Password: "deployer", Permissions: permissions.UserPermissions{
			Deployer: &permissions.RepositoryPermission{Permissions: []string{"main/*"}},
		}},
		{Username: "viewer", Email: "viewer@example.com", Password: "viewer", Permissions: permissions.UserPermissions{
			Viewer: &permissions.RepositoryPermission{Permissions: []string{}},
		}},
	} {
		_, err := users.AddUser(ctx, u)
		require.NoError(t, err)
	}

	sessions := auth.NewMemorySessionManager(time.Hour)
	s := New(Options{
		Controller: controller,
		Users:      users,
		Sessions:   sessions,
		Metrics:    NewMetrics(controller, sessions.Count),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, controller: controller, users: users, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body []byte, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if user != "" {
		req.SetBasicAuth(user, user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestGenericDeployAndRead(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/storages/main/files/tools/app.txt", "", []byte("hello"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/storages/main/files/tools/app.txt", "viewer", []byte("hello"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/storages/main/files/tools/app.txt", "deployer", []byte("hello"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/storages/main/files/tools/app.txt", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", readBody(t, resp))
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	resp = env.do(t, http.MethodGet, "/storages/main/files/tools", "", nil, "Accept", "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing storage.StorageDirectoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "app.txt", listing.Files[0].Name)

	resp = env.do(t, http.MethodGet, "/storages/main/files/tools", "", nil, "Accept", "text/html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "app.txt")

	resp = env.do(t, http.MethodGet, "/storages/main/files/tools", "", nil, "Accept", "image/png")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/storages/main/files/.config.nitro_repo/repository.json", "admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/storages/main/missing/a.txt", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMalformedBasicAuthIsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/storages/main/files/a.txt", "", nil, "Authorization", "Basic !!!")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenAuth(t *testing.T) {
	env := newTestEnv(t)
	deployer, err := env.users.GetUserByUsername(context.Background(), "deployer")
	require.NoError(t, err)
	raw, _, err := env.users.CreateToken(context.Background(), deployer.ID, "ci")
	require.NoError(t, err)

	resp := env.do(t, http.MethodPut, "/storages/main/files/a.txt", "", []byte("x"), "Authorization", "Bearer "+raw)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	basic := base64.StdEncoding.EncodeToString([]byte("token:" + raw))
	resp = env.do(t, http.MethodPut, "/storages/main/files/b.txt", "", []byte("y"), "Authorization", "Basic "+basic)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestNPMPublishAndInstall(t *testing.T) {
	env := newTestEnv(t)
	tarball := []byte("fake tarball")
	publish := map[string]any{
		"name":      "left-pad",
		"dist-tags": map[string]string{"latest": "1.0.0"},
		"versions": map[string]any{
			"1.0.0": map[string]any{"name": "left-pad", "version": "1.0.0", "dist": map[string]string{"tarball": "ignored"}},
		},
		"_attachments": map[string]any{
			"left-pad-1.0.0.tgz": map[string]any{
				"content_type": "application/octet-stream",
				"data":         base64.StdEncoding.EncodeToString(tarball),
				"length":       len(tarball),
			},
		},
	}
	body, err := json.Marshal(publish)
	require.NoError(t, err)

	resp := env.do(t, http.MethodPut, "/storages/main/npm/left-pad", "deployer", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/storages/main/npm/left-pad", "deployer", body, "npm-command", "publish")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/storages/main/npm/left-pad", "", nil, "npm-command", "install")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var metadata struct {
		Name     string            `json:"name"`
		DistTags map[string]string `json:"dist-tags"`
		Versions map[string]struct {
			Dist struct {
				Tarball string `json:"tarball"`
			} `json:"dist"`
		} `json:"versions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&metadata))
	assert.Equal(t, "left-pad", metadata.Name)
	assert.Equal(t, "1.0.0", metadata.DistTags["latest"])
	tarballURL := metadata.Versions["1.0.0"].Dist.Tarball
	assert.Equal(t, env.server.URL+"/storages/main/npm/left-pad/-/left-pad-1.0.0.tgz", tarballURL)

	resp = env.do(t, http.MethodGet, strings.TrimPrefix(tarballURL, env.server.URL), "", nil, "npm-command", "install")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(tarball), readBody(t, resp))
}

func TestNPMLogin(t *testing.T) {
	env := newTestEnv(t)
	body := []byte(`{"name":"deployer","password":"deployer"}`)
	resp := env.do(t, http.MethodPut, "/storages/main/npm/-/user/org.couchdb.user:deployer", "", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body = []byte(`{"name":"deployer","password":"wrong"}`)
	resp = env.do(t, http.MethodPut, "/storages/main/npm/-/user/org.couchdb.user:deployer", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRepositoryAPI(t *testing.T) {
	env := newTestEnv(t)
	create := []byte(`{"name":"snapshots","repository_type":"maven"}`)

	resp := env.do(t, http.MethodPost, "/api/repositories/main", "", create)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/repositories/main", "deployer", create)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/repositories/main", "admin", create)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/repositories/main", "admin", create)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/repositories/ghost", "admin", create)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/repositories/main?filter=*s", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var configs []settings.RepositoryConfig
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&configs))
	names := make([]string, 0, len(configs))
	for _, c := range configs {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"files", "releases", "snapshots"}, names)

	resp = env.do(t, http.MethodPut, "/api/repositories/main/files/visibility/private", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/storages/main/files/x", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/repositories/main/files/color/blue", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/repositories/main/files/active/false", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/storages/main/files/x", "admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/repositories/main/snapshots?purge_repository=true", "admin", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/repositories/main/snapshots", "admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRepositoryPageAPI(t *testing.T) {
	env := newTestEnv(t)
	page := []byte(`{"settings":{"page_type":"Markdown"},"page":"# Releases"}`)

	resp := env.do(t, http.MethodPut, "/api/repositories/main/releases/page", "admin", page)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/repositories/main/releases/page", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got settings.UpdateRepositoryPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, settings.PageMarkdown, got.Settings.PageType)
	require.NotNil(t, got.Page)
	assert.Equal(t, "# Releases", *got.Page)

	resp = env.do(t, http.MethodGet, "/api/repositories/main/npm/page", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/repositories/main/releases/staging", "admin",
		[]byte(`{"url":"https://git.example.com/site.git","branch":"main","password":"secret"}`))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/repositories/main/releases/staging", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `"has_password":true`)
	assert.NotContains(t, body, "secret")
}

func TestAdminStorageAPI(t *testing.T) {
	env := newTestEnv(t)
	location := filepath.Join(t.TempDir(), "second")
	body, err := json.Marshal(map[string]string{"name": "second", "location": location})
	require.NoError(t, err)

	resp := env.do(t, http.MethodPost, "/api/storages", "deployer", body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/storages", "admin", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/storages", "admin", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/storages/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing storage.StorageDirectoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Len(t, listing.Files, 2)

	resp = env.do(t, http.MethodDelete, "/api/storages/second?purge=bogus", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.do(t, http.MethodDelete, "/api/storages/second?purge=All", "admin", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodDelete, "/api/storages/second", "admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	recoverBody, err := json.Marshal(map[string]string{"name": "second", "location": location})
	require.NoError(t, err)
	resp = env.do(t, http.MethodPost, "/api/storages/recover", "admin", recoverBody)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.controller.StorageExists("second"))
}

func TestLoginSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Get(env.server.URL + "/api/me")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = client.Post(env.server.URL+"/api/login", "application/json", strings.NewReader(`{"username":"admin","password":"wrong"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = client.Post(env.server.URL+"/api/login", "application/json", strings.NewReader(`{"username":"admin","password":"admin"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.sessions.Count())

	resp, err = client.Get(env.server.URL + "/api/me")
	require.NoError(t, err)
	var me auth.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	resp.Body.Close()
	assert.Equal(t, "admin", me.Username)

	resp, err = client.Post(env.server.URL+"/api/logout", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, env.sessions.Count())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPut, "/storages/main/files/a.txt", "deployer", []byte("x"))

	resp := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "nitro_http_requests_total")
	assert.Contains(t, body, `nitro_repository_requests_total{code="201",repository="files",storage="main",type="Generic"} 1`)
	assert.Contains(t, body, "nitro_storages 1")
	assert.Contains(t, body, "nitro_repositories 3")
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{storage.ErrRepositoryAlreadyExists, http.StatusConflict},
		{&storage.CreateError{Storage: "x", Err: storage.ErrStorageAlreadyExists}, http.StatusConflict},
		{&storage.DeleteError{Storage: "x", Err: storage.ErrStorageNotFound}, http.StatusNotFound},
		{&permissions.MissingPermission{Permission: "admin"}, http.StatusForbidden},
		{&permissions.PermissionError{Pattern: "x", Err: permissions.ErrRepositoryClassifier}, http.StatusInternalServerError},
		{registry.ErrRepositoryBusy, http.StatusConflict},
		{&storage.UnavailableError{Storage: "x", Err: io.EOF}, http.StatusServiceUnavailable},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := statusOf(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
