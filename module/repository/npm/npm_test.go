package npm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCredentials map[string]string

func (c staticCredentials) VerifyCredentials(_ context.Context, username, password string) (bool, error) {
	expected, ok := c[username]
	return ok && expected == password, nil
}

type recordingHook struct {
	mu     sync.Mutex
	events []api.DeployEvent
}

func (h *recordingHook) PostDeploy(_ context.Context, event api.DeployEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	saver, err := storage.NewLocalSaver("local", filepath.Join(t.TempDir(), "local"), 1)
	require.NoError(t, err)
	s, err := storage.Create(context.Background(), saver)
	require.NoError(t, err)
	cfg := settings.NewRepositoryConfig("local", "npm", settings.NPM)
	require.NoError(t, s.CreateRepository(context.Background(), cfg))
	return New(cfg, s)
}

func npmHeader(command string) http.Header {
	h := http.Header{}
	h.Set(api.NPMCommandHeader, command)
	return h
}

func publishBody(t *testing.T, name, version, file string, data []byte) []byte {
	t.Helper()
	body := map[string]any{
		"name": name,
		"versions": map[string]any{
			version: map[string]any{"name": name, "version": version, "description": "test package"},
		},
		"_attachments": map[string]any{
			file: map[string]any{"content_type": "application/octet-stream", "data": base64.StdEncoding.EncodeToString(data), "length": len(data)},
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw
}

func TestParseTarballPath(t *testing.T) {
	tests := []struct {
		path string
		want Tarball
		ok   bool
	}{
		{"foo/-/foo-1.2.3.tgz", Tarball{Package: "foo", Version: "1.2.3", File: "foo-1.2.3.tgz"}, true},
		{"/foo/-/foo-1.0.0-beta.1.tgz", Tarball{Package: "foo", Version: "1.0.0-beta.1", File: "foo-1.0.0-beta.1.tgz"}, true},
		{"@scope/foo/-/foo-2.0.0.tgz", Tarball{Package: "@scope/foo", Version: "2.0.0", File: "foo-2.0.0.tgz"}, true},
		{"foo", Tarball{}, false},
		{"foo/-/readme.md", Tarball{}, false},
		{"-/foo-1.0.0.tgz", Tarball{}, false},
		{"foo/-/bar-1.0.0.tgz", Tarball{}, false},
		{"foo/-/foo-.tgz", Tarball{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ParseTarballPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	tb, _ := ParseTarballPath("foo/-/foo-1.2.3.tgz")
	assert.Equal(t, "foo/1.2.3/foo-1.2.3.tgz", tb.Location())
}

func TestLatestVersion(t *testing.T) {
	assert.Equal(t, "1.10.0", LatestVersion([]string{"1.2.0", "1.10.0", "1.9.9"}))
	assert.Equal(t, "1.0.0", LatestVersion([]string{"1.0.0", "2.0.0-rc.1"}))
	assert.Equal(t, "2.0.0-rc.2", LatestVersion([]string{"2.0.0-rc.1", "2.0.0-rc.2"}))
	assert.Equal(t, "", LatestVersion(nil))
}

func TestPublishRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	hook := &recordingHook{}
	svc := api.Services{Hook: hook}

	payload := []byte("X-tarball-bytes")
	resp, err := repo.Handle(ctx, &api.Request{
		Method: http.MethodPut,
		Path:   "foo",
		Header: npmHeader("publish"),
		Body:   publishBody(t, "foo", "1.0.0", "foo-1.0.0.tgz", payload),
		Caller: api.Caller{UserID: 1, Username: "alice"},
	}, svc)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	stored, err := repo.Storage().GetFile(ctx, repo.Config(), "foo/1.0.0/foo-1.0.0.tgz")
	require.NoError(t, err)
	assert.Equal(t, payload, stored)

	require.Len(t, hook.events, 1)
	assert.Equal(t, "foo", hook.events[0].Project)
	assert.Equal(t, "1.0.0", hook.events[0].Version)
	assert.Equal(t, "alice", hook.events[0].Deployer)

	resp, err = repo.Handle(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    "foo",
		Header:  npmHeader("install"),
		BaseURL: "http://localhost/storages/local/npm",
	}, svc)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	var metadata PackageMetadata
	require.NoError(t, json.Unmarshal(resp.Body, &metadata))
	require.Contains(t, metadata.Versions, "1.0.0")
	assert.Equal(t, "1.0.0", metadata.DistTags["latest"])
	assert.Equal(t, "test package", metadata.Description)
	assert.Equal(t, "http://localhost/storages/local/npm/foo/-/foo-1.0.0.tgz", metadata.Versions["1.0.0"].Dist.Tarball)

	resp, err = repo.Handle(ctx, &api.Request{
		Method: http.MethodGet,
		Path:   "foo/-/foo-1.0.0.tgz",
		Header: npmHeader("install"),
	}, svc)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.File)
	assert.Equal(t, storage.FileResponseFile, resp.File.Kind)
}

func TestPublishRejectsUnsafeNames(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name, pkg, version, file string
	}{
		{"config directory", settings.ConfigDir, ".", settings.RepositoryConfigFile},
		{"dot package", ".hidden", "1.0.0", "hidden-1.0.0.tgz"},
		{"underscore package", "_private", "1.0.0", "private-1.0.0.tgz"},
		{"nested package", "foo/bar/baz", "1.0.0", "baz-1.0.0.tgz"},
		{"empty scope", "@/foo", "1.0.0", "foo-1.0.0.tgz"},
		{"dot version", "foo", ".", "foo.tgz"},
		{"path version", "foo", "1.0.0/../..", "foo-1.0.0.tgz"},
		{"non semver version", "foo", "latest", "foo-latest.tgz"},
		{"dot attachment", "foo", "1.0.0", "../" + settings.ConfigDir + "/" + settings.StagingConfigFile},
		{"hidden attachment", "foo", "1.0.0", ".npmrc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepository(t)
			hook := &recordingHook{}
			err := repo.Publish(ctx, publishBody(t, tt.pkg, tt.version, tt.file, []byte(`{"active":false}`)), api.Caller{Username: "mallory"}, api.Services{Hook: hook})
			var repoErr *api.RepositoryError
			require.ErrorAs(t, err, &repoErr)
			assert.Equal(t, http.StatusBadRequest, repoErr.Status)
			assert.Empty(t, hook.events)

			var stored map[string]any
			found, err := repo.Storage().GetRepositoryConfig(ctx, repo.Config(), settings.RepositoryConfigFile, &stored)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, true, stored["active"])
		})
	}
}

func TestValidPackageName(t *testing.T) {
	for _, name := range []string{"foo", "left-pad", "lodash.merge", "@scope/foo", "@my-org/x_y"} {
		assert.True(t, ValidPackageName(name), name)
	}
	for _, name := range []string{"", ".", "..", "_foo", "scope/foo", "@scope/", "@scope/.foo", "foo/"} {
		assert.False(t, ValidPackageName(name), name)
	}
}

func TestGetUnknownPackage(t *testing.T) {
	repo := newTestRepository(t)
	resp, err := repo.Handle(context.Background(), &api.Request{
		Method: http.MethodGet,
		Path:   "missing",
		Header: npmHeader("install"),
	}, api.Services{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestPutCommands(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	resp, err := repo.Handle(ctx, &api.Request{Method: http.MethodPut, Path: "foo", Header: http.Header{}}, api.Services{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Missing NPM-Command", string(resp.Body))

	resp, err = repo.Handle(ctx, &api.Request{Method: http.MethodPut, Path: "foo", Header: npmHeader("dist-tag")}, api.Services{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Bad Request dist-tag", string(resp.Body))

	_, err = repo.Handle(ctx, &api.Request{
		Method: http.MethodPut,
		Path:   "foo",
		Header: npmHeader("publish"),
		Body:   []byte(`{"name":"foo","versions":{"1.0.0":{}},"_attachments":{"foo-1.0.0.tgz":{"data":"%%%"}}}`),
	}, api.Services{})
	var badRequest *api.BadRequestError
	assert.ErrorAs(t, err, &badRequest)
}

func TestCouchLogin(t *testing.T) {
	repo := newTestRepository(t)
	svc := api.Services{Credentials: staticCredentials{"alice": "secret"}}
	ctx := context.Background()

	req := &api.Request{Method: http.MethodPut, Path: "-/user/org.couchdb.user:alice", Body: []byte(`{"name":"alice","password":"secret"}`)}
	assert.Equal(t, api.ActionLogin, repo.RequiredAction(req))
	resp, err := repo.Handle(ctx, req, svc)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"ok":"user 'alice' created"}`, string(resp.Body))

	req.Body = []byte(`{"name":"alice","password":"wrong"}`)
	resp, err = repo.Handle(ctx, req, svc)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	req.Body = []byte(`not json`)
	_, err = repo.Handle(ctx, req, svc)
	var badRequest *api.BadRequestError
	assert.ErrorAs(t, err, &badRequest)
}

func TestRequiredAction(t *testing.T) {
	repo := newTestRepository(t)
	assert.Equal(t, api.ActionRead, repo.RequiredAction(&api.Request{Method: http.MethodGet}))
	assert.Equal(t, api.ActionDeploy, repo.RequiredAction(&api.Request{Method: http.MethodPut, Path: "foo"}))
}

// gatedStorage holds the first ListFiles until released and then fails it
// when its context was cancelled.
type gatedStorage struct {
	storage.Storage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStorage) ListFiles(ctx context.Context, repository settings.RepositoryConfig, location string) ([]storage.StorageFile, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return g.Storage.ListFiles(ctx, repository, location)
}

func TestMetadataSurvivesFirstCallerCancel(t *testing.T) {
	ctx := context.Background()
	base := newTestRepository(t)
	require.NoError(t, base.Publish(ctx, publishBody(t, "foo", "1.0.0", "foo-1.0.0.tgz", []byte("x")), api.Caller{}, api.Services{}))

	gate := &gatedStorage{Storage: base.Storage(), entered: make(chan struct{}), release: make(chan struct{})}
	repo := New(base.Config(), gate)

	firstCtx, cancelFirst := context.WithCancel(ctx)
	firstErr := make(chan error, 1)
	go func() {
		_, err := repo.Metadata(firstCtx, "foo", "http://localhost")
		firstErr <- err
	}()
	<-gate.entered

	type result struct {
		metadata *PackageMetadata
		err      error
	}
	second := make(chan result, 1)
	go func() {
		m, err := repo.Metadata(ctx, "foo", "http://localhost")
		second <- result{m, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(gate.release)

	got := <-second
	require.NoError(t, got.err)
	require.NotNil(t, got.metadata)
	assert.Contains(t, got.metadata.Versions, "1.0.0")
}
