package maven

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPom = `<?xml version="1.0" encoding="UTF-8"?>
<project>
  <parent><groupId>com.example</groupId><version>1.0</version></parent>
  <artifactId>lib</artifactId>
</project>`

type recordingHook struct {
	mu     sync.Mutex
	events []api.DeployEvent
}

func (h *recordingHook) PostDeploy(_ context.Context, event api.DeployEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func newTestRepository(t *testing.T, policy settings.Policy) *Repository {
	t.Helper()
	ctx := context.Background()
	saver, err := storage.NewLocalSaver("local", filepath.Join(t.TempDir(), "local"), 1)
	require.NoError(t, err)
	s, err := storage.Create(ctx, saver)
	require.NoError(t, err)
	cfg := settings.NewRepositoryConfig("local", "releases", settings.Maven)
	cfg.Policy = policy
	require.NoError(t, s.CreateRepository(ctx, cfg))
	repo, err := Load(ctx, cfg, s)
	require.NoError(t, err)
	return repo
}

func TestParsePath(t *testing.T) {
	c, ok := ParsePath("com/example/lib/1.0/lib-1.0.jar")
	require.True(t, ok)
	assert.Equal(t, Coordinates{GroupID: "com.example", ArtifactID: "lib", Version: "1.0", File: "lib-1.0.jar"}, c)
	assert.Equal(t, "com/example/lib/1.0", c.VersionFolder())

	_, ok = ParsePath("com/example/lib/maven-metadata.xml")
	assert.False(t, ok)
	_, ok = ParsePath("lib/1.0/lib.jar")
	assert.False(t, ok)
}

func TestParsePomUsesParent(t *testing.T) {
	pom, err := ParsePom([]byte(testPom))
	require.NoError(t, err)
	assert.Equal(t, "com.example:lib", pom.Project())
	assert.Equal(t, "1.0", pom.Version)
}

func TestDeployPolicy(t *testing.T) {
	tests := []struct {
		policy  settings.Policy
		version string
		ok      bool
	}{
		{settings.Release, "1.0", true},
		{settings.Release, "1.0-SNAPSHOT", false},
		{settings.Snapshot, "1.0-SNAPSHOT", true},
		{settings.Snapshot, "1.0", false},
		{settings.Mixed, "1.0-SNAPSHOT", true},
		{settings.Mixed, "1.0", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy)+" "+tt.version, func(t *testing.T) {
			repo := newTestRepository(t, tt.policy)
			resp, err := repo.Handle(context.Background(), &api.Request{
				Method: http.MethodPut,
				Path:   "com/example/lib/" + tt.version + "/lib-" + tt.version + ".jar",
				Body:   []byte("jar"),
			}, api.Services{})
			if !tt.ok {
				var repoErr *api.RepositoryError
				require.ErrorAs(t, err, &repoErr)
				assert.Equal(t, http.StatusBadRequest, repoErr.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, resp.Status)
		})
	}
}

func TestDeployPomFiresHook(t *testing.T) {
	repo := newTestRepository(t, settings.Mixed)
	hook := &recordingHook{}
	ctx := context.Background()

	resp, err := repo.Handle(ctx, &api.Request{
		Method: http.MethodPut,
		Path:   "com/example/lib/1.0/lib-1.0.pom",
		Body:   []byte(testPom),
		Caller: api.Caller{UserID: 2, Username: "bob"},
	}, api.Services{Hook: hook})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	require.Len(t, hook.events, 1)
	assert.Equal(t, "com.example:lib", hook.events[0].Project)
	assert.Equal(t, "1.0", hook.events[0].Version)
	assert.Equal(t, "com/example/lib/1.0", hook.events[0].VersionFolder)

	// Metadata files skip the policy and do not fire the hook.
	_, err = repo.Handle(ctx, &api.Request{Method: http.MethodPut, Path: "com/example/lib/maven-metadata.xml", Body: []byte("<metadata/>")}, api.Services{Hook: hook})
	require.NoError(t, err)
	assert.Len(t, hook.events, 1)

	resp, err = repo.Handle(ctx, &api.Request{Method: http.MethodGet, Path: "com/example/lib/1.0/lib-1.0.pom"}, api.Services{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, storage.FileResponseFile, resp.File.Kind)
}

func TestCopyVersionForStaging(t *testing.T) {
	repo := newTestRepository(t, settings.Mixed)
	ctx := context.Background()
	for location, body := range map[string]string{
		"com/example/lib/1.0/lib-1.0.pom":    testPom,
		"com/example/lib/1.0/lib-1.0.jar":    "jar",
		"com/example/lib/maven-metadata.xml": "<metadata/>",
	} {
		require.NoError(t, repo.Storage().SaveFile(ctx, repo.Config(), []byte(body), location))
	}

	dir := t.TempDir()
	target, err := CopyVersion(repo.Storage(), repo.Config(), "com/example/lib/1.0", filepath.Join(dir, "maven"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "lib-1.0.jar"))
	assert.FileExists(t, filepath.Join(dir, "maven", "com", "example", "lib", "maven-metadata.xml"))
	assert.Equal(t, "lib 1.0 - Nitro Repo", CommitMessage(target))

	empty := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(empty, "readme.txt"), []byte("x"), 0o644))
	assert.Equal(t, defaultCommitMessage, CommitMessage(empty))
}

func TestLoadReadsSettings(t *testing.T) {
	repo := newTestRepository(t, settings.Mixed)
	ctx := context.Background()
	assert.Equal(t, settings.PageNone, repo.Page().PageType)
	assert.Nil(t, repo.Staging())

	require.NoError(t, repo.Storage().SaveRepositoryConfig(ctx, repo.Config(), settings.PageConfigFile, settings.RepositoryPage{PageType: settings.PageMarkdown}))
	require.NoError(t, repo.Storage().SaveRepositoryConfig(ctx, repo.Config(), settings.StagingConfigFile, settings.StagingConfig{URL: "https://git.example.com/m.git", Branch: "main"}))
	reloaded, err := Load(ctx, repo.Config(), repo.Storage())
	require.NoError(t, err)
	assert.Equal(t, settings.PageMarkdown, reloaded.Page().PageType)
	assert.True(t, reloaded.Staging().Enabled())
}

func TestDeployStagingIsTracked(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as git binary")
	}
	ctx := context.Background()
	repo := newTestRepository(t, settings.Mixed)
	require.NoError(t, repo.Storage().SaveRepositoryConfig(ctx, repo.Config(), settings.StagingConfigFile,
		settings.StagingConfig{URL: "https://git.example.com/m.git", Branch: "main"}))
	repo, err := Load(ctx, repo.Config(), repo.Storage())
	require.NoError(t, err)

	dir := t.TempDir()
	marker := filepath.Join(dir, "calls")
	git := filepath.Join(dir, "git")
	script := "#!/bin/sh\nsleep 0.2\necho \"$@\" >> '" + marker + "'\nexit 1\n"
	require.NoError(t, os.WriteFile(git, []byte(script), 0o755))

	tasks := &api.Tasks{}
	reqCtx, cancel := context.WithCancel(ctx)
	resp, err := repo.Handle(reqCtx, &api.Request{
		Method: http.MethodPut,
		Path:   "com/example/lib/1.0/lib-1.0.pom",
		Body:   []byte(testPom),
	}, api.Services{GitBinary: git, Tasks: tasks})
	cancel()
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)

	waitCtx, stop := context.WithTimeout(ctx, 10*time.Second)
	defer stop()
	require.NoError(t, tasks.Wait(waitCtx))

	calls, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(calls), "clone"), string(calls))
}
