package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("NITRO_DATA", "/var/lib/nitro")
	path := writeConfig(t, "nitro.yaml", `
listen: "127.0.0.1:8080"
data_dir: ${NITRO_DATA}
session:
  lifetime: 12h
webhook:
  url: https://hooks.example.com/deploy
  retries: 5
loading:
  concurrency: 2
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "/var/lib/nitro", cfg.DataDir)
	assert.Equal(t, 12*time.Hour, cfg.Session.Lifetime.Duration)
	assert.Equal(t, time.Hour, cfg.Session.CleanupInterval.Duration)
	assert.Equal(t, 5, cfg.Webhook.Retries)
	assert.Equal(t, 2, cfg.Loading.Concurrency)
	assert.Equal(t, "git", cfg.Staging.GitBinary)
	assert.Equal(t, filepath.Join("/var/lib/nitro", "storages.json"), cfg.RegistryFile())
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "nitro.toml", `
listen = ":9000"
data_dir = "/srv/nitro"

[session]
lifetime = "30m"
cleanup_interval = "5m"

[staging]
git_binary = "/usr/bin/git"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 30*time.Minute, cfg.Session.Lifetime.Duration)
	assert.Equal(t, 5*time.Minute, cfg.Session.CleanupInterval.Duration)
	assert.Equal(t, "/usr/bin/git", cfg.Staging.GitBinary)
	assert.Equal(t, filepath.Join("/srv/nitro", "nitro.db"), cfg.DatabaseFile())
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad duration", "a.yaml", "session:\n  lifetime: forever\n"},
		{"zero lifetime", "b.yaml", "session:\n  lifetime: 0s\n"},
		{"bad webhook", "c.yaml", "webhook:\n  url: ftp://example.com\n"},
		{"negative concurrency", "d.toml", "[loading]\nconcurrency = -1\n"},
		{"unknown extension", "e.json", "{}"},
		{"broken yaml", "f.yaml", "listen: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
