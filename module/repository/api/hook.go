package api

import (
	"context"

	"github.com/nitro-repo/nitro-repo/module/repository/settings"
)

// DeployEvent describes one deployed package version.
type DeployEvent struct {
	Storage        string                  `json:"storage"`
	Repository     string                  `json:"repository"`
	RepositoryType settings.RepositoryType `json:"repository_type"`
	Project        string                  `json:"project"`
	Version        string                  `json:"version"`
	// VersionFolder is the repository relative folder holding the version files.
	VersionFolder string `json:"version_folder"`
	Deployer      string `json:"deployer,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// DeployHook is notified after a deploy succeeded. It must not block the request.
type DeployHook interface {
	PostDeploy(ctx context.Context, event DeployEvent)
}

// DeployHookFunc adapts a function to DeployHook.
type DeployHookFunc func(ctx context.Context, event DeployEvent)

func (f DeployHookFunc) PostDeploy(ctx context.Context, event DeployEvent) {
	f(ctx, event)
}

// Hooks fans an event out to several hooks.
type Hooks []DeployHook

func (h Hooks) PostDeploy(ctx context.Context, event DeployEvent) {
	for _, hook := range h {
		if hook != nil {
			hook.PostDeploy(ctx, event)
		}
	}
}

// Services are the collaborators the protocol variants need.
type Services struct {
	Credentials CredentialVerifier
	Hook        DeployHook
	// GitBinary runs Maven release staging. Empty means "git" from PATH.
	GitBinary string
	// Tasks tracks release staging started by deploys.
	Tasks *Tasks
}

func (s Services) PostDeploy(ctx context.Context, event DeployEvent) {
	if s.Hook != nil {
		s.Hook.PostDeploy(ctx, event)
	}
}
