package vcs

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/nitro-repo/nitro-repo/util/common/errors"
	"github.com/nitro-repo/nitro-repo/util/common/fileutil"

	"gopkg.in/ini.v1"
)

// DefaultGitBinary is used when no binary is configured.
const DefaultGitBinary = "git"

// validateGitPath checks that path is a directory holding a .git directory.
func validateGitPath(path string) error {
	if path == "" {
		return errors.NewValidationError("path", "path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.NewFileError(path, "access", err)
	}
	if !info.IsDir() {
		return errors.NewValidationError("path", "path is not a directory")
	}

	if !IsGitRepository(path) {
		return errors.NewVCSError("validate", path, errors.ErrInvalidOperation)
	}
	return nil
}

// IsGitRepository checks if the given path is a Git repository
func IsGitRepository(path string) bool {
	return fileutil.IsDir(filepath.Join(path, ".git"))
}

// GitRepository is a working tree driven through the git binary.
type GitRepository struct {
	path   string
	binary string
}

// Clone clones url at branch into dir, which must not exist or be empty.
func Clone(ctx context.Context, binary, remote, branch, dir string) (*GitRepository, error) {
	if binary == "" {
		binary = DefaultGitBinary
	}
	if remote == "" {
		return nil, errors.NewValidationError("url", "remote url cannot be empty")
	}
	args := []string{"clone", "--depth", "1"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, remote, dir)
	if _, err := run(ctx, binary, "", "clone", args...); err != nil {
		return nil, err
	}
	return OpenGitRepository(binary, dir)
}

// OpenGitRepository validates path and returns the repository in it.
func OpenGitRepository(binary, path string) (*GitRepository, error) {
	if err := validateGitPath(path); err != nil {
		return nil, err
	}
	if binary == "" {
		binary = DefaultGitBinary
	}
	return &GitRepository{path: path, binary: binary}, nil
}

func (g *GitRepository) Path() string {
	return g.path
}

// AddAll stages every change in the working tree.
func (g *GitRepository) AddAll(ctx context.Context) error {
	_, err := run(ctx, g.binary, g.path, "add", "add", "--all")
	return err
}

// Commit records the staged changes. author is "Name <email>".
func (g *GitRepository) Commit(ctx context.Context, author, message string) error {
	args := []string{"commit", "--message", message}
	if author != "" {
		args = append(args, "--author", author)
	}
	_, err := run(ctx, g.binary, g.path, "commit", args...)
	return err
}

// Push pushes branch to origin.
func (g *GitRepository) Push(ctx context.Context, branch string) error {
	ref := "HEAD"
	if branch != "" {
		ref = "HEAD:refs/heads/" + branch
	}
	_, err := run(ctx, g.binary, g.path, "push", "push", "origin", ref)
	return err
}

// GetCurrentBranch returns the current branch name, or "" for a detached HEAD.
func (g *GitRepository) GetCurrentBranch() (string, error) {
	if g == nil || g.path == "" {
		return "", errors.NewVCSError("validate", "<nil>", errors.ErrInvalidOperation)
	}

	headBytes, err := fileutil.ReadFile(filepath.Join(g.path, ".git", "HEAD"))
	if err != nil {
		return "", errors.NewVCSError("read_head", g.path, err)
	}
	head := strings.TrimSpace(string(headBytes))
	if head == "" {
		return "", errors.NewVCSError("validate_head", g.path, errors.ErrInvalidOperation)
	}

	if strings.HasPrefix(head, "ref: refs/heads/") {
		branch := strings.TrimPrefix(head, "ref: refs/heads/")
		if branch == "" {
			return "", errors.NewVCSError("validate_branch", g.path, errors.ErrInvalidOperation)
		}
		return branch, nil
	}
	return "", nil
}

// GetRemoteURL returns the url of the 'origin' remote from .git/config.
func (g *GitRepository) GetRemoteURL() (string, error) {
	if g == nil || g.path == "" {
		return "", errors.NewVCSError("validate", "<nil>", errors.ErrInvalidOperation)
	}

	configPath := filepath.Join(g.path, ".git", "config")
	if !fileutil.IsFile(configPath) {
		return "", errors.NewVCSError("read_config", g.path, errors.ErrNotFound)
	}

	cfg, err := ini.Load(configPath)
	if err != nil {
		return "", errors.NewVCSError("read_config", g.path, err)
	}
	if !cfg.HasSection(`remote "origin"`) {
		return "", errors.NewVCSError("validate_remote", g.path, errors.ErrNotFound)
	}
	return cfg.Section(`remote "origin"`).Key("url").String(), nil
}

// WithCredentials embeds a username and password into an http(s) remote url.
func WithCredentials(remote, username, password string) (string, error) {
	if username == "" {
		return remote, nil
	}
	u, err := url.Parse(remote)
	// scp style remotes such as git@host:repo.git do not parse and carry no password.
	if err != nil {
		return remote, nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return remote, nil
	}
	u.User = url.UserPassword(username, password)
	return u.String(), nil
}

// RedactURL hides the password of a remote url for logging.
func RedactURL(remote string) string {
	u, err := url.Parse(remote)
	if err != nil {
		return remote
	}
	return u.Redacted()
}

func run(ctx context.Context, binary, dir, op string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		path := dir
		if path == "" {
			path = "."
		}
		return out.String(), &errors.VCSError{Op: op, Path: path, Output: redactOutput(out.String()), Wrapped: err}
	}
	return out.String(), nil
}

func redactOutput(output string) string {
	fields := strings.Fields(output)
	for i, f := range fields {
		if strings.Contains(f, "://") {
			fields[i] = RedactURL(strings.Trim(f, "'\""))
		}
	}
	return strings.Join(fields, " ")
}
