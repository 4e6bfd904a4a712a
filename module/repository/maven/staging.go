package maven

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nitro-repo/nitro-repo/module/repository/api"
	"github.com/nitro-repo/nitro-repo/module/repository/settings"
	"github.com/nitro-repo/nitro-repo/module/storage"
	"github.com/nitro-repo/nitro-repo/util/common/fileutil"
	"github.com/nitro-repo/nitro-repo/util/common/vcs"

	"github.com/rs/zerolog/log"
)

const defaultCommitMessage = "Released"

// StagingJob copies one deployed version into a git repository and pushes it.
type StagingJob struct {
	GitBinary     string
	Storage       storage.Storage
	Repository    settings.RepositoryConfig
	Staging       settings.StagingConfig
	VersionFolder string
	Caller        api.Caller
}

// Stage clones the staging remote, copies the version folder (and the
// artifact's maven-metadata.xml) below the configured directory, then
// commits and pushes.
func Stage(ctx context.Context, job StagingJob) error {
	logger := log.Ctx(ctx).With().
		Str("repository", job.Repository.Name).
		Str("version_folder", job.VersionFolder).
		Logger()

	workspace, err := os.MkdirTemp("", "nitro-staging-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workspace)

	remote, err := vcs.WithCredentials(job.Staging.URL, job.Staging.Username, job.Staging.Password)
	if err != nil {
		return err
	}
	logger.Trace().Str("remote", vcs.RedactURL(remote)).Str("workspace", workspace).Msg("Cloning staging remote")
	repo, err := vcs.Clone(ctx, job.GitBinary, remote, job.Staging.Branch, filepath.Join(workspace, "clone"))
	if err != nil {
		return err
	}
	if branch, err := repo.GetCurrentBranch(); err == nil {
		logger.Debug().Str("branch", branch).Msg("Cloned staging remote")
	}

	target, err := CopyVersion(job.Storage, job.Repository, job.VersionFolder, filepath.Join(repo.Path(), job.Staging.Directory))
	if err != nil {
		return err
	}
	if err := repo.AddAll(ctx); err != nil {
		return err
	}
	if err := repo.Commit(ctx, author(job.Caller), CommitMessage(target)); err != nil {
		return err
	}
	if err := repo.Push(ctx, job.Staging.Branch); err != nil {
		return err
	}
	logger.Info().Msg("Staged release to git")
	return nil
}

// CopyVersion copies versionFolder of the repository below dir and returns the
// copied folder.
func CopyVersion(s storage.Storage, repository settings.RepositoryConfig, versionFolder, dir string) (string, error) {
	root, err := s.RepositoryFolder(repository.Name)
	if err != nil {
		return "", err
	}
	src, err := fileutil.SafeJoin(root, versionFolder)
	if err != nil {
		return "", err
	}
	dst, err := fileutil.SafeJoin(dir, versionFolder)
	if err != nil {
		return "", err
	}
	if err := fileutil.CopyDir(src, dst); err != nil {
		return "", err
	}
	metadata := filepath.Join(filepath.Dir(src), "maven-metadata.xml")
	if fileutil.IsFile(metadata) {
		if err := fileutil.CopyFile(metadata, filepath.Join(filepath.Dir(dst), "maven-metadata.xml")); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// CommitMessage names the release after the first pom found in dir.
func CommitMessage(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return defaultCommitMessage
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pom") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		pom, err := ParsePom(data)
		if err != nil {
			log.Error().Err(err).Str("file", entry.Name()).Msg("Failed to parse pom")
			continue
		}
		return fmt.Sprintf("%s %s - Nitro Repo", pom.ArtifactID, pom.Version)
	}
	return defaultCommitMessage
}

func author(caller api.Caller) string {
	if caller.Username == "" {
		return ""
	}
	email := caller.Email
	if email == "" {
		email = caller.Username + "@nitro-repo.local"
	}
	return fmt.Sprintf("%s <%s>", caller.Username, email)
}
