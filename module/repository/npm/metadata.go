package npm

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/rs/zerolog/log"
	"golang.org/x/mod/semver"
)

const packageJSON = "package.json"

// Metadata builds the registry document of pkg from the stored per-version
// package.json files. It returns nil when the package has no versions.
// Concurrent requests for the same package share one generation, which is not
// cancelled when the caller that started it goes away.
func (r *Repository) Metadata(ctx context.Context, pkg, baseURL string) (*PackageMetadata, error) {
	key := r.config.Storage + "/" + r.config.Name + "/" + pkg + "@" + baseURL
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.generateMetadata(shared, pkg, baseURL)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*PackageMetadata), nil
	}
}

func (r *Repository) generateMetadata(ctx context.Context, pkg, baseURL string) (*PackageMetadata, error) {
	entries, err := r.storage.ListFiles(ctx, r.config, pkg)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, nil
		}
		return nil, err
	}

	metadata := &PackageMetadata{
		ID:       pkg,
		Name:     pkg,
		DistTags: map[string]string{},
		Versions: map[string]*PackageMetadataVersion{},
		Time:     map[string]string{},
	}
	var created, modified int64
	var versions []string
	for _, entry := range entries {
		if !entry.Directory {
			continue
		}
		data, err := r.storage.GetFile(ctx, r.config, pkg+"/"+entry.Name+"/"+packageJSON)
		if err != nil {
			if errors.Is(err, storage.ErrFileNotFound) {
				continue
			}
			return nil, err
		}
		var version PackageMetadataVersion
		if err := json.Unmarshal(data, &version); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("package", pkg).Str("version", entry.Name).Msg("Skipping unreadable package.json")
			continue
		}
		if version.Version == "" {
			version.Version = entry.Name
		}
		if version.Name == "" {
			version.Name = pkg
		}
		version.ID = version.Name + "@" + version.Version
		version.Dist.Tarball = strings.TrimSuffix(baseURL, "/") + "/" + pkg + tarballSeparator + tarballFileName(pkg, version.Version)
		if metadata.Description == "" {
			if d, ok := version.Description.(string); ok {
				metadata.Description = d
			}
		}
		metadata.Versions[version.Version] = &version
		metadata.Time[version.Version] = formatTime(entry.Modified)
		versions = append(versions, version.Version)
		if created == 0 || entry.Created < created {
			created = entry.Created
		}
		if entry.Modified > modified {
			modified = entry.Modified
		}
	}
	if len(versions) == 0 {
		return nil, nil
	}
	metadata.Time["created"] = formatTime(created)
	metadata.Time["modified"] = formatTime(modified)
	metadata.DistTags["latest"] = LatestVersion(versions)
	return metadata, nil
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// LatestVersion picks the highest stable semver version. Prereleases are used
// only when nothing else exists, and non-semver versions only as a last resort.
func LatestVersion(versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	var stable, pre []string
	for _, v := range versions {
		sv := "v" + strings.TrimPrefix(v, "v")
		if !semver.IsValid(sv) {
			continue
		}
		if semver.Prerelease(sv) == "" {
			stable = append(stable, v)
		} else {
			pre = append(pre, v)
		}
	}
	pick := func(candidates []string) string {
		sort.Slice(candidates, func(i, j int) bool {
			return semver.Compare("v"+strings.TrimPrefix(candidates[i], "v"), "v"+strings.TrimPrefix(candidates[j], "v")) > 0
		})
		return candidates[0]
	}
	if len(stable) > 0 {
		return pick(stable)
	}
	if len(pre) > 0 {
		return pick(pre)
	}
	sorted := append([]string(nil), versions...)
	sort.Strings(sorted)
	return sorted[len(sorted)-1]
}
