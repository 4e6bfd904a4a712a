package npm

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

const tarballSeparator = "/-/"

var nameSegmentPattern = regexp.MustCompile(`^[A-Za-z0-9~-][A-Za-z0-9._~-]*$`)

// ValidPackageName accepts name and @scope/name. Segments may not be empty or
// start with '.' or '_'.
func ValidPackageName(name string) bool {
	scope, rest, scoped := strings.Cut(name, "/")
	if !scoped {
		return nameSegmentPattern.MatchString(name)
	}
	if !strings.HasPrefix(scope, "@") {
		return false
	}
	return nameSegmentPattern.MatchString(scope[1:]) && nameSegmentPattern.MatchString(rest)
}

// ValidVersion reports whether version is a semantic version.
func ValidVersion(version string) bool {
	return !strings.HasPrefix(version, "v") && semver.IsValid("v"+version)
}

// Tarball is a parsed name/-/name-version.tgz request path.
type Tarball struct {
	Package string
	Version string
	File    string
}

// Location is where the tarball is stored: package/version/file.
func (t Tarball) Location() string {
	return t.Package + "/" + t.Version + "/" + t.File
}

// ParseTarballPath parses both plain and scoped tarball paths
// (@scope/name/-/name-1.0.0.tgz).
func ParseTarballPath(p string) (Tarball, bool) {
	p = strings.TrimPrefix(p, "/")
	idx := strings.Index(p, tarballSeparator)
	if idx <= 0 {
		return Tarball{}, false
	}
	pkg := p[:idx]
	file := p[idx+len(tarballSeparator):]
	if file == "" || strings.Contains(file, "/") || !strings.HasSuffix(file, ".tgz") {
		return Tarball{}, false
	}
	version, ok := strings.CutPrefix(strings.TrimSuffix(file, ".tgz"), path.Base(pkg)+"-")
	if !ok || version == "" {
		return Tarball{}, false
	}
	return Tarball{Package: pkg, Version: version, File: file}, true
}

// PackageName turns a metadata request path into a package name. npm sends
// scoped names with an escaped slash.
func PackageName(p string) string {
	p = strings.Trim(p, "/")
	return strings.ReplaceAll(strings.ReplaceAll(p, "%2f", "/"), "%2F", "/")
}

func tarballFileName(pkg, version string) string {
	return path.Base(pkg) + "-" + version + ".tgz"
}
