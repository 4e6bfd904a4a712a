package npm

import "encoding/json"

// PackageMetadata is the document served for GET <package>.
// nolint:tagliatelle
type PackageMetadata struct {
	ID          string                             `json:"_id"`
	Name        string                             `json:"name"`
	Description string                             `json:"description,omitempty"`
	DistTags    map[string]string                  `json:"dist-tags"`
	Versions    map[string]*PackageMetadataVersion `json:"versions"`
	Time        map[string]string                  `json:"time,omitempty"`
}

// PackageMetadataVersion is the stored package.json of one version.
// https://github.com/npm/registry/blob/master/docs/REGISTRY-API.md#version
// nolint:tagliatelle
type PackageMetadataVersion struct {
	ID                   string              `json:"_id,omitempty"`
	Name                 string              `json:"name"`
	Version              string              `json:"version"`
	Description          any                 `json:"description,omitempty"`
	Author               any                 `json:"author,omitempty"`
	Homepage             any                 `json:"homepage,omitempty"`
	License              any                 `json:"license,omitempty"`
	Repository           any                 `json:"repository,omitempty"`
	Keywords             any                 `json:"keywords,omitempty"`
	Main                 string              `json:"main,omitempty"`
	Dependencies         map[string]string   `json:"dependencies,omitempty"`
	DevDependencies      any                 `json:"devDependencies,omitempty"`
	PeerDependencies     any                 `json:"peerDependencies,omitempty"`
	OptionalDependencies any                 `json:"optionalDependencies,omitempty"`
	BundleDependencies   any                 `json:"bundleDependencies,omitempty"`
	Bin                  any                 `json:"bin,omitempty"`
	Readme               string              `json:"readme,omitempty"`
	Dist                 PackageDistribution `json:"dist"`
	Maintainers          any                 `json:"maintainers,omitempty"`
}

// nolint:tagliatelle
type PackageDistribution struct {
	Integrity    string `json:"integrity,omitempty"`
	Shasum       string `json:"shasum,omitempty"`
	Tarball      string `json:"tarball"`
	FileCount    int    `json:"fileCount,omitempty"`
	UnpackedSize int    `json:"unpackedSize,omitempty"`
}

type PackageAttachment struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
	Length      int    `json:"length"`
}

// PublishRequest is the body of `npm publish`. Versions stay raw so the stored
// package.json keeps every field the client sent.
// nolint:tagliatelle
type PublishRequest struct {
	Name        string                        `json:"name"`
	DistTags    map[string]string             `json:"dist-tags,omitempty"`
	Versions    map[string]json.RawMessage    `json:"versions"`
	Attachments map[string]*PackageAttachment `json:"_attachments"`
}

// LoginRequest is the body of PUT -/user/org.couchdb.user:<name>.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type LoginResponse struct {
	OK string `json:"ok"`
}
