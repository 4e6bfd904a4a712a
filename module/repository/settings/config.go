// Package settings holds the persisted configuration of a repository and the
// enumerations every other package switches on.
package settings

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	cerrors "github.com/nitro-repo/nitro-repo/util/common/errors"
)

const (
	// ConfigDir is the per-repository directory holding configuration files.
	ConfigDir = ".config.nitro_repo"
	// RepositoryConfigFile is the main repository configuration file inside ConfigDir.
	RepositoryConfigFile = "repository.json"
	// PageConfigFile stores the RepositoryPage settings inside ConfigDir.
	PageConfigFile = "page.json"
	// StagingConfigFile stores the optional Maven release staging target inside ConfigDir.
	StagingConfigFile = "staging.json"
	ReadmeSourceFile = "README.md"
	ReadmeHTMLFile   = "README.html"
	// ReadmeSource is the repository-relative location of the page source.
	ReadmeSource = ConfigDir + "/" + ReadmeSourceFile
	// ReadmeHTML is the repository-relative location of the rendered page.
	ReadmeHTML = ConfigDir + "/" + ReadmeHTMLFile
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

type Visibility string

const (
	Public  Visibility = "Public"
	Private Visibility = "Private"
	Hidden  Visibility = "Hidden"
)

// ParseVisibility matches case-insensitively.
func ParseVisibility(value string) (Visibility, error) {
	v, ok := parseEnum(value, string(Public), string(Private), string(Hidden))
	if !ok {
		return "", fmt.Errorf("invalid visibility %q", value)
	}
	return Visibility(v), nil
}

func (v *Visibility) UnmarshalText(text []byte) error {
	parsed, err := ParseVisibility(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

type Policy string

const (
	Release  Policy = "Release"
	Snapshot Policy = "Snapshot"
	Mixed    Policy = "Mixed"
)

// ParsePolicy matches case-insensitively, so "release" and "Release" are equal.
func ParsePolicy(value string) (Policy, error) {
	v, ok := parseEnum(value, string(Release), string(Snapshot), string(Mixed))
	if !ok {
		return "", fmt.Errorf("invalid policy %q", value)
	}
	return Policy(v), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

type RepositoryType string

const (
	Maven   RepositoryType = "Maven"
	NPM     RepositoryType = "NPM"
	CI      RepositoryType = "CI"
	Generic RepositoryType = "Generic"
)

// RepositoryTypes lists every supported type in display order.
var RepositoryTypes = []RepositoryType{Maven, NPM, CI, Generic}

func ParseRepositoryType(value string) (RepositoryType, error) {
	options := make([]string, 0, len(RepositoryTypes))
	for _, t := range RepositoryTypes {
		options = append(options, string(t))
	}
	v, ok := parseEnum(value, options...)
	if !ok {
		return "", fmt.Errorf("unsupported repository type %q", value)
	}
	return RepositoryType(v), nil
}

func (t *RepositoryType) UnmarshalText(text []byte) error {
	parsed, err := ParseRepositoryType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t RepositoryType) String() string {
	return string(t)
}

func parseEnum(value string, options ...string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, option := range options {
		if strings.EqualFold(value, option) {
			return option, true
		}
	}
	return "", false
}

// RepositoryConfig is the content of repository.json. Storage always names the
// storage that physically holds the repository.
type RepositoryConfig struct {
	Name           string         `json:"name"`
	RepositoryType RepositoryType `json:"repository_type"`
	Storage        string         `json:"storage"`
	Visibility     Visibility     `json:"visibility"`
	Active         bool           `json:"active"`
	Policy         Policy         `json:"policy"`
	Created        int64          `json:"created"`
}

// NewRepositoryConfig returns a public, active, mixed-policy repository.
func NewRepositoryConfig(storage, name string, repositoryType RepositoryType) RepositoryConfig {
	return RepositoryConfig{
		Name:           name,
		RepositoryType: repositoryType,
		Storage:        storage,
		Visibility:     Public,
		Active:         true,
		Policy:         Mixed,
		Created:        time.Now().UnixMilli(),
	}
}

// Validate fills the zero-valued enums with their defaults and rejects
// configurations that cannot be served.
func (c *RepositoryConfig) Validate() error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if c.Storage == "" {
		return cerrors.NewValidationError("storage", fmt.Sprintf("repository %s has no storage", c.Name))
	}
	if _, err := ParseRepositoryType(string(c.RepositoryType)); err != nil {
		return cerrors.NewValidationError("repository_type", err.Error())
	}
	if c.Visibility == "" {
		c.Visibility = Public
	}
	if c.Policy == "" {
		c.Policy = Mixed
	}
	return nil
}

// ValidateName checks storage and repository names. Names become directory
// names, so path separators and dot-prefixed names are refused.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return cerrors.NewValidationError("name", fmt.Sprintf("invalid name %q", name))
	}
	return nil
}

// IsSnapshotVersion reports whether a Maven version is a snapshot.
func IsSnapshotVersion(version string) bool {
	return strings.HasSuffix(strings.ToUpper(version), "-SNAPSHOT")
}

// Accepts reports whether a repository with this policy takes the version.
func (p Policy) Accepts(version string) bool {
	switch p {
	case Release:
		return !IsSnapshotVersion(version)
	case Snapshot:
		return IsSnapshotVersion(version)
	default:
		return true
	}
}
