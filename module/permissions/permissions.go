// Package permissions decides whether a user may read from or deploy to a
// repository.
//
// A permission string has the form storagePattern/repositoryPattern. The
// storage pattern is "*" or a storage name. The repository pattern is "*", a
// repository name or a JSON filter such as {"policy":"Release","type":"Maven"}.
// Patterns are evaluated in order and the first match wins.
package permissions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nitro-repo/nitro-repo/module/repository/settings"
)

var (
	ErrStorageClassifier    = errors.New("unable to parse storage classifier")
	ErrRepositoryClassifier = errors.New("unable to parse repository classifier")
)

// PermissionError reports a malformed permission string. It is never treated
// as a deny.
type PermissionError struct {
	Pattern string
	Err     error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("invalid permission %q: %v", e.Pattern, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// RepositoryPermission is a list of permission strings. An empty list allows
// every repository; a nil *RepositoryPermission allows none.
type RepositoryPermission struct {
	Permissions []string `json:"permissions"`
}

// UserPermissions is stored with every user.
type UserPermissions struct {
	Disabled          bool                  `json:"disabled"`
	Admin             bool                  `json:"admin"`
	UserManager       bool                  `json:"user_manager"`
	RepositoryManager bool                  `json:"repository_manager"`
	Deployer          *RepositoryPermission `json:"deployer,omitempty"`
	Viewer            *RepositoryPermission `json:"viewer,omitempty"`
}

type repositoryFilter struct {
	Policy *string `json:"policy"`
	Type   *string `json:"type"`
}

// Can reports whether any pattern of p matches the repository.
func (p *RepositoryPermission) Can(repo settings.RepositoryConfig) (bool, error) {
	if p == nil {
		return false, nil
	}
	if len(p.Permissions) == 0 {
		return true, nil
	}
	for _, pattern := range p.Permissions {
		parts := strings.SplitN(pattern, "/", 2)
		storagePattern := parts[0]
		if storagePattern != "*" && !strings.EqualFold(storagePattern, repo.Storage) {
			continue
		}
		if len(parts) < 2 {
			return false, &PermissionError{Pattern: pattern, Err: ErrRepositoryClassifier}
		}
		repositoryPattern := parts[1]
		if repositoryPattern == "*" || repositoryPattern == repo.Name {
			return true, nil
		}
		if !strings.HasPrefix(repositoryPattern, "{") || !strings.HasSuffix(repositoryPattern, "}") {
			continue
		}
		matched, err := matchFilter(repositoryPattern, repo)
		if err != nil {
			return false, &PermissionError{Pattern: pattern, Err: err}
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func matchFilter(raw string, repo settings.RepositoryConfig) (bool, error) {
	var filter repositoryFilter
	if err := json.Unmarshal([]byte(raw), &filter); err != nil {
		return false, err
	}
	if filter.Policy != nil {
		policy, err := settings.ParsePolicy(*filter.Policy)
		if err != nil {
			return false, err
		}
		if policy != repo.Policy {
			return false, nil
		}
	}
	if filter.Type != nil && !strings.EqualFold(*filter.Type, string(repo.RepositoryType)) {
		return false, nil
	}
	return true, nil
}

// CanDeploy reports whether the user may write to the repository.
func (u *UserPermissions) CanDeploy(repo settings.RepositoryConfig) (bool, error) {
	if u == nil || u.Disabled {
		return false, nil
	}
	if u.Admin {
		return true, nil
	}
	return u.Deployer.Can(repo)
}

// CanRead reports whether the user may read from the repository. A nil user is
// anonymous and may read public and hidden repositories.
func (u *UserPermissions) CanRead(repo settings.RepositoryConfig) (bool, error) {
	if u != nil && u.Disabled {
		return false, nil
	}
	if u != nil && u.Admin {
		return true, nil
	}
	switch repo.Visibility {
	case settings.Public, settings.Hidden:
		return true, nil
	case settings.Private:
		if u == nil {
			return false, nil
		}
		ok, err := u.Viewer.Can(repo)
		if err != nil || ok {
			return ok, err
		}
		return u.CanDeploy(repo)
	}
	return false, fmt.Errorf("unknown visibility %q", repo.Visibility)
}
