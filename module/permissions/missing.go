package permissions

import "fmt"

// MissingPermission names the capability a caller lacked.
type MissingPermission struct {
	Permission string
}

func (m *MissingPermission) Error() string {
	return fmt.Sprintf("Missing Permission `%s`", m.Permission)
}

func missing(name string) error {
	return &MissingPermission{Permission: name}
}

func (u *UserPermissions) CanEditRepositories() error {
	if u == nil || u.Disabled || (!u.Admin && !u.RepositoryManager) {
		return missing("repository_manager")
	}
	return nil
}

func (u *UserPermissions) CanEditUsers() error {
	if u == nil || u.Disabled || (!u.Admin && !u.UserManager) {
		return missing("user_manager")
	}
	return nil
}

func (u *UserPermissions) CanAdmin() error {
	if u == nil || u.Disabled || !u.Admin {
		return missing("admin")
	}
	return nil
}
