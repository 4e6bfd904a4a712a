package registry

import (
	"fmt"
	"strings"
)

// PurgeLevel is how much physical data DeleteStorage removes.
type PurgeLevel string

const (
	// PurgeAll deletes every repository with its artifacts.
	PurgeAll PurgeLevel = "All"
	// PurgeConfigs deletes repository configuration files and keeps artifacts.
	PurgeConfigs PurgeLevel = "Configs"
	// PurgeRemoveFromList only drops the storage from the registry file.
	PurgeRemoveFromList PurgeLevel = "RemoveFromList"
)

func ParsePurgeLevel(value string) (PurgeLevel, error) {
	for _, level := range []PurgeLevel{PurgeAll, PurgeConfigs, PurgeRemoveFromList} {
		if strings.EqualFold(strings.TrimSpace(value), string(level)) {
			return level, nil
		}
	}
	return "", fmt.Errorf("invalid purge level %q", value)
}

func (p *PurgeLevel) UnmarshalText(text []byte) error {
	level, err := ParsePurgeLevel(string(text))
	if err != nil {
		return err
	}
	*p = level
	return nil
}

// deletesRepositories reports whether repositories are visited on delete and
// whether their data goes with them.
func (p PurgeLevel) deletesRepositories() (visit bool, purge bool) {
	switch p {
	case PurgeAll:
		return true, true
	case PurgeConfigs:
		return true, false
	default:
		return false, false
	}
}
