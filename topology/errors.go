package topology

import (
	"errors"
	"strings"
)

// ErrConfigNotFound is returned when a target path, or one of its prefixes,
// is absent from the topology.
var ErrConfigNotFound = errors.New("configuration not found")

// ConfigNotFoundError reports the deepest path that could not be resolved.
// Components that were not part of the lookup are left empty.
type ConfigNotFoundError struct {
	Env      string
	Category string
	Zone     string
	Shard    string
}

func (e *ConfigNotFoundError) Error() string {
	path := make([]string, 0, 4)
	for _, p := range []string{e.Env, e.Category, e.Zone, e.Shard} {
		if p == "" {
			break
		}
		path = append(path, p)
	}
	return "topology: no configuration for [" + strings.Join(path, ".") + "]: " + ErrConfigNotFound.Error()
}

func (e *ConfigNotFoundError) Unwrap() error {
	return ErrConfigNotFound
}
