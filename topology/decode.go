package topology

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts "databases" as an alias of "database", the key used by
// older topology files.
func (s *Shard) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		Database  string `yaml:"database"`
		Databases string `yaml:"databases"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*s = Shard{
		Host:     raw.Host,
		Port:     raw.Port,
		Username: raw.Username,
		Password: raw.Password,
		Database: raw.Database,
	}
	if s.Database == "" {
		s.Database = raw.Databases
	}
	return nil
}

// Decode parses a YAML document shaped like Map and builds a Topology from it.
func Decode(data []byte) (*Topology, error) {
	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("topology: decode yaml: %w", err)
	}
	return New(m)
}
