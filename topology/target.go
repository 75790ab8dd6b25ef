package topology

import (
	"fmt"
	"strings"
)

// Separator joins the components of a target in its string form. Topology names
// never contain it.
const Separator = "."

// Target identifies one shard's connection pool.
type Target struct {
	Env      string `json:"env"`
	Category string `json:"category"`
	Zone     string `json:"zone"`
	Shard    string `json:"shardName"`
}

// Normalize returns a copy of t with every component trimmed and lowercased.
func (t Target) Normalize() Target {
	return Target{
		Env:      normalize(t.Env),
		Category: normalize(t.Category),
		Zone:     normalize(t.Zone),
		Shard:    normalize(t.Shard),
	}
}

// String renders the target as env.category.zone.shard.
func (t Target) String() string {
	return strings.Join([]string{t.Env, t.Category, t.Zone, t.Shard}, Separator)
}

// ParseTarget parses the env.category.zone.shard form produced by String.
func ParseTarget(s string) (Target, error) {
	parts := strings.Split(s, Separator)
	if len(parts) != 4 {
		return Target{}, fmt.Errorf("invalid target %q: want env.category.zone.shard", s)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Target{}, fmt.Errorf("invalid target %q: empty component", s)
		}
	}
	return Target{Env: parts[0], Category: parts[1], Zone: parts[2], Shard: parts[3]}.Normalize(), nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
