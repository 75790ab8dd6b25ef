package topology

import (
	"fmt"
	"sort"
	"strings"
)

// Topology is the immutable, lowercase-keyed shard layout.
// It is safe for concurrent use because nothing mutates it after New returns.
type Topology struct {
	envs Map
}

// New copies m into a Topology, folding every key to lowercase.
// It fails when a key is empty or when two keys at the same level differ only in case.
func New(m Map) (*Topology, error) {
	envs := make(Map, len(m))
	for envName, categories := range m {
		env := normalize(envName)
		if err := checkKey(envs, env, envName, "environment"); err != nil {
			return nil, err
		}
		envs[env] = make(map[string]map[string]map[string]Shard, len(categories))

		for catName, zones := range categories {
			cat := normalize(catName)
			if err := checkKey(envs[env], cat, catName, "category"); err != nil {
				return nil, err
			}
			envs[env][cat] = make(map[string]map[string]Shard, len(zones))

			for zoneName, shards := range zones {
				zone := normalize(zoneName)
				if err := checkKey(envs[env][cat], zone, zoneName, "zone"); err != nil {
					return nil, err
				}
				envs[env][cat][zone] = make(map[string]Shard, len(shards))

				for shardName, shard := range shards {
					name := normalize(shardName)
					if err := checkKey(envs[env][cat][zone], name, shardName, "shard"); err != nil {
						return nil, err
					}
					envs[env][cat][zone][name] = shard
				}
			}
		}
	}
	return &Topology{envs: envs}, nil
}

func checkKey[V any](level map[string]V, key, raw, kind string) error {
	if key == "" {
		return fmt.Errorf("topology: empty %s name", kind)
	}
	if strings.Contains(key, Separator) {
		return fmt.Errorf("topology: %s name %q must not contain %q", kind, raw, Separator)
	}
	if _, exists := level[key]; exists {
		return fmt.Errorf("topology: duplicate %s name %q (names are case-insensitive)", kind, raw)
	}
	return nil
}

// Resolve returns the connection parameters for t.
func (t *Topology) Resolve(target Target) (Shard, error) {
	target = target.Normalize()
	zones, err := t.category(target.Env, target.Category)
	if err != nil {
		return Shard{}, err
	}
	shards, ok := zones[target.Zone]
	if !ok {
		return Shard{}, &ConfigNotFoundError{Env: target.Env, Category: target.Category, Zone: target.Zone}
	}
	shard, ok := shards[target.Shard]
	if !ok {
		return Shard{}, &ConfigNotFoundError{Env: target.Env, Category: target.Category, Zone: target.Zone, Shard: target.Shard}
	}
	return shard, nil
}

// Targets lists every shard under env/category, or only under zone when zone is non-empty.
// The result is sorted by zone, then shard.
func (t *Topology) Targets(env, category, zone string) ([]Target, error) {
	env, category, zone = normalize(env), normalize(category), normalize(zone)
	zones, err := t.category(env, category)
	if err != nil {
		return nil, err
	}

	if zone != "" {
		if _, ok := zones[zone]; !ok {
			return nil, &ConfigNotFoundError{Env: env, Category: category, Zone: zone}
		}
	}

	var targets []Target
	for zoneName, shards := range zones {
		if zone != "" && zoneName != zone {
			continue
		}
		for shardName := range shards {
			targets = append(targets, Target{Env: env, Category: category, Zone: zoneName, Shard: shardName})
		}
	}
	SortTargets(targets)
	return targets, nil
}

// All lists every shard in the topology, sorted.
func (t *Topology) All() []Target {
	var targets []Target
	for env, categories := range t.envs {
		for category, zones := range categories {
			for zone, shards := range zones {
				for shard := range shards {
					targets = append(targets, Target{Env: env, Category: category, Zone: zone, Shard: shard})
				}
			}
		}
	}
	SortTargets(targets)
	return targets
}

// Environments returns the sorted environment names.
func (t *Topology) Environments() []string {
	return sortedKeys(t.envs)
}

// Categories returns the sorted category names of env.
func (t *Topology) Categories(env string) ([]string, error) {
	env = normalize(env)
	categories, ok := t.envs[env]
	if !ok {
		return nil, &ConfigNotFoundError{Env: env}
	}
	return sortedKeys(categories), nil
}

func (t *Topology) category(env, category string) (map[string]map[string]Shard, error) {
	categories, ok := t.envs[env]
	if !ok {
		return nil, &ConfigNotFoundError{Env: env}
	}
	zones, ok := categories[category]
	if !ok {
		return nil, &ConfigNotFoundError{Env: env, Category: category}
	}
	return zones, nil
}

// SortTargets orders targets lexicographically by env, category, zone, shard.
func SortTargets(targets []Target) {
	sort.Slice(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		if a.Env != b.Env {
			return a.Env < b.Env
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		return a.Shard < b.Shard
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
