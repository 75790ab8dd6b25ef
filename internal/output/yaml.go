package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aalemi-dev/shardkit/shardpool"
	"github.com/aalemi-dev/shardkit/topology"
)

// YAMLFormatter writes YAML with the same keys as the JSON output.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Outcomes(w io.Writer, outcomes []shardpool.Outcome) error {
	docs := make([]map[string]any, len(outcomes))
	for i, o := range outcomes {
		docs[i] = document(o)
	}
	return encodeYAML(w, docs)
}

func (f *YAMLFormatter) Targets(w io.Writer, targets []topology.Target) error {
	docs := make([]map[string]string, len(targets))
	for i, t := range targets {
		docs[i] = targetDocument(t)
	}
	return encodeYAML(w, docs)
}

func (f *YAMLFormatter) Statuses(w io.Writer, statuses []shardpool.EntryStatus) error {
	docs := make([]map[string]any, len(statuses))
	for i, s := range statuses {
		doc := map[string]any{
			"target":          targetDocument(s.Target),
			"live":            s.Live,
			"openConnections": s.OpenConnections,
			"inUse":           s.InUse,
		}
		if s.Error != "" {
			doc["error"] = s.Error
		}
		docs[i] = doc
	}
	return encodeYAML(w, docs)
}

func encodeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(v)
}

func targetDocument(t topology.Target) map[string]string {
	return map[string]string{
		"env":       t.Env,
		"category":  t.Category,
		"zone":      t.Zone,
		"shardName": t.Shard,
	}
}
