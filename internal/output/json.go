package output

import (
	"encoding/json"
	"io"

	"github.com/aalemi-dev/shardkit/shardpool"
	"github.com/aalemi-dev/shardkit/topology"
)

// JSONFormatter writes indented JSON. Outcomes use their own MarshalJSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Outcomes(w io.Writer, outcomes []shardpool.Outcome) error {
	if outcomes == nil {
		outcomes = []shardpool.Outcome{}
	}
	return encodeJSON(w, outcomes)
}

func (f *JSONFormatter) Targets(w io.Writer, targets []topology.Target) error {
	if targets == nil {
		targets = []topology.Target{}
	}
	return encodeJSON(w, targets)
}

func (f *JSONFormatter) Statuses(w io.Writer, statuses []shardpool.EntryStatus) error {
	if statuses == nil {
		statuses = []shardpool.EntryStatus{}
	}
	return encodeJSON(w, statuses)
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
