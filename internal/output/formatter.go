package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/aalemi-dev/shardkit/shardpool"
	"github.com/aalemi-dev/shardkit/topology"
)

// Format is an output format accepted by -o.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat maps a flag value to a Format. Empty selects FormatTable.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q: want table, json or yaml", s)
	}
}

// Formatter renders shardctl results.
type Formatter interface {
	// Outcomes renders one entry per shard, results and failures alike.
	Outcomes(w io.Writer, outcomes []shardpool.Outcome) error

	// Targets renders target paths from the topology.
	Targets(w io.Writer, targets []topology.Target) error

	// Statuses renders registry entries.
	Statuses(w io.Writer, statuses []shardpool.EntryStatus) error
}

// Option configures a Formatter.
type Option func(*Options)

// Options holds formatter settings. Only the table formatter reads them.
type Options struct {
	NoColor   bool
	NoHeaders bool

	// Wide adds the serialized data to each outcome row.
	Wide bool
}

func WithNoColor(noColor bool) Option {
	return func(o *Options) { o.NoColor = noColor }
}

func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) { o.NoHeaders = noHeaders }
}

func WithWide(wide bool) Option {
	return func(o *Options) { o.Wide = wide }
}

// NewFormatter returns the formatter for format.
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{options: options}
	}
}

// document is the format-neutral shape of an outcome, mirroring its JSON form.
func document(o shardpool.Outcome) map[string]any {
	target := o.Path()
	doc := map[string]any{
		"env":       target.Env,
		"category":  target.Category,
		"zone":      target.Zone,
		"shardName": target.Shard,
	}
	switch v := o.(type) {
	case *shardpool.ExecutionResult:
		doc["data"] = v.Data()
	case *shardpool.ErrorRecord:
		doc["error"] = ""
		if v.Cause != nil {
			doc["error"] = v.Cause.Error()
		}
	}
	return doc
}

// Summary counts outcomes by kind.
type Summary struct {
	Successful int
	Failed     int
}

func Summarize(outcomes []shardpool.Outcome) Summary {
	results, failures := shardpool.Split(outcomes)
	return Summary{Successful: len(results), Failed: len(failures)}
}
