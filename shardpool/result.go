package shardpool

import (
	"encoding/json"

	"github.com/aalemi-dev/shardkit/topology"
)

// Outcome is the result of running a statement on one shard: either an
// *ExecutionResult or an *ErrorRecord. Broadcasts return one Outcome per shard.
type Outcome interface {
	// Path returns the shard the outcome belongs to.
	Path() topology.Target

	// Err returns the failure for an *ErrorRecord and nil for an *ExecutionResult.
	Err() error

	outcome()
}

// ExecutionResult carries the serialized data a statement produced on one shard.
//
// Rows is set for statements that return a result set, one map per row keyed by
// column name. Count is set for statements that don't, holding the number of
// affected rows.
type ExecutionResult struct {
	Target topology.Target
	Rows   []map[string]any
	Count  *int64
}

func (r *ExecutionResult) Path() topology.Target { return r.Target }

func (r *ExecutionResult) Err() error { return nil }

func (*ExecutionResult) outcome() {}

// Data returns the rows, or {"count": n} for statements without a result set.
func (r *ExecutionResult) Data() any {
	if r.Count != nil {
		return map[string]any{"count": *r.Count}
	}
	if r.Rows == nil {
		return []map[string]any{}
	}
	return r.Rows
}

// MarshalJSON renders {"env","category","zone","shardName","data"}.
func (r *ExecutionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		topology.Target
		Data any `json:"data"`
	}{r.Target, r.Data()})
}

// ErrorRecord replaces a shard's result when its pool was unavailable or the
// statement failed.
type ErrorRecord struct {
	Target topology.Target
	Cause  error
}

func (r *ErrorRecord) Path() topology.Target { return r.Target }

func (r *ErrorRecord) Err() error { return r.Cause }

func (*ErrorRecord) outcome() {}

// MarshalJSON renders {"env","category","zone","shardName","error"}.
func (r *ErrorRecord) MarshalJSON() ([]byte, error) {
	msg := ""
	if r.Cause != nil {
		msg = r.Cause.Error()
	}
	return json.Marshal(struct {
		topology.Target
		Error string `json:"error"`
	}{r.Target, msg})
}

// Split partitions outcomes into results and error records, keeping their order.
func Split(outcomes []Outcome) ([]*ExecutionResult, []*ErrorRecord) {
	var results []*ExecutionResult
	var failures []*ErrorRecord
	for _, o := range outcomes {
		switch v := o.(type) {
		case *ExecutionResult:
			results = append(results, v)
		case *ErrorRecord:
			failures = append(failures, v)
		}
	}
	return results, failures
}
