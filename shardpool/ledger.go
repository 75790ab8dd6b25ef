package shardpool

import (
	"sync"
	"time"

	"github.com/aalemi-dev/shardkit/topology"
)

// Stage says which step of a shard's lifecycle produced a ledger entry.
type Stage string

const (
	StageCreate  Stage = "create"
	StageExecute Stage = "execute"
)

// LedgerEntry is one recorded failure.
type LedgerEntry struct {
	Target topology.Target
	Stage  Stage
	Err    error
	At     time.Time
}

// ErrorLog is the read-only view of a Ledger handed to callers.
type ErrorLog interface {
	Last(target topology.Target) (LedgerEntry, bool)
	History(target topology.Target) []LedgerEntry
	Targets() []topology.Target
}

// Ledger keeps the most recent creation and execution errors per target.
// Only this package appends to it; recording never fails.
type Ledger struct {
	mu      sync.RWMutex
	limit   int
	entries map[topology.Target][]LedgerEntry
	now     func() time.Time
}

// NewLedger returns a ledger keeping at most limit entries per target.
// A non-positive limit selects DefaultLedgerHistory.
func NewLedger(limit int) *Ledger {
	if limit <= 0 {
		limit = DefaultLedgerHistory
	}
	return &Ledger{
		limit:   limit,
		entries: make(map[topology.Target][]LedgerEntry),
		now:     time.Now,
	}
}

func (l *Ledger) record(target topology.Target, stage Stage, err error) {
	if l == nil || err == nil {
		return
	}

	target = target.Normalize()
	entry := LedgerEntry{Target: target, Stage: stage, Err: err, At: l.now()}

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[target]
	if len(history) >= l.limit {
		// oldest entries fall off; keep a fresh backing array so it doesn't grow forever
		history = append([]LedgerEntry(nil), history[len(history)-l.limit+1:]...)
	}
	l.entries[target] = append(history, entry)
}

// Last returns the newest entry for target.
func (l *Ledger) Last(target topology.Target) (LedgerEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := l.entries[target.Normalize()]
	if len(history) == 0 {
		return LedgerEntry{}, false
	}
	return history[len(history)-1], true
}

// History returns a copy of the entries for target, oldest first.
func (l *Ledger) History(target topology.Target) []LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := l.entries[target.Normalize()]
	out := make([]LedgerEntry, len(history))
	copy(out, history)
	return out
}

// Targets returns every target with at least one entry, sorted.
func (l *Ledger) Targets() []topology.Target {
	l.mu.RLock()
	defer l.mu.RUnlock()

	targets := make([]topology.Target, 0, len(l.entries))
	for t := range l.entries {
		targets = append(targets, t)
	}
	topology.SortTargets(targets)
	return targets
}
