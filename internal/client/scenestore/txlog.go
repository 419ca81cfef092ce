package scenestore

import "time"

// OpKind names an optimistic operation
type OpKind string

const (
	OpAdd     OpKind = "add"
	OpPersist OpKind = "persist"
	OpRemove  OpKind = "remove"
	OpReorder OpKind = "reorder"
	OpRefresh OpKind = "refresh"
)

// Rollback is how much state a failed operation restores
type Rollback int

const (
	// RollbackNone keeps the optimistic state after a failure
	RollbackNone Rollback = iota
	// RollbackAffected restores only the scenes the operation touched
	RollbackAffected
	// RollbackAll restores the whole scene list captured before the operation
	RollbackAll
)

func (r Rollback) String() string {
	switch r {
	case RollbackAffected:
		return "affected"
	case RollbackAll:
		return "all"
	default:
		return "none"
	}
}

// Outcome is the final state of a log entry
type Outcome string

const (
	OutcomePending    Outcome = "pending"
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeFailed means the request failed and the optimistic state was kept
	OutcomeFailed Outcome = "failed"
	// OutcomeDiscarded means the store was closed or reopened while in flight
	OutcomeDiscarded Outcome = "discarded"
)

// Entry records one operation: what it touched and how it ended
type Entry struct {
	Seq        int
	Op         OpKind
	SceneIDs   []string
	Rollback   Rollback
	Outcome    Outcome
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// DefaultRollback is the per-operation policy a new Store starts with
func DefaultRollback() map[OpKind]Rollback {
	return map[OpKind]Rollback{
		OpAdd:     RollbackAffected,
		OpPersist: RollbackNone,
		OpRemove:  RollbackAffected,
		OpReorder: RollbackAll,
		OpRefresh: RollbackNone,
	}
}

// txLog is an append-only list of entries bounded to the most recent max
type txLog struct {
	entries []*Entry
	seq     int
	max     int
}

func (l *txLog) begin(op OpKind, ids []string, rb Rollback, now time.Time) *Entry {
	l.seq++
	e := &Entry{
		Seq:       l.seq,
		Op:        op,
		SceneIDs:  append([]string(nil), ids...),
		Rollback:  rb,
		Outcome:   OutcomePending,
		StartedAt: now,
	}
	l.entries = append(l.entries, e)
	if l.max > 0 && len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	return e
}

func (e *Entry) finish(outcome Outcome, err error, now time.Time) {
	e.Outcome = outcome
	e.Err = err
	e.FinishedAt = now
}

func (l *txLog) snapshot() []Entry {
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
		out[i].SceneIDs = append([]string(nil), e.SceneIDs...)
	}
	return out
}
