package fieldsim

import (
	"fmt"
	"time"
)

// logCapacity bounds the operator event log; inserting beyond it evicts the
// oldest entry at the tail.
const logCapacity = 20

// LogEntry is one operator-facing event, newest entries first.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

type eventLog struct {
	entries []LogEntry
	now     func() time.Time
}

func newEventLog(now func() time.Time) *eventLog {
	return &eventLog{now: now}
}

// record prepends a timestamped entry and trims the tail past capacity.
func (l *eventLog) record(format string, args ...any) {
	e := LogEntry{Timestamp: l.now(), Message: fmt.Sprintf(format, args...)}
	l.entries = append([]LogEntry{e}, l.entries...)
	if len(l.entries) > logCapacity {
		l.entries = l.entries[:logCapacity]
	}
}

// snapshot returns a copy of the entries, newest first.
func (l *eventLog) snapshot() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
