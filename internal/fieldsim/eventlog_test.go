package fieldsim

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLogNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	n := 0
	l := newEventLog(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	})

	l.record("first")
	l.record("second")
	l.record("third %d", 3)

	got := l.snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, "third 3", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
	assert.Equal(t, "first", got[2].Message)
	assert.True(t, got[0].Timestamp.After(got[1].Timestamp))
}

func TestEventLogBounded(t *testing.T) {
	l := newEventLog(time.Now)
	for i := 0; i < 50; i++ {
		l.record(fmt.Sprintf("entry %d", i))
	}

	got := l.snapshot()
	require.Len(t, got, logCapacity)
	assert.Equal(t, "entry 49", got[0].Message, "newest entry at index 0")
	assert.Equal(t, "entry 30", got[len(got)-1].Message, "oldest surviving entry at the tail")
}

func TestEventLogSnapshotIsACopy(t *testing.T) {
	l := newEventLog(time.Now)
	l.record("one")
	got := l.snapshot()
	got[0].Message = "mutated"
	assert.Equal(t, "one", l.snapshot()[0].Message)
}
