package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTriggerLogRecordAndGet(t *testing.T) {
	log := NewTriggerLog()
	now := time.Unix(1_760_000_000, 0)

	assert.True(t, log.Get(1).IsZero())

	log.Record(1, now)
	assert.Equal(t, now, log.Get(1))

	later := now.Add(time.Minute)
	log.Record(1, later)
	assert.Equal(t, later, log.Get(1))

	log.Delete(1)
	assert.True(t, log.Get(1).IsZero())
}

func TestTriggerLogPrune(t *testing.T) {
	log := NewTriggerLog()
	now := time.Unix(1_760_000_000, 0)
	retention := 7 * 24 * time.Hour

	log.Record(1, now.Add(-8*24*time.Hour))  // stale
	log.Record(2, now.Add(-6*24*time.Hour))  // fresh
	log.Record(3, now.Add(-30*24*time.Hour)) // stale
	log.Record(4, now)                       // fresh

	removed := log.Prune(retention, now)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, log.Len())
	assert.True(t, log.Get(1).IsZero())
	assert.False(t, log.Get(2).IsZero())
	assert.True(t, log.Get(3).IsZero())
	assert.False(t, log.Get(4).IsZero())
}

func TestTriggerLogPruneBoundary(t *testing.T) {
	log := NewTriggerLog()
	now := time.Unix(1_760_000_000, 0)
	retention := 7 * 24 * time.Hour

	// An entry exactly at the retention edge is kept.
	log.Record(1, now.Add(-retention))
	removed := log.Prune(retention, now)

	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, log.Len())
}
