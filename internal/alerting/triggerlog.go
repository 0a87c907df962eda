package alerting

import (
	"sync"
	"time"
)

// TriggerLog tracks the last in-process trigger time per alert id. It
// backs the cooldown gate alongside the persisted lastTriggered field and
// is pruned periodically so long-gone alerts do not pin memory.
type TriggerLog struct {
	mu    sync.RWMutex
	times map[int64]time.Time
}

// NewTriggerLog creates an empty trigger log.
func NewTriggerLog() *TriggerLog {
	return &TriggerLog{times: make(map[int64]time.Time)}
}

// Get returns the recorded trigger time for an alert, zero if none.
func (t *TriggerLog) Get(alertID int64) time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.times[alertID]
}

// Record stores the trigger time for an alert, replacing any prior entry.
func (t *TriggerLog) Record(alertID int64, at time.Time) {
	t.mu.Lock()
	t.times[alertID] = at
	t.mu.Unlock()
}

// Delete drops the entry for an alert, e.g. when a once-alert deactivates.
func (t *TriggerLog) Delete(alertID int64) {
	t.mu.Lock()
	delete(t.times, alertID)
	t.mu.Unlock()
}

// Prune evicts entries older than the retention window and returns how
// many were removed.
func (t *TriggerLog) Prune(retention time.Duration, now time.Time) int {
	cutoff := now.Add(-retention)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, at := range t.times {
		if at.Before(cutoff) {
			delete(t.times, id)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count.
func (t *TriggerLog) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.times)
}
