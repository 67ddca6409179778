package feed

import (
	"sync"

	"github.com/jasmine-z2a/studio/internal/model"
)

// DefaultCap is the per-topic history bound.
const DefaultCap = 100000

// History is a bounded, ordered buffer of normalized records for one
// topic. Appends beyond the cap evict from the front, so the buffer always
// holds the newest records in arrival order.
type History struct {
	mu      sync.RWMutex
	cap     int
	records []model.LogRecord
}

func NewHistory(cap int) *History {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &History{cap: cap}
}

// Append adds records in arrival order, evicting the oldest past the cap.
func (h *History) Append(recs ...model.LogRecord) {
	if len(recs) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	// A batch larger than the cap keeps only its tail.
	if len(recs) >= h.cap {
		h.records = append(h.records[:0], recs[len(recs)-h.cap:]...)
		return
	}
	h.records = append(h.records, recs...)
	if excess := len(h.records) - h.cap; excess > 0 {
		h.records = append(h.records[:0], h.records[excess:]...)
	}
}

// Snapshot returns a copy of the buffered records in arrival order.
func (h *History) Snapshot() []model.LogRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.LogRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of buffered records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Bounds returns the first and last timestamps, or zeros when empty.
func (h *History) Bounds() (minTs, maxTs int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return 0, 0
	}
	return h.records[0].Timestamp, h.records[len(h.records)-1].Timestamp
}
