package resolver

import (
	"sync"
	"time"

	"github.com/mocktape/mocktape/pkg/mock"
)

// DefaultHistoryCapacity bounds the request history ring buffer.
const DefaultHistoryCapacity = 1000

// HistoryEntry is an observability record of one handled request.
// It never influences resolution.
type HistoryEntry struct {
	Request   *mock.Request `json:"request"`
	Timestamp time.Time     `json:"timestamp"`
	Scenario  string        `json:"activeScenario"`
}

// History is a fixed-capacity ring buffer of request records. Once full, the
// oldest entries are overwritten; the engine is long-running test
// infrastructure and must not grow without bound.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	start   int
	count   int
}

// NewHistory creates a History with the given capacity (DefaultHistoryCapacity
// if non-positive).
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{entries: make([]HistoryEntry, capacity)}
}

// Append records an entry, evicting the oldest when full.
func (h *History) Append(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := (h.start + h.count) % len(h.entries)
	h.entries[idx] = e
	if h.count < len(h.entries) {
		h.count++
	} else {
		h.start = (h.start + 1) % len(h.entries)
	}
}

// Entries returns the recorded entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.entries[(h.start+i)%len(h.entries)]
	}
	return out
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Clear drops all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.start, h.count = 0, 0
}
