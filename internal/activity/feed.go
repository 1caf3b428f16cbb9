// AngelaMos | 2026
// feed.go

package activity

import (
	"sync"
	"time"
)

// Feed is the in-memory feed held by one live dashboard stream. Realtime
// entries go straight into it without touching the persisted log.
type Feed struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = Capacity
	}
	return &Feed{limit: limit}
}

func (f *Feed) Reset(entries []Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = make([]Entry, 0, f.limit)
	for _, e := range entries {
		if len(f.entries) == f.limit {
			break
		}
		f.entries = append(f.entries, e)
	}
}

// Prepend synthesises the live entry for a changed manual and returns it.
func (f *Feed) Prepend(title string, at time.Time) Entry {
	e := Entry{Message: LiveMessage(title), CreatedAt: at}

	f.mu.Lock()
	f.entries = prepend(f.entries, e, f.limit)
	f.mu.Unlock()

	return e
}

func (f *Feed) Snapshot() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}
