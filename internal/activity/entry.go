// AngelaMos | 2026
// entry.go

package activity

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Capacity bounds both the persisted log and the merged feed.
const Capacity = 6

type Entry struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

var actionVerbs = map[Action]string{
	ActionCreated: "ajouté",
	ActionUpdated: "modifié",
	ActionDeleted: "supprimé",
}

// Message renders the log line for a mutation of the manual titled title.
func Message(action Action, title string) string {
	verb, ok := actionVerbs[action]
	if !ok {
		verb = string(action)
	}
	return fmt.Sprintf("Manuel \"%s\" %s.", title, verb)
}

// LiveMessage is the line shown when a change arrives over the realtime
// channel.
func LiveMessage(title string) string {
	return strings.TrimSpace("Manuel modifié: " + title)
}

// Created is a freshly added manual as seen by the feed.
type Created struct {
	Title     string
	CreatedAt time.Time
}

// FromManuals renders server-side events for recently added manuals.
func FromManuals(items []Created) []Entry {
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, Entry{
			Message:   strings.TrimSpace("Nouveau manuel ajouté: " + it.Title),
			CreatedAt: it.CreatedAt,
		})
	}
	return out
}

// Merge concatenates local then server entries, orders them newest first
// and keeps at most limit. Entries with equal timestamps keep their
// concatenation order.
func Merge(local, server []Entry, limit int) []Entry {
	if limit <= 0 {
		limit = Capacity
	}

	merged := make([]Entry, 0, len(local)+len(server))
	merged = append(merged, local...)
	merged = append(merged, server...)

	slices.SortStableFunc(merged, func(a, b Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// prepend puts e in front of entries and truncates to limit.
func prepend(entries []Entry, e Entry, limit int) []Entry {
	next := make([]Entry, 0, len(entries)+1)
	next = append(next, e)
	next = append(next, entries...)
	if len(next) > limit {
		next = next[:limit]
	}
	return next
}
