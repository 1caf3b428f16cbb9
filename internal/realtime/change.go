// AngelaMos | 2026
// change.go

package realtime

import (
	"fmt"
	"time"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change is a row-level notification for one table.
type Change struct {
	Table  string         `json:"table"`
	Op     Op             `json:"op"`
	Record map[string]any `json:"record,omitempty"`
	Old    map[string]any `json:"old,omitempty"`
	At     time.Time      `json:"at"`
}

// String returns a column of the new record as text, or "".
func (c Change) String(column string) string {
	v, ok := c.Record[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func matches(op Op, ops []Op) bool {
	if len(ops) == 0 {
		return true
	}
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
