// AngelaMos | 2026
// event.go

package session

import "time"

type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventRoleChanged    EventType = "ROLE_CHANGED"
)

// Event is an auth-state change for one principal.
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"user_id"`
	Role   string    `json:"role,omitempty"`
	At     time.Time `json:"at"`
}

// invalidates reports whether the cached session must be dropped.
func (e Event) invalidates() bool {
	return e.Type == EventSignedOut || e.Type == EventRoleChanged
}
