// AngelaMos | 2026
// entity.go

package user

import (
	"strings"
	"time"

	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/role"
)

// User is a principal. Names, avatars and roles live in the two metadata
// bags; user_metadata is self-editable, app_metadata is admin-only.
type User struct {
	ID           string       `db:"id"`
	Email        string       `db:"email"`
	PasswordHash string       `db:"password_hash"`
	UserMetadata core.JSONMap `db:"user_metadata"`
	AppMetadata  core.JSONMap `db:"app_metadata"`
	TokenVersion int          `db:"token_version"`
	LastSignInAt *time.Time   `db:"last_sign_in_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	DeletedAt    *time.Time   `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) Principal() *role.Principal {
	return &role.Principal{
		ID:           u.ID,
		Email:        u.Email,
		UserMetadata: u.UserMetadata,
		AppMetadata:  u.AppMetadata,
	}
}

// Name is the self-declared full name, or "".
func (u *User) Name() string {
	return metaText(u.UserMetadata, "full_name", "name")
}

// SignInInfo is what the directory knows about a principal's sessions.
type SignInInfo struct {
	UserID       string     `db:"id"`
	Email        string     `db:"email"`
	LastSignInAt *time.Time `db:"last_sign_in_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

func metaText(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
