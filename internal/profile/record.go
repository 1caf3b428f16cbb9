// AngelaMos | 2026
// record.go

package profile

import (
	"fmt"
	"strings"
	"time"
)

// Record is a stored profile row. Profiles were filled by several tools
// over time, so columns vary and every field is optional.
type Record map[string]any

// Text returns the first non-blank value among keys.
func (r Record) Text(keys ...string) string {
	for _, k := range keys {
		if s := text(r[k]); s != "" {
			return s
		}
	}
	return ""
}

// Time returns the first timestamp among keys.
func (r Record) Time(keys ...string) *time.Time {
	for _, k := range keys {
		switch v := r[k].(type) {
		case time.Time:
			if !v.IsZero() {
				return &v
			}
		case string:
			if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v)); err == nil {
				return &t
			}
		}
	}
	return nil
}

// ID returns the profile key.
func (r Record) ID() string {
	return r.Text("id")
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Projection is the display form of a profile.
type Projection struct {
	FullName     string `json:"full_name,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	Role         string `json:"role,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Bio          string `json:"bio,omitempty"`
	Organization string `json:"organization,omitempty"`
	JobTitle     string `json:"job_title,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Project merges a stored profile with the principal's own metadata.
// The stored profile wins field by field; r may be nil.
func Project(r Record, metadata map[string]any, email string) Projection {
	meta := Record(metadata)

	p := Projection{
		FullName:     r.Text("full_name", "name"),
		AvatarURL:    r.Text("avatar_url"),
		Role:         r.Text("role", "user_role", "account_role"),
		Phone:        r.Text("phone", "phone_number"),
		Bio:          r.Text("bio", "about"),
		Organization: r.Text("organization", "company"),
		JobTitle:     r.Text("job_title", "position"),
		Email:        r.Text("email", "contact_email"),
	}

	if p.FullName == "" {
		p.FullName = joinName(r.Text("first_name"), r.Text("last_name"))
	}
	if p.FullName == "" {
		p.FullName = meta.Text("full_name", "name")
	}
	if p.Email == "" {
		p.Email = strings.TrimSpace(email)
	}
	if p.FullName == "" {
		p.FullName = p.Email
	}
	if p.AvatarURL == "" {
		p.AvatarURL = meta.Text("avatar_url", "picture")
	}
	if p.Phone == "" {
		p.Phone = meta.Text("phone")
	}
	if p.Organization == "" {
		p.Organization = meta.Text("organization")
	}

	return p
}

func joinName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
