// AngelaMos | 2026
// account.go

package user

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/edig/bibliotheque/internal/role"
)

const (
	fallbackName = "Utilisateur"
	missingValue = "—"
	avatarURL    = "https://ui-avatars.com/api/?name=%s&background=6366f1&color=fff&size=128"
)

var paris = loadParis()

func loadParis() *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		return time.UTC
	}
	return loc
}

type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	Role      role.Role `json:"role"`
	RoleLabel string    `json:"role_label"`
	Details   []Detail  `json:"details"`
}

// BuildAccount renders the account page of u with its resolved role.
func BuildAccount(u *User, resolved role.Role) Account {
	meta := u.UserMetadata

	name := metaText(meta, "full_name", "name")
	if name == "" {
		name, _, _ = strings.Cut(u.Email, "@")
	}
	if name == "" {
		name = fallbackName
	}

	avatar := metaText(meta, "avatar_url", "picture")
	if avatar == "" {
		avatar = DefaultAvatar(name, u.Email)
	}

	details := []Detail{
		{Label: "Nom complet", Value: orDefault(name, "Non renseigné")},
		{Label: "Adresse e-mail", Value: orDefault(u.Email, "Non renseignée")},
	}
	if r := metaText(meta, "role", "user_role", "account_role"); r != "" {
		details = append(details, Detail{Label: "Rôle", Value: r})
	}
	if org := metaText(meta, "organization", "company"); org != "" {
		details = append(details, Detail{Label: "Organisation", Value: org})
	}
	if phone := metaText(meta, "phone", "phone_number"); phone != "" {
		details = append(details, Detail{Label: "Téléphone", Value: phone})
	}
	details = append(details,
		Detail{Label: "Identifiant", Value: orDefault(u.ID, missingValue)},
		Detail{Label: "Membre depuis", Value: FormatDate(&u.CreatedAt)},
		Detail{Label: "Dernière connexion", Value: FormatDate(u.LastSignInAt)},
	)

	return Account{
		ID:        u.ID,
		Name:      name,
		Email:     u.Email,
		AvatarURL: avatar,
		Role:      resolved,
		RoleLabel: resolved.Label(),
		Details:   details,
	}
}

// DefaultAvatar is a generated initials avatar.
func DefaultAvatar(name, email string) string {
	display := name
	if display == "" {
		display = email
	}
	if display == "" {
		display = fallbackName
	}
	escaped := strings.ReplaceAll(url.QueryEscape(display), "+", "%20")
	return fmt.Sprintf(avatarURL, escaped)
}

var months = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin", "juillet",
	"août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDate renders t as "2 mars 2025 à 14:05" in Paris time.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return missingValue
	}
	lt := t.In(paris)
	return lt.Format("2 ") + months[lt.Month()-1] + lt.Format(" 2006 à 15:04")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
