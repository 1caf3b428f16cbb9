// AngelaMos | 2026
// directory.go

package user

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/edig/bibliotheque/internal/profile"
	"github.com/edig/bibliotheque/internal/role"
)

type StatusLevel string

const (
	StatusActive   StatusLevel = "active"
	StatusInactive StatusLevel = "inactive"
	StatusInvited  StatusLevel = "invited"
)

const (
	activeWindow = 14 * 24 * time.Hour
	recentWindow = 45 * 24 * time.Hour
)

type Member struct {
	ID           string      `json:"id"`
	FullName     string      `json:"full_name"`
	Email        string      `json:"email"`
	Role         role.Role   `json:"role"`
	RoleLabel    string      `json:"role_label"`
	Phone        string      `json:"phone"`
	Organization string      `json:"organization"`
	AvatarURL    string      `json:"avatar_url"`
	Initials     string      `json:"initials"`
	LastSignInAt *time.Time  `json:"last_sign_in_at"`
	CreatedAt    *time.Time  `json:"created_at"`
	Status       string      `json:"status,omitempty"`
	StatusLabel  string      `json:"status_label"`
	StatusLevel  StatusLevel `json:"status_level"`
}

type RoleCount struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type Summary struct {
	Total   int         `json:"total"`
	Active  int         `json:"active"`
	Invited int         `json:"invited"`
	Roles   []RoleCount `json:"roles"`
}

type Directory struct {
	Members []Member `json:"members"`
	Summary Summary  `json:"summary"`
}

type DirectoryFilter struct {
	Search string
	Role   string
	Status string
}

// ToMember merges a stored profile with the principal's sign-in record,
// which may be missing.
func ToMember(rec profile.Record, info *SignInInfo, now time.Time) Member {
	m := Member{
		ID:           rec.ID(),
		FullName:     rec.Text("full_name", "name"),
		Email:        rec.Text("email"),
		Phone:        rec.Text("phone", "phone_number"),
		Organization: rec.Text("organization", "company"),
		AvatarURL:    rec.Text("avatar_url"),
		Status:       rec.Text("status", "account_status"),
		CreatedAt:    rec.Time("created_at", "inserted_at"),
	}

	if m.FullName == "" {
		m.FullName = joinName(rec.Text("first_name"), rec.Text("last_name"))
	}
	if info != nil {
		if m.Email == "" {
			m.Email = info.Email
		}
		m.LastSignInAt = info.LastSignInAt
		if !info.CreatedAt.IsZero() {
			created := info.CreatedAt
			m.CreatedAt = &created
		}
	}
	if m.FullName == "" {
		m.FullName = m.Email
	}
	if m.FullName == "" {
		m.FullName = fallbackName
	}

	rawRole := rec.Text("role", "user_role")
	m.Role = role.Normalize(rawRole)
	m.RoleLabel = m.Role.Label()
	m.Initials = Initials(m.FullName)
	m.StatusLabel, m.StatusLevel = MemberStatus(m.Status, m.LastSignInAt, now)

	return m
}

// MemberStatus derives the directory status. A stored status wins;
// otherwise the age of the last sign-in decides.
func MemberStatus(stored string, lastSignIn *time.Time, now time.Time) (string, StatusLevel) {
	if s := strings.ToLower(stored); s != "" {
		switch {
		case strings.Contains(s, "inv"):
			return "Invitation en attente", StatusInvited
		case strings.Contains(s, "inact"):
			return "Inactif", StatusInactive
		case strings.Contains(s, "act"):
			return "Actif", StatusActive
		}
	}

	if lastSignIn == nil || lastSignIn.IsZero() {
		return "Jamais connecté", StatusInactive
	}

	since := now.Sub(*lastSignIn)
	switch {
	case since <= activeWindow:
		return "Actif", StatusActive
	case since <= recentWindow:
		return "Inactif récent", StatusInactive
	default:
		return "Inactif prolongé", StatusInactive
	}
}

func Initials(name string) string {
	var b strings.Builder
	for i, part := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r := []rune(part)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	return b.String()
}

// Summarize counts members over the whole directory. The role summary
// always lists administrators and plain users, even at zero.
func Summarize(members []Member) Summary {
	s := Summary{Total: len(members)}
	counts := map[string]int{
		role.Admin.Label(): 0,
		role.User.Label():  0,
	}

	for _, m := range members {
		switch m.StatusLevel {
		case StatusActive:
			s.Active++
		case StatusInvited:
			s.Invited++
		}
		counts[m.RoleLabel]++
	}

	for label, n := range counts {
		s.Roles = append(s.Roles, RoleCount{Label: label, Value: n})
	}
	c := collate.New(language.French, collate.Loose)
	slices.SortFunc(s.Roles, func(a, b RoleCount) int {
		return c.CompareString(a.Label, b.Label)
	})

	return s
}

// FilterMembers keeps members matching the term (name, email,
// organization or role label), the role and the status level.
func FilterMembers(members []Member, f DirectoryFilter) []Member {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	wantRole := strings.ToLower(strings.TrimSpace(f.Role))
	wantStatus := strings.ToLower(strings.TrimSpace(f.Status))

	out := make([]Member, 0, len(members))
	for _, m := range members {
		if term != "" && !matchesTerm(m, term) {
			continue
		}
		if wantRole != "" && wantRole != "all" && role.Normalize(wantRole) != m.Role {
			continue
		}
		if wantStatus != "" && wantStatus != "all" && StatusLevel(wantStatus) != m.StatusLevel {
			continue
		}
		out = append(out, m)
	}
	return out
}

func matchesTerm(m Member, term string) bool {
	for _, field := range []string{m.FullName, m.Email, m.Organization, m.RoleLabel} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func BuildDirectory(
	records []profile.Record,
	signIns map[string]SignInInfo,
	f DirectoryFilter,
	now time.Time,
) Directory {
	members := make([]Member, 0, len(records))
	for _, rec := range records {
		var info *SignInInfo
		for _, key := range []string{rec.ID(), rec.Text("user_id")} {
			if i, ok := signIns[key]; ok && key != "" {
				info = &i
				break
			}
		}
		members = append(members, ToMember(rec, info, now))
	}

	return Directory{
		Members: FilterMembers(members, f),
		Summary: Summarize(members),
	}
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
