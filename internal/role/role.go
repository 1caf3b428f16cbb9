// AngelaMos | 2026
// role.go

package role

import (
	"strings"
)

type Role string

const (
	Admin   Role = "admin"
	Teacher Role = "enseignant"
	Student Role = "eleve"
	User    Role = "user"
)

var synonyms = map[string]Role{
	"admin":          Admin,
	"superadmin":     Admin,
	"administrator":  Admin,
	"administrateur": Admin,
	"enseignant":     Teacher,
	"teacher":        Teacher,
	"prof":           Teacher,
	"eleve":          Student,
	"élève":          Student,
	"student":        Student,
}

var labels = map[Role]string{
	Admin:   "Administrateur",
	Teacher: "Enseignant",
	Student: "Élève",
	User:    "Utilisateur",
}

// Normalize maps a free-form role string onto the closed role set.
// Unknown values collapse to User.
func Normalize(raw string) Role {
	if r, ok := synonyms[clean(raw)]; ok {
		return r
	}
	return User
}

func Parse(raw string) (Role, bool) {
	r, ok := synonyms[clean(raw)]
	return r, ok
}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsAdmin() bool {
	return r == Admin
}

// Label is the French display name.
func (r Role) Label() string {
	if l, ok := labels[r]; ok {
		return l
	}
	return labels[User]
}

func All() []Role {
	return []Role{Admin, Teacher, Student, User}
}

func clean(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Principal is the identity a role is resolved for.
type Principal struct {
	ID           string
	Email        string
	UserMetadata map[string]any
	AppMetadata  map[string]any
}
