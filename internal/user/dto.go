// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/edig/bibliotheque/internal/profile"
	"github.com/edig/bibliotheque/internal/role"
)

type UpdateMeRequest struct {
	FullName     *string `json:"full_name,omitempty"    validate:"omitempty,min=1,max=100"`
	AvatarURL    *string `json:"avatar_url,omitempty"   validate:"omitempty,url,max=2048"`
	Phone        *string `json:"phone,omitempty"        validate:"omitempty,max=32"`
	Organization *string `json:"organization,omitempty" validate:"omitempty,max=120"`
}

type CreateUserRequest struct {
	Email        string `json:"email"        validate:"required,email,max=255"`
	Password     string `json:"password"     validate:"required,min=8,max=128"`
	FullName     string `json:"full_name"    validate:"required,min=1,max=100"`
	Role         string `json:"role"         validate:"omitempty,oneof=admin enseignant eleve user"`
	Phone        string `json:"phone"        validate:"omitempty,max=32"`
	Organization string `json:"organization" validate:"omitempty,max=120"`
}

type UpdateUserRequest struct {
	FullName     *string `json:"full_name,omitempty"    validate:"omitempty,min=1,max=100"`
	Phone        *string `json:"phone,omitempty"        validate:"omitempty,max=32"`
	Organization *string `json:"organization,omitempty" validate:"omitempty,max=120"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin enseignant eleve user"`
}

type UserResponse struct {
	ID           string             `json:"id"`
	Email        string             `json:"email"`
	Name         string             `json:"name"`
	Role         role.Role          `json:"role"`
	RoleLabel    string             `json:"role_label"`
	Profile      profile.Projection `json:"profile"`
	LastSignInAt *time.Time         `json:"last_sign_in_at"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User, resolved role.Role, proj profile.Projection) UserResponse {
	name := proj.FullName
	if name == "" {
		name = u.Name()
	}
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         name,
		Role:         resolved,
		RoleLabel:    resolved.Label(),
		Profile:      proj,
		LastSignInAt: u.LastSignInAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// PrincipalSummary is one row of the paginated principal listing.
type PrincipalSummary struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func ToPrincipalSummaries(users []User) []PrincipalSummary {
	out := make([]PrincipalSummary, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, PrincipalSummary{
			ID:           u.ID,
			Email:        u.Email,
			Name:         u.Name(),
			LastSignInAt: u.LastSignInAt,
			CreatedAt:    u.CreatedAt,
		})
	}
	return out
}
