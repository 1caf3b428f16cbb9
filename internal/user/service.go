// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edig/bibliotheque/internal/auth"
	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/profile"
	"github.com/edig/bibliotheque/internal/role"
	"github.com/edig/bibliotheque/internal/session"
)

type Sessions interface {
	Current(ctx context.Context, userID string) (*session.Session, error)
	Publish(ctx context.Context, e session.Event)
}

type Service struct {
	repo     Repository
	profiles profile.Repository
	finder   *profile.Finder
	sessions Sessions
	logger   *slog.Logger
	now      func() time.Time
}

type ServiceDeps struct {
	Repo     Repository
	Profiles profile.Repository
	Sessions Sessions
	Logger   *slog.Logger
}

func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     deps.Repo,
		profiles: deps.Profiles,
		finder:   profile.NewFinder(deps.Profiles, logger),
		sessions: deps.Sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// SetSessions attaches the session manager once it exists; the manager
// itself loads principals through this service.
func (s *Service) SetSessions(sessions Sessions) {
	s.sessions = sessions
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return toUserInfo(u), nil
}

// Create registers a self-service principal. It carries no role, so it
// resolves to the plain user role until an admin assigns one.
func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, fullName string,
) (*auth.UserInfo, error) {
	u := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		UserMetadata: core.JSONMap{"full_name": strings.TrimSpace(fullName)},
		AppMetadata:  core.JSONMap{},
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.syncProfile(ctx, profile.Fields{
		UserID:   u.ID,
		Email:    u.Email,
		FullName: u.Name(),
	})

	return toUserInfo(u), nil
}

func (s *Service) IncrementTokenVersion(ctx context.Context, userID string) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) TouchSignIn(ctx context.Context, userID string, at time.Time) error {
	return s.repo.TouchSignIn(ctx, userID, at)
}

// LoadPrincipal feeds the session manager.
func (s *Service) LoadPrincipal(ctx context.Context, userID string) (*role.Principal, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Principal(), nil
}

func (s *Service) Account(ctx context.Context, userID string) (Account, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	return BuildAccount(u, s.roleOf(ctx, u.ID)), nil
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateMeRequest,
) (Account, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return Account{}, err
	}

	meta := mergeMeta(u.UserMetadata, map[string]*string{
		"full_name":    req.FullName,
		"avatar_url":   req.AvatarURL,
		"phone":        req.Phone,
		"organization": req.Organization,
	})
	if err := s.repo.UpdateUserMetadata(ctx, userID, meta); err != nil {
		return Account{}, err
	}
	u.UserMetadata = meta

	s.syncProfile(ctx, profile.Fields{
		UserID:       u.ID,
		Email:        u.Email,
		FullName:     deref(req.FullName),
		Phone:        deref(req.Phone),
		Organization: deref(req.Organization),
	})

	return BuildAccount(u, s.roleOf(ctx, u.ID)), nil
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	return s.remove(ctx, userID)
}

// Directory lists every profile merged with sign-in data. Without sign-in
// data members are still listed, with a never-signed-in status.
func (s *Service) Directory(ctx context.Context, f DirectoryFilter) (Directory, error) {
	records, err := s.profiles.List(ctx)
	if err != nil {
		return Directory{}, fmt.Errorf("directory: %w", err)
	}

	signIns, err := s.repo.SignIns(ctx)
	if err != nil {
		s.logger.Warn("sign-in data unavailable", "error", err)
		signIns = map[string]SignInInfo{}
	}

	return BuildDirectory(records, signIns, f, s.now()), nil
}

func (s *Service) ListPrincipals(
	ctx context.Context,
	params ListUsersParams,
) ([]PrincipalSummary, int, error) {
	params.Normalize()
	users, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return ToPrincipalSummaries(users), total, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (UserResponse, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return UserResponse{}, err
	}
	return s.respond(ctx, u), nil
}

func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (UserResponse, error) {
	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	app := core.JSONMap{}
	if req.Role != "" {
		app["role"] = role.Normalize(req.Role).String()
	}

	meta := core.JSONMap{"full_name": strings.TrimSpace(req.FullName)}
	if req.Phone != "" {
		meta["phone"] = req.Phone
	}
	if req.Organization != "" {
		meta["organization"] = req.Organization
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		UserMetadata: meta,
		AppMetadata:  app,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return UserResponse{}, err
	}

	var r string
	if req.Role != "" {
		r = role.Normalize(req.Role).String()
	}
	s.syncProfile(ctx, profile.Fields{
		UserID:       u.ID,
		Email:        u.Email,
		FullName:     u.Name(),
		Role:         r,
		Phone:        req.Phone,
		Organization: req.Organization,
	})

	return s.respond(ctx, u), nil
}

func (s *Service) UpdateUser(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (UserResponse, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return UserResponse{}, err
	}

	meta := mergeMeta(u.UserMetadata, map[string]*string{
		"full_name":    req.FullName,
		"phone":        req.Phone,
		"organization": req.Organization,
	})
	if err := s.repo.UpdateUserMetadata(ctx, userID, meta); err != nil {
		return UserResponse{}, err
	}
	u.UserMetadata = meta

	s.syncProfile(ctx, profile.Fields{
		UserID:       u.ID,
		Email:        u.Email,
		FullName:     deref(req.FullName),
		Phone:        deref(req.Phone),
		Organization: deref(req.Organization),
	})

	return s.respond(ctx, u), nil
}

// UpdateRole stores the role in app_metadata and on the profile, then
// tells the session layer so cached roles are dropped.
func (s *Service) UpdateRole(
	ctx context.Context,
	userID string,
	raw string,
) (UserResponse, error) {
	next, ok := role.Parse(raw)
	if !ok {
		if !strings.EqualFold(strings.TrimSpace(raw), role.User.String()) {
			return UserResponse{}, fmt.Errorf("update role: %w", core.ErrInvalidInput)
		}
		next = role.User
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return UserResponse{}, err
	}

	app := core.JSONMap{}
	for k, v := range u.AppMetadata {
		app[k] = v
	}
	delete(app, "roles")
	app["role"] = next.String()

	if err := s.repo.UpdateAppMetadata(ctx, userID, app); err != nil {
		return UserResponse{}, err
	}
	u.AppMetadata = app

	if err := s.profiles.SetRole(ctx, userID, next.String()); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return UserResponse{}, err
		}
		s.syncProfile(ctx, profile.Fields{
			UserID:   u.ID,
			Email:    u.Email,
			FullName: u.Name(),
			Role:     next.String(),
		})
	}

	s.publish(ctx, session.EventRoleChanged, userID, next)

	return s.respond(ctx, u), nil
}

// DeleteUser removes a principal. Administrators cannot be removed here.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return err
	}

	if s.roleOf(ctx, userID).IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	return s.remove(ctx, userID)
}

func (s *Service) remove(ctx context.Context, userID string) error {
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return err
	}

	if err := s.repo.IncrementTokenVersion(ctx, userID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		s.logger.Warn("unable to revoke tokens", "user_id", userID, "error", err)
	}

	if err := s.profiles.Delete(ctx, userID); err != nil {
		s.logger.Warn("unable to delete profile", "user_id", userID, "error", err)
	}

	s.publish(ctx, session.EventSignedOut, userID, "")
	return nil
}

func (s *Service) respond(ctx context.Context, u *User) UserResponse {
	rec := s.finder.FindForPrincipal(ctx, u.ID, u.Email)
	proj := profile.Project(rec, u.UserMetadata, u.Email)
	return ToUserResponse(u, s.roleOf(ctx, u.ID), proj)
}

func (s *Service) roleOf(ctx context.Context, userID string) role.Role {
	if s.sessions == nil {
		return role.User
	}
	sess, err := s.sessions.Current(ctx, userID)
	if err != nil {
		s.logger.Warn("unable to resolve role", "user_id", userID, "error", err)
		return role.User
	}
	return sess.Role
}

func (s *Service) publish(ctx context.Context, t session.EventType, userID string, r role.Role) {
	if s.sessions == nil {
		return
	}
	s.sessions.Publish(ctx, session.Event{Type: t, UserID: userID, Role: string(r)})
}

// syncProfile mirrors account fields onto the profile row. Profiles are
// secondary, so failures are only logged.
func (s *Service) syncProfile(ctx context.Context, f profile.Fields) {
	if err := s.profiles.Upsert(ctx, f); err != nil {
		s.logger.Warn("unable to sync profile", "user_id", f.UserID, "error", err)
	}
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name(),
		PasswordHash: u.PasswordHash,
		TokenVersion: u.TokenVersion,
		CreatedAt:    u.CreatedAt,
	}
}

// mergeMeta copies base and applies the non-nil updates. An update to ""
// clears the key.
func mergeMeta(base core.JSONMap, updates map[string]*string) core.JSONMap {
	out := make(core.JSONMap, len(base)+len(updates))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range updates {
		if v == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*v); trimmed != "" {
			out[k] = trimmed
		} else {
			delete(out, k)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
