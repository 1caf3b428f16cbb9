// AngelaMos | 2026
// resolver.go

package role

import (
	"context"
	"log/slog"
)

// ProfileFinder returns the role stored on the principal's profile, or ""
// when no profile matches.
type ProfileFinder interface {
	ProfileRole(ctx context.Context, id, email string) (string, error)
}

type Resolver struct {
	profiles ProfileFinder
	rules    []Rule
	logger   *slog.Logger
}

func NewResolver(profiles ProfileFinder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		profiles: profiles,
		rules:    Rules(),
		logger:   logger,
	}
}

// Resolve never fails. Profile lookup errors are logged and resolution
// continues from the metadata bags.
func (r *Resolver) Resolve(ctx context.Context, p *Principal) Role {
	if p == nil {
		return User
	}

	f := facts{
		bags: map[Source]map[string]any{
			SourceUserMetadata: p.UserMetadata,
			SourceAppMetadata:  p.AppMetadata,
		},
	}

	if r.profiles != nil && p.ID != "" {
		stored, err := r.profiles.ProfileRole(ctx, p.ID, p.Email)
		if err != nil {
			r.logger.Warn("profile role lookup failed",
				"user_id", p.ID,
				"error", err,
			)
		}
		f.profileRole = stored
	}

	for _, rule := range r.rules {
		if raw, ok := rule.apply(f); ok {
			return Normalize(raw)
		}
	}

	return User
}
