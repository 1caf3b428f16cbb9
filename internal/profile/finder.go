// AngelaMos | 2026
// finder.go

package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edig/bibliotheque/internal/core"
)

type Finder struct {
	repo   Repository
	logger *slog.Logger
}

func NewFinder(repo Repository, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{repo: repo, logger: logger}
}

// FindForPrincipal tries id, then user_id, then email. The first hit
// wins. Lookup failures are logged and the next lookup is tried; a nil
// record means no profile matched.
func (f *Finder) FindForPrincipal(
	ctx context.Context,
	id, email string,
) Record {
	rec, err := f.lookup(ctx, id, email)
	if err != nil {
		f.logger.Warn("profile lookup failed",
			"user_id", id,
			"error", err,
		)
	}
	return rec
}

// ProfileRole returns the raw role stored on the principal's profile.
// A non-nil error reports failed lookups; the role is still whatever a
// later lookup found.
func (f *Finder) ProfileRole(ctx context.Context, id, email string) (string, error) {
	rec, err := f.lookup(ctx, id, email)
	return rec.Text("role"), err
}

func (f *Finder) lookup(ctx context.Context, id, email string) (Record, error) {
	if id == "" {
		return nil, nil
	}

	lookups := []struct{ column, value string }{
		{ColumnID, id},
		{ColumnUserID, id},
		{ColumnEmail, email},
	}

	var errs []error
	for _, l := range lookups {
		if l.value == "" {
			continue
		}

		rec, err := f.repo.FindBy(ctx, l.column, l.value)
		if err == nil {
			return rec, errors.Join(errs...)
		}
		if !errors.Is(err, core.ErrNotFound) {
			errs = append(errs, fmt.Errorf("by %s: %w", l.column, err))
		}
	}

	return nil, errors.Join(errs...)
}
