// AngelaMos | 2026
// service.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/edig/bibliotheque/internal/core"
)

// Saved is what a settings write hands back to the page.
type Saved struct {
	Settings Settings `json:"settings"`
	Message  string   `json:"message"`
}

type Service struct {
	repo      Repository
	validator *validator.Validate
	logger    *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// Settings returns the stored settings, or the defaults. Unreadable
// documents also fall back to the defaults.
func (s *Service) Settings(ctx context.Context, userID string) (Settings, error) {
	stored, err := s.repo.Get(ctx, userID)
	if err == nil {
		return stored, nil
	}
	if errors.Is(err, core.ErrNotFound) {
		return DefaultSettings(), nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		s.logger.Warn("stored settings unreadable, using defaults",
			"user_id", userID,
			"error", err,
		)
		return DefaultSettings(), nil
	}

	return Settings{}, err
}

func (s *Service) UpdateSection(
	ctx context.Context,
	userID string,
	sec Section,
	payload json.RawMessage,
) (Saved, error) {
	current, err := s.Settings(ctx, userID)
	if err != nil {
		return Saved{}, err
	}

	target := current.target(sec)
	if target == nil {
		return Saved{}, fmt.Errorf("update settings: unknown section %q: %w", sec, core.ErrInvalidInput)
	}
	if err := decodeSection(target, payload); err != nil {
		return Saved{}, err
	}
	if err := s.validator.Struct(target); err != nil {
		return Saved{}, err
	}

	if err := s.repo.Save(ctx, userID, current); err != nil {
		return Saved{}, err
	}

	return Saved{Settings: current, Message: sectionMessages[sec]}, nil
}

func (s *Service) Reset(ctx context.Context, userID string) (Saved, error) {
	current, err := s.Settings(ctx, userID)
	if err != nil {
		return Saved{}, err
	}

	next := current.Reset()
	if err := s.repo.Save(ctx, userID, next); err != nil {
		return Saved{}, err
	}

	return Saved{Settings: next, Message: resetMessage}, nil
}
