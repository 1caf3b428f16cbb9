// AngelaMos | 2026
// handler.go

package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/middleware"
)

const maxSettingsBody = 64 << 10

type Handler struct {
	settings *Service
	system   SystemConfig
}

func NewHandler(settings *Service, system SystemConfig) *Handler {
	return &Handler{settings: settings, system: system}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/system", h.System)
		r.Route("/admin/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/{section}", h.UpdateSection)
			r.Post("/reset", h.ResetSettings)
		})
	})
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Settings(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, settings)
}

func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	sec, ok := ParseSection(chi.URLParam(r, "section"))
	if !ok {
		core.NotFound(w, "settings section")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsBody))
	if err != nil || !json.Valid(body) {
		core.BadRequest(w, "invalid request body")
		return
	}

	saved, err := h.settings.UpdateSection(
		r.Context(),
		middleware.GetUserID(r.Context()),
		sec,
		body,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, saved)
}

func (h *Handler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	saved, err := h.settings.Reset(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, saved)
}

func writeError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		core.BadRequest(w, core.FormatValidationError(err))
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid settings payload")
	default:
		core.InternalServerError(w, err)
	}
}
