// AngelaMos | 2026
// handler.go

package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/middleware"
)

const defaultMaxUpload = 5 << 20

type Handler struct {
	service   *Service
	validator *validator.Validate
	maxUpload int64
}

func NewHandler(service *Service, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		maxUpload: maxUpload,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", h.Library)
		r.Get("/more", h.LoadMore)
		r.Get("/nouveautes", h.Nouveautes)
		r.Get("/populaires", h.Popular)
	})
	r.Get("/levels", h.Levels)
	r.Get("/manuals/{manualID}", h.GetManual)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/manuals", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListManuals)
		r.Post("/", h.CreateManual)
		r.Post("/cover", h.UploadCover)
		r.Get("/levels", h.LevelCounts)
		r.Put("/{manualID}", h.UpdateManual)
		r.Delete("/{manualID}", h.DeleteManual)
	})
}

func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.service.Library(r.Context(), FilterFromQuery(r)))
}

func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	size := h.service.cfg.PageSize
	page, err := h.service.LoadMore(
		r.Context(),
		intQuery(r, "from", size),
		intQuery(r, "limit", size),
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, page)
}

func (h *Handler) Nouveautes(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.service.Nouveautes(r.Context()))
}

func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Popular(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, items)
}

func (h *Handler) Levels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.Levels(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, levels)
}

func (h *Handler) LevelCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.LevelsWithCounts(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, counts)
}

func (h *Handler) GetManual(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), chi.URLParam(r, "manualID"))
	if err != nil {
		writeError(w, err)
		return
	}
	core.OK(w, m)
}

func (h *Handler) ListManuals(w http.ResponseWriter, r *http.Request) {
	size := h.service.cfg.PageSize
	items, err := h.service.List(
		r.Context(),
		intQuery(r, "from", 0),
		intQuery(r, "limit", size),
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, items)
}

func (h *Handler) CreateManual(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	m, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	core.Created(w, m)
}

func (h *Handler) UpdateManual(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	m, err := h.service.Update(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "manualID"),
		req,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	core.OK(w, m)
}

func (h *Handler) DeleteManual(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "manualID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

func (h *Handler) UploadCover(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		core.BadRequest(w, "invalid or oversized upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck // read-only multipart part

	url, err := h.service.UploadCover(
		r.Context(),
		header.Filename,
		file,
		header.Size,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	core.Created(w, CoverResponse{URL: url})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (ManualRequest, bool) {
	var req ManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return req, false
	}
	return req, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "manual")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "unknown level")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("manual"))
	case errors.Is(err, core.ErrUnavailable):
		core.JSONError(w, core.NewAppError(
			err,
			"cover storage is not configured",
			http.StatusServiceUnavailable,
			"UNAVAILABLE",
		))
	default:
		core.InternalServerError(w, err)
	}
}
