// AngelaMos | 2026
// handler.go

package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/middleware"
)

const (
	eventBuffer  = 16
	pingInterval = 25 * time.Second
)

type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/session", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.Current)
		r.Get("/events", h.Events)
	})
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Current(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.JSONError(w, core.UnauthorizedError("account not found").
				WithRedirect(core.RedirectLogin))
			return
		}
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, s)
}

// Events streams the caller's auth-state changes until the client goes
// away. Slow clients miss events rather than block publishers.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	stream, err := core.NewEventStream(w)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	events := make(chan Event, eventBuffer)
	unsubscribe := h.manager.Subscribe(func(e Event) {
		if e.UserID != userID {
			return
		}
		select {
		case events <- e:
		default:
			h.logger.Warn("session event dropped", "user_id", userID, "event", e.Type)
		}
	})
	defer unsubscribe()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := stream.Send(string(e.Type), e); err != nil {
				return
			}
		case <-ping.C:
			if err := stream.Ping(); err != nil {
				return
			}
		}
	}
}
