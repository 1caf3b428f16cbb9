// AngelaMos | 2026
// handler.go

package dashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edig/bibliotheque/internal/activity"
	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/middleware"
	"github.com/edig/bibliotheque/internal/realtime"
)

const (
	changeBuffer = 8
	pingInterval = 25 * time.Second
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/dashboard", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.Overview)
		r.Get("/activity", h.Activity)
		r.Get("/stream", h.Stream)
	})
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r.Context())
	core.OK(w, h.service.Overview(r.Context(), owner))
}

func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r.Context())
	core.OK(w, h.service.Activity(r.Context(), owner))
}

type liveEntry struct {
	Entry activity.Entry   `json:"entry"`
	Feed  []activity.Entry `json:"feed"`
}

// Stream sends the overview, then on every added or changed manual the
// live activity entry followed by a fresh overview. The subscription
// ends with the request.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.GetUserID(ctx)

	stream, err := core.NewEventStream(w)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	feed := activity.NewFeed(activity.Capacity)
	ov := h.service.Overview(ctx, owner)
	feed.Reset(ov.Activity)
	if err := stream.Send("overview", ov); err != nil {
		return
	}

	changes := make(chan realtime.Change, changeBuffer)
	go h.service.Watch(ctx, func(c realtime.Change) {
		select {
		case changes <- c:
		default:
			h.logger.Warn("dashboard change dropped", "op", c.Op)
		}
	})

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-changes:
			at := c.At
			if at.IsZero() {
				at = time.Now().UTC()
			}
			entry := feed.Prepend(c.String("title"), at)
			if err := stream.Send("activity", liveEntry{Entry: entry, Feed: feed.Snapshot()}); err != nil {
				return
			}

			ov := h.service.Overview(ctx, owner)
			ov.Activity = feed.Snapshot()
			if err := stream.Send("overview", ov); err != nil {
				return
			}
		case <-ping.C:
			if err := stream.Ping(); err != nil {
				return
			}
		}
	}
}
