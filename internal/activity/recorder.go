// AngelaMos | 2026
// recorder.go

package activity

import (
	"context"
	"log/slog"
	"time"
)

// Recorder appends mutation entries to an owner's log. Failures are
// logged and swallowed so they never affect the mutation itself.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

func (r *Recorder) Record(
	ctx context.Context,
	owner string,
	action Action,
	title string,
) {
	if r == nil || r.store == nil || owner == "" {
		return
	}

	entry := Entry{Message: Message(action, title), CreatedAt: r.now()}
	if err := r.store.Append(ctx, owner, entry); err != nil {
		r.logger.Warn("unable to record activity",
			"owner", owner,
			"action", action,
			"error", err,
		)
	}
}
