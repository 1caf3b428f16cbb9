// AngelaMos | 2026
// service.go

package dashboard

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/edig/bibliotheque/internal/activity"
	"github.com/edig/bibliotheque/internal/auth"
	"github.com/edig/bibliotheque/internal/catalog"
	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/realtime"
)

var tracer = otel.Tracer("bibliotheque/dashboard")

const (
	defaultRecent = 5
	signinDays    = 30
)

type Manuals interface {
	Count(ctx context.Context) (int, error)
	CountByLevel(ctx context.Context) ([]catalog.LevelCount, error)
	CreationTimes(ctx context.Context) ([]time.Time, error)
	Evolution(ctx context.Context) ([]catalog.DayCount, error)
	Recent(ctx context.Context, n int) ([]catalog.Manual, error)
}

type Signins interface {
	SigninActivity(ctx context.Context, days int) ([]auth.DayCount, error)
}

type Changes interface {
	Subscribe(ctx context.Context, table string, ops []realtime.Op, handle realtime.Handler)
}

type Service struct {
	manuals Manuals
	signins Signins
	log     activity.Store
	changes Changes
	recent  int
	logger  *slog.Logger
	now     func() time.Time
}

type ServiceDeps struct {
	Manuals Manuals
	Signins Signins
	Log     activity.Store
	Changes Changes
	Recent  int
	Logger  *slog.Logger
}

func NewService(deps ServiceDeps) *Service {
	recent := deps.Recent
	if recent <= 0 {
		recent = defaultRecent
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		manuals: deps.Manuals,
		signins: deps.Signins,
		log:     deps.Log,
		changes: deps.Changes,
		recent:  recent,
		logger:  logger,
		now:     time.Now,
	}
}

// Overview gathers every dashboard figure concurrently. A part that fails
// is logged and left empty; the rest is still returned.
func (s *Service) Overview(ctx context.Context, owner string) Overview {
	ctx, span := tracer.Start(ctx, "dashboard.Overview")
	defer span.End()

	var (
		ov     = Overview{LevelCounts: []catalog.LevelCount{}, AverageAddition: notAvailable}
		recent []catalog.Manual
		local  []activity.Entry
		g      errgroup.Group
	)

	g.Go(func() error {
		n, err := s.manuals.Count(ctx)
		if err != nil {
			s.partFailed(ctx, "total manuals", err)
			return nil
		}
		ov.TotalManuals = n
		return nil
	})
	g.Go(func() error {
		counts, err := s.manuals.CountByLevel(ctx)
		if err != nil {
			s.partFailed(ctx, "level counts", err)
			return nil
		}
		ov.LevelCounts = counts
		return nil
	})
	g.Go(func() error {
		times, err := s.manuals.CreationTimes(ctx)
		if err != nil {
			s.partFailed(ctx, "average between additions", err)
			return nil
		}
		ov.AverageAddition = FormatAverage(AverageBetween(times))
		return nil
	})
	g.Go(func() error {
		if s.signins == nil {
			return nil
		}
		days, err := s.signins.SigninActivity(ctx, signinDays)
		if err != nil {
			s.partFailed(ctx, "sign-in activity", err)
			return nil
		}
		ov.SigninActivity = days
		return nil
	})
	g.Go(func() error {
		days, err := s.manuals.Evolution(ctx)
		if err != nil {
			s.partFailed(ctx, "manuals evolution", err)
			return nil
		}
		ov.ManualsEvolution = days
		return nil
	})
	g.Go(func() error {
		items, err := s.manuals.Recent(ctx, s.recent)
		if err != nil {
			s.partFailed(ctx, "recent manuals", err)
			return nil
		}
		recent = items
		return nil
	})
	g.Go(func() error {
		local = s.readLog(ctx, owner)
		return nil
	})

	//nolint:errcheck // every part reports its own failure
	_ = g.Wait()

	ov.RecentManuals = recent
	if len(recent) > 0 {
		last := recent[0]
		ov.LastAdded = &last
	}
	ov.Activity = activity.Merge(local, activity.FromManuals(toCreated(recent)), activity.Capacity)
	ov.GeneratedAt = s.now().UTC()

	return ov
}

// Activity merges the owner's log with events for recently added
// manuals. Without recent manuals the feed is empty; without the log it
// holds the server events only.
func (s *Service) Activity(ctx context.Context, owner string) []activity.Entry {
	ctx, span := tracer.Start(ctx, "dashboard.Activity")
	defer span.End()

	recent, err := s.manuals.Recent(ctx, s.recent)
	if err != nil {
		s.partFailed(ctx, "recent manuals", err)
		return []activity.Entry{}
	}

	return activity.Merge(s.readLog(ctx, owner), activity.FromManuals(toCreated(recent)), activity.Capacity)
}

// Watch calls handle for every manual added or changed until ctx is done.
func (s *Service) Watch(ctx context.Context, handle realtime.Handler) {
	if s.changes == nil {
		<-ctx.Done()
		return
	}
	s.changes.Subscribe(ctx, catalog.Table, []realtime.Op{realtime.OpInsert, realtime.OpUpdate}, handle)
}

func (s *Service) readLog(ctx context.Context, owner string) []activity.Entry {
	if s.log == nil {
		return nil
	}
	entries, err := s.log.Read(ctx, owner)
	if err != nil {
		s.logger.Warn("activity log unavailable", "owner", owner, "error", err)
		return nil
	}
	return entries
}

func (s *Service) partFailed(ctx context.Context, part string, err error) {
	core.SetSpanError(ctx, err)
	s.logger.Error("dashboard part failed", "part", part, "error", err)
}
