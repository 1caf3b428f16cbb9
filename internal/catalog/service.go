// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/edig/bibliotheque/internal/activity"
	"github.com/edig/bibliotheque/internal/config"
	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/realtime"
)

// Table is the realtime channel manual changes are published on.
const Table = "manuals"

var tracer = otel.Tracer("bibliotheque/catalog")

type ActivityRecorder interface {
	Record(ctx context.Context, owner string, action activity.Action, title string)
}

type ChangePublisher interface {
	Publish(ctx context.Context, c realtime.Change) error
}

type Uploader interface {
	Upload(
		ctx context.Context,
		filename string,
		body io.Reader,
		size int64,
		contentType string,
	) (string, error)
}

type Service struct {
	manuals   Repository
	levels    LevelRepository
	recorder  ActivityRecorder
	publisher ChangePublisher
	uploader  Uploader
	cfg       config.CatalogConfig
	logger    *slog.Logger
}

type ServiceDeps struct {
	Manuals   Repository
	Levels    LevelRepository
	Recorder  ActivityRecorder
	Publisher ChangePublisher
	Uploader  Uploader
	Config    config.CatalogConfig
	Logger    *slog.Logger
}

func NewService(deps ServiceDeps) *Service {
	cfg := deps.Config
	if cfg.PageSize <= 0 {
		cfg.PageSize = 48
	}
	if cfg.NewPageSize <= 0 {
		cfg.NewPageSize = 24
	}
	if cfg.CuratedSize <= 0 {
		cfg.CuratedSize = CuratedSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		manuals:   deps.Manuals,
		levels:    deps.Levels,
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
		uploader:  deps.Uploader,
		cfg:       cfg,
		logger:    logger,
	}
}

// Library fetches the first page and the levels, then builds the view.
// A failed manual fetch yields an empty view flagged as an error; a
// failed level fetch only empties the level list.
func (s *Service) Library(ctx context.Context, f Filter) View {
	ctx, span := tracer.Start(ctx, "catalog.Library")
	defer span.End()

	var (
		items  []Manual
		levels []Level
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.manuals.List(gctx, ListParams{Limit: s.cfg.PageSize})
		return err
	})
	g.Go(func() error {
		var err error
		levels, err = s.levels.List(gctx)
		if err != nil {
			s.logger.Warn("unable to load levels", "error", err)
			levels = nil
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		core.SetSpanError(ctx, err)
		s.logger.Error("unable to load catalog", "error", err)
		return EmptyView(f)
	}

	span.SetAttributes(attribute.Int("catalog.items", len(items)))
	return Build(items, levels, f, s.cfg.CuratedSize)
}

func (s *Service) LoadMore(
	ctx context.Context,
	offset, limit int,
) (*PageResponse, error) {
	ctx, span := tracer.Start(ctx, "catalog.LoadMore")
	defer span.End()

	if limit <= 0 || limit > s.cfg.PageSize {
		limit = s.cfg.PageSize
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.manuals.List(ctx, ListParams{Limit: limit, Offset: offset})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("load more: %w", err)
	}

	return &PageResponse{
		Manuals: items,
		Offset:  offset,
		Limit:   limit,
		HasMore: len(items) == limit,
	}, nil
}

// Nouveautes lists manuals flagged new, most recent first.
func (s *Service) Nouveautes(ctx context.Context) NouveautesResponse {
	ctx, span := tracer.Start(ctx, "catalog.Nouveautes")
	defer span.End()

	items, err := s.manuals.List(ctx, ListParams{
		Limit:   s.cfg.NewPageSize,
		OnlyNew: true,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		s.logger.Error("unable to load new manuals", "error", err)
		return NouveautesResponse{Manuals: []Manual{}, Error: true}
	}

	return NouveautesResponse{Manuals: items}
}

func (s *Service) Popular(ctx context.Context) ([]Manual, error) {
	ctx, span := tracer.Start(ctx, "catalog.Popular")
	defer span.End()

	items, err := s.manuals.List(ctx, ListParams{
		Limit:       s.cfg.PageSize,
		OnlyPopular: true,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("popular manuals: %w", err)
	}

	return SortManuals(items, SortPopular), nil
}

func (s *Service) Levels(ctx context.Context) ([]Level, error) {
	levels, err := s.levels.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("levels: %w", err)
	}
	return levels, nil
}

func (s *Service) LevelsWithCounts(ctx context.Context) ([]LevelCount, error) {
	counts, err := s.manuals.CountByLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("levels with counts: %w", err)
	}
	return counts, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Manual, error) {
	m, err := s.manuals.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get manual: %w", err)
	}
	return m, nil
}

// List is the admin listing: one page by recency, no curation.
func (s *Service) List(ctx context.Context, offset, limit int) ([]Manual, error) {
	items, err := s.manuals.List(ctx, ListParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("list manuals: %w", err)
	}
	return items, nil
}

func (s *Service) Create(
	ctx context.Context,
	actor string,
	req ManualRequest,
) (*Manual, error) {
	ctx, span := tracer.Start(ctx, "catalog.Create")
	defer span.End()

	if err := s.checkLevel(ctx, req.LevelID); err != nil {
		return nil, fmt.Errorf("create manual: %w", err)
	}

	m := &Manual{ID: uuid.New().String()}
	req.apply(m)
	if actor != "" {
		m.CreatedBy = &actor
	}

	if err := s.manuals.Create(ctx, m); err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("create manual: %w", err)
	}

	s.afterMutation(ctx, actor, activity.ActionCreated, realtime.OpInsert, m, nil)
	return m, nil
}

func (s *Service) Update(
	ctx context.Context,
	actor, id string,
	req ManualRequest,
) (*Manual, error) {
	ctx, span := tracer.Start(ctx, "catalog.Update")
	defer span.End()

	if err := s.checkLevel(ctx, req.LevelID); err != nil {
		return nil, fmt.Errorf("update manual: %w", err)
	}

	existing, err := s.manuals.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update manual: %w", err)
	}
	before := *existing

	req.apply(existing)
	if err := s.manuals.Update(ctx, existing); err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("update manual: %w", err)
	}

	s.afterMutation(ctx, actor, activity.ActionUpdated, realtime.OpUpdate, existing, &before)
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, actor, id string) error {
	ctx, span := tracer.Start(ctx, "catalog.Delete")
	defer span.End()

	removed, err := s.manuals.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete manual: %w", err)
	}

	s.afterMutation(ctx, actor, activity.ActionDeleted, realtime.OpDelete, nil, removed)
	return nil
}

func (s *Service) UploadCover(
	ctx context.Context,
	filename string,
	body io.Reader,
	size int64,
	contentType string,
) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("upload cover: %w", core.ErrUnavailable)
	}

	url, err := s.uploader.Upload(ctx, filename, body, size, contentType)
	if err != nil {
		return "", fmt.Errorf("upload cover: %w", err)
	}
	return url, nil
}

func (s *Service) checkLevel(ctx context.Context, levelID *string) error {
	id := str(trimmed(levelID))
	if id == "" {
		return nil
	}
	if _, err := s.levels.Get(ctx, id); err != nil {
		return fmt.Errorf("level %q: %w", id, core.ErrInvalidInput)
	}
	return nil
}

// afterMutation records the actor's activity and announces the change.
// Both are best-effort.
func (s *Service) afterMutation(
	ctx context.Context,
	actor string,
	action activity.Action,
	op realtime.Op,
	current, previous *Manual,
) {
	title := ""
	switch {
	case current != nil:
		title = current.Title
	case previous != nil:
		title = previous.Title
	}

	core.AddSpanEvent(ctx, "manual."+string(action),
		attribute.String("manual.op", string(op)),
	)

	if s.recorder != nil {
		s.recorder.Record(ctx, actor, action, title)
	}

	if s.publisher == nil {
		return
	}
	change := realtime.Change{Table: Table, Op: op}
	if current != nil {
		change.Record = manualRecord(*current)
	}
	if previous != nil {
		change.Old = manualRecord(*previous)
	}
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.logger.Warn("unable to publish manual change",
			"op", op,
			"error", err,
		)
	}
}

func manualRecord(m Manual) map[string]any {
	return map[string]any{
		"id":          m.ID,
		"title":       m.Title,
		"author":      m.Author,
		"publisher":   str(m.Publisher),
		"subject":     str(m.Subject),
		"description": str(m.Description),
		"image_url":   str(m.ImageURL),
		"level_id":    str(m.LevelID),
		"is_new":      m.IsNew,
		"is_popular":  m.IsPopular,
		"created_by":  str(m.CreatedBy),
		"created_at":  m.CreatedAt,
	}
}
