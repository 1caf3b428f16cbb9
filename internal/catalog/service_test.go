// AngelaMos | 2026
// service_test.go

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edig/bibliotheque/internal/activity"
	"github.com/edig/bibliotheque/internal/config"
	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/realtime"
)

type fakeManuals struct {
	mu      sync.Mutex
	items   map[string]Manual
	order   []string
	listErr error
	lastLP  ListParams
}

func newFakeManuals(items ...Manual) *fakeManuals {
	f := &fakeManuals{items: map[string]Manual{}}
	for _, m := range items {
		f.items[m.ID] = m
		f.order = append(f.order, m.ID)
	}
	return f
}

func (f *fakeManuals) List(_ context.Context, p ListParams) ([]Manual, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLP = p
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Manual
	for _, id := range f.order {
		m, ok := f.items[id]
		if !ok || (p.OnlyNew && !m.IsNew) || (p.OnlyPopular && !m.IsPopular) {
			continue
		}
		out = append(out, m)
	}
	if p.Offset >= len(out) {
		return []Manual{}, nil
	}
	out = out[p.Offset:]
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

func (f *fakeManuals) Get(_ context.Context, id string) (*Manual, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &m, nil
}

func (f *fakeManuals) Create(_ context.Context, m *Manual) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.CreatedAt = ts(1000)
	f.items[m.ID] = *m
	f.order = append([]string{m.ID}, f.order...)
	return nil
}

func (f *fakeManuals) Update(_ context.Context, m *Manual) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[m.ID]; !ok {
		return core.ErrNotFound
	}
	f.items[m.ID] = *m
	return nil
}

func (f *fakeManuals) Delete(_ context.Context, id string) (*Manual, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	delete(f.items, id)
	return &m, nil
}

func (f *fakeManuals) Recent(ctx context.Context, n int) ([]Manual, error) {
	return f.List(ctx, ListParams{Limit: n})
}

func (f *fakeManuals) Count(context.Context) (int, error) { return len(f.items), nil }

func (f *fakeManuals) CountByLevel(context.Context) ([]LevelCount, error) { return nil, nil }

func (f *fakeManuals) CreationTimes(context.Context) ([]time.Time, error) { return nil, nil }

func (f *fakeManuals) Evolution(context.Context) ([]DayCount, error) { return nil, nil }

type fakeLevels struct {
	levels []Level
	err    error
}

func (f *fakeLevels) List(context.Context) ([]Level, error) {
	return f.levels, f.err
}

func (f *fakeLevels) Get(_ context.Context, id string) (*Level, error) {
	for _, l := range f.levels {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, core.ErrNotFound
}

type recorded struct {
	owner  string
	action activity.Action
	title  string
}

type fakeRecorder struct {
	entries []recorded
}

func (f *fakeRecorder) Record(_ context.Context, owner string, action activity.Action, title string) {
	f.entries = append(f.entries, recorded{owner, action, title})
}

type fakePublisher struct {
	changes []realtime.Change
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, c realtime.Change) error {
	f.changes = append(f.changes, c)
	return f.err
}

type fixture struct {
	svc       *Service
	manuals   *fakeManuals
	levels    *fakeLevels
	recorder  *fakeRecorder
	publisher *fakePublisher
}

func newFixture(items ...Manual) *fixture {
	f := &fixture{
		manuals:   newFakeManuals(items...),
		levels:    &fakeLevels{levels: []Level{{ID: "l1", Name: "Seconde"}}},
		recorder:  &fakeRecorder{},
		publisher: &fakePublisher{},
	}
	f.svc = NewService(ServiceDeps{
		Manuals:   f.manuals,
		Levels:    f.levels,
		Recorder:  f.recorder,
		Publisher: f.publisher,
		Config:    config.CatalogConfig{PageSize: 2, NewPageSize: 24, CuratedSize: 4},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func TestLibraryFetchFailure(t *testing.T) {
	f := newFixture()
	f.manuals.listErr = errors.New("connection refused")

	v := f.svc.Library(context.Background(), Filter{Search: "x"})
	if !v.Error {
		t.Error("Error = false, want true")
	}
	if len(v.Manuals) != 0 || v.Manuals == nil {
		t.Errorf("Manuals = %v, want empty", v.Manuals)
	}
}

func TestLibraryLevelFailureKeepsItems(t *testing.T) {
	f := newFixture(Manual{ID: "1", Title: "A"})
	f.levels.err = errors.New("boom")

	v := f.svc.Library(context.Background(), Filter{})
	if v.Error {
		t.Fatal("Error = true, want false")
	}
	if len(v.Manuals) != 1 || len(v.Levels) != 0 {
		t.Errorf("got %d manuals, %d levels", len(v.Manuals), len(v.Levels))
	}
	if f.manuals.lastLP.Limit != 2 || f.manuals.lastLP.Offset != 0 {
		t.Errorf("list params = %+v", f.manuals.lastLP)
	}
}

func TestLoadMore(t *testing.T) {
	f := newFixture(
		Manual{ID: "1"}, Manual{ID: "2"}, Manual{ID: "3"},
	)

	page, err := f.svc.LoadMore(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	if len(page.Manuals) != 1 || page.HasMore || page.Limit != 2 {
		t.Errorf("page = %+v", page)
	}
}

func TestNouveautes(t *testing.T) {
	f := newFixture(
		Manual{ID: "1", IsNew: true}, Manual{ID: "2"},
	)

	res := f.svc.Nouveautes(context.Background())
	if res.Error || len(res.Manuals) != 1 || !f.manuals.lastLP.OnlyNew {
		t.Errorf("Nouveautes() = %+v", res)
	}

	f.manuals.listErr = errors.New("down")
	res = f.svc.Nouveautes(context.Background())
	if !res.Error || len(res.Manuals) != 0 {
		t.Errorf("Nouveautes() on failure = %+v", res)
	}
}

func TestCreateRecordsAndPublishes(t *testing.T) {
	f := newFixture()

	m, err := f.svc.Create(context.Background(), "admin-1", ManualRequest{
		Title:   "  Physique ",
		Author:  "Curie",
		Subject: ptr("  "),
		LevelID: ptr("l1"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.Title != "Physique" || m.Subject != nil || str(m.CreatedBy) != "admin-1" {
		t.Errorf("manual = %+v", m)
	}

	want := recorded{"admin-1", activity.ActionCreated, "Physique"}
	if len(f.recorder.entries) != 1 || f.recorder.entries[0] != want {
		t.Errorf("recorded = %+v", f.recorder.entries)
	}
	if len(f.publisher.changes) != 1 {
		t.Fatalf("published %d changes", len(f.publisher.changes))
	}
	c := f.publisher.changes[0]
	if c.Table != Table || c.Op != realtime.OpInsert || c.String("title") != "Physique" {
		t.Errorf("change = %+v", c)
	}
}

func TestCreateUnknownLevel(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "a", ManualRequest{
		Title: "T", Author: "A", LevelID: ptr("missing"),
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if len(f.recorder.entries) != 0 || len(f.publisher.changes) != 0 {
		t.Error("failed mutation must not record or publish")
	}
}

func TestUpdatePublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(Manual{ID: "1", Title: "Old", Author: "X"})
	f.publisher.err = errors.New("redis down")

	m, err := f.svc.Update(context.Background(), "a", "1", ManualRequest{Title: "New", Author: "X"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if m.Title != "New" {
		t.Errorf("Title = %q", m.Title)
	}

	c := f.publisher.changes[0]
	if c.Op != realtime.OpUpdate || c.Old["title"] != "Old" || c.Record["title"] != "New" {
		t.Errorf("change = %+v", c)
	}
	if f.recorder.entries[0].action != activity.ActionUpdated {
		t.Errorf("action = %q", f.recorder.entries[0].action)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(Manual{ID: "1", Title: "Gone"})

	if err := f.svc.Delete(context.Background(), "a", "1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.recorder.entries[0] != (recorded{"a", activity.ActionDeleted, "Gone"}) {
		t.Errorf("recorded = %+v", f.recorder.entries)
	}
	c := f.publisher.changes[0]
	if c.Op != realtime.OpDelete || c.Record != nil || c.Old["id"] != "1" {
		t.Errorf("change = %+v", c)
	}

	if err := f.svc.Delete(context.Background(), "a", "1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestUploadCoverWithoutStorage(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UploadCover(context.Background(), "a.png", strings.NewReader("x"), 1, "image/png")
	if !errors.Is(err, core.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestHandlerLibrary(t *testing.T) {
	f := newFixture(
		Manual{ID: "1", Title: "Analyse", Subject: ptr("math"), LevelID: ptr("l1"), CreatedAt: ts(2)},
		Manual{ID: "2", Title: "Grammaire", Subject: ptr("français"), CreatedAt: ts(1)},
	)
	r := chi.NewRouter()
	NewHandler(f.svc, 0).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/catalog?niveau=Seconde&sort=alphabetical", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success bool `json:"success"`
		Data    View `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Data.Manuals) != 1 || body.Data.SelectedLevel != "l1" {
		t.Errorf("view = %+v", body.Data)
	}
	if len(body.Data.Subjects) != 2 {
		t.Errorf("Subjects = %v", body.Data.Subjects)
	}
}

func TestHandlerGetManualNotFound(t *testing.T) {
	f := newFixture()
	r := chi.NewRouter()
	NewHandler(f.svc, 0).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/manuals/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
