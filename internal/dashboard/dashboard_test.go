// AngelaMos | 2026
// dashboard_test.go

package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edig/bibliotheque/internal/activity"
	"github.com/edig/bibliotheque/internal/auth"
	"github.com/edig/bibliotheque/internal/catalog"
	"github.com/edig/bibliotheque/internal/middleware"
	"github.com/edig/bibliotheque/internal/realtime"
)

var errBoom = errors.New("boom")

var base = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

type fakeManuals struct {
	count     int
	levels    []catalog.LevelCount
	times     []time.Time
	evolution []catalog.DayCount
	recent    []catalog.Manual
	failOn    map[string]bool
}

func (f *fakeManuals) fail(op string) error {
	if f.failOn[op] {
		return errBoom
	}
	return nil
}

func (f *fakeManuals) Count(context.Context) (int, error) {
	return f.count, f.fail("count")
}

func (f *fakeManuals) CountByLevel(context.Context) ([]catalog.LevelCount, error) {
	if err := f.fail("levels"); err != nil {
		return nil, err
	}
	return f.levels, nil
}

func (f *fakeManuals) CreationTimes(context.Context) ([]time.Time, error) {
	if err := f.fail("times"); err != nil {
		return nil, err
	}
	return f.times, nil
}

func (f *fakeManuals) Evolution(context.Context) ([]catalog.DayCount, error) {
	if err := f.fail("evolution"); err != nil {
		return nil, err
	}
	return f.evolution, nil
}

func (f *fakeManuals) Recent(_ context.Context, n int) ([]catalog.Manual, error) {
	if err := f.fail("recent"); err != nil {
		return nil, err
	}
	if len(f.recent) > n {
		return f.recent[:n], nil
	}
	return f.recent, nil
}

type fakeSignins struct{ err error }

func (f fakeSignins) SigninActivity(_ context.Context, days int) ([]auth.DayCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]auth.DayCount, days), nil
}

type fakeLog struct {
	entries []activity.Entry
	err     error
}

func (f fakeLog) Read(context.Context, string) ([]activity.Entry, error) {
	return f.entries, f.err
}

func (f fakeLog) Append(context.Context, string, activity.Entry) error { return nil }

type fakeChanges struct {
	emit    chan realtime.Change
	active  atomic.Int32
	table   string
	opCount int
}

func (f *fakeChanges) Subscribe(ctx context.Context, table string, ops []realtime.Op, handle realtime.Handler) {
	f.table = table
	f.opCount = len(ops)
	f.active.Add(1)
	defer f.active.Add(-1)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-f.emit:
			handle(c)
		}
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleManuals() *fakeManuals {
	return &fakeManuals{
		count:  3,
		levels: []catalog.LevelCount{{LevelID: "l1", LevelName: "6ème", Count: 2}, {LevelID: "l2", LevelName: "5ème"}},
		times:  []time.Time{base, base.Add(26 * time.Hour), base.Add(50 * time.Hour)},
		recent: []catalog.Manual{
			{ID: "m3", Title: "Histoire 3ème", CreatedAt: base.Add(50 * time.Hour)},
			{ID: "m2", Title: "Maths 6ème", CreatedAt: base.Add(26 * time.Hour)},
			{ID: "m1", Title: "Français 5ème", CreatedAt: base},
		},
	}
}

func TestFormatAverage(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		ok   bool
		want string
	}{
		{"not enough manuals", 0, false, "N/A"},
		{"all parts", 26*time.Hour + 3*time.Minute + 4*time.Second, true, "1j 2h 3m 4s"},
		{"zero parts omitted", 2*time.Hour + 5*time.Second, true, "2h 5s"},
		{"whole days", 48 * time.Hour, true, "2j"},
		{"sub-second", 300 * time.Millisecond, true, "0s"},
		{"zero gap", 0, true, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAverage(tt.d, tt.ok); got != tt.want {
				t.Errorf("FormatAverage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAverageBetween(t *testing.T) {
	if _, ok := AverageBetween([]time.Time{base}); ok {
		t.Error("single time reported ok")
	}

	avg, ok := AverageBetween([]time.Time{base, base.Add(time.Hour), base.Add(3 * time.Hour)})
	if !ok || avg != 90*time.Minute {
		t.Errorf("AverageBetween() = %v %v, want 1h30m true", avg, ok)
	}
}

func TestOverview(t *testing.T) {
	logged := activity.Entry{Message: `Manuel "Maths 6ème" modifié.`, CreatedAt: base.Add(60 * time.Hour)}
	svc := NewService(ServiceDeps{
		Manuals: sampleManuals(),
		Signins: fakeSignins{},
		Log:     fakeLog{entries: []activity.Entry{logged}},
		Logger:  quietLogger(),
	})

	ov := svc.Overview(context.Background(), "admin-1")

	if ov.TotalManuals != 3 || len(ov.LevelCounts) != 2 {
		t.Errorf("totals = %d %v", ov.TotalManuals, ov.LevelCounts)
	}
	if ov.AverageAddition != "1j 1h" {
		t.Errorf("average = %q, want 1j 1h", ov.AverageAddition)
	}
	if len(ov.SigninActivity) != signinDays {
		t.Errorf("sign-in days = %d", len(ov.SigninActivity))
	}
	if ov.LastAdded == nil || ov.LastAdded.ID != "m3" {
		t.Errorf("last added = %+v", ov.LastAdded)
	}
	if len(ov.Activity) != 4 || ov.Activity[0] != logged {
		t.Fatalf("activity = %+v", ov.Activity)
	}
	if ov.Activity[1].Message != "Nouveau manuel ajouté: Histoire 3ème" {
		t.Errorf("second entry = %q", ov.Activity[1].Message)
	}
}

func TestOverviewPartialFailure(t *testing.T) {
	m := sampleManuals()
	m.failOn = map[string]bool{"count": true, "times": true, "levels": true}

	svc := NewService(ServiceDeps{
		Manuals: m,
		Signins: fakeSignins{err: errBoom},
		Log:     fakeLog{err: errBoom},
		Logger:  quietLogger(),
	})

	ov := svc.Overview(context.Background(), "admin-1")

	if ov.TotalManuals != 0 || ov.AverageAddition != "N/A" || len(ov.LevelCounts) != 0 || ov.LevelCounts == nil {
		t.Errorf("failed parts not empty: %+v", ov)
	}
	if ov.SigninActivity != nil {
		t.Errorf("sign-ins = %v", ov.SigninActivity)
	}
	if len(ov.RecentManuals) != 3 || len(ov.Activity) != 3 {
		t.Errorf("healthy parts lost: recent %d activity %d", len(ov.RecentManuals), len(ov.Activity))
	}
}

func TestActivity(t *testing.T) {
	logged := []activity.Entry{{Message: "local", CreatedAt: base.Add(time.Hour)}}

	tests := []struct {
		name      string
		failRecnt bool
		logErr    error
		want      int
	}{
		{"merged", false, nil, 4},
		{"log down keeps server events", false, errBoom, 3},
		{"recent down empties feed", true, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleManuals()
			m.failOn = map[string]bool{"recent": tt.failRecnt}
			svc := NewService(ServiceDeps{
				Manuals: m,
				Log:     fakeLog{entries: logged, err: tt.logErr},
				Logger:  quietLogger(),
			})

			got := svc.Activity(context.Background(), "admin-1")
			if len(got) != tt.want {
				t.Errorf("entries = %d, want %d (%+v)", len(got), tt.want, got)
			}
			if got == nil {
				t.Error("nil feed")
			}
		})
	}
}

func TestActivityCapsFeed(t *testing.T) {
	m := sampleManuals()
	var local []activity.Entry
	for i := range 5 {
		local = append(local, activity.Entry{Message: "local", CreatedAt: base.Add(time.Duration(100+i) * time.Hour)})
	}
	svc := NewService(ServiceDeps{Manuals: m, Log: fakeLog{entries: local}, Logger: quietLogger()})

	got := svc.Activity(context.Background(), "admin-1")
	if len(got) != activity.Capacity {
		t.Fatalf("entries = %d, want %d", len(got), activity.Capacity)
	}
	if got[activity.Capacity-1].Message != "Nouveau manuel ajouté: Histoire 3ème" {
		t.Errorf("oldest kept = %q", got[activity.Capacity-1].Message)
	}
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()

	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		case line == "" && ev.name != "":
			return ev
		}
	}
}

func TestStream(t *testing.T) {
	changes := &fakeChanges{emit: make(chan realtime.Change)}
	svc := NewService(ServiceDeps{
		Manuals: sampleManuals(),
		Changes: changes,
		Logger:  quietLogger(),
	})
	h := NewHandler(svc, quietLogger())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Stream(w, r.WithContext(middleware.WithUserID(r.Context(), "admin-1")))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	body := bufio.NewReader(resp.Body)
	if ev := readEvent(t, body); ev.name != "overview" {
		t.Fatalf("first event = %q", ev.name)
	}

	at := base.Add(72 * time.Hour)
	select {
	case changes.emit <- realtime.Change{Table: catalog.Table, Op: realtime.OpUpdate, Record: map[string]any{"title": "Physique 2nde"}, At: at}:
	case <-ctx.Done():
		t.Fatal("stream never subscribed")
	}

	live := readEvent(t, body)
	if live.name != "activity" {
		t.Fatalf("second event = %q", live.name)
	}
	var payload liveEntry
	if err := json.Unmarshal([]byte(live.data), &payload); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	if payload.Entry.Message != "Manuel modifié: Physique 2nde" || !payload.Entry.CreatedAt.Equal(at) {
		t.Errorf("live entry = %+v", payload.Entry)
	}
	if len(payload.Feed) != 4 || payload.Feed[0].Message != payload.Entry.Message {
		t.Errorf("feed = %+v", payload.Feed)
	}

	refreshed := readEvent(t, body)
	if refreshed.name != "overview" {
		t.Fatalf("third event = %q", refreshed.name)
	}
	var ov Overview
	if err := json.Unmarshal([]byte(refreshed.data), &ov); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if len(ov.Activity) != 4 || ov.Activity[0].Message != "Manuel modifié: Physique 2nde" {
		t.Errorf("overview activity = %+v", ov.Activity)
	}

	if changes.table != catalog.Table || changes.opCount != 2 {
		t.Errorf("subscribed to %q with %d ops", changes.table, changes.opCount)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for changes.active.Load() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if changes.active.Load() != 0 {
		t.Error("subscription not torn down after disconnect")
	}
}
