// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func ok(context.Context) error { return nil }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     []Check
		wantStatus int
		wantBody   string
		unhealthy  []string
	}{
		{
			name: "all healthy",
			checks: []Check{
				{Name: "database", Checker: CheckFunc(ok)},
				{Name: "redis", Checker: CheckFunc(ok)},
				{Name: "storage", Checker: CheckFunc(ok)},
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "optional storage down",
			checks: []Check{
				{Name: "database", Checker: CheckFunc(ok)},
				{Name: "storage", Optional: true, Checker: CheckFunc(func(context.Context) error {
					return errors.New("bucket missing")
				})},
			},
			wantStatus: http.StatusOK,
			wantBody:   "degraded",
			unhealthy:  []string{"storage"},
		},
		{
			name: "database down",
			checks: []Check{
				{Name: "database", Checker: CheckFunc(func(context.Context) error {
					return errors.New("connection refused")
				})},
				{Name: "storage", Optional: true, Checker: CheckFunc(ok)},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unavailable",
			unhealthy:  []string{"database"},
		},
		{
			name:       "unconfigured checker",
			checks:     []Check{{Name: "redis"}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unavailable",
			unhealthy:  []string{"redis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(NewHandler(tt.checks...), "/readyz")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body ReadinessResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("status = %q, want %q", body.Status, tt.wantBody)
			}
			if len(body.Checks) != len(tt.checks) {
				t.Fatalf("checks = %d, want %d", len(body.Checks), len(tt.checks))
			}

			var down []string
			for i, c := range body.Checks {
				if c.Name != tt.checks[i].Name {
					t.Errorf("check %d = %q, want %q", i, c.Name, tt.checks[i].Name)
				}
				if !c.Healthy {
					down = append(down, c.Name)
				}
			}
			if len(down) != len(tt.unhealthy) {
				t.Errorf("unhealthy = %v, want %v", down, tt.unhealthy)
			}
		})
	}
}

func TestReadinessRunsChecksConcurrently(t *testing.T) {
	slow := CheckFunc(func(ctx context.Context) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	h := NewHandler(
		Check{Name: "database", Checker: slow},
		Check{Name: "redis", Checker: slow},
		Check{Name: "storage", Checker: slow},
	)

	start := time.Now()
	rec := serve(h, "/readyz")
	elapsed := time.Since(start)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if elapsed >= 550*time.Millisecond {
		t.Errorf("readiness took %v, checks ran sequentially", elapsed)
	}
}

func TestShutdownAndReady(t *testing.T) {
	h := NewHandler(Check{Name: "database", Checker: CheckFunc(ok)})

	if rec := serve(h, "/livez"); rec.Code != http.StatusOK {
		t.Errorf("livez = %d", rec.Code)
	}

	h.SetReady(false)
	if rec := serve(h, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz while not ready = %d", rec.Code)
	}

	h.SetReady(true)
	h.SetShutdown(true)
	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		rec := serve(h, path)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s during shutdown = %d", path, rec.Code)
		}
	}
}
