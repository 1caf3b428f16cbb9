// AngelaMos | 2026
// handler_test.go

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/edig/bibliotheque/internal/core"
	"github.com/edig/bibliotheque/internal/middleware"
)

func authRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	pass := func(next http.Handler) http.Handler { return next }
	NewHandler(f.svc).RegisterRoutes(r, middleware.Authenticator(f.svc), pass)
	return r
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) core.ErrorBody {
	t.Helper()
	var resp core.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil {
		t.Fatalf("no error body, status %d", rec.Code)
	}
	return *resp.Error
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     int
		wantCode string
	}{
		{"ok", `{"email":"direction@ecole.fr","password":"` + testPassword + `"}`, http.StatusOK, ""},
		{"bad password", `{"email":"direction@ecole.fr","password":"not-the-one"}`, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"invalid email", `{"email":"nope","password":"` + testPassword + `"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed", `{"email":`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(authRouter(newFixture(t)), "/auth/login", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.wantCode == "" {
				var resp struct {
					Data AuthResponse `json:"data"`
				}
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Data.Redirect != "/admin/dashboard" {
					t.Errorf("redirect = %q", resp.Data.Redirect)
				}
				return
			}
			if got := errorBody(t, rec); got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestRefreshHandlerRedirectsOnFailure(t *testing.T) {
	rec := post(authRouter(newFixture(t)), "/auth/refresh", `{"refresh_token":"unknown"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := errorBody(t, rec); got.Redirect != core.RedirectLogin {
		t.Errorf("redirect = %q, want %q", got.Redirect, core.RedirectLogin)
	}
}

func TestMeRequiresToken(t *testing.T) {
	rec := httptest.NewRecorder()
	authRouter(newFixture(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := errorBody(t, rec); got.Redirect != core.RedirectLogin {
		t.Errorf("redirect = %q", got.Redirect)
	}
}

func TestSigninActivityHandler(t *testing.T) {
	h := NewHandler(newFixture(t).svc)

	for _, tt := range []struct {
		query string
		want  int
	}{
		{"", http.StatusOK},
		{"?days=7", http.StatusOK},
		{"?days=0", http.StatusBadRequest},
		{"?days=366", http.StatusBadRequest},
		{"?days=abc", http.StatusBadRequest},
	} {
		rec := httptest.NewRecorder()
		h.SigninActivity(rec, httptest.NewRequest(http.MethodGet, "/admin/signins"+tt.query, nil))
		if rec.Code != tt.want {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.want)
		}
	}
}
