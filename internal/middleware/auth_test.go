// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edig/bibliotheque/internal/core"
)

type fakeResolver struct {
	role  string
	err   error
	calls int
}

func (f *fakeResolver) ResolveRole(context.Context, string) (string, error) {
	f.calls++
	return f.role, f.err
}

type fakeVerifier struct {
	claims *AccessTokenClaims
	err    error
}

func (f *fakeVerifier) VerifyAccessToken(context.Context, string) (*AccessTokenClaims, error) {
	return f.claims, f.err
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) core.ErrorBody {
	t.Helper()

	var body core.Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error == nil {
		t.Fatalf("body = %+v, want error envelope", body)
	}
	return *body.Error
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name         string
		userID       string
		resolver     *fakeResolver
		wantStatus   int
		wantRedirect string
		wantCalls    int
	}{
		{
			name:         "anonymous",
			resolver:     &fakeResolver{role: "admin"},
			wantStatus:   http.StatusUnauthorized,
			wantRedirect: core.RedirectLogin,
			wantCalls:    0,
		},
		{
			name:         "account gone",
			userID:       "u-1",
			resolver:     &fakeResolver{err: fmt.Errorf("get user: %w", core.ErrNotFound)},
			wantStatus:   http.StatusUnauthorized,
			wantRedirect: core.RedirectLogin,
			wantCalls:    1,
		},
		{
			name:         "teacher",
			userID:       "u-2",
			resolver:     &fakeResolver{role: "enseignant"},
			wantStatus:   http.StatusForbidden,
			wantRedirect: core.RedirectLibrary,
			wantCalls:    1,
		},
		{
			name:         "plain user",
			userID:       "u-3",
			resolver:     &fakeResolver{role: "user"},
			wantStatus:   http.StatusForbidden,
			wantRedirect: core.RedirectLibrary,
			wantCalls:    1,
		},
		{
			name:       "resolver failure",
			userID:     "u-4",
			resolver:   &fakeResolver{err: errors.New("redis down")},
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			h := RequireAdmin(tt.resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/admin/dashboard", nil)
			if tt.userID != "" {
				req = req.WithContext(WithUserID(req.Context(), tt.userID))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if reached {
				t.Fatal("guarded handler reached")
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.resolver.calls != tt.wantCalls {
				t.Errorf("resolver calls = %d, want %d", tt.resolver.calls, tt.wantCalls)
			}
			if got := decodeError(t, rec).Redirect; got != tt.wantRedirect {
				t.Errorf("redirect = %q, want %q", got, tt.wantRedirect)
			}
		})
	}
}

func TestRequireAdminPassesResolvedRole(t *testing.T) {
	var role string
	h := RequireAdmin(&fakeResolver{role: "admin"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ = r.Context().Value(UserRoleKey).(string)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/dashboard", nil)
	ctx := withClaims(req.Context(), &AccessTokenClaims{UserID: "u-1", Role: "user"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if role != "admin" {
		t.Errorf("role in context = %q, want resolved role over token claim", role)
	}
}

func TestRequireRoleAcceptsAnyListed(t *testing.T) {
	guard := RequireRole(&fakeResolver{role: "enseignant"}, "admin", "enseignant")
	h := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithUserID(req.Context(), "u-1")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthenticator(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		verifier   *fakeVerifier
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing token",
			verifier:   &fakeVerifier{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "expired",
			header:     "Bearer abc",
			verifier:   &fakeVerifier{err: fmt.Errorf("verify: %w", core.ErrTokenExpired)},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_EXPIRED",
		},
		{
			name:       "revoked",
			header:     "Bearer abc",
			verifier:   &fakeVerifier{err: core.ErrTokenRevoked},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_REVOKED",
		},
		{
			name:       "garbage",
			header:     "Bearer abc",
			verifier:   &fakeVerifier{err: errors.New("bad signature")},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_INVALID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Authenticator(tt.verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler reached")
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeError(t, rec)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Redirect != core.RedirectLogin {
				t.Errorf("redirect = %q, want %q", body.Redirect, core.RedirectLogin)
			}
		})
	}
}

func TestAuthenticatorSetsClaims(t *testing.T) {
	verifier := &fakeVerifier{claims: &AccessTokenClaims{UserID: "u-7", JTI: "j-1"}}
	var gotID string
	h := Authenticator(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetUserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/session/events?access_token=tok", nil)
	req.Header.Set("Accept", "text/event-stream")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotID != "u-7" {
		t.Errorf("user id = %q, want u-7", gotID)
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		accept string
		query  string
		want   string
	}{
		{"bearer", "Bearer abc", "", "", "abc"},
		{"lowercase scheme", "bearer  abc ", "", "", "abc"},
		{"basic rejected", "Basic abc", "", "", ""},
		{"event stream query", "", "text/event-stream", "?access_token=q1", "q1"},
		{"query ignored for json", "", "application/json", "?access_token=q1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if got := ExtractToken(req); got != tt.want {
				t.Errorf("ExtractToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
