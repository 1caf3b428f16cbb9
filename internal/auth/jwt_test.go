// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edig/bibliotheque/internal/config"
	"github.com/edig/bibliotheque/internal/core"
)

func newJWTManager(t *testing.T, mutate func(*config.JWTConfig)) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	cfg := config.JWTConfig{
		PrivateKeyPath:     filepath.Join(dir, "keys", "private.pem"),
		PublicKeyPath:      filepath.Join(dir, "keys", "public.pem"),
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "bibliotheque",
		Audience:           "bibliotheque-api",
		GenerateKeys:       true,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	m, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManagerGeneratesMissingKeys(t *testing.T) {
	m := newJWTManager(t, nil)

	if _, err := os.Stat(m.cfg.PrivateKeyPath); err != nil {
		t.Errorf("private key not written: %v", err)
	}
	if _, err := os.Stat(m.cfg.PublicKeyPath); err != nil {
		t.Errorf("public key not written: %v", err)
	}
	if m.GetKeyID() == "" {
		t.Error("empty key id")
	}

	again, err := NewJWTManager(m.cfg)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.GetKeyID() != m.GetKeyID() {
		t.Errorf("key id changed on reload: %q vs %q", again.GetKeyID(), m.GetKeyID())
	}
}

func TestNewJWTManagerMissingKey(t *testing.T) {
	_, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath: filepath.Join(t.TempDir(), "absent.pem"),
	})
	if err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newJWTManager(t, nil)

	raw, err := m.CreateAccessToken(AccessTokenClaims{UserID: "user-1", Role: "admin", TokenVersion: 3})
	if err != nil {
		t.Fatalf("CreateAccessToken() error = %v", err)
	}

	claims, err := m.VerifyAccessToken(context.Background(), raw)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "admin" || claims.TokenVersion != 3 {
		t.Errorf("claims = %+v", claims)
	}
	if claims.JTI == "" || time.Until(claims.ExpiresAt) <= 0 {
		t.Errorf("jti = %q exp = %v", claims.JTI, claims.ExpiresAt)
	}
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	m := newJWTManager(t, nil)
	other := newJWTManager(t, func(c *config.JWTConfig) { c.Audience = "someone-else" })
	expired := newJWTManager(t, func(c *config.JWTConfig) { c.AccessTokenExpire = -time.Minute })

	foreign, _ := other.CreateAccessToken(AccessTokenClaims{UserID: "u"})
	stale, _ := expired.CreateAccessToken(AccessTokenClaims{UserID: "u"})

	tests := []struct {
		name    string
		manager *JWTManager
		token   string
		want    error
	}{
		{"garbage", m, "not-a-jwt", core.ErrTokenInvalid},
		{"other key", m, foreign, core.ErrTokenInvalid},
		{"expired", expired, stale, core.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.VerifyAccessToken(context.Background(), tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateRefreshToken(t *testing.T) {
	m := newJWTManager(t, nil)

	fresh, err := m.CreateRefreshToken("user-1", "")
	if err != nil {
		t.Fatalf("CreateRefreshToken() error = %v", err)
	}
	if fresh.FamilyID == "" || fresh.Hash != core.HashToken(fresh.Token) {
		t.Errorf("token = %+v", fresh)
	}

	rotated, _ := m.CreateRefreshToken("user-1", fresh.FamilyID)
	if rotated.FamilyID != fresh.FamilyID || rotated.Token == fresh.Token {
		t.Errorf("rotation kept token or lost family: %+v", rotated)
	}
}

func TestJWKSHandler(t *testing.T) {
	m := newJWTManager(t, nil)

	rec := httptest.NewRecorder()
	m.GetJWKSHandler()(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

	var body struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Keys) != 1 || body.Keys[0]["kid"] != m.GetKeyID() {
		t.Fatalf("keys = %v", body.Keys)
	}
	if _, leaked := body.Keys[0]["d"]; leaked {
		t.Error("private component published")
	}
}
