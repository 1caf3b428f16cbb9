// AngelaMos | 2026
// core_test.go

package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/argon2"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("mot-de-passe-solide")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Errorf("hash = %q", hash)
	}

	ok, rehash, err := VerifyPasswordWithRehash("mot-de-passe-solide", hash)
	if err != nil || !ok || rehash != "" {
		t.Errorf("verify = %v %q %v", ok, rehash, err)
	}

	ok, _, err = VerifyPasswordWithRehash("autre", hash)
	if err != nil || ok {
		t.Errorf("wrong password verified: %v %v", ok, err)
	}
}

func TestVerifyRehashesOutdatedParams(t *testing.T) {
	old := Argon2Params{Memory: 32 * 1024, Time: 2, Threads: 2, KeyLen: 32}
	salt := []byte("0123456789abcdef")
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, old.Memory, old.Time, old.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(old.derive("secret-123", salt)),
	)

	ok, rehash, err := VerifyPasswordWithRehash("secret-123", encoded)
	if err != nil || !ok {
		t.Fatalf("verify = %v %v", ok, err)
	}
	if rehash == "" || rehash == encoded {
		t.Fatalf("rehash = %q", rehash)
	}
	if ok, again, _ := VerifyPasswordWithRehash("secret-123", rehash); !ok || again != "" {
		t.Errorf("rehash does not verify cleanly: %v %q", ok, again)
	}
}

func TestVerifyPasswordTimingSafe(t *testing.T) {
	empty := ""
	for _, hash := range []*string{nil, &empty} {
		ok, _, err := VerifyPasswordTimingSafe("anything", hash)
		if ok || err != nil {
			t.Errorf("missing hash verified: %v %v", ok, err)
		}
	}

	bad := "$bcrypt$nope"
	if _, _, err := VerifyPasswordTimingSafe("x", &bad); !errors.Is(err, errMalformedHash) {
		t.Errorf("error = %v, want malformed", err)
	}
}

func TestHashToken(t *testing.T) {
	token, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	if len(token) != 44 {
		t.Errorf("token length = %d", len(token))
	}
	if HashToken(token) != HashToken(token) || HashToken(token) == HashToken(token+"x") {
		t.Error("HashToken is not a stable digest")
	}
}

func TestFormatValidationError(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
		Theme string `validate:"oneof=light dark"`
		Delay int    `validate:"gte=5"`
	}

	err := validator.New().Struct(form{Email: "nope", Theme: "neon", Delay: 1})
	got := FormatValidationError(err)

	for _, want := range []string{
		"email must be a valid email",
		"theme must be one of: light dark",
		"delay is out of range (gte 5)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("%q missing %q", got, want)
		}
	}

	if FormatValidationError(errors.New("plain")) != "plain" {
		t.Error("plain errors should pass through")
	}
}

func TestAppErrorRedirect(t *testing.T) {
	base := ForbiddenError("")
	withRedirect := base.WithRedirect(RedirectLibrary)

	if base.Redirect != "" {
		t.Error("WithRedirect mutated the original")
	}
	if !errors.Is(withRedirect, ErrForbidden) || withRedirect.Redirect != RedirectLibrary {
		t.Errorf("err = %+v", withRedirect)
	}

	rec := httptest.NewRecorder()
	JSONError(rec, withRedirect)
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), `"redirect":"/bibliotheque"`) {
		t.Errorf("response = %d %s", rec.Code, rec.Body.String())
	}
}

func TestPostgresErrorCodes(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	col := &pgconn.PgError{Code: "42703"}

	if !IsDuplicateKey(dup) || IsDuplicateKey(col) {
		t.Error("IsDuplicateKey misclassified")
	}
	if !IsUndefinedColumn(col) || IsUndefinedColumn(errors.New("x")) {
		t.Error("IsUndefinedColumn misclassified")
	}
}

func TestEscapeLike(t *testing.T) {
	if got := EscapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("EscapeLike() = %q", got)
	}
}

func TestJSONMapScan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    int
		wantErr bool
	}{
		{"nil", nil, 0, false},
		{"bytes", []byte(`{"role":"admin","roles":["a"]}`), 2, false},
		{"string", `{"full_name":"Claire"}`, 1, false},
		{"empty", []byte{}, 0, false},
		{"bad json", []byte(`{`), 0, true},
		{"wrong type", 42, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m JSONMap
			err := m.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v", err)
			}
			if !tt.wantErr && len(m) != tt.want {
				t.Errorf("len = %d, want %d", len(m), tt.want)
			}
		})
	}

	var nilMap JSONMap
	v, err := nilMap.Value()
	if err != nil || string(v.([]byte)) != "{}" {
		t.Errorf("Value() = %v %v", v, err)
	}
}

func TestEventStream(t *testing.T) {
	rec := httptest.NewRecorder()

	stream, err := NewEventStream(rec)
	if err != nil {
		t.Fatalf("NewEventStream() error = %v", err)
	}
	if err := stream.Send("overview", map[string]int{"total": 3}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := stream.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	want := "event: overview\ndata: {\"total\":3}\n\n: ping\n\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}
