// AngelaMos | 2026
// profile_test.go

package profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/edig/bibliotheque/internal/core"
)

type fakeRepo struct {
	byColumn map[string]map[string]Record
	errs     map[string]error
	calls    []string
}

func (f *fakeRepo) FindBy(_ context.Context, column, value string) (Record, error) {
	f.calls = append(f.calls, column)
	if err := f.errs[column]; err != nil {
		return nil, err
	}
	if rec, ok := f.byColumn[column][value]; ok {
		return rec, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) List(context.Context) ([]Record, error) { return nil, nil }
func (f *fakeRepo) Upsert(context.Context, Fields) error { return nil }
func (f *fakeRepo) SetRole(context.Context, string, string) error { return nil }
func (f *fakeRepo) Delete(context.Context, string) error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFindForPrincipalOrder(t *testing.T) {
	tests := []struct {
		name      string
		repo      *fakeRepo
		wantRole  string
		wantErr   bool
		wantCalls []string
	}{
		{
			name: "by id",
			repo: &fakeRepo{byColumn: map[string]map[string]Record{
				ColumnID:     {"u1": {"role": "admin"}},
				ColumnUserID: {"u1": {"role": "eleve"}},
			}},
			wantRole:  "admin",
			wantCalls: []string{ColumnID},
		},
		{
			name: "by user_id",
			repo: &fakeRepo{byColumn: map[string]map[string]Record{
				ColumnUserID: {"u1": {"role": "enseignant"}},
			}},
			wantRole:  "enseignant",
			wantCalls: []string{ColumnID, ColumnUserID},
		},
		{
			name: "by email after failure",
			repo: &fakeRepo{
				byColumn: map[string]map[string]Record{
					ColumnEmail: {"a@b.fr": {"role": "prof"}},
				},
				errs: map[string]error{ColumnUserID: errors.New("timeout")},
			},
			wantRole:  "prof",
			wantErr:   true,
			wantCalls: []string{ColumnID, ColumnUserID, ColumnEmail},
		},
		{
			name: "only role column counts",
			repo: &fakeRepo{byColumn: map[string]map[string]Record{
				ColumnID: {"u1": {"user_role": "admin", "account_role": "admin"}},
			}},
			wantRole:  "",
			wantCalls: []string{ColumnID},
		},
		{
			name: "every lookup failed",
			repo: &fakeRepo{errs: map[string]error{
				ColumnID:     errors.New("timeout"),
				ColumnUserID: errors.New("timeout"),
				ColumnEmail:  errors.New("timeout"),
			}},
			wantRole:  "",
			wantErr:   true,
			wantCalls: []string{ColumnID, ColumnUserID, ColumnEmail},
		},
		{
			name:      "none",
			repo:      &fakeRepo{},
			wantRole:  "",
			wantCalls: []string{ColumnID, ColumnUserID, ColumnEmail},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFinder(tt.repo, quietLogger())

			role, err := f.ProfileRole(context.Background(), "u1", "a@b.fr")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProfileRole() error = %v, wantErr %v", err, tt.wantErr)
			}
			if role != tt.wantRole {
				t.Errorf("role = %q, want %q", role, tt.wantRole)
			}
			if len(tt.repo.calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", tt.repo.calls, tt.wantCalls)
			}
			for i := range tt.wantCalls {
				if tt.repo.calls[i] != tt.wantCalls[i] {
					t.Errorf("calls = %v, want %v", tt.repo.calls, tt.wantCalls)
				}
			}
		})
	}
}

func TestFindForPrincipalSkipsEmpty(t *testing.T) {
	repo := &fakeRepo{}
	f := NewFinder(repo, quietLogger())

	if rec := f.FindForPrincipal(context.Background(), "", "a@b.fr"); rec != nil {
		t.Errorf("rec = %v, want nil", rec)
	}
	f.FindForPrincipal(context.Background(), "u1", "")
	if len(repo.calls) != 2 {
		t.Errorf("calls = %v, want id and user_id only", repo.calls)
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name  string
		rec   Record
		meta  map[string]any
		email string
		want  Projection
	}{
		{
			name: "stored fields win",
			rec: Record{
				"full_name":    "Marie Curie",
				"phone_number": "0102",
				"company":      "Sorbonne",
				"position":     "Chercheuse",
				"about":        "Physique",
			},
			meta:  map[string]any{"full_name": "Ignored", "avatar_url": "https://a/b.png"},
			email: "m@c.fr",
			want: Projection{
				FullName:     "Marie Curie",
				AvatarURL:    "https://a/b.png",
				Phone:        "0102",
				Bio:          "Physique",
				Organization: "Sorbonne",
				JobTitle:     "Chercheuse",
				Email:        "m@c.fr",
			},
		},
		{
			name:  "first and last name",
			rec:   Record{"first_name": "Ada", "last_name": []byte("Lovelace")},
			email: "ada@x.fr",
			want:  Projection{FullName: "Ada Lovelace", Email: "ada@x.fr"},
		},
		{
			name:  "metadata name",
			meta:  map[string]any{"name": " Alan "},
			email: "a@t.fr",
			want:  Projection{FullName: "Alan", Email: "a@t.fr"},
		},
		{
			name:  "email fallback",
			email: "x@y.fr",
			want:  Projection{FullName: "x@y.fr", Email: "x@y.fr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Project(tt.rec, tt.meta, tt.email); got != tt.want {
				t.Errorf("Project() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRecordTime(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := Record{"inserted_at": at, "bad": "yesterday"}

	if got := rec.Time("created_at", "bad", "inserted_at"); got == nil || !got.Equal(at) {
		t.Errorf("Time() = %v, want %v", got, at)
	}
	if got := rec.Time("missing"); got != nil {
		t.Errorf("Time() = %v, want nil", got)
	}
}
