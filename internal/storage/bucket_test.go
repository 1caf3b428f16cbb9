// AngelaMos | 2026
// bucket_test.go

package storage

import (
	"testing"
	"time"

	"github.com/edig/bibliotheque/internal/config"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "couverture.png", "couverture.png"},
		{"spaces and accents", "Maths 6ème.jpg", "Maths_6_me.jpg"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"windows path", `C:\Users\prof\cover.webp`, "cover.webp"},
		{"collapsed separators", "a  &&  b.png", "a_b.png"},
		{"only symbols", "###", "cover"},
		{"empty", "", "cover"},
		{"hidden file", ".env", "env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	at := time.UnixMilli(1767225600123)

	if got := ObjectKey("Mon Manuel.pdf", at); got != "manuals/1767225600123_Mon_Manuel.pdf" {
		t.Errorf("ObjectKey() = %q", got)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "configured base",
			cfg:  config.StorageConfig{Endpoint: "minio:9000", Bucket: "covers", PublicBaseURL: "https://cdn.ecole.fr/"},
			want: "https://cdn.ecole.fr/covers/manuals/1_a.png",
		},
		{
			name: "derived from endpoint",
			cfg:  config.StorageConfig{Endpoint: "minio:9000", Bucket: "covers", UseSSL: true},
			want: "https://minio:9000/covers/manuals/1_a.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBucket(tt.cfg)
			if err != nil {
				t.Fatalf("NewBucket() error = %v", err)
			}
			if got := b.PublicURL("manuals/1_a.png"); got != tt.want {
				t.Errorf("PublicURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
