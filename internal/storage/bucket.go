// AngelaMos | 2026
// bucket.go

package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/edig/bibliotheque/internal/config"
	"github.com/edig/bibliotheque/internal/core"
)

const (
	keyPrefix       = "manuals/"
	fallbackName    = "cover"
	maxFilenameRune = 120
)

// Bucket stores manual covers in an S3-compatible bucket and hands back
// their public URL.
type Bucket struct {
	client  *minio.Client
	bucket  string
	baseURL string
	now     func() time.Time
}

func NewBucket(cfg config.StorageConfig) (*Bucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Bucket{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBase(cfg),
		now:     time.Now,
	}, nil
}

func (b *Bucket) Upload(
	ctx context.Context,
	filename string,
	body io.Reader,
	size int64,
	contentType string,
) (string, error) {
	key := ObjectKey(filename, b.now())

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := b.client.PutObject(ctx, b.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return b.PublicURL(key), nil
}

func (b *Bucket) PublicURL(key string) string {
	return b.baseURL + "/" + b.bucket + "/" + key
}

// Ping reports whether the bucket is reachable and exists.
func (b *Bucket) Ping(ctx context.Context) error {
	ok, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if !ok {
		return fmt.Errorf("storage: bucket %q missing: %w", b.bucket, core.ErrUnavailable)
	}
	return nil
}

// ObjectKey is manuals/{unix millis}_{sanitized filename}.
func ObjectKey(filename string, at time.Time) string {
	return keyPrefix + strconv.FormatInt(at.UnixMilli(), 10) + "_" + SanitizeFilename(filename)
}

// SanitizeFilename keeps the base name, replacing anything outside
// letters, digits, dot, dash and underscore with an underscore.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}

	var b strings.Builder
	lastUnderscore := false
	n := 0
	for _, r := range name {
		if n == maxFilenameRune {
			break
		}
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)),
			r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if lastUnderscore {
				continue
			}
			b.WriteByte('_')
			lastUnderscore = true
		}
		n++
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return fallbackName
	}
	return out
}

func publicBase(cfg config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}
