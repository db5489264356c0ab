package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"planmark/api/internal/util"
)

// MaxUploadBytes caps a single image attachment.
const MaxUploadBytes = 10 << 20

var (
	ErrDisabled        = errors.New("attachments disabled")
	ErrNotFound        = errors.New("attachment not found")
	ErrUnsupportedType = errors.New("unsupported attachment type")
	ErrTooLarge        = errors.New("attachment too large")
	ErrInvalidPath     = errors.New("invalid attachment path")
)

var imageExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

var (
	planIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	objectPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+/[A-Za-z0-9_-]+\.[a-z0-9]+$`)
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Object is an opened attachment. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store keeps image attachments in a MinIO/S3 bucket under <planID>/<id><ext>.
// A nil or unconfigured Store returns ErrDisabled from every operation.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and creates the bucket when missing. An
// empty endpoint yields a disabled store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return &Store{}, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Upload stores an image and returns its attachment path.
func (s *Store) Upload(ctx context.Context, planID, filename, contentType string, r io.Reader, size int64) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	key, err := ObjectKey(planID, filename, contentType, util.NewID(""))
	if err != nil {
		return "", err
	}
	if size > MaxUploadBytes {
		return "", ErrTooLarge
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: normalizeContentType(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return key, nil
}

// Open returns the stored object at an attachment path.
func (s *Store) Open(ctx context.Context, objectPath string) (Object, error) {
	if !s.Enabled() {
		return Object{}, ErrDisabled
	}
	if !ValidPath(objectPath) {
		return Object{}, ErrInvalidPath
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return Object{}, mapObjectError(err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return Object{}, mapObjectError(err)
	}
	return Object{Body: obj, ContentType: info.ContentType, Size: info.Size}, nil
}

// ObjectKey builds <planID>/<id><ext>. The extension follows the content type,
// falling back to the filename only when it names the same image kind.
func ObjectKey(planID, filename, contentType, id string) (string, error) {
	if !planIDPattern.MatchString(planID) {
		return "", ErrInvalidPath
	}
	ext, ok := imageExtensions[normalizeContentType(contentType)]
	if !ok {
		return "", ErrUnsupportedType
	}
	if fromName := strings.ToLower(path.Ext(filename)); fromName == ".jpeg" && ext == ".jpg" {
		ext = fromName
	}
	key := fmt.Sprintf("%s/%s%s", planID, id, ext)
	if !ValidPath(key) {
		return "", ErrInvalidPath
	}
	return key, nil
}

// ValidPath reports whether p has the <planID>/<id><ext> shape.
func ValidPath(p string) bool {
	return objectPattern.MatchString(p)
}

func normalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func mapObjectError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return fmt.Errorf("open attachment: %w", err)
}
