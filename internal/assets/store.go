// Package assets stores uploaded media for image, video and audio elements
// in S3-compatible object storage.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"atomdeck/api/internal/util"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const (
	MaxUploadBytes = 50 << 20
	URLExpiry      = 7 * 24 * time.Hour
)

var (
	ErrUnsupportedType = errors.New("unsupported asset content type")
	ErrEmptyUpload     = errors.New("asset upload is empty")
	ErrTooLarge        = errors.New("asset exceeds upload limit")
)

// Asset describes a stored object.
type Asset struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// objectClient is the subset of *minio.Client the store uses.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, params url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

type Store struct {
	client objectClient
	bucket string
	log    *zap.Logger
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// New connects to the object store and creates the bucket when missing.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	s := newStore(client, cfg.Bucket, logger)
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(client objectClient, bucket string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, bucket: bucket, log: logger.Named("assets")}
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.log.Info("created asset bucket", zap.String("bucket", s.bucket))
	return nil
}

// Upload stores r under a fresh key and returns a presigned URL for it.
// size may be -1 when unknown.
func (s *Store) Upload(ctx context.Context, presentationID, contentType string, r io.Reader, size int64) (Asset, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	ext, ok := allowedTypes[mediaType]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}
	if size == 0 {
		return Asset{}, ErrEmptyUpload
	}
	if size > MaxUploadBytes {
		return Asset{}, ErrTooLarge
	}

	key := ObjectKey(presentationID, util.ShortID("asset"), ext)
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: mediaType})
	if err != nil {
		return Asset{}, fmt.Errorf("put object: %w", err)
	}

	u, err := s.URL(ctx, key)
	if err != nil {
		return Asset{}, err
	}
	s.log.Debug("stored asset", zap.String("key", key), zap.Int64("size", info.Size))
	return Asset{Key: key, URL: u, ContentType: mediaType, Size: info.Size}, nil
}

// URL returns a time-limited download link for key.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, URLExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

var allowedTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"audio/mpeg":      ".mp3",
	"audio/ogg":       ".ogg",
	"audio/wav":       ".wav",
	"application/pdf": ".pdf",
}

// ObjectKey places assets under their presentation, or under "shared" when
// the upload is not tied to one.
func ObjectKey(presentationID, id, ext string) string {
	folder := strings.TrimSpace(presentationID)
	if folder == "" || strings.ContainsAny(folder, "/\\") || folder == "." || folder == ".." {
		folder = "shared"
	}
	return path.Join("presentations", folder, id+ext)
}
