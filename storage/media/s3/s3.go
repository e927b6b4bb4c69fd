package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/storage/media"
)

// StoreImpl uploads media to S3 or any compatible service (R2, Backblaze, MinIO).
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var newMinioClient = func(endpoint string, opts *minio.Options) (s3Client, error) {
	return minio.New(endpoint, opts)
}

var kindExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

type StoreImpl struct {
	client         s3Client
	bucket         string
	prefix         string
	publicBase     string
	forcePathStyle bool
	endpointHost   string
	region         string
	newKey         func() string
}

// NewS3MediaStore builds a store from the media config. The credential triple maps to
// bucket, access key id and secret access key.
func NewS3MediaStore(cfg *config.Media) (*StoreImpl, error) {
	if cfg == nil || cfg.S3 == nil {
		return nil, fmt.Errorf("s3 media config is nil")
	}

	if !cfg.Credentials.Configured() {
		return nil, fmt.Errorf("s3 credentials are not configured")
	}

	s3cfg := cfg.S3
	publicBase := strings.TrimSuffix(strings.TrimSpace(s3cfg.PublicUrl), "/")
	if publicBase != "" && !strings.HasPrefix(publicBase, "https://") {
		return nil, fmt.Errorf("s3 public_url must use https, got %q", s3cfg.PublicUrl)
	}
	if s3cfg.DisableSSL && publicBase == "" {
		return nil, fmt.Errorf("s3 disable_ssl requires an https public_url")
	}

	bucket := strings.TrimSpace(cfg.Credentials.CloudName)
	region := strings.TrimSpace(s3cfg.Region)
	if strings.EqualFold(region, "auto") {
		region = ""
	}

	endpointHost := strings.TrimSpace(s3cfg.Endpoint)
	if endpointHost == "" {
		if region == "" {
			endpointHost = "s3.amazonaws.com"
		} else {
			endpointHost = fmt.Sprintf("s3.%s.amazonaws.com", region)
		}
	} else {
		if parsed, err := url.Parse(endpointHost); err == nil && parsed.Host != "" {
			endpointHost = parsed.Host
		}
	}

	lookup := minio.BucketLookupAuto
	if s3cfg.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := newMinioClient(endpointHost, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.Credentials.ApiKey, cfg.Credentials.ApiSecret, ""),
		Secure:       !s3cfg.DisableSSL,
		Region:       region,
		BucketLookup: lookup,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to verify s3 bucket %q: %w", bucket, err)
	}

	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist or is not accessible", bucket)
	}

	return &StoreImpl{
		client:         client,
		bucket:         bucket,
		prefix:         strings.Trim(s3cfg.Prefix, "/"),
		publicBase:     publicBase,
		forcePathStyle: s3cfg.ForcePathStyle,
		endpointHost:   endpointHost,
		region:         s3cfg.Region,
		newKey:         uuid.NewString,
	}, nil
}

// Upload stores data under a per-kind key prefix and returns the object's public URL.
func (s *StoreImpl) Upload(ctx context.Context, data []byte, kind media.Kind, contentType string) (string, error) {
	if len(data) == 0 {
		return "", media.ErrEmptyPayload
	}

	key, err := s.objectKey(kind, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", media.ErrRemoteUploadFailed, err)
	}

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("%w: upload to s3 failed: %w", media.ErrRemoteUploadFailed, err)
	}

	return s.objectURL(key), nil
}

func (s *StoreImpl) objectKey(kind media.Kind, contentType string) (string, error) {
	var folder string
	switch kind {
	case media.KindImage:
		folder = "images"
	case media.KindVideo:
		folder = "videos"
	default:
		return "", fmt.Errorf("unsupported media kind %q", kind)
	}

	ext, ok := kindExtensions[contentType]
	if !ok {
		ext = kind.DefaultExt()
	}

	return path.Join(s.prefix, folder, s.newKey()+ext), nil
}

func (s *StoreImpl) objectURL(key string) string {
	if s.publicBase != "" {
		return fmt.Sprintf("%s/%s", s.publicBase, key)
	}

	if s.forcePathStyle {
		return fmt.Sprintf("https://%s/%s/%s", s.endpointHost, s.bucket, key)
	}

	return fmt.Sprintf("https://%s.%s/%s", s.bucket, s.endpointHost, key)
}
