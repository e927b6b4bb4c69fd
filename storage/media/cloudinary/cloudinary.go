package cloudinary

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/tonelab/venue/config"
	"github.com/tonelab/venue/storage/media"
)

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

var newCloudinaryClient = func(creds config.Credentials) (uploadAPI, error) {
	cld, err := cloudinary.NewFromParams(creds.CloudName, creds.ApiKey, creds.ApiSecret)
	if err != nil {
		return nil, err
	}

	return &cld.Upload, nil
}

// StoreImpl uploads media to Cloudinary. Images and videos go to separate folders
// so they can carry different delivery and retention policies.
type StoreImpl struct {
	client  uploadAPI
	folders map[media.Kind]string
}

func NewCloudinaryMediaStore(cfg *config.Media) (*StoreImpl, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cloudinary media config is nil")
	}

	if !cfg.Credentials.Configured() {
		return nil, fmt.Errorf("cloudinary credentials are not configured")
	}

	client, err := newCloudinaryClient(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}

	folder := strings.Trim(cfg.Cloudinary.Folder, "/")
	if folder == "" {
		folder = "tonelab-events"
	}

	return &StoreImpl{
		client: client,
		folders: map[media.Kind]string{
			media.KindImage: folder,
			media.KindVideo: path.Join(folder, "videos"),
		},
	}, nil
}

// Upload sends data as a base64 data URI and returns the secure URL Cloudinary assigns.
func (s *StoreImpl) Upload(ctx context.Context, data []byte, kind media.Kind, contentType string) (string, error) {
	if len(data) == 0 {
		return "", media.ErrEmptyPayload
	}

	folder, ok := s.folders[kind]
	if !ok {
		return "", fmt.Errorf("%w: unsupported media kind %q", media.ErrRemoteUploadFailed, kind)
	}

	params := uploader.UploadParams{
		Folder:       folder,
		ResourceType: string(kind),
	}

	result, err := s.client.Upload(ctx, dataURI(contentType, data), params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", media.ErrRemoteUploadFailed, err)
	}

	if result == nil {
		return "", fmt.Errorf("%w: empty response", media.ErrRemoteUploadFailed)
	}

	if result.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", media.ErrRemoteUploadFailed, result.Error.Message)
	}

	if !strings.HasPrefix(result.SecureURL, "https://") {
		return "", fmt.Errorf("%w: response carried no secure url", media.ErrRemoteUploadFailed)
	}

	return result.SecureURL, nil
}

func dataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
