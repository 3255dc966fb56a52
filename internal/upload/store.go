package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"Sahaaya/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by a store that has no Cloudinary credentials.
var ErrNotConfigured = errors.New("file uploads are not configured")

// AssetStore keeps uploaded files and hands back a public URL.
type AssetStore interface {
	Upload(ctx context.Context, file io.Reader, filename string) (string, error)
}

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *zap.Logger
}

// NewCloudinaryStore builds a store from CLOUDINARY_URL. An empty URL yields
// a store whose uploads fail with ErrNotConfigured.
func NewCloudinaryStore(cfg *config.AppConfig, logger *zap.Logger) (*CloudinaryStore, error) {
	store := &CloudinaryStore{folder: cfg.UploadFolder, logger: logger}
	if cfg.CloudinaryURL == "" {
		logger.Warn("CLOUDINARY_URL not set, uploads disabled")
		return store, nil
	}

	cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	store.cld = cld
	return store, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	if s.cld == nil {
		return "", ErrNotConfigured
	}

	resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload error: %s", resp.Error.Message)
	}

	s.logger.Info("file uploaded", zap.String("filename", filename), zap.String("public_id", resp.PublicID))
	return resp.SecureURL, nil
}
