// Package blob implements repository.BlobStore on Google Cloud Storage and
// on MinIO/S3 compatible servers.
package blob

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/student-store/config"
	"github.com/oksasatya/student-store/internal/domain/repository"
)

// New builds the store selected by cfg.BlobBackend.
func New(ctx context.Context, cfg *config.Config) (repository.BlobStore, func() error, error) {
	switch cfg.BlobBackend {
	case "minio":
		s, err := NewMinIOStore(ctx, MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			Region:    cfg.MinIORegion,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	case "gcs":
		s, err := NewGCSStore(ctx, cfg.GCSCredentialsJSONPath, cfg.GCSBucket)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// objectKey is products/<yyyy>/<mm>/<dd>/<uuid><ext>.
func objectKey(now time.Time, ext string) string {
	return path.Join("products", now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}

func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
