// Package storage keeps copies of exported workbooks in an S3 compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"storyboard/internal/config"
	"storyboard/internal/domain/services"
)

// DefaultLinkTTL is how long a presigned download link stays valid
const DefaultLinkTTL = 24 * time.Hour

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MinIOArchive implements services.ExportArchive on MinIO.
type MinIOArchive struct {
	client  *minio.Client
	bucket  string
	linkTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

var _ services.ExportArchive = (*MinIOArchive)(nil)

// NewMinIOArchive connects to the archive and creates the bucket when missing.
func NewMinIOArchive(ctx context.Context, cfg config.ExportArchiveConfig, logger *slog.Logger) (*MinIOArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("export archive bucket created", "bucket", cfg.Bucket)
	}

	return &MinIOArchive{
		client:  client,
		bucket:  cfg.Bucket,
		linkTTL: DefaultLinkTTL,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Store uploads data under exports/<user>/<date>/<uuid>-<filename> and
// returns a presigned GET URL.
func (a *MinIOArchive) Store(ctx context.Context, userID, filename string, data []byte) (string, error) {
	objectName := a.objectName(userID, filename)

	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	link, err := a.client.PresignedGetObject(ctx, a.bucket, objectName, a.linkTTL, params)
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}

	a.logger.Debug("export archived", "object", objectName, "bytes", len(data))
	return link.String(), nil
}

func (a *MinIOArchive) objectName(userID, filename string) string {
	return path.Join("exports", userID, a.now().UTC().Format("2006-01-02"), uuid.NewString()+"-"+path.Base(filename))
}
