package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"mysql-dump/internal/config"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// GCSProvider uploads run directories to a Google Cloud Storage bucket.
type GCSProvider struct {
	client *gcs.Client
	bucket string
	prefix string
	logger *logging.Logger
}

// NewGCSProvider creates a GCS upload provider. Without an explicit
// credentials file the client uses application default credentials.
func NewGCSProvider(ctx context.Context, cfg *config.GCSUploadConfig, logger *logging.Logger) (*GCSProvider, error) {
	if cfg == nil {
		return nil, apperrors.NewConfigError("gcs upload configuration is required", nil)
	}
	if cfg.Bucket == "" {
		return nil, apperrors.NewConfigError("gcs upload requires a bucket", nil)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	var client *gcs.Client
	var err error
	if cfg.CredentialsPath != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
	} else {
		client, err = gcs.NewClient(ctx)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create GCS client", err)
	}

	return &GCSProvider{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Name returns the provider identifier.
func (p *GCSProvider) Name() string {
	return config.UploadProviderGCS
}

// StoreRun uploads every file of the run directory to the bucket.
func (p *GCSProvider) StoreRun(ctx context.Context, runDir string) error {
	files, err := collectRunFiles(runDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		p.logger.WithField("run_dir", runDir).Info("Run directory has no files to upload")
		return nil
	}

	bucket := p.client.Bucket(p.bucket)

	start := time.Now()
	for _, f := range files {
		if err := p.uploadFile(ctx, bucket, f); err != nil {
			return err
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"bucket":   p.bucket,
		"files":    len(files),
		"bytes":    totalSize(files),
		"duration": time.Since(start).String(),
	}).Info("Run uploaded to GCS")

	return nil
}

func (p *GCSProvider) uploadFile(ctx context.Context, bucket *gcs.BucketHandle, f runFile) error {
	file, err := os.Open(f.localPath)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to open dump file %s", f.localPath), err)
	}
	defer file.Close()

	key := withPrefix(p.prefix, f.key)
	w := bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentTypeFor(f.localPath)

	if _, err := io.Copy(w, file); err != nil {
		w.Close()
		return apperrors.NewStorageError(fmt.Sprintf("failed to write %s to GCS", key), err)
	}
	if err := w.Close(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to upload %s to GCS", key), err)
	}

	p.logger.WithFields(map[string]interface{}{
		"object": key,
		"bytes":  f.size,
	}).Debug("Uploaded dump file")

	return nil
}
