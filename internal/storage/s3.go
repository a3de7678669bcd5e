package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"mysql-dump/internal/config"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// S3Provider uploads run directories to an S3 bucket. A custom endpoint
// switches the client to path-style addressing for S3-compatible
// services.
type S3Provider struct {
	client *s3.S3
	bucket string
	prefix string
	logger *logging.Logger
}

// NewS3Provider creates an S3 upload provider.
func NewS3Provider(cfg *config.S3UploadConfig, logger *logging.Logger) (*S3Provider, error) {
	if cfg == nil {
		return nil, apperrors.NewConfigError("s3 upload configuration is required", nil)
	}
	if cfg.Bucket == "" {
		return nil, apperrors.NewConfigError("s3 upload requires a bucket", nil)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsConfig := &aws.Config{
		Region: aws.String(region),
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create AWS session", err)
	}

	return &S3Provider{
		client: s3.New(sess),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Name returns the provider identifier.
func (p *S3Provider) Name() string {
	return config.UploadProviderS3
}

// StoreRun uploads every file of the run directory to the bucket.
func (p *S3Provider) StoreRun(ctx context.Context, runDir string) error {
	files, err := collectRunFiles(runDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		p.logger.WithField("run_dir", runDir).Info("Run directory has no files to upload")
		return nil
	}

	start := time.Now()
	for _, f := range files {
		if err := p.uploadFile(ctx, f); err != nil {
			return err
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"bucket":   p.bucket,
		"files":    len(files),
		"bytes":    totalSize(files),
		"duration": time.Since(start).String(),
	}).Info("Run uploaded to S3")

	return nil
}

func (p *S3Provider) uploadFile(ctx context.Context, f runFile) error {
	file, err := os.Open(f.localPath)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to open dump file %s", f.localPath), err)
	}
	defer file.Close()

	key := withPrefix(p.prefix, f.key)
	_, err = p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String(contentTypeFor(f.localPath)),
		ContentLength: aws.Int64(f.size),
	})
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to upload %s to S3", key), err)
	}

	p.logger.WithFields(map[string]interface{}{
		"key":   key,
		"bytes": f.size,
	}).Debug("Uploaded dump file")

	return nil
}
