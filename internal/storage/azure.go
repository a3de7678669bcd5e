package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"mysql-dump/internal/config"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// AzureProvider uploads run directories to an Azure Blob Storage
// container.
type AzureProvider struct {
	serviceURL azblob.ServiceURL
	container  string
	logger     *logging.Logger
}

// NewAzureProvider creates an Azure Blob Storage upload provider.
func NewAzureProvider(cfg *config.AzureUploadConfig, logger *logging.Logger) (*AzureProvider, error) {
	if cfg == nil {
		return nil, apperrors.NewConfigError("azure upload configuration is required", nil)
	}
	if cfg.AccountName == "" || cfg.AccountKey == "" || cfg.Container == "" {
		return nil, apperrors.NewConfigError("azure upload requires account_name, account_key and container", nil)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	endpoint, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureProvider{
		serviceURL: azblob.NewServiceURL(*endpoint, pipeline),
		container:  cfg.Container,
		logger:     logger,
	}, nil
}

// Name returns the provider identifier.
func (p *AzureProvider) Name() string {
	return config.UploadProviderAzure
}

// StoreRun uploads every file of the run directory as a block blob.
func (p *AzureProvider) StoreRun(ctx context.Context, runDir string) error {
	files, err := collectRunFiles(runDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		p.logger.WithField("run_dir", runDir).Info("Run directory has no files to upload")
		return nil
	}

	containerURL := p.serviceURL.NewContainerURL(p.container)

	start := time.Now()
	for _, f := range files {
		if err := p.uploadFile(ctx, containerURL, f); err != nil {
			return err
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"container": p.container,
		"files":     len(files),
		"bytes":     totalSize(files),
		"duration":  time.Since(start).String(),
	}).Info("Run uploaded to Azure")

	return nil
}

func (p *AzureProvider) uploadFile(ctx context.Context, containerURL azblob.ContainerURL, f runFile) error {
	file, err := os.Open(f.localPath)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to open dump file %s", f.localPath), err)
	}
	defer file.Close()

	blobURL := containerURL.NewBlockBlobURL(f.key)
	_, err = azblob.UploadFileToBlockBlob(ctx, file, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 16,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: contentTypeFor(f.localPath),
		},
	})
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to upload %s to Azure", f.key), err)
	}

	p.logger.WithFields(map[string]interface{}{
		"blob":  f.key,
		"bytes": f.size,
	}).Debug("Uploaded dump file")

	return nil
}
