// Package storage pushes finished run directories to external storage
// and prunes old runs under the local output directory. Upload failures
// never alter the per-table results of the run that produced the files.
package storage

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"mysql-dump/internal/config"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// Provider stores one finished run directory in a storage backend. The
// remote layout mirrors the local one: <prefix>/<run>/<database>/<file>.
type Provider interface {
	Name() string
	StoreRun(ctx context.Context, runDir string) error
}

// NewProvider creates the storage provider selected by the upload
// configuration.
func NewProvider(ctx context.Context, cfg config.UploadConfig, logger *logging.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.UploadProviderLocal:
		return NewLocalProvider(cfg.Local, logger)

	case config.UploadProviderS3:
		return NewS3Provider(cfg.S3, logger)

	case config.UploadProviderAzure:
		return NewAzureProvider(cfg.Azure, logger)

	case config.UploadProviderGCS:
		return NewGCSProvider(ctx, cfg.GCS, logger)

	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported upload provider: %s", cfg.Provider), nil)
	}
}

// SupportedProviders returns the provider names accepted in the upload
// configuration.
func SupportedProviders() []string {
	return []string{
		config.UploadProviderLocal,
		config.UploadProviderS3,
		config.UploadProviderAzure,
		config.UploadProviderGCS,
	}
}

// runFile is one dump file of a run, with the run-relative key it gets
// in the storage backend ("<run>/<database>/<table>.sql.gz").
type runFile struct {
	localPath string
	key       string
	size      int64
}

// collectRunFiles walks a run directory and returns its files with
// their upload keys. An empty run uploads nothing and is not an error.
func collectRunFiles(runDir string) ([]runFile, error) {
	runName := filepath.Base(runDir)

	var files []runFile
	err := filepath.WalkDir(runDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(runDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		files = append(files, runFile{
			localPath: path,
			key:       runName + "/" + filepath.ToSlash(rel),
			size:      info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to walk run directory %s", runDir), err)
	}

	return files, nil
}

// withPrefix joins the configured object prefix with a run file key.
func withPrefix(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// contentTypeFor maps a dump file to its upload content type by the
// outermost extension of the pipeline chain.
func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".sql":
		return "application/sql"
	case ".csv":
		return "text/csv"
	case ".gz":
		return "application/gzip"
	default:
		return "application/octet-stream"
	}
}

// totalSize sums the byte sizes of the collected run files.
func totalSize(files []runFile) int64 {
	var total int64
	for _, f := range files {
		total += f.size
	}
	return total
}
