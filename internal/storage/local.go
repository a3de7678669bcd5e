package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mysql-dump/internal/config"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// LocalProvider copies run directories to another local path, typically
// a mounted backup volume.
type LocalProvider struct {
	directory string
	logger    *logging.Logger
}

// NewLocalProvider creates a local copy provider.
func NewLocalProvider(cfg *config.LocalUploadConfig, logger *logging.Logger) (*LocalProvider, error) {
	if cfg == nil || cfg.Directory == "" {
		return nil, apperrors.NewConfigError("local upload requires a target directory", nil)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to create upload directory %s", cfg.Directory), err)
	}

	return &LocalProvider{directory: cfg.Directory, logger: logger}, nil
}

// Name returns the provider identifier.
func (p *LocalProvider) Name() string {
	return config.UploadProviderLocal
}

// StoreRun copies every file of the run directory into the target
// directory, preserving the run layout.
func (p *LocalProvider) StoreRun(ctx context.Context, runDir string) error {
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
		if err := ctx.Err(); err != nil {
			return apperrors.NewAppError(apperrors.ErrorTypeInterruption, "upload interrupted", err)
		}

		dest := filepath.Join(p.directory, filepath.FromSlash(f.key))
		if err := copyFile(f.localPath, dest); err != nil {
			return err
		}

		p.logger.WithFields(map[string]interface{}{
			"path":  dest,
			"bytes": f.size,
		}).Debug("Copied dump file")
	}

	p.logger.WithFields(map[string]interface{}{
		"directory": p.directory,
		"files":     len(files),
		"bytes":     totalSize(files),
		"duration":  time.Since(start).String(),
	}).Info("Run copied to local target")

	return nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create directory %s", filepath.Dir(dest)), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to open dump file %s", src), err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create file %s", dest), err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return apperrors.NewStorageError(fmt.Sprintf("failed to copy dump file to %s", dest), err)
	}
	if err := out.Close(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to finalize copy %s", dest), err)
	}

	return nil
}
