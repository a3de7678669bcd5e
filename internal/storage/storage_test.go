package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mysql-dump/internal/config"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// makeRunDir fabricates a finished run directory with the given files,
// keyed by run-relative path ("shop/orders.sql").
func makeRunDir(t *testing.T, name string, files map[string]string) string {
	t.Helper()

	runDir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	for rel, content := range files {
		path := filepath.Join(runDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return runDir
}

func TestNewProviderSelectsConfiguredBackend(t *testing.T) {
	logger := logging.NewDefaultLogger()

	provider, err := NewProvider(context.Background(), config.UploadConfig{
		Provider: config.UploadProviderLocal,
		Local:    &config.LocalUploadConfig{Directory: t.TempDir()},
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, config.UploadProviderLocal, provider.Name())
}

func TestNewProviderRejectsUnknownBackend(t *testing.T) {
	_, err := NewProvider(context.Background(), config.UploadConfig{Provider: "ftp"}, logging.NewDefaultLogger())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.GetErrorType(err))
	assert.Contains(t, err.Error(), "unsupported upload provider: ftp")
}

func TestSupportedProviders(t *testing.T) {
	assert.Equal(t, []string{"local", "s3", "azure", "gcs"}, SupportedProviders())
}

func TestNewAzureProviderValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.AzureUploadConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: &config.AzureUploadConfig{
				AccountName: "dumpaccount",
				AccountKey:  "dGVzdC1hY2NvdW50LWtleQ==",
				Container:   "dumps",
			},
			wantErr: false,
		},
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name: "missing account name",
			config: &config.AzureUploadConfig{
				AccountKey: "dGVzdC1hY2NvdW50LWtleQ==",
				Container:  "dumps",
			},
			wantErr: true,
		},
		{
			name: "missing account key",
			config: &config.AzureUploadConfig{
				AccountName: "dumpaccount",
				Container:   "dumps",
			},
			wantErr: true,
		},
		{
			name: "missing container",
			config: &config.AzureUploadConfig{
				AccountName: "dumpaccount",
				AccountKey:  "dGVzdC1hY2NvdW50LWtleQ==",
			},
			wantErr: true,
		},
		{
			name: "account key not base64",
			config: &config.AzureUploadConfig{
				AccountName: "dumpaccount",
				AccountKey:  "not a base64 key!!!",
				Container:   "dumps",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAzureProvider(tt.config, logging.NewDefaultLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewGCSProviderValidation(t *testing.T) {
	logger := logging.NewDefaultLogger()

	_, err := NewGCSProvider(context.Background(), nil, logger)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.GetErrorType(err))

	_, err = NewGCSProvider(context.Background(), &config.GCSUploadConfig{}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")

	_, err = NewGCSProvider(context.Background(), &config.GCSUploadConfig{
		Bucket:          "dumps",
		CredentialsPath: filepath.Join(t.TempDir(), "missing.json"),
	}, logger)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeStorage, apperrors.GetErrorType(err))
}

func TestCollectRunFiles(t *testing.T) {
	runDir := makeRunDir(t, "20240501-030000", map[string]string{
		"shop/orders.sql":  "INSERT INTO `orders` VALUES (1);\n",
		"shop/users.sql":   "INSERT INTO `users` VALUES (1);\n",
		"crm/leads.csv.gz": "compressed",
	})

	files, err := collectRunFiles(runDir)
	require.NoError(t, err)
	require.Len(t, files, 3)

	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.key)
	}
	assert.ElementsMatch(t, []string{
		"20240501-030000/shop/orders.sql",
		"20240501-030000/shop/users.sql",
		"20240501-030000/crm/leads.csv.gz",
	}, keys)
	assert.Equal(t, int64(75), totalSize(files))
}

func TestCollectRunFilesEmptyRun(t *testing.T) {
	runDir := makeRunDir(t, "20240501-030000", nil)

	files, err := collectRunFiles(runDir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCollectRunFilesMissingDir(t *testing.T) {
	_, err := collectRunFiles(filepath.Join(t.TempDir(), "20240501-030000"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeStorage, apperrors.GetErrorType(err))
	assert.Contains(t, err.Error(), "failed to walk run directory")
}

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"", "20240501-030000/shop/orders.sql", "20240501-030000/shop/orders.sql"},
		{"mysql", "20240501-030000/shop/orders.sql", "mysql/20240501-030000/shop/orders.sql"},
		{"/mysql/nightly/", "run/db/t.sql", "mysql/nightly/run/db/t.sql"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, withPrefix(tt.prefix, tt.key))
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"orders.sql", "application/sql"},
		{"orders.csv", "text/csv"},
		{"orders.sql.gz", "application/gzip"},
		{"orders.csv.gz.enc", "application/octet-stream"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, contentTypeFor(tt.path))
	}
}
