package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mysql-dump/internal/config"
	"mysql-dump/internal/dump"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// makeRuns creates run directories under dir, each holding one dump
// file so removal exercises more than an empty rmdir.
func makeRuns(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		runDir := filepath.Join(dir, name, "shop")
		require.NoError(t, os.MkdirAll(runDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(runDir, "orders.sql"), []byte("-- dump\n"), 0o644))
	}
}

func TestPrunerKeepsNewestRuns(t *testing.T) {
	dir := t.TempDir()
	makeRuns(t, dir,
		"20240101-000000",
		"20240102-000000",
		"20240103-000000",
		"20240104-000000",
	)

	pruner := NewPruner(config.RetentionConfig{Enabled: true, MaxRuns: 2}, dir, logging.NewDefaultLogger())
	result, err := pruner.Prune(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Examined)
	assert.Equal(t, 2, result.Kept)
	assert.ElementsMatch(t, []string{"20240101-000000", "20240102-000000"}, result.Removed)
	assert.Empty(t, result.Errors)

	assert.NoDirExists(t, filepath.Join(dir, "20240101-000000"))
	assert.NoDirExists(t, filepath.Join(dir, "20240102-000000"))
	assert.DirExists(t, filepath.Join(dir, "20240103-000000"))
	assert.DirExists(t, filepath.Join(dir, "20240104-000000"))
}

func TestPrunerRemovesExpiredRuns(t *testing.T) {
	dir := t.TempDir()
	recent := time.Now().UTC().AddDate(0, 0, -2).Format(dump.RunDirLayout)
	stale := time.Now().UTC().AddDate(0, 0, -40).Format(dump.RunDirLayout)
	makeRuns(t, dir, recent, stale)

	pruner := NewPruner(config.RetentionConfig{Enabled: true, MaxAgeDays: 30}, dir, logging.NewDefaultLogger())
	result, err := pruner.Prune(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{stale}, result.Removed)
	assert.DirExists(t, filepath.Join(dir, recent))
	assert.NoDirExists(t, filepath.Join(dir, stale))
}

func TestPrunerDryRunLeavesRuns(t *testing.T) {
	dir := t.TempDir()
	makeRuns(t, dir, "20240101-000000", "20240102-000000")

	pruner := NewPruner(config.RetentionConfig{Enabled: true, MaxRuns: 1}, dir, logging.NewDefaultLogger())
	result, err := pruner.Prune(context.Background(), true)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Kept)
	assert.Equal(t, []string{"20240101-000000"}, result.Removed)
	assert.DirExists(t, filepath.Join(dir, "20240101-000000"))
	assert.DirExists(t, filepath.Join(dir, "20240102-000000"))
}

func TestPrunerIgnoresForeignEntries(t *testing.T) {
	dir := t.TempDir()
	makeRuns(t, dir, "20240102-000000")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "archive"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep me\n"), 0o644))

	pruner := NewPruner(config.RetentionConfig{Enabled: true, MaxRuns: 1}, dir, logging.NewDefaultLogger())
	result, err := pruner.Prune(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Examined)
	assert.Equal(t, 1, result.Kept)
	assert.Empty(t, result.Removed)
	assert.DirExists(t, filepath.Join(dir, "archive"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestPrunerDisabled(t *testing.T) {
	dir := t.TempDir()
	makeRuns(t, dir, "20240101-000000")

	pruner := NewPruner(config.RetentionConfig{Enabled: false, MaxRuns: 1}, dir, logging.NewDefaultLogger())
	result, err := pruner.Prune(context.Background(), false)
	require.NoError(t, err)

	assert.Zero(t, result.Examined)
	assert.Empty(t, result.Removed)
	assert.DirExists(t, filepath.Join(dir, "20240101-000000"))
}

func TestPrunerMissingOutputDir(t *testing.T) {
	pruner := NewPruner(config.RetentionConfig{Enabled: true, MaxRuns: 1}, filepath.Join(t.TempDir(), "never-written"), logging.NewDefaultLogger())

	result, err := pruner.Prune(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, result.Examined)
}

func TestPrunerCancelledSweep(t *testing.T) {
	dir := t.TempDir()
	makeRuns(t, dir, "20240101-000000", "20240102-000000")

	pruner := NewPruner(config.RetentionConfig{Enabled: true, MaxRuns: 1}, dir, logging.NewDefaultLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pruner.Prune(ctx, false)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInterruption, apperrors.GetErrorType(err))
	assert.DirExists(t, filepath.Join(dir, "20240101-000000"))
	assert.DirExists(t, filepath.Join(dir, "20240102-000000"))
}
