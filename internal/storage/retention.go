package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mysql-dump/internal/config"
	"mysql-dump/internal/dump"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// Pruner removes old run directories under the output directory
// according to the retention policy. Only directories whose names parse
// as run timestamps are touched; anything else in the output directory
// is left alone.
type Pruner struct {
	cfg       config.RetentionConfig
	outputDir string
	logger    *logging.Logger
}

// NewPruner creates a pruner for the given output directory.
func NewPruner(cfg config.RetentionConfig, outputDir string, logger *logging.Logger) *Pruner {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Pruner{cfg: cfg, outputDir: outputDir, logger: logger}
}

// PruneResult reports what retention removed, or would remove during a
// dry run.
type PruneResult struct {
	Examined int      `json:"examined"`
	Kept     int      `json:"kept"`
	Removed  []string `json:"removed,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	DryRun   bool     `json:"dry_run"`
}

type runEntry struct {
	name    string
	started time.Time
}

// Prune applies max_runs and max_age_days to the run directories. A run
// beyond either limit is removed; removal failures are collected in the
// result, not returned, so one stuck directory never aborts the sweep.
func (p *Pruner) Prune(ctx context.Context, dryRun bool) (*PruneResult, error) {
	result := &PruneResult{DryRun: dryRun}
	if !p.cfg.Enabled {
		return result, nil
	}

	entries, err := os.ReadDir(p.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read output directory %s", p.outputDir), err)
	}

	var runs []runEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		started, err := time.Parse(dump.RunDirLayout, entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, runEntry{name: entry.Name(), started: started})
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].started.After(runs[j].started)
	})

	remove := make(map[string]bool)
	if p.cfg.MaxRuns > 0 && len(runs) > p.cfg.MaxRuns {
		for _, run := range runs[p.cfg.MaxRuns:] {
			remove[run.name] = true
		}
	}
	if p.cfg.MaxAgeDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -p.cfg.MaxAgeDays)
		for _, run := range runs {
			if run.started.Before(cutoff) {
				remove[run.name] = true
			}
		}
	}

	result.Examined = len(runs)
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return result, apperrors.NewAppError(apperrors.ErrorTypeInterruption, "retention sweep interrupted", err)
		}

		if !remove[run.name] {
			result.Kept++
			continue
		}

		result.Removed = append(result.Removed, run.name)
		if dryRun {
			p.logger.WithField("run", run.name).Info("Retention would remove run directory")
			continue
		}

		if err := os.RemoveAll(filepath.Join(p.outputDir, run.name)); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to remove run %s: %v", run.name, err))
			p.logger.WithFields(map[string]interface{}{
				"run":   run.name,
				"error": err.Error(),
			}).Error("Failed to remove run directory")
			continue
		}

		p.logger.WithField("run", run.name).Info("Retention removed run directory")
	}

	p.logger.WithFields(map[string]interface{}{
		"examined": result.Examined,
		"kept":     result.Kept,
		"removed":  len(result.Removed),
		"dry_run":  dryRun,
	}).Info("Retention sweep finished")

	return result, nil
}
