package dump

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TableStatus classifies the outcome of one table.
type TableStatus string

const (
	// StatusSucceeded means the table was dumped completely.
	StatusSucceeded TableStatus = "succeeded"
	// StatusFailed means the table was attempted and failed.
	StatusFailed TableStatus = "failed"
	// StatusSkipped means the table was configured but not present.
	StatusSkipped TableStatus = "skipped"
	// StatusPlanned means a dry run would have dumped the table.
	StatusPlanned TableStatus = "planned"
)

// TableResult records the outcome of one table dump.
type TableResult struct {
	Database string        `json:"database"`
	Table    string        `json:"table"`
	Status   TableStatus   `json:"status"`
	Rows     int64         `json:"rows"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
	Path     string        `json:"path,omitempty"`
	Settings string        `json:"settings,omitempty"`
	Error    string        `json:"error,omitempty"`

	// LeftoverPath is set when a partial file of a failed table could
	// not be removed and remains on disk.
	LeftoverPath string `json:"leftover_path,omitempty"`
}

// DatabaseReport groups table results for one configured database. Error
// is set when the database itself could not be processed, typically a
// failed connection.
type DatabaseReport struct {
	Database string        `json:"database"`
	Instance string        `json:"instance"`
	Error    string        `json:"error,omitempty"`
	Tables   []TableResult `json:"tables,omitempty"`
}

// RunTotals holds run-wide counters.
type RunTotals struct {
	Attempted int   `json:"attempted"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Skipped   int   `json:"skipped"`
	Planned   int   `json:"planned,omitempty"`
	Rows      int64 `json:"rows"`
	Bytes     int64 `json:"bytes"`
}

// RunSummary aggregates the outcome of one run. Recording methods are
// safe for concurrent use by database workers.
type RunSummary struct {
	RunID      string            `json:"run_id"`
	DryRun     bool              `json:"dry_run"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Duration   time.Duration     `json:"duration"`
	OutputDir  string            `json:"output_dir,omitempty"`
	Databases  []*DatabaseReport `json:"databases"`
	Totals     RunTotals         `json:"totals"`

	mu sync.Mutex
}

// GenerateRunID generates a unique run ID with a timestamp prefix for
// sorting.
func GenerateRunID() string {
	timestamp := time.Now().UTC().Format(RunDirLayout)
	shortUUID := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]

	return fmt.Sprintf("dump-%s-%s", timestamp, shortUUID)
}

// NewRunSummary creates a summary for a run starting now.
func NewRunSummary(dryRun bool) *RunSummary {
	return &RunSummary{
		RunID:     GenerateRunID(),
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
}

// AddDatabase registers a report for a database and returns it for
// subsequent recording.
func (s *RunSummary) AddDatabase(database, instance string) *DatabaseReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &DatabaseReport{Database: database, Instance: instance}
	s.Databases = append(s.Databases, report)
	return report
}

// RecordDatabaseError marks a whole database as failed.
func (s *RunSummary) RecordDatabaseError(report *DatabaseReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report.Error = err.Error()
}

// RecordTable appends a table result and updates the counters.
func (s *RunSummary) RecordTable(report *DatabaseReport, result TableResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report.Tables = append(report.Tables, result)

	switch result.Status {
	case StatusSucceeded:
		s.Totals.Attempted++
		s.Totals.Succeeded++
		s.Totals.Rows += result.Rows
		s.Totals.Bytes += result.Bytes
	case StatusFailed:
		s.Totals.Attempted++
		s.Totals.Failed++
	case StatusSkipped:
		s.Totals.Skipped++
	case StatusPlanned:
		s.Totals.Planned++
	}
}

// Finish stamps the end of the run.
func (s *RunSummary) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FinishedAt = time.Now().UTC()
	s.Duration = s.FinishedAt.Sub(s.StartedAt)
}

// HasFailures reports whether any table or database failed.
func (s *RunSummary) HasFailures() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failureCount() > 0
}

// ExitCode maps the run outcome to the process exit status: 0 when
// nothing failed, 1 when nothing succeeded, 2 for a partial failure.
func (s *RunSummary) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	failures := s.failureCount()
	if failures == 0 {
		return 0
	}
	if s.Totals.Succeeded == 0 {
		return 1
	}
	return 2
}

func (s *RunSummary) failureCount() int {
	failures := s.Totals.Failed
	for _, report := range s.Databases {
		if report.Error != "" {
			failures++
		}
	}
	return failures
}

// ToJSON serializes the summary to indented JSON.
func (s *RunSummary) ToJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return json.MarshalIndent(s, "", "  ")
}
