package application

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mysql-dump/internal/config"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

const testDoc = `
instances:
  primary:
    host: localhost
    user: dump
    password: secret

databases:
  - name: shop
    instance: primary
    tables: "*"
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestNew(t *testing.T) {
	opts := Options{
		ConfigPath: writeConfig(t, testDoc),
		OutputDir:  t.TempDir(),
	}

	app, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if app.orchestrator == nil {
		t.Error("Expected orchestrator to be initialized")
	}
	if app.logger == nil {
		t.Error("Expected logger to be initialized")
	}
	if app.renderer == nil {
		t.Error("Expected renderer to be initialized")
	}
	if app.notifier == nil {
		t.Error("Expected notifier to be initialized")
	}
	if app.cfg.Output.Directory != opts.OutputDir {
		t.Errorf("Expected output directory %q, got %q", opts.OutputDir, app.cfg.Output.Directory)
	}
}

func TestNew_LogLevels(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		quiet    bool
		expected logging.LogLevel
	}{
		{
			name:     "normal level",
			expected: logging.LogLevelNormal,
		},
		{
			name:     "verbose level",
			verbose:  true,
			expected: logging.LogLevelVerbose,
		},
		{
			name:     "quiet level",
			quiet:    true,
			expected: logging.LogLevelQuiet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := New(Options{
				ConfigPath: writeConfig(t, testDoc),
				Verbose:    tt.verbose,
				Quiet:      tt.quiet,
			})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			if app.logger.GetLevel() != tt.expected {
				t.Errorf("Expected log level %v, got %v", tt.expected, app.logger.GetLevel())
			}
		})
	}
}

func TestNew_ConflictingModes(t *testing.T) {
	// The flag conflict is caught before the configuration is read, so
	// the path does not need to exist.
	app, err := New(Options{
		ConfigPath: "absent.yaml",
		Verbose:    true,
		Quiet:      true,
	})
	if err == nil {
		t.Fatal("Expected error for conflicting modes, got nil")
	}
	if app != nil {
		t.Error("Expected nil application for conflicting modes")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("Expected mutually exclusive error, got %v", err)
	}
	if apperrors.GetErrorType(err) != apperrors.ErrorTypeConfig {
		t.Errorf("Expected config error, got %v", apperrors.GetErrorType(err))
	}
}

func TestNew_MissingConfig(t *testing.T) {
	app, err := New(Options{
		ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
	})
	if err == nil {
		t.Fatal("Expected error for missing config, got nil")
	}
	if app != nil {
		t.Error("Expected nil application for missing config")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestNew_InvalidOverride(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		want   string
	}{
		{
			name:   "unknown format",
			mutate: func(o *Options) { o.Format = "xml" },
			want:   "format",
		},
		{
			name:   "invalid schedule",
			mutate: func(o *Options) { o.Schedule = "every day" },
			want:   "cron",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{ConfigPath: writeConfig(t, testDoc)}
			tt.mutate(&opts)

			_, err := New(opts)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{}
	cfg.Output.Directory = "/var/dumps"
	cfg.Output.Format = "sql"
	cfg.Output.Compress = true
	cfg.Logging.Format = "text"

	applyOverrides(cfg, Options{})
	if cfg.Output.Directory != "/var/dumps" {
		t.Errorf("Empty overrides changed output directory to %q", cfg.Output.Directory)
	}
	if !cfg.Output.Compress {
		t.Error("Empty overrides disabled compression")
	}

	off := false
	applyOverrides(cfg, Options{
		OutputDir: "/srv/dumps",
		Format:    "csv",
		Compress:  &off,
		Schedule:  "0 3 * * *",
		LogFile:   "/var/log/dump.log",
		LogFormat: "json",
	})

	if cfg.Output.Directory != "/srv/dumps" {
		t.Errorf("Expected output directory override, got %q", cfg.Output.Directory)
	}
	if cfg.Output.Format != "csv" {
		t.Errorf("Expected format override, got %q", cfg.Output.Format)
	}
	if cfg.Output.Compress {
		t.Error("Expected compression to be forced off")
	}
	if cfg.Schedule != "0 3 * * *" {
		t.Errorf("Expected schedule override, got %q", cfg.Schedule)
	}
	if cfg.Logging.File != "/var/log/dump.log" {
		t.Errorf("Expected log file override, got %q", cfg.Logging.File)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected log format override, got %q", cfg.Logging.Format)
	}
}

func TestExecuteOnce_NothingSelected(t *testing.T) {
	outputDir := t.TempDir()
	app, err := New(Options{
		ConfigPath: writeConfig(t, testDoc),
		OutputDir:  outputDir,
		Databases:  []string{"absent"},
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code := app.executeOnce(context.Background())
	if code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("Reading output directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected one run directory, got %d entries", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(outputDir, entries[0].Name(), "summary.json"))
	if err != nil {
		t.Fatalf("Expected run summary file: %v", err)
	}
	if !strings.Contains(string(data), `"run_id"`) {
		t.Error("Expected summary file to carry the run ID")
	}
}

func TestExecuteOnce_DryRunWritesNothing(t *testing.T) {
	outputDir := t.TempDir()
	app, err := New(Options{
		ConfigPath: writeConfig(t, testDoc),
		OutputDir:  outputDir,
		Databases:  []string{"absent"},
		DryRun:     true,
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	code := app.executeOnce(context.Background())
	if code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("Reading output directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected dry run to create no files, found %d entries", len(entries))
	}
}

func TestRun_SingleShot(t *testing.T) {
	app, err := New(Options{
		ConfigPath: writeConfig(t, testDoc),
		OutputDir:  t.TempDir(),
		Databases:  []string{"absent"},
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if code := app.Run(); code != 0 {
		t.Errorf("Run() = %d, want 0", code)
	}
}

func TestPrintTroubleshootingHints(t *testing.T) {
	tests := []struct {
		name string
		err  *apperrors.AppError
		want string
	}{
		{
			name: "connection hints",
			err:  apperrors.NewConnectionError("server down", nil),
			want: "MySQL server is running",
		},
		{
			name: "config hints",
			err:  apperrors.NewConfigError("bad field", nil),
			want: "configuration file",
		},
		{
			name: "storage hints",
			err:  apperrors.NewStorageError("disk full", nil),
			want: "disk space",
		},
		{
			name: "no hints for selection errors",
			err:  apperrors.NewSelectionError("no tables", nil),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printTroubleshootingHints(&buf, tt.err)

			if tt.want == "" {
				if buf.Len() != 0 {
					t.Errorf("Expected no hints, got %q", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("Expected hints containing %q, got %q", tt.want, buf.String())
			}
		})
	}
}
