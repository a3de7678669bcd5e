package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"mysql-dump/internal/config"
	"mysql-dump/internal/display"
	"mysql-dump/internal/dump"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
	"mysql-dump/internal/storage"
)

// Options holds the command line overrides that are applied on top of
// the loaded configuration document.
type Options struct {
	ConfigPath string
	DryRun     bool
	Databases  []string
	Instances  []string
	Parallel   int
	Schedule   string
	OutputDir  string
	Format     string
	// Compress is nil when the flag was not given, so the configured
	// value stays in effect.
	Compress  *bool
	LogFile   string
	LogFormat string
	Verbose   bool
	Quiet     bool
	NoColor   bool
}

// Application wires configuration, logging, the dump orchestrator and
// the post-run stages into a runnable command.
type Application struct {
	cfg          *config.Config
	opts         Options
	logger       *logging.Logger
	orchestrator *dump.Orchestrator
	renderer     *display.Renderer
	notifier     *dump.Notifier
}

// New loads the configuration document, applies the command line
// overrides and builds the run pipeline.
func New(opts Options) (*Application, error) {
	displayOpts := display.Options{
		NoColor: opts.NoColor,
		Quiet:   opts.Quiet,
		Verbose: opts.Verbose,
	}
	if err := displayOpts.Validate(); err != nil {
		return nil, apperrors.NewConfigError(err.Error(), nil)
	}

	loader := config.NewLoader(logging.NewDefaultLogger())
	cfg, err := loader.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	applyOverrides(cfg, opts)
	// Overrides can introduce values the document never carried, such
	// as an invalid --format or --schedule.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := buildLogger(cfg, opts)
	if err != nil {
		return nil, err
	}

	orchestrator, err := dump.NewOrchestrator(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Application{
		cfg:          cfg,
		opts:         opts,
		logger:       logger,
		orchestrator: orchestrator,
		renderer:     display.NewRenderer(displayOpts),
		notifier:     dump.NewNotifier(cfg.Notify, logger),
	}, nil
}

// applyOverrides writes flag level settings into the loaded document so
// the rest of the pipeline sees a single effective configuration.
func applyOverrides(cfg *config.Config, opts Options) {
	if opts.OutputDir != "" {
		cfg.Output.Directory = opts.OutputDir
	}
	if opts.Format != "" {
		cfg.Output.Format = opts.Format
	}
	if opts.Compress != nil {
		cfg.Output.Compress = *opts.Compress
	}
	if opts.Schedule != "" {
		cfg.Schedule = opts.Schedule
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = opts.LogFormat
	}
}

// buildLogger creates the run logger. The --verbose and --quiet flags
// win over the configured level.
func buildLogger(cfg *config.Config, opts Options) (*logging.Logger, error) {
	level := logging.LogLevel(cfg.Logging.Level)
	if opts.Verbose {
		level = logging.LogLevelVerbose
	}
	if opts.Quiet {
		level = logging.LogLevelQuiet
	}
	return logging.NewLogger(logging.Config{
		Level:   level,
		Format:  cfg.Logging.Format,
		LogFile: cfg.Logging.File,
	})
}

// Run executes the configured mode and returns the process exit code.
// With a schedule set it blocks until the process is signalled,
// otherwise it performs a single dump run.
func (app *Application) Run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.cfg.Schedule != "" {
		return app.runScheduled(ctx)
	}
	return app.executeOnce(ctx)
}

// runScheduled fires a dump run on every cron tick until the context is
// cancelled. Exit codes of individual firings are logged, not returned:
// a long running schedule is judged by its log, not its last run.
func (app *Application) runScheduled(ctx context.Context) int {
	scheduler := dump.NewScheduler(app.cfg.Schedule, app.logger)
	err := scheduler.Run(ctx, func(runCtx context.Context) {
		if code := app.executeOnce(runCtx); code != 0 {
			app.logger.WithField("exit_code", code).Warn("Scheduled run finished with failures")
		}
	})
	if err != nil {
		app.handleRunError(err)
		return 1
	}
	app.logger.Info("Scheduler stopped")
	return 0
}

// executeOnce performs a single dump run plus its post-run stages and
// maps the outcome to an exit code.
func (app *Application) executeOnce(ctx context.Context) int {
	summary, err := app.orchestrator.Run(ctx, dump.Options{
		DryRun:    app.opts.DryRun,
		Databases: app.opts.Databases,
		Instances: app.opts.Instances,
		Parallel:  app.opts.Parallel,
	})

	if summary != nil {
		app.renderer.RenderRunSummary(summary)
	}
	if err != nil {
		app.handleRunError(err)
	}

	code := 0
	if summary != nil {
		code = summary.ExitCode()
	}
	if err != nil && code == 0 {
		code = 1
	}

	// Post-run stages never change the exit code: per-table results are
	// settled once the run directory is final.
	if summary != nil && !summary.DryRun {
		app.writeSummaryFile(summary)
		app.runPostStages(ctx, summary)
	}
	return code
}

// writeSummaryFile drops a machine readable copy of the run report next
// to the dump files, so uploads carry it along.
func (app *Application) writeSummaryFile(summary *dump.RunSummary) {
	if summary.OutputDir == "" {
		return
	}
	data, err := summary.ToJSON()
	if err != nil {
		app.logger.WithField("error", err.Error()).Warn("Failed to encode run summary")
		return
	}
	path := filepath.Join(summary.OutputDir, "summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		app.logger.WithField("error", err.Error()).Warn("Failed to write run summary file")
	}
}

// runPostStages uploads the finished run, prunes old runs and sends the
// webhook notification. Failures are reported but the dump itself has
// already succeeded or failed on its own terms.
func (app *Application) runPostStages(ctx context.Context, summary *dump.RunSummary) {
	if app.cfg.Upload.Enabled && summary.OutputDir != "" {
		app.uploadRun(ctx, summary)
	}
	if app.cfg.Retention.Enabled {
		app.pruneOldRuns(ctx)
	}
	if err := app.notifier.Send(ctx, summary); err != nil {
		app.logger.WithField("error", err.Error()).Warn("Notification failed")
		app.renderer.Warning(fmt.Sprintf("Notification failed: %s", apperrors.FormatUserError(err)))
	}
}

func (app *Application) uploadRun(ctx context.Context, summary *dump.RunSummary) {
	provider, err := storage.NewProvider(ctx, app.cfg.Upload, app.logger)
	if err != nil {
		app.logger.WithField("error", err.Error()).Error("Upload provider initialization failed")
		app.renderer.Warning(fmt.Sprintf("Upload skipped: %s", apperrors.FormatUserError(err)))
		return
	}
	if err := provider.StoreRun(ctx, summary.OutputDir); err != nil {
		app.logger.WithField("error", err.Error()).Error("Upload failed")
		app.renderer.Warning(fmt.Sprintf("Upload failed: %s", apperrors.FormatUserError(err)))
		return
	}
	app.renderer.Info(fmt.Sprintf("Uploaded run %s to %s storage", filepath.Base(summary.OutputDir), provider.Name()))
}

func (app *Application) pruneOldRuns(ctx context.Context) {
	pruner := storage.NewPruner(app.cfg.Retention, app.cfg.Output.Directory, app.logger)
	result, err := pruner.Prune(ctx, false)
	if err != nil {
		app.logger.WithField("error", err.Error()).Warn("Retention sweep failed")
		app.renderer.Warning(fmt.Sprintf("Retention sweep failed: %s", apperrors.FormatUserError(err)))
		return
	}
	if len(result.Removed) > 0 {
		app.renderer.Info(fmt.Sprintf("Retention removed %d old runs", len(result.Removed)))
	}
}

// handleRunError reports a run level failure on top of the rendered
// summary.
func (app *Application) handleRunError(err error) {
	app.renderer.Error(apperrors.FormatUserError(err))

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		app.logger.WithFields(map[string]interface{}{
			"error_type":  string(appErr.Type),
			"recoverable": appErr.IsRecoverable(),
		}).Error("Dump run failed")
		printTroubleshootingHints(os.Stderr, appErr)
		return
	}
	app.logger.WithField("error", err.Error()).Error("Dump run failed")
}

// ReportStartupError prints a configuration or wiring failure that
// happened before the run pipeline was built.
func ReportStartupError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", apperrors.FormatUserError(err))

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		printTroubleshootingHints(os.Stderr, appErr)
	}
}

// printTroubleshootingHints writes next-step suggestions for the error
// classes a user can usually fix themselves.
func printTroubleshootingHints(w io.Writer, appErr *apperrors.AppError) {
	switch appErr.Type {
	case apperrors.ErrorTypeConnection:
		fmt.Fprintf(w, "\nTroubleshooting hints:\n")
		fmt.Fprintf(w, "- Check that the MySQL server is running\n")
		fmt.Fprintf(w, "- Verify the instance host and port are correct\n")
		fmt.Fprintf(w, "- Ensure network connectivity to the instance\n")

	case apperrors.ErrorTypePermission:
		fmt.Fprintf(w, "\nTroubleshooting hints:\n")
		fmt.Fprintf(w, "- Verify the username and password are correct\n")
		fmt.Fprintf(w, "- Check that the user has SELECT privileges on the dumped tables\n")

	case apperrors.ErrorTypeConfig:
		fmt.Fprintf(w, "\nTroubleshooting hints:\n")
		fmt.Fprintf(w, "- Review the configuration file for the reported field\n")
		fmt.Fprintf(w, "- Run with --verbose to see the loaded configuration\n")

	case apperrors.ErrorTypeTimeout:
		fmt.Fprintf(w, "\nTroubleshooting hints:\n")
		fmt.Fprintf(w, "- The dump may be taking longer than expected\n")
		fmt.Fprintf(w, "- Increase the timeout for the affected instance\n")
		fmt.Fprintf(w, "- Check server load on the dumped instance\n")

	case apperrors.ErrorTypeStorage:
		fmt.Fprintf(w, "\nTroubleshooting hints:\n")
		fmt.Fprintf(w, "- Check free disk space under the output directory\n")
		fmt.Fprintf(w, "- Verify the output directory is writable\n")
	}
}
