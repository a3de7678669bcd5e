package dump

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"mysql-dump/internal/config"
	"mysql-dump/internal/database"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
	"mysql-dump/internal/schema"
	"mysql-dump/internal/selector"
)

// Options narrow and shape a single run.
type Options struct {
	// DryRun reports the selection and effective settings without
	// querying data or creating files.
	DryRun bool
	// Databases restricts the run to the named databases.
	Databases []string
	// Instances restricts the run to databases on the named instances.
	Instances []string
	// Parallel is the number of database workers. Values below 2 run
	// sequentially.
	Parallel int
}

// Orchestrator drives the instance → database → table traversal,
// invoking selection, extraction and serialization per table, and
// aggregates the outcomes into a RunSummary.
type Orchestrator struct {
	cfg       *config.Config
	connector database.Connector
	extractor *schema.Extractor
	selector  *selector.Selector
	policy    *OutputPolicy
	logger    *logging.Logger
}

// NewOrchestrator creates an orchestrator for a validated configuration.
func NewOrchestrator(cfg *config.Config, logger *logging.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	policy, err := NewOutputPolicy(cfg.Output, logger)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:       cfg,
		connector: database.NewServiceWithLogger(logger),
		extractor: schema.NewExtractor(),
		selector:  selector.New(logger),
		policy:    policy,
		logger:    logger,
	}, nil
}

// Run executes the dump traversal and returns the aggregated summary.
// Per-table and per-database failures are recorded in the summary; the
// returned error reports run-level failures such as an unusable output
// directory or an interrupted run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*RunSummary, error) {
	summary := NewRunSummary(opts.DryRun)
	databases := o.cfg.FilterDatabases(opts.Databases, opts.Instances)

	o.logger.WithFields(map[string]interface{}{
		"run_id":    summary.RunID,
		"databases": len(databases),
		"dry_run":   opts.DryRun,
		"parallel":  opts.Parallel,
		"format":    o.policy.Format(),
	}).Info("Starting dump run")

	var runDir string
	if !opts.DryRun {
		runDir = o.policy.RunDir(summary.StartedAt)
		if err := os.MkdirAll(runDir, 0o755); err != nil {
			summary.Finish()
			return summary, apperrors.NewStorageError(fmt.Sprintf("failed to create run directory %s", runDir), err)
		}
		summary.OutputDir = runDir
	}

	workers := opts.Parallel
	if workers > len(databases) {
		workers = len(databases)
	}

	if workers <= 1 {
		for i := range databases {
			o.dumpDatabase(ctx, &databases[i], runDir, opts.DryRun, summary)
		}
	} else {
		jobs := make(chan *config.DatabaseConfig)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for dbConfig := range jobs {
					o.dumpDatabase(ctx, dbConfig, runDir, opts.DryRun, summary)
				}
			}()
		}
		for i := range databases {
			jobs <- &databases[i]
		}
		close(jobs)
		wg.Wait()
	}

	summary.Finish()

	o.logger.WithFields(map[string]interface{}{
		"run_id":    summary.RunID,
		"attempted": summary.Totals.Attempted,
		"succeeded": summary.Totals.Succeeded,
		"failed":    summary.Totals.Failed,
		"skipped":   summary.Totals.Skipped,
		"rows":      summary.Totals.Rows,
		"duration":  summary.Duration.String(),
	}).Info("Dump run finished")

	if err := ctx.Err(); err != nil {
		return summary, apperrors.NewAppError(apperrors.ErrorTypeInterruption, "dump run interrupted", err)
	}
	return summary, nil
}

// dumpDatabase connects to one database, selects its tables and dumps
// them. Each worker owns its connection for the duration of the
// database.
func (o *Orchestrator) dumpDatabase(ctx context.Context, dbConfig *config.DatabaseConfig, runDir string, dryRun bool, summary *RunSummary) {
	report := summary.AddDatabase(dbConfig.Name, dbConfig.Instance)

	if err := ctx.Err(); err != nil {
		summary.RecordDatabaseError(report, apperrors.NewAppError(apperrors.ErrorTypeInterruption, "run cancelled before database was processed", err))
		return
	}

	instance, ok := o.cfg.Instances[dbConfig.Instance]
	if !ok {
		summary.RecordDatabaseError(report, apperrors.NewConfigError(fmt.Sprintf("instance %s is not defined", dbConfig.Instance), nil))
		return
	}

	db, err := o.connector.Connect(ctx, database.Config{
		Host:     instance.Host,
		Port:     instance.Port,
		User:     instance.User,
		Password: instance.Password,
		Database: dbConfig.Name,
		Timeout:  instance.Timeout,
	})
	if err != nil {
		o.logger.WithFields(map[string]interface{}{
			"database": dbConfig.Name,
			"instance": dbConfig.Instance,
			"error":    err.Error(),
		}).Error("Failed to connect to database")
		summary.RecordDatabaseError(report, err)
		return
	}
	defer o.connector.Close(db)

	if version, verr := o.connector.GetVersion(ctx, db); verr == nil {
		o.logger.WithFields(map[string]interface{}{
			"database": dbConfig.Name,
			"instance": dbConfig.Instance,
			"version":  version,
		}).Debug("Connected to MySQL server")
	}

	available, err := o.extractor.ListTables(ctx, db, dbConfig.Name)
	if err != nil {
		summary.RecordDatabaseError(report, err)
		return
	}

	selection := o.selector.Select(dbConfig.Name, available, dbConfig.Tables, dbConfig.ExcludeTables)

	for _, missing := range selection.Missing {
		summary.RecordTable(report, TableResult{
			Database: dbConfig.Name,
			Table:    missing,
			Status:   StatusSkipped,
			Error:    "table not found in database",
		})
	}

	o.logger.Infof("Dumping %d table(s) from %s", len(selection.Tables), dbConfig.Name)

	for _, tableName := range selection.Tables {
		if err := ctx.Err(); err != nil {
			summary.RecordTable(report, TableResult{
				Database: dbConfig.Name,
				Table:    tableName,
				Status:   StatusFailed,
				Error:    "run cancelled before table was dumped",
			})
			continue
		}

		var result TableResult
		if dryRun {
			settings := o.cfg.ResolveTableSettings(dbConfig, tableName)
			result = TableResult{
				Database: dbConfig.Name,
				Table:    tableName,
				Status:   StatusPlanned,
				Settings: describeSettings(settings),
			}
		} else {
			result = o.dumpTable(ctx, db, dbConfig, tableName, runDir)
		}
		summary.RecordTable(report, result)
	}
}

// dumpTable extracts and serializes one table into its own output file.
func (o *Orchestrator) dumpTable(ctx context.Context, db *sql.DB, dbConfig *config.DatabaseConfig, tableName, runDir string) TableResult {
	start := time.Now()
	settings := o.cfg.ResolveTableSettings(dbConfig, tableName)

	result := TableResult{
		Database: dbConfig.Name,
		Table:    tableName,
		Settings: describeSettings(settings),
	}

	table, err := o.extractor.ExtractTable(ctx, db, dbConfig.Name, tableName)
	if err != nil {
		return o.failTable(result, nil, start, err)
	}

	path := o.policy.TablePath(runDir, dbConfig.Name, tableName)
	sink, err := o.policy.OpenSink(path)
	if err != nil {
		return o.failTable(result, nil, start, err)
	}
	result.Path = path

	serializer, err := o.policy.NewSerializer(sink.Writer, SerializerOptions{
		Database: dbConfig.Name,
		Settings: settings,
	})
	if err != nil {
		return o.failTable(result, sink, start, err)
	}

	if err := serializer.WriteSchema(table); err != nil {
		return o.failTable(result, sink, start, apperrors.NewSerializationError(fmt.Sprintf("failed to serialize schema of table %s", tableName), err))
	}

	if !settings.SchemaOnly() {
		if err := o.streamRows(ctx, db, table, settings, serializer, &result); err != nil {
			return o.failTable(result, sink, start, err)
		}
	}

	if err := serializer.Close(); err != nil {
		return o.failTable(result, sink, start, apperrors.NewSerializationError(fmt.Sprintf("failed to finalize dump of table %s", tableName), err))
	}
	if err := sink.Close(); err != nil {
		return o.failTable(result, sink, start, err)
	}

	result.Status = StatusSucceeded
	result.Bytes = sink.BytesWritten()
	result.Duration = time.Since(start)

	o.logger.LogTableDump(dbConfig.Name, tableName, result.Rows, result.Bytes, result.Duration, nil)
	return result
}

// streamRows runs the bounded table query and feeds row batches to the
// serializer, checking for cancellation at batch boundaries.
func (o *Orchestrator) streamRows(ctx context.Context, db *sql.DB, table *schema.Table, settings config.TableSettings, serializer Serializer, result *TableResult) error {
	query := BuildTableQuery(table, settings, o.logger)
	queryStart := time.Now()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		o.logger.LogDumpQuery(result.Database, table.Name, query, time.Since(queryStart), 0, err)
		return apperrors.NewExtractionError(fmt.Sprintf("failed to query table %s", table.Name), err)
	}

	stream := NewRowStream(rows, len(table.Columns))
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return apperrors.NewAppError(apperrors.ErrorTypeInterruption, fmt.Sprintf("dump of table %s interrupted", table.Name), err)
		}

		batch, err := stream.NextBatch(serializer.BatchSize())
		if err != nil {
			return apperrors.NewExtractionError(fmt.Sprintf("failed to read rows from table %s", table.Name), err)
		}
		if len(batch) == 0 {
			break
		}
		if err := serializer.WriteRows(batch); err != nil {
			return apperrors.NewSerializationError(fmt.Sprintf("failed to serialize rows of table %s", table.Name), err)
		}
	}

	result.Rows = stream.Total()
	o.logger.LogDumpQuery(result.Database, table.Name, query, time.Since(queryStart), result.Rows, nil)
	return nil
}

// failTable finalizes a failed table result and discards the partial
// output file. A file that cannot be removed is flagged in the result.
func (o *Orchestrator) failTable(result TableResult, sink *Sink, start time.Time, err error) TableResult {
	result.Status = StatusFailed
	result.Error = err.Error()
	result.Rows = 0
	result.Bytes = 0
	result.Duration = time.Since(start)

	if sink != nil {
		if removeErr := sink.Abort(); removeErr != nil {
			result.LeftoverPath = result.Path
			o.logger.WithFields(map[string]interface{}{
				"path":  result.Path,
				"error": removeErr.Error(),
			}).Warn("Failed to remove partial dump file")
		} else {
			result.Path = ""
		}
	}

	o.logger.LogTableDump(result.Database, result.Table, 0, 0, result.Duration, err)
	return result
}
