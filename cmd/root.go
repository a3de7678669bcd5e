package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mysql-dump/internal/application"
	"mysql-dump/internal/config"
)

// defaultConfigFile is looked up in the working directory when
// --config is not given.
const defaultConfigFile = "mysql-dump.yaml"

var cfgFile string

// CLI flag variables
var (
	// Run flags
	dryRun    bool
	databases []string
	instances []string
	parallel  int
	schedule  string

	// Output flags
	outputDir string
	format    string
	compress  bool

	// Logging and display flags
	verbose   bool
	quiet     bool
	logFile   string
	logFormat string
	noColor   bool
)

// exitCode carries the run outcome from runDump to Execute.
var exitCode int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mysql-dump",
	Short: "Dump MySQL databases to SQL or CSV files",
	Long: `mysql-dump connects to the configured MySQL instances, selects tables
per database with include and exclude patterns, and writes every table to
its own SQL or CSV file under a timestamped run directory.

Dump options cascade from built-in defaults through the defaults section,
the database entry and the matching table rule, so a single document can
mix full dumps, row-limited dumps and schema-only dumps.

Examples:
  # Dump everything the configuration selects
  mysql-dump --config config.yaml

  # Preview the selection and effective settings without dumping
  mysql-dump --config config.yaml --dry-run

  # Dump two databases with four parallel workers
  mysql-dump -c config.yaml -d shop -d crm --parallel 4

  # Nightly runs at 03:00, gzip compressed
  mysql-dump -c config.yaml --schedule "0 3 * * *" --compress

  # Machine friendly output for scripting
  mysql-dump -c config.yaml --format csv --no-color --quiet`,
	Args:    cobra.NoArgs,
	Version: version,
	Run:     runDump,
}

// Execute runs the root command and returns the process exit code:
// 0 when nothing failed, 1 when nothing succeeded, 2 for a partial
// failure. This is called by main.main().
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "configuration file (default mysql-dump.yaml, then $HOME/.mysql-dump.yaml)")

	// Run flags
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the table selection without dumping data")
	rootCmd.Flags().StringSliceVarP(&databases, "database", "d", nil, "restrict the run to the named databases (repeatable)")
	rootCmd.Flags().StringSliceVarP(&instances, "instance", "i", nil, "restrict the run to databases on the named instances (repeatable)")
	rootCmd.Flags().IntVar(&parallel, "parallel", 1, "number of databases dumped concurrently")
	rootCmd.Flags().StringVar(&schedule, "schedule", "", "cron expression for repeated runs")

	// Output flags
	rootCmd.Flags().StringVar(&outputDir, "output", "", "override the configured output directory")
	rootCmd.Flags().StringVar(&format, "format", "", "output format (sql, csv)")
	rootCmd.Flags().BoolVar(&compress, "compress", false, "gzip dump files")

	// Logging and display flags
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable color output")

	// Bind flags to viper so MYSQL_DUMP_* environment variables can
	// stand in for them.
	viper.SetEnvPrefix("MYSQL_DUMP")
	viper.AutomaticEnv()

	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("parallel", rootCmd.Flags().Lookup("parallel"))
	viper.BindPFlag("schedule", rootCmd.Flags().Lookup("schedule"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	viper.BindPFlag("compress", rootCmd.Flags().Lookup("compress"))
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.Flags().Lookup("quiet"))
	viper.BindPFlag("log_file", rootCmd.Flags().Lookup("log-file"))
	viper.BindPFlag("log_format", rootCmd.Flags().Lookup("log-format"))
	viper.BindPFlag("no_color", rootCmd.Flags().Lookup("no-color"))
}

// runDump is the main execution function for the CLI. Errors are
// reported here rather than returned, so cobra does not repeat them.
func runDump(cmd *cobra.Command, args []string) {
	app, err := application.New(buildOptions(cmd))
	if err != nil {
		application.ReportStartupError(err)
		exitCode = 1
		return
	}
	exitCode = app.Run()
}

// buildOptions assembles the application options from CLI flags and
// MYSQL_DUMP_* environment variables.
func buildOptions(cmd *cobra.Command) application.Options {
	opts := application.Options{
		ConfigPath: resolveConfigPath(),
		DryRun:     viper.GetBool("dry_run"),
		Databases:  databases,
		Instances:  instances,
		Parallel:   viper.GetInt("parallel"),
		Schedule:   viper.GetString("schedule"),
		OutputDir:  viper.GetString("output"),
		Format:     viper.GetString("format"),
		LogFile:    viper.GetString("log_file"),
		LogFormat:  viper.GetString("log_format"),
		Verbose:    viper.GetBool("verbose"),
		Quiet:      viper.GetBool("quiet"),
		NoColor:    viper.GetBool("no_color"),
	}

	// A bool flag cannot distinguish unset from false, so compression
	// keeps its configured value unless the flag or the environment
	// says otherwise.
	if cmd.Flags().Changed("compress") {
		value := compress
		opts.Compress = &value
	} else if _, ok := os.LookupEnv("MYSQL_DUMP_COMPRESS"); ok {
		value := viper.GetBool("compress")
		opts.Compress = &value
	}

	return opts
}

// resolveConfigPath picks the configuration file: the --config flag
// first, then MYSQL_DUMP_CONFIG, then the default search path.
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if env := os.Getenv("MYSQL_DUMP_CONFIG"); env != "" {
		return env
	}

	candidates := []string{defaultConfigFile}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".mysql-dump.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return defaultConfigFile
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
	rootCmd.Version = v
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mysql-dump version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
			fmt.Printf("Go version: %s\n", goVersion)
		},
	}
}

// createConfigCommand creates the config subcommand for generating a
// starter configuration
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print a starter configuration file",
		Long: `Print a commented starter configuration to stdout.

The document covers instances, database selections, the dump option
cascade, output settings, upload, retention, notification and
scheduling.

Examples:
  # Write the starter configuration next to the binary
  mysql-dump config > mysql-dump.yaml`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(config.GenerateDefaultConfigYAML())
		},
	}
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
}
