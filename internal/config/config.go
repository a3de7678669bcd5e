package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Format constants for output serialization
const (
	FormatSQL = "sql"
	FormatCSV = "csv"
)

// Compression algorithm names
const (
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// Config is the root of the dump configuration document
type Config struct {
	Instances map[string]InstanceConfig `yaml:"instances"`
	Databases []DatabaseConfig          `yaml:"databases"`
	Defaults  DumpOptions               `yaml:"defaults"`
	Output    OutputConfig              `yaml:"output"`
	Upload    UploadConfig              `yaml:"upload"`
	Retention RetentionConfig           `yaml:"retention"`
	Notify    NotifyConfig              `yaml:"notify"`
	Schedule  string                    `yaml:"schedule"`
	Logging   LoggingConfig             `yaml:"logging"`
}

// InstanceConfig holds connection settings for one MySQL server instance
type InstanceConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DumpOptions holds the four per-table dump settings. All fields are
// pointers so that an absent value falls through to the next cascade
// level while an explicit zero (row_limit: 0, order_by: "") is kept.
type DumpOptions struct {
	RowLimit       *int64  `yaml:"row_limit,omitempty"`
	OrderBy        *string `yaml:"order_by,omitempty"`
	OrderDirection *string `yaml:"order_direction,omitempty"`
	WhereClause    *string `yaml:"where_clause,omitempty"`
}

// DatabaseConfig selects one database on one instance
type DatabaseConfig struct {
	Name          string    `yaml:"name"`
	Instance      string    `yaml:"instance"`
	Tables        TableList `yaml:"tables"`
	ExcludeTables []string  `yaml:"exclude_tables,omitempty"`
	DumpOptions   `yaml:",inline"`
}

// TableConfig selects one table with optional per-table settings
type TableConfig struct {
	Name        string `yaml:"name"`
	DumpOptions `yaml:",inline"`
}

// UnmarshalYAML accepts either a mapping with a name key or a bare
// table name string.
func (tc *TableConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&tc.Name)
	}

	type rawTableConfig TableConfig
	var raw rawTableConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*tc = TableConfig(raw)
	return nil
}

// TableList is either the wildcard "*" (dump every live base table) or
// an explicit, ordered list of tables.
type TableList struct {
	All    bool
	Tables []TableConfig
}

// UnmarshalYAML decodes the "*" scalar or a sequence of tables
func (tl *TableList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if s != "*" {
			return fmt.Errorf("tables must be %q or a list of tables, got %q", "*", s)
		}
		tl.All = true
		return nil
	case yaml.SequenceNode:
		return value.Decode(&tl.Tables)
	}
	return fmt.Errorf("tables must be %q or a list of tables", "*")
}

// MarshalYAML renders the wildcard back as "*"
func (tl TableList) MarshalYAML() (interface{}, error) {
	if tl.All {
		return "*", nil
	}
	return tl.Tables, nil
}

// Find returns the explicit table entry with the given name, or nil
func (tl *TableList) Find(name string) *TableConfig {
	for i := range tl.Tables {
		if tl.Tables[i].Name == name {
			return &tl.Tables[i]
		}
	}
	return nil
}

// Names returns the declared table names in declaration order
func (tl *TableList) Names() []string {
	names := make([]string, 0, len(tl.Tables))
	for i := range tl.Tables {
		names = append(names, tl.Tables[i].Name)
	}
	return names
}

// OutputConfig controls where and how dump files are written
type OutputConfig struct {
	Directory   string           `yaml:"directory"`
	Format      string           `yaml:"format"`
	Compress    bool             `yaml:"compress"`
	Compression string           `yaml:"compression"`
	Encryption  EncryptionConfig `yaml:"encryption"`
}

// EncryptionConfig enables at-rest encryption of dump files
type EncryptionConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Password string `yaml:"password"`
}

// UploadConfig pushes the finished run directory to external storage
type UploadConfig struct {
	Enabled  bool               `yaml:"enabled"`
	Provider string             `yaml:"provider"`
	S3       *S3UploadConfig    `yaml:"s3,omitempty"`
	Azure    *AzureUploadConfig `yaml:"azure,omitempty"`
	GCS      *GCSUploadConfig   `yaml:"gcs,omitempty"`
	Local    *LocalUploadConfig `yaml:"local,omitempty"`
}

// Upload provider names
const (
	UploadProviderLocal = "local"
	UploadProviderS3    = "s3"
	UploadProviderAzure = "azure"
	UploadProviderGCS   = "gcs"
)

// S3UploadConfig configures the S3 upload provider. Endpoint overrides
// the AWS endpoint for S3-compatible services.
type S3UploadConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
}

// AzureUploadConfig configures the Azure Blob Storage upload provider
type AzureUploadConfig struct {
	AccountName string `yaml:"account_name"`
	AccountKey  string `yaml:"account_key"`
	Container   string `yaml:"container"`
}

// GCSUploadConfig configures the Google Cloud Storage upload provider
type GCSUploadConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsPath string `yaml:"credentials_path,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
}

// LocalUploadConfig copies the run directory to another local path
type LocalUploadConfig struct {
	Directory string `yaml:"directory"`
}

// RetentionConfig prunes old run directories under the output directory
type RetentionConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxRuns    int  `yaml:"max_runs"`
	MaxAgeDays int  `yaml:"max_age_days"`
}

// NotifyConfig posts the run summary to a webhook when a run finishes
type NotifyConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Method  string        `yaml:"method"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig controls log verbosity and destination
type LoggingConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file,omitempty"`
	Format string `yaml:"format"`
}

// SetDefaults fills zero values with sensible defaults
func (c *Config) SetDefaults() {
	for name, inst := range c.Instances {
		if inst.Port == 0 {
			inst.Port = 3306
		}
		if inst.Timeout == 0 {
			inst.Timeout = 30 * time.Second
		}
		c.Instances[name] = inst
	}

	if c.Output.Directory == "" {
		c.Output.Directory = "./dumps"
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatSQL
	}
	if c.Output.Compression == "" {
		c.Output.Compression = CompressionGzip
	}

	if c.Notify.Method == "" {
		c.Notify.Method = "POST"
	}
	if c.Notify.Timeout == 0 {
		c.Notify.Timeout = 10 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "normal"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the whole document and returns every problem found
func (c *Config) Validate() error {
	var errs ValidationErrors

	if len(c.Instances) == 0 {
		errs.Add("instances", "at least one instance is required", nil)
	}
	for name, inst := range c.Instances {
		field := "instances." + name
		if inst.Host == "" {
			errs.Add(field+".host", "host is required", nil)
		}
		if inst.Port < 1 || inst.Port > 65535 {
			errs.Add(field+".port", "port must be between 1 and 65535", inst.Port)
		}
		if inst.User == "" {
			errs.Add(field+".user", "user is required", nil)
		}
	}

	if len(c.Databases) == 0 {
		errs.Add("databases", "at least one database is required", nil)
	}
	seen := make(map[string]bool)
	for i := range c.Databases {
		db := &c.Databases[i]
		field := fmt.Sprintf("databases[%d]", i)
		if db.Name == "" {
			errs.Add(field+".name", "database name is required", nil)
		} else {
			field = "databases." + db.Name
		}
		if seen[db.Name+"@"+db.Instance] {
			errs.Add(field, "duplicate database entry", db.Name)
		}
		seen[db.Name+"@"+db.Instance] = true

		if db.Instance == "" {
			errs.Add(field+".instance", "instance reference is required", nil)
		} else if _, ok := c.Instances[db.Instance]; !ok {
			errs.Add(field+".instance", "references undefined instance", db.Instance)
		}

		validateOptions(&errs, field, &db.DumpOptions)
		for j := range db.Tables.Tables {
			tbl := &db.Tables.Tables[j]
			tblField := field + ".tables." + tbl.Name
			if tbl.Name == "" {
				errs.Add(field+".tables", "table name is required", nil)
			}
			validateOptions(&errs, tblField, &tbl.DumpOptions)
		}
	}

	validateOptions(&errs, "defaults", &c.Defaults)

	switch c.Output.Format {
	case FormatSQL, FormatCSV:
	default:
		errs.Add("output.format", "format must be sql or csv", c.Output.Format)
	}
	switch c.Output.Compression {
	case CompressionGzip, CompressionZstd, CompressionLZ4:
	default:
		errs.Add("output.compression", "compression must be gzip, zstd or lz4", c.Output.Compression)
	}
	if c.Output.Encryption.Enabled && c.Output.Encryption.Password == "" {
		errs.Add("output.encryption.password", "password is required when encryption is enabled", nil)
	}

	if c.Upload.Enabled {
		switch c.Upload.Provider {
		case UploadProviderLocal:
			if c.Upload.Local == nil || c.Upload.Local.Directory == "" {
				errs.Add("upload.local.directory", "directory is required for the local provider", nil)
			}
		case UploadProviderS3:
			if c.Upload.S3 == nil {
				errs.Add("upload.s3", "s3 section is required for the s3 provider", nil)
			} else {
				if c.Upload.S3.Bucket == "" {
					errs.Add("upload.s3.bucket", "bucket is required", nil)
				}
				if c.Upload.S3.Region == "" && c.Upload.S3.Endpoint == "" {
					errs.Add("upload.s3.region", "region is required", nil)
				}
			}
		case UploadProviderAzure:
			if c.Upload.Azure == nil {
				errs.Add("upload.azure", "azure section is required for the azure provider", nil)
			} else {
				if c.Upload.Azure.AccountName == "" {
					errs.Add("upload.azure.account_name", "account_name is required", nil)
				}
				if c.Upload.Azure.AccountKey == "" {
					errs.Add("upload.azure.account_key", "account_key is required", nil)
				}
				if c.Upload.Azure.Container == "" {
					errs.Add("upload.azure.container", "container is required", nil)
				}
			}
		case UploadProviderGCS:
			if c.Upload.GCS == nil || c.Upload.GCS.Bucket == "" {
				errs.Add("upload.gcs.bucket", "bucket is required for the gcs provider", nil)
			}
		default:
			errs.Add("upload.provider", "provider must be local, s3, azure or gcs", c.Upload.Provider)
		}
	}

	if c.Retention.Enabled {
		if c.Retention.MaxRuns < 0 {
			errs.Add("retention.max_runs", "max_runs must not be negative", c.Retention.MaxRuns)
		}
		if c.Retention.MaxAgeDays < 0 {
			errs.Add("retention.max_age_days", "max_age_days must not be negative", c.Retention.MaxAgeDays)
		}
		if c.Retention.MaxRuns == 0 && c.Retention.MaxAgeDays == 0 {
			errs.Add("retention", "enable retention with max_runs or max_age_days set", nil)
		}
	}

	if c.Notify.Enabled {
		if c.Notify.URL == "" {
			errs.Add("notify.url", "url is required when notify is enabled", nil)
		}
		switch c.Notify.Method {
		case "POST", "PUT":
		default:
			errs.Add("notify.method", "method must be POST or PUT", c.Notify.Method)
		}
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			errs.Add("schedule", fmt.Sprintf("invalid cron expression: %v", err), c.Schedule)
		}
	}

	switch c.Logging.Level {
	case "quiet", "normal", "verbose", "debug":
	default:
		errs.Add("logging.level", "level must be quiet, normal, verbose or debug", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs.Add("logging.format", "format must be text or json", c.Logging.Format)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// validateOptions checks one cascade level. Directions are normalized
// to upper case in place so later comparisons are uniform.
func validateOptions(errs *ValidationErrors, field string, opts *DumpOptions) {
	if opts.RowLimit != nil && *opts.RowLimit < 0 {
		errs.Add(field+".row_limit", "row_limit must not be negative", *opts.RowLimit)
	}
	if opts.OrderDirection != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*opts.OrderDirection))
		switch normalized {
		case "ASC", "DESC":
			*opts.OrderDirection = normalized
		default:
			errs.Add(field+".order_direction", "order_direction must be ASC or DESC", *opts.OrderDirection)
		}
	}
}

// FilterDatabases returns the database entries matching the optional
// name and instance filters. Empty filters match everything; a filter
// matching nothing returns an empty list, not an error.
func (c *Config) FilterDatabases(databases, instances []string) []DatabaseConfig {
	dbWanted := toSet(databases)
	instWanted := toSet(instances)

	var filtered []DatabaseConfig
	for _, db := range c.Databases {
		if len(dbWanted) > 0 && !dbWanted[db.Name] {
			continue
		}
		if len(instWanted) > 0 && !instWanted[db.Instance] {
			continue
		}
		filtered = append(filtered, db)
	}
	return filtered
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// ValidationError describes one invalid configuration field
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add appends a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
