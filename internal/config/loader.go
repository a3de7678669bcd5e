package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// placeholderPattern matches ${VAR} credential placeholders
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Loader reads, resolves and validates configuration documents
type Loader struct {
	logger *logging.Logger
}

// NewLoader creates a configuration loader
func NewLoader(logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Loader{logger: logger}
}

// Load reads the configuration file at path. The returned error is
// always a config error: the run cannot proceed without a valid
// document.
func (l *Loader) Load(path string) (*Config, error) {
	l.logger.WithField("path", path).Debug("Loading configuration file")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("configuration file not found: %s", path), err)
		}
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("failed to read configuration file: %s", path), err)
	}

	cfg, err := l.LoadBytes(data)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(map[string]interface{}{
		"path":      path,
		"instances": len(cfg.Instances),
		"databases": len(cfg.Databases),
	}).Debug("Configuration loaded")
	return cfg, nil
}

// LoadBytes parses and validates a configuration document from memory
func (l *Loader) LoadBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to parse configuration YAML", err)
	}

	cfg.SetDefaults()

	if err := l.resolveCredentials(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("configuration validation failed", err)
	}
	return &cfg, nil
}

// resolveCredentials expands ${VAR} placeholders in every credential
// field. A placeholder referencing an unset environment variable is
// fatal: continuing would connect with the literal placeholder text.
func (l *Loader) resolveCredentials(cfg *Config) error {
	var missing []string

	resolve := func(field, value string) string {
		resolved, unset := expandPlaceholders(value)
		for _, name := range unset {
			missing = append(missing, fmt.Sprintf("%s (%s)", name, field))
		}
		return resolved
	}

	names := make([]string, 0, len(cfg.Instances))
	for name := range cfg.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		inst := cfg.Instances[name]
		inst.Password = resolve("instances."+name+".password", inst.Password)
		cfg.Instances[name] = inst
	}

	// Credentials of disabled features stay unresolved so a sample
	// config loads without every referenced variable being set.
	if cfg.Output.Encryption.Enabled {
		cfg.Output.Encryption.Password = resolve("output.encryption.password", cfg.Output.Encryption.Password)
	}

	if cfg.Upload.Enabled {
		if cfg.Upload.S3 != nil && cfg.Upload.Provider == UploadProviderS3 {
			cfg.Upload.S3.AccessKey = resolve("upload.s3.access_key", cfg.Upload.S3.AccessKey)
			cfg.Upload.S3.SecretKey = resolve("upload.s3.secret_key", cfg.Upload.S3.SecretKey)
		}
		if cfg.Upload.Azure != nil && cfg.Upload.Provider == UploadProviderAzure {
			cfg.Upload.Azure.AccountKey = resolve("upload.azure.account_key", cfg.Upload.Azure.AccountKey)
		}
	}

	if len(missing) > 0 {
		return apperrors.NewConfigError(
			fmt.Sprintf("unresolved environment variables: %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}

// expandPlaceholders substitutes ${VAR} references from the
// environment and reports the names of unset variables.
func expandPlaceholders(value string) (string, []string) {
	if !strings.Contains(value, "${") {
		return value, nil
	}

	var unset []string
	resolved := placeholderPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		unset = append(unset, name)
		return match
	})
	return resolved, unset
}

// GenerateDefaultConfigYAML returns a commented sample configuration
func GenerateDefaultConfigYAML() string {
	return `# MySQL dump configuration

instances:
  primary:
    host: localhost
    port: 3306
    user: dump
    password: ${MYSQL_DUMP_PASSWORD}
    timeout: 30s

databases:
  - name: shop
    instance: primary
    tables: "*"
    exclude_tables:
      - "tmp_*"
      - "*_backup"
  - name: analytics
    instance: primary
    row_limit: 100000
    tables:
      - name: events
        order_by: created_at
        order_direction: DESC
      - name: sessions
        row_limit: 0            # schema only, no rows
      - name: audit_log
        where_clause: "created_at >= NOW() - INTERVAL 30 DAY"

# Settings applied when neither the table nor the database sets them
defaults:
  order_direction: ASC

output:
  directory: ./dumps
  format: sql                   # sql | csv
  compress: false
  compression: gzip             # gzip | zstd | lz4
  encryption:
    enabled: false
    password: ${MYSQL_DUMP_ENCRYPTION_KEY}

# Push finished run directories to external storage
upload:
  enabled: false
  provider: s3                  # local | s3 | azure | gcs
  s3:
    bucket: my-dumps
    region: eu-central-1
    access_key: ${AWS_ACCESS_KEY_ID}
    secret_key: ${AWS_SECRET_ACCESS_KEY}

# Prune old run directories after each run
retention:
  enabled: false
  max_runs: 10
  max_age_days: 30

# Post the run summary to a webhook
notify:
  enabled: false
  url: https://hooks.example.com/dumps
  method: POST
  timeout: 10s

# Cron expression for repeated runs (empty runs once)
schedule: ""

logging:
  level: normal                 # quiet | normal | verbose | debug
  format: text                  # text | json
`
}
