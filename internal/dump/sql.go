package dump

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"mysql-dump/internal/config"
	"mysql-dump/internal/schema"
)

// sqlBatchSize is the number of rows per multi-row INSERT statement
const sqlBatchSize = 1000

// stringEscaper rewrites the characters MySQL requires escaped inside
// single-quoted literals
var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
)

// SQLSerializer emits a self-contained SQL script: a header comment,
// DROP TABLE IF EXISTS, a CREATE TABLE reconstructed from the column
// metadata, and multi-row INSERT statements.
type SQLSerializer struct {
	w       io.Writer
	opts    SerializerOptions
	table   *schema.Table
	rows    int64
	started time.Time
}

// NewSQLSerializer creates a serializer writing SQL statements to w
func NewSQLSerializer(w io.Writer, opts SerializerOptions) *SQLSerializer {
	return &SQLSerializer{
		w:       w,
		opts:    opts,
		started: time.Now().UTC(),
	}
}

// BatchSize returns the rows per INSERT statement
func (s *SQLSerializer) BatchSize() int {
	return sqlBatchSize
}

// WriteSchema emits the header comment, the DROP and the CREATE
func (s *SQLSerializer) WriteSchema(table *schema.Table) error {
	s.table = table

	var sb strings.Builder

	rule := strings.Repeat("-", 70)
	sb.WriteString("-- " + rule + "\n")
	sb.WriteString("-- mysql-dump\n")
	fmt.Fprintf(&sb, "-- Database: %s\n", s.opts.Database)
	fmt.Fprintf(&sb, "-- Table: %s\n", table.Name)
	fmt.Fprintf(&sb, "-- Generated: %s\n", s.started.Format(time.RFC3339))
	fmt.Fprintf(&sb, "-- Settings: %s\n", describeSettings(s.opts.Settings))
	sb.WriteString("-- " + rule + "\n\n")

	fmt.Fprintf(&sb, "DROP TABLE IF EXISTS %s;\n", QuoteIdent(table.Name))
	sb.WriteString(createTableStatement(table))
	sb.WriteString("\n")

	_, err := io.WriteString(s.w, sb.String())
	return err
}

// WriteRows emits one multi-row INSERT statement for the batch
func (s *SQLSerializer) WriteRows(batch []Row) error {
	if len(batch) == 0 {
		return nil
	}
	if s.table == nil {
		return fmt.Errorf("WriteRows called before WriteSchema")
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES\n",
		QuoteIdent(s.table.Name), quoteIdentList(s.table.ColumnNames()))

	for i, row := range batch {
		sb.WriteString("  (")
		for j, value := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatSQLValue(s.table.Columns[j], value))
		}
		if i < len(batch)-1 {
			sb.WriteString("),\n")
		} else {
			sb.WriteString(");\n")
		}
	}

	s.rows += int64(len(batch))

	_, err := io.WriteString(s.w, sb.String())
	return err
}

// Close emits the trailer comment with the final row count
func (s *SQLSerializer) Close() error {
	trailer := fmt.Sprintf("\n-- Dump complete: %d rows\n", s.rows)
	_, err := io.WriteString(s.w, trailer)
	return err
}

// createTableStatement reconstructs a CREATE TABLE from the column
// metadata. This is a faithful rebuild of columns and the primary key;
// secondary indexes and foreign keys are not part of the dump.
func createTableStatement(table *schema.Table) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "CREATE TABLE %s (\n", QuoteIdent(table.Name))

	lines := make([]string, 0, len(table.Columns)+1)
	for _, column := range table.Columns {
		lines = append(lines, "  "+columnDefinition(column))
	}
	if pk := table.PrimaryKeyColumns(); len(pk) > 0 {
		lines = append(lines, "  PRIMARY KEY ("+quoteIdentList(pk)+")")
	}

	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n);\n")
	return sb.String()
}

// columnDefinition renders one column clause of the CREATE TABLE
func columnDefinition(column *schema.Column) string {
	parts := []string{QuoteIdent(column.Name), column.ColumnType}

	if !column.IsNullable {
		parts = append(parts, "NOT NULL")
	}

	if column.DefaultValue != nil {
		parts = append(parts, "DEFAULT "+renderDefault(column))
	} else if column.IsNullable {
		parts = append(parts, "DEFAULT NULL")
	}

	extra := strings.ToLower(column.Extra)
	if strings.Contains(extra, "auto_increment") {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if strings.Contains(extra, "on update current_timestamp") {
		parts = append(parts, "ON UPDATE CURRENT_TIMESTAMP")
	}

	return strings.Join(parts, " ")
}

// renderDefault renders a column default. Keyword defaults such as
// CURRENT_TIMESTAMP and numeric defaults stay bare, everything else is
// quoted.
func renderDefault(column *schema.Column) string {
	value := *column.DefaultValue
	upper := strings.ToUpper(value)

	if upper == "NULL" || strings.HasPrefix(upper, "CURRENT_TIMESTAMP") {
		return value
	}
	if column.IsNumeric() {
		return value
	}
	return "'" + stringEscaper.Replace(value) + "'"
}

// formatSQLValue renders one value according to the declared column
// type
func formatSQLValue(column *schema.Column, value []byte) string {
	if value == nil {
		return "NULL"
	}

	switch {
	case column.IsBoolean():
		if n, err := strconv.ParseInt(string(value), 10, 64); err == nil {
			if n != 0 {
				return "1"
			}
			return "0"
		}
		return string(value)
	case column.IsNumeric():
		return string(value)
	case column.IsBinary():
		return "X'" + hex.EncodeToString(value) + "'"
	default:
		// Temporal and string values are quoted the same way; the
		// server already sends temporals in canonical form.
		return "'" + stringEscaper.Replace(string(value)) + "'"
	}
}

// describeSettings renders the effective settings for the header
func describeSettings(settings config.TableSettings) string {
	var parts []string

	switch {
	case settings.SchemaOnly():
		parts = append(parts, "schema only")
	case settings.Unlimited():
		parts = append(parts, "all rows")
	default:
		parts = append(parts, fmt.Sprintf("row_limit=%d", *settings.RowLimit))
	}
	if settings.OrderBy != "" {
		parts = append(parts, fmt.Sprintf("order_by=%s %s", settings.OrderBy, settings.OrderDirection))
	}
	if settings.WhereClause != "" {
		parts = append(parts, "where="+settings.WhereClause)
	}

	return strings.Join(parts, ", ")
}
