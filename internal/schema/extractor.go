package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Extractor reads table metadata from MySQL system catalogs
type Extractor struct {
	queryTimeout time.Duration
}

// NewExtractor creates a new schema extractor
func NewExtractor() *Extractor {
	return &Extractor{
		queryTimeout: 30 * time.Second,
	}
}

// NewExtractorWithTimeout creates a new schema extractor with custom timeout
func NewExtractorWithTimeout(timeout time.Duration) *Extractor {
	return &Extractor{
		queryTimeout: timeout,
	}
}

// ListTables returns the names of all base tables in the schema in
// alphabetical order. Views are not dumped and are left out.
func (e *Extractor) ListTables(ctx context.Context, db *sql.DB, schemaName string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if schemaName == "" {
		return nil, fmt.Errorf("schema name cannot be empty")
	}

	query := `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table rows: %w", err)
	}

	return tables, nil
}

// TableColumns returns the columns of one table in ordinal order
func (e *Extractor) TableColumns(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]*Column, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `
		SELECT
			COLUMN_NAME,
			DATA_TYPE,
			COLUMN_TYPE,
			IS_NULLABLE,
			COLUMN_DEFAULT,
			COLUMN_KEY,
			EXTRA,
			ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []*Column

	for rows.Next() {
		var columnName, dataType, columnType, isNullable, key, extra string
		var defaultValue sql.NullString
		var position int

		err := rows.Scan(
			&columnName,
			&dataType,
			&columnType,
			&isNullable,
			&defaultValue,
			&key,
			&extra,
			&position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column data: %w", err)
		}

		column := &Column{
			Name:       columnName,
			DataType:   dataType,
			ColumnType: columnType,
			IsNullable: isNullable == "YES",
			Key:        key,
			Extra:      extra,
			Position:   position,
		}

		if defaultValue.Valid {
			column.DefaultValue = &defaultValue.String
		}

		columns = append(columns, column)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column rows: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns or does not exist", tableName)
	}

	return columns, nil
}

// ExtractTable reads the full metadata of one table
func (e *Extractor) ExtractTable(ctx context.Context, db *sql.DB, schemaName, tableName string) (*Table, error) {
	columns, err := e.TableColumns(ctx, db, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	table := &Table{
		Name:    tableName,
		Columns: columns,
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("extracted table is invalid: %w", err)
	}

	return table, nil
}

// SchemaExists checks if the specified schema exists on the server
func (e *Extractor) SchemaExists(ctx context.Context, db *sql.DB, schemaName string) (bool, error) {
	if db == nil {
		return false, fmt.Errorf("database connection is nil")
	}

	if schemaName == "" {
		return false, fmt.Errorf("schema name cannot be empty")
	}

	query := `
		SELECT COUNT(*)
		FROM INFORMATION_SCHEMA.SCHEMATA
		WHERE SCHEMA_NAME = ?
	`

	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	var count int
	if err := db.QueryRowContext(ctx, query, schemaName).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check schema existence: %w", err)
	}

	return count > 0, nil
}
