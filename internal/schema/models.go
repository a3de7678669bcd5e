package schema

import (
	"fmt"
	"strings"
)

// Table represents one base table with its columns in ordinal order
type Table struct {
	Name    string    `json:"name"`
	Columns []*Column `json:"columns"`
}

// Column represents one table column as reported by
// INFORMATION_SCHEMA.COLUMNS
type Column struct {
	Name         string  `json:"name"`
	DataType     string  `json:"data_type"`   // base type, e.g. varchar
	ColumnType   string  `json:"column_type"` // full type, e.g. varchar(255) unsigned
	IsNullable   bool    `json:"is_nullable"`
	DefaultValue *string `json:"default_value"`
	Key          string  `json:"key"` // PRI, UNI, MUL or empty
	Extra        string  `json:"extra"`
	Position     int     `json:"position"`
}

// NewTable creates a new Table instance
func NewTable(name string) *Table {
	return &Table{
		Name:    name,
		Columns: make([]*Column, 0),
	}
}

// AddColumn appends a column preserving ordinal order
func (t *Table) AddColumn(column *Column) error {
	if err := column.Validate(); err != nil {
		return fmt.Errorf("cannot add invalid column: %w", err)
	}

	t.Columns = append(t.Columns, column)
	return nil
}

// ColumnNames returns the column names in ordinal order
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		names = append(names, column.Name)
	}
	return names
}

// GetColumn retrieves a column by name
func (t *Table) GetColumn(name string) (*Column, bool) {
	for _, column := range t.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return nil, false
}

// HasColumn reports whether the table has a column with the given name
func (t *Table) HasColumn(name string) bool {
	_, ok := t.GetColumn(name)
	return ok
}

// PrimaryKeyColumns returns the names of the primary key columns in
// ordinal order, or an empty slice for keyless tables
func (t *Table) PrimaryKeyColumns() []string {
	var names []string
	for _, column := range t.Columns {
		if column.Key == "PRI" {
			names = append(names, column.Name)
		}
	}
	return names
}

// HasPrimaryKey checks if the table has a primary key
func (t *Table) HasPrimaryKey() bool {
	return len(t.PrimaryKeyColumns()) > 0
}

// Validate validates the Table structure
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	if len(t.Columns) == 0 {
		return fmt.Errorf("table must have at least one column")
	}

	for _, column := range t.Columns {
		if err := column.Validate(); err != nil {
			return fmt.Errorf("invalid column %s: %w", column.Name, err)
		}
	}

	return nil
}

// Validate validates the Column structure
func (c *Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name cannot be empty")
	}

	if c.ColumnType == "" {
		return fmt.Errorf("column type cannot be empty")
	}

	if c.Position < 0 {
		return fmt.Errorf("column position must be non-negative")
	}

	return nil
}

// Type classification used when rendering row values. The sets mirror
// the MySQL type system as reported in the DATA_TYPE column.

var numericTypes = map[string]bool{
	"tinyint": true, "smallint": true, "mediumint": true, "int": true, "integer": true,
	"bigint": true, "decimal": true, "numeric": true, "float": true, "double": true,
	"year": true,
}

var binaryTypes = map[string]bool{
	"binary": true, "varbinary": true, "bit": true,
	"tinyblob": true, "blob": true, "mediumblob": true, "longblob": true,
	"geometry": true, "point": true, "linestring": true, "polygon": true,
	"multipoint": true, "multilinestring": true, "multipolygon": true, "geometrycollection": true,
}

var temporalTypes = map[string]bool{
	"date": true, "time": true, "datetime": true, "timestamp": true,
}

// baseType strips any size or precision suffix from a type name
func baseType(dataType string) string {
	dt := strings.ToLower(strings.TrimSpace(dataType))
	if idx := strings.Index(dt, "("); idx != -1 {
		dt = dt[:idx]
	}
	return dt
}

// IsNumeric reports whether values are emitted without quoting
func (c *Column) IsNumeric() bool {
	return numericTypes[baseType(c.DataType)]
}

// IsBoolean reports whether the column is a tinyint(1) flag
func (c *Column) IsBoolean() bool {
	return strings.HasPrefix(strings.ToLower(c.ColumnType), "tinyint(1)")
}

// IsBinary reports whether values carry raw bytes rather than text
func (c *Column) IsBinary() bool {
	return binaryTypes[baseType(c.DataType)]
}

// IsTemporal reports whether the column holds a date or time value
func (c *Column) IsTemporal() bool {
	return temporalTypes[baseType(c.DataType)]
}
