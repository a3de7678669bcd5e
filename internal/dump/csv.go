package dump

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"

	"mysql-dump/internal/schema"
)

// csvBatchSize is the preferred number of rows per WriteRows call. The
// csv writer buffers internally; a batch boundary is also a flush boundary.
const csvBatchSize = 5000

// CSVSerializer renders a table as an RFC 4180 CSV document. The first
// record holds the column names, every following record one row. NULL
// renders as an empty field, binary values are hex encoded.
type CSVSerializer struct {
	w     *csv.Writer
	opts  SerializerOptions
	table *schema.Table
	rows  int64
}

// NewCSVSerializer creates a serializer writing CSV records to w.
func NewCSVSerializer(w io.Writer, opts SerializerOptions) Serializer {
	return &CSVSerializer{
		w:    csv.NewWriter(w),
		opts: opts,
	}
}

// BatchSize returns the preferred row batch size for WriteRows.
func (s *CSVSerializer) BatchSize() int {
	return csvBatchSize
}

// WriteSchema emits the header record with the column names.
func (s *CSVSerializer) WriteSchema(table *schema.Table) error {
	s.table = table

	if err := s.w.Write(table.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write CSV header for table %s: %w", table.Name, err)
	}
	s.w.Flush()

	return s.w.Error()
}

// WriteRows appends one CSV record per row and flushes the batch.
func (s *CSVSerializer) WriteRows(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if s.table == nil {
		return fmt.Errorf("WriteRows called before WriteSchema")
	}

	record := make([]string, len(s.table.Columns))
	for _, row := range rows {
		if len(row) != len(s.table.Columns) {
			return fmt.Errorf("row has %d values, table %s has %d columns", len(row), s.table.Name, len(s.table.Columns))
		}
		for i, value := range row {
			record[i] = s.formatCSVValue(s.table.Columns[i], value)
		}
		if err := s.w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record for table %s: %w", s.table.Name, err)
		}
		s.rows++
	}
	s.w.Flush()

	return s.w.Error()
}

// Close flushes any buffered records.
func (s *CSVSerializer) Close() error {
	s.w.Flush()
	return s.w.Error()
}

// formatCSVValue renders a single raw value as a CSV field. Quoting and
// escaping are left to the csv writer.
func (s *CSVSerializer) formatCSVValue(column *schema.Column, value []byte) string {
	if value == nil {
		return ""
	}
	if column.IsBinary() {
		return hex.EncodeToString(value)
	}
	return string(value)
}
