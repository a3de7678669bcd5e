package dump

import (
	"database/sql"
	"fmt"
)

// Row holds one result row. Values are raw bytes as sent by the
// server; a nil entry is SQL NULL.
type Row [][]byte

// RowStream iterates a result set once, handing out fixed-size
// batches. The underlying cursor stays open between batches so large
// tables never load fully into memory.
type RowStream struct {
	rows        *sql.Rows
	columnCount int
	total       int64
	done        bool
}

// NewRowStream wraps an open result set
func NewRowStream(rows *sql.Rows, columnCount int) *RowStream {
	return &RowStream{
		rows:        rows,
		columnCount: columnCount,
	}
}

// NextBatch reads up to size rows. An empty batch means the stream is
// exhausted.
func (s *RowStream) NextBatch(size int) ([]Row, error) {
	if s.done {
		return nil, nil
	}
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}

	batch := make([]Row, 0, size)

	raw := make([]sql.RawBytes, s.columnCount)
	dest := make([]interface{}, s.columnCount)
	for i := range raw {
		dest[i] = &raw[i]
	}

	for len(batch) < size && s.rows.Next() {
		if err := s.rows.Scan(dest...); err != nil {
			s.done = true
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		// RawBytes aliases the driver buffer and is only valid until
		// the next call to Next, so every value is copied out.
		row := make(Row, s.columnCount)
		for i, v := range raw {
			if v == nil {
				continue
			}
			value := make([]byte, len(v))
			copy(value, v)
			row[i] = value
		}
		batch = append(batch, row)
	}

	if len(batch) < size {
		s.done = true
		if err := s.rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}
	}

	s.total += int64(len(batch))
	return batch, nil
}

// Total returns the number of rows handed out so far
func (s *RowStream) Total() int64 {
	return s.total
}

// Close releases the underlying cursor
func (s *RowStream) Close() error {
	s.done = true
	return s.rows.Close()
}
