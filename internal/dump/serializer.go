package dump

import (
	"fmt"
	"io"

	"mysql-dump/internal/config"
	"mysql-dump/internal/schema"
)

// Serializer writes one table to one sink. WriteSchema is called once,
// WriteRows zero or more times with batches of at most BatchSize rows,
// and Close exactly once.
type Serializer interface {
	WriteSchema(table *schema.Table) error
	WriteRows(batch []Row) error
	Close() error
	BatchSize() int
}

// SerializerOptions carry the per-table context every format may use
type SerializerOptions struct {
	Database string
	Settings config.TableSettings
}

// SerializerFactory builds a serializer writing to w
type SerializerFactory func(w io.Writer, opts SerializerOptions) Serializer

// formatInfo pairs a factory with its file extension
type formatInfo struct {
	factory   SerializerFactory
	extension string
}

// Registry maps output format names to serializer factories
type Registry struct {
	formats map[string]formatInfo
}

// NewRegistry creates a registry with the built-in formats registered
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]formatInfo)}

	r.Register(config.FormatSQL, ".sql", func(w io.Writer, opts SerializerOptions) Serializer {
		return NewSQLSerializer(w, opts)
	})
	r.Register(config.FormatCSV, ".csv", func(w io.Writer, opts SerializerOptions) Serializer {
		return NewCSVSerializer(w, opts)
	})

	return r
}

// Register adds a format to the registry
func (r *Registry) Register(format, extension string, factory SerializerFactory) {
	r.formats[format] = formatInfo{factory: factory, extension: extension}
}

// Create builds a serializer for the given format
func (r *Registry) Create(format string, w io.Writer, opts SerializerOptions) (Serializer, error) {
	info, ok := r.formats[format]
	if !ok {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return info.factory(w, opts), nil
}

// Extension returns the file extension for the given format
func (r *Registry) Extension(format string) (string, error) {
	info, ok := r.formats[format]
	if !ok {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	return info.extension, nil
}

// SupportedFormats lists the registered format names
func (r *Registry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.formats))
	for format := range r.formats {
		formats = append(formats, format)
	}
	return formats
}
