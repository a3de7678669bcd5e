package dump

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mysql-dump/internal/config"
	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

// RunDirLayout is the timestamp layout naming one run directory per
// execution, sortable by time. Retention pruning parses the same layout
// to recognize run directories.
const RunDirLayout = "20060102-150405"

// OutputPolicy resolves per-table output paths and assembles the byte
// pipeline each serializer writes into. On disk the layering is
// file ← encryption ← compression ← serializer, so compressed bytes are
// what gets encrypted.
type OutputPolicy struct {
	output     config.OutputConfig
	registry   *Registry
	compressor Compressor
	encryptor  *Encryptor
	logger     *logging.Logger
}

// NewOutputPolicy validates the output configuration and builds the
// policy used for every table of a run.
func NewOutputPolicy(output config.OutputConfig, logger *logging.Logger) (*OutputPolicy, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	policy := &OutputPolicy{
		output:   output,
		registry: NewRegistry(),
		logger:   logger,
	}

	if _, err := policy.registry.Extension(output.Format); err != nil {
		return nil, err
	}
	if output.Compress {
		compressor, err := NewCompressionManager().Get(output.Compression)
		if err != nil {
			return nil, err
		}
		policy.compressor = compressor
	}
	if output.Encryption.Enabled {
		policy.encryptor = NewEncryptor(output.Encryption.Password)
	}

	return policy, nil
}

// Format returns the configured serialization format.
func (p *OutputPolicy) Format() string {
	return p.output.Format
}

// RunDir returns the run directory for a run started at the given time.
func (p *OutputPolicy) RunDir(start time.Time) string {
	return filepath.Join(p.output.Directory, start.UTC().Format(RunDirLayout))
}

// FileName returns the output file name for a table, including the
// extension chain for compression and encryption.
func (p *OutputPolicy) FileName(table string) string {
	// Format is validated in NewOutputPolicy.
	ext, _ := p.registry.Extension(p.output.Format)

	name := table + ext
	if p.compressor != nil {
		name += p.compressor.Extension()
	}
	if p.encryptor != nil {
		name += p.encryptor.Extension()
	}
	return name
}

// TablePath returns the full output path for a table within a run.
func (p *OutputPolicy) TablePath(runDir, database, table string) string {
	return filepath.Join(runDir, database, p.FileName(table))
}

// NewSerializer creates a serializer for the configured format.
func (p *OutputPolicy) NewSerializer(w io.Writer, opts SerializerOptions) (Serializer, error) {
	return p.registry.Create(p.output.Format, w, opts)
}

// OpenSink creates the output file for path along with its encryption
// and compression layers.
func (p *OutputPolicy) OpenSink(path string) (*Sink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to create dump file %s", path), err)
	}

	p.logger.WithFields(map[string]interface{}{
		"path":       path,
		"compressed": p.compressor != nil,
		"encrypted":  p.encryptor != nil,
	}).Debug("Opened dump file")

	sink := &Sink{path: path, file: file}
	sink.counter = &countingWriter{w: file}

	var w io.Writer = sink.counter
	if p.encryptor != nil {
		encWriter, err := p.encryptor.NewWriter(w)
		if err != nil {
			file.Close()
			os.Remove(path)
			return nil, err
		}
		sink.layers = append(sink.layers, encWriter)
		w = encWriter
	}
	if p.compressor != nil {
		compWriter, err := p.compressor.NewWriter(w)
		if err != nil {
			sink.Abort()
			return nil, err
		}
		sink.layers = append(sink.layers, compWriter)
		w = compWriter
	}
	sink.Writer = w

	return sink, nil
}

// Sink is one open output file with its pipeline layers. Serializers
// write to Writer; Close finalizes the layers innermost first, Abort
// discards the partial file.
type Sink struct {
	Writer io.Writer

	path    string
	file    *os.File
	counter *countingWriter
	layers  []io.WriteCloser
}

// Path returns the output file path.
func (s *Sink) Path() string {
	return s.path
}

// BytesWritten returns the on-disk byte count written so far.
func (s *Sink) BytesWritten() int64 {
	return s.counter.n
}

// Close flushes and closes the pipeline layers, then the file.
func (s *Sink) Close() error {
	var firstErr error
	for i := len(s.layers) - 1; i >= 0; i-- {
		if err := s.layers[i].Close(); err != nil && firstErr == nil {
			firstErr = apperrors.NewStorageError(fmt.Sprintf("failed to finalize dump file %s", s.path), err)
		}
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = apperrors.NewStorageError(fmt.Sprintf("failed to close dump file %s", s.path), err)
	}
	return firstErr
}

// Abort closes the file and removes the partial output. A removal
// failure is reported so the caller can flag the leftover path.
func (s *Sink) Abort() error {
	for i := len(s.layers) - 1; i >= 0; i-- {
		s.layers[i].Close()
	}
	s.file.Close()

	if err := os.Remove(s.path); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to remove partial dump file %s", s.path), err)
	}
	return nil
}

// countingWriter tracks bytes reaching the file beneath the pipeline.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
