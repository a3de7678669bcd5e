package dump

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"mysql-dump/internal/config"
	apperrors "mysql-dump/internal/errors"
)

// Compressor wraps an output stream with transparent compression. Dumps
// stream through the writer, so no compressor may buffer the whole table.
type Compressor interface {
	Name() string
	Extension() string
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// CompressionManager maps configured algorithm names to compressors.
type CompressionManager struct {
	compressors map[string]Compressor
}

// NewCompressionManager creates a manager with all supported algorithms
// registered.
func NewCompressionManager() *CompressionManager {
	cm := &CompressionManager{
		compressors: make(map[string]Compressor),
	}

	cm.compressors[config.CompressionGzip] = &GzipCompressor{}
	cm.compressors[config.CompressionZstd] = &ZstdCompressor{}
	cm.compressors[config.CompressionLZ4] = &LZ4Compressor{}

	return cm
}

// Get returns the compressor for the named algorithm.
func (cm *CompressionManager) Get(algorithm string) (Compressor, error) {
	compressor, exists := cm.compressors[algorithm]
	if !exists {
		return nil, apperrors.NewStorageError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
	return compressor, nil
}

// SupportedAlgorithms returns the registered algorithm names.
func (cm *CompressionManager) SupportedAlgorithms() []string {
	algorithms := make([]string, 0, len(cm.compressors))
	for algorithm := range cm.compressors {
		algorithms = append(algorithms, algorithm)
	}
	return algorithms
}

// GzipCompressor implements gzip stream compression.
type GzipCompressor struct{}

func (gc *GzipCompressor) Name() string {
	return config.CompressionGzip
}

func (gc *GzipCompressor) Extension() string {
	return ".gz"
}

func (gc *GzipCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	writer, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create gzip writer", err)
	}
	return writer, nil
}

func (gc *GzipCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	reader, err := gzip.NewReader(r)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create gzip reader", err)
	}
	return reader, nil
}

// ZstdCompressor implements Zstandard stream compression.
type ZstdCompressor struct{}

func (zc *ZstdCompressor) Name() string {
	return config.CompressionZstd
}

func (zc *ZstdCompressor) Extension() string {
	return ".zst"
}

func (zc *ZstdCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create zstd encoder", err)
	}
	return encoder, nil
}

func (zc *ZstdCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create zstd decoder", err)
	}
	return decoder.IOReadCloser(), nil
}

// LZ4Compressor implements LZ4 stream compression.
type LZ4Compressor struct{}

func (lc *LZ4Compressor) Name() string {
	return config.CompressionLZ4
}

func (lc *LZ4Compressor) Extension() string {
	return ".lz4"
}

func (lc *LZ4Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lc *LZ4Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
