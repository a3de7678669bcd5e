package dump

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("INSERT INTO `users` VALUES (1, 'alice');\n"), 500)

	for _, algorithm := range []string{"gzip", "zstd", "lz4"} {
		t.Run(algorithm, func(t *testing.T) {
			compressor, err := NewCompressionManager().Get(algorithm)
			require.NoError(t, err)

			var buf bytes.Buffer
			w, err := compressor.NewWriter(&buf)
			require.NoError(t, err)

			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			assert.Less(t, buf.Len(), len(payload), "repetitive payload must shrink")

			r, err := compressor.NewReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			defer r.Close()

			decompressed, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, decompressed)
		})
	}
}

func TestCompressionExtensions(t *testing.T) {
	manager := NewCompressionManager()

	tests := map[string]string{
		"gzip": ".gz",
		"zstd": ".zst",
		"lz4":  ".lz4",
	}

	for algorithm, extension := range tests {
		compressor, err := manager.Get(algorithm)
		require.NoError(t, err)
		assert.Equal(t, extension, compressor.Extension())
		assert.Equal(t, algorithm, compressor.Name())
	}
}

func TestCompressionManagerUnknownAlgorithm(t *testing.T) {
	_, err := NewCompressionManager().Get("brotli")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported compression algorithm")
}

func TestCompressionManagerSupportedAlgorithms(t *testing.T) {
	algorithms := NewCompressionManager().SupportedAlgorithms()

	assert.ElementsMatch(t, []string{"gzip", "zstd", "lz4"}, algorithms)
}

func TestCompressionEmptyInput(t *testing.T) {
	for _, algorithm := range []string{"gzip", "zstd", "lz4"} {
		t.Run(algorithm, func(t *testing.T) {
			compressor, err := NewCompressionManager().Get(algorithm)
			require.NoError(t, err)

			var buf bytes.Buffer
			w, err := compressor.NewWriter(&buf)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := compressor.NewReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			defer r.Close()

			decompressed, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Empty(t, decompressed)
		})
	}
}
