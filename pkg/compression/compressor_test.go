package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

func TestRoundTrip(t *testing.T) {
	original := generateTrace(32 << 10)

	for _, algo := range Algorithms {
		for _, level := range []Level{Fastest, Default, Better, Best} {
			t.Run(string(algo)+"/"+level.String(), func(t *testing.T) {
				comp, err := NewCompressor(&Config{Algorithm: algo, Level: level})
				require.NoError(t, err)
				assert.Equal(t, algo, comp.Algorithm())
				assert.Equal(t, level, comp.Level())

				compressed, err := comp.Compress(original)
				require.NoError(t, err)
				if algo != None {
					assert.Less(t, len(compressed), len(original), "trace data is repetitive")
				}

				decompressed, err := comp.Decompress(compressed)
				require.NoError(t, err)
				assert.Equal(t, original, decompressed)

				var streamed bytes.Buffer
				require.NoError(t, comp.CompressStream(&streamed, bytes.NewReader(original)))
				var restored bytes.Buffer
				require.NoError(t, comp.DecompressStream(&restored, &streamed))
				assert.Equal(t, original, restored.Bytes())
			})
		}
	}
}

func TestEmptyInput(t *testing.T) {
	for _, algo := range []Algorithm{None, Gzip, Snappy, S2} {
		comp, err := NewCompressor(&Config{Algorithm: algo})
		require.NoError(t, err)

		compressed, err := comp.Compress(nil)
		require.NoError(t, err, algo)
		out, err := comp.Decompress(compressed)
		require.NoError(t, err, algo)
		assert.Empty(t, out, algo)
	}
}

func TestDecompressLimit(t *testing.T) {
	original := bytes.Repeat([]byte("burger "), 4096)

	for _, algo := range Algorithms {
		t.Run(string(algo), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: algo, MaxDecompressedSize: 1024})
			require.NoError(t, err)

			compressed, err := comp.Compress(original)
			require.NoError(t, err)

			_, err = comp.Decompress(compressed)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeCodec))
		})
	}
}

func TestCorruptInput(t *testing.T) {
	for _, algo := range []Algorithm{Gzip, Snappy, LZ4, Zstd, S2} {
		comp, err := NewCompressor(&Config{Algorithm: algo})
		require.NoError(t, err)

		_, err = comp.Decompress([]byte("definitely not compressed"))
		require.Error(t, err, algo)
		assert.True(t, errors.IsType(err, errors.ErrorTypeCodec), algo)
	}
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, Zstd, a)

	a, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, None, a)

	_, err = ParseAlgorithm("deflate64")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = NewCompressor(&Config{Algorithm: "brotli"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestAlgorithmForPath(t *testing.T) {
	tests := map[string]Algorithm{
		"trace.jsonl":     None,
		"trace.jsonl.gz":  Gzip,
		"trace.jsonl.LZ4": LZ4,
		"trace.zst":       Zstd,
		"trace.s2":        S2,
		"trace.sz":        Snappy,
		"trace":           None,
	}
	for path, want := range tests {
		assert.Equal(t, want, AlgorithmForPath(path), path)
	}

	comp, err := ForPath("out.gz")
	require.NoError(t, err)
	assert.Equal(t, Gzip, comp.Algorithm())
	assert.Equal(t, ".gz", Gzip.Extension())
}
