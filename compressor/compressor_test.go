package compressor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"role":"user","content":"Hello"}`), 64)
	for _, alg := range []Algorithm{None, Gzip, Snappy, Zstd} {
		t.Run(string(alg), func(t *testing.T) {
			c, err := Compress(alg, data)
			require.NoError(t, err)
			if alg != None {
				assert.Less(t, len(c), len(data))
			}
			d, err := Decompress(alg, c)
			require.NoError(t, err)
			assert.Equal(t, data, d)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, Zstd, a)

	a, err = ParseAlgorithm("none")
	require.NoError(t, err)
	assert.Equal(t, None, a)

	_, err = ParseAlgorithm("lz4")
	assert.Error(t, err)
}
