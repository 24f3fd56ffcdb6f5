package compress

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress(t *testing.T) {
	payload := []byte(`{"id":"1","trigger":"update","path":"products/a","after":{"Path":"products/a","Data":"{\"name\":\"A\"}"}}`)

	for _, name := range []string{"nop", "gzip", "brotli", "lz4"} {
		t.Run(name, func(t *testing.T) {
			codec, err := New(name)
			require.NoError(t, err)

			encoded, err := codec.Encode(payload)
			require.NoError(t, err)

			decoded, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}

	_, err := New("zstd")
	assert.Error(t, err)
}

func TestGZipLevel(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"docPath":"products/a","name":"A"}`), 64)

	for _, level := range []int{gzip.BestSpeed, gzip.BestCompression, 42} {
		codec := NewGZipLevel(level)

		encoded, err := codec.Encode(payload)
		require.NoError(t, err)
		assert.Less(t, len(encoded), len(payload))

		// pooled writers are reset between payloads
		again, err := codec.Encode(payload)
		require.NoError(t, err)
		assert.Equal(t, encoded, again)

		decoded, err := codec.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	}
}

func TestGZip_ZeroValue(t *testing.T) {
	payload := []byte(`{"docPath":"products/a"}`)

	var codec GZip
	encoded, err := codec.Encode(payload)
	require.NoError(t, err)

	decoded, err := NewGZip().Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}
