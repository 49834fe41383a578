package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"0", 0},
		{"1024", 1024},
		{"500Mi", 500 * MiB},
		{"2Gi", 2 * GiB},
		{"1GiB", GiB},
		{"100MB", 100 * MB},
		{"1k", KB},
		{"3TiB", 3 * TiB},
		{"1.5Gi", ByteSize(1.5 * float64(GiB))},
		{"0.5M", 500 * KB},
		{"  64 Ki ", 64 * KiB},
		{"10gib", 10 * GiB},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseByteSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseByteSizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "  ", "Gi", "12X", "1..5M", "-1Gi", "1 G B"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseByteSize(in)
			assert.Error(t, err)
		})
	}
}

func TestByteSizeUnmarshalText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("256Mi")))
	assert.Equal(t, 256*MiB, b)

	assert.Error(t, b.UnmarshalText([]byte("plenty")))
}

func TestByteSizeString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "1.00KiB", KiB.String())
	assert.Equal(t, "1.50GiB", ByteSize(1.5*float64(GiB)).String())
	assert.Equal(t, "2.00TiB", (2 * TiB).String())
}

func TestByteSizeInt64(t *testing.T) {
	assert.Equal(t, int64(5*GiB), (5 * GiB).Int64())
}
