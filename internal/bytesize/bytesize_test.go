package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    ByteSize
		wantErr bool
	}{
		{"1024", 1024, false},
		{"0", 0, false},
		{"100Mi", 100 * MiB, false},
		{"100MiB", 100 * MiB, false},
		{"100mi", 100 * MiB, false},
		{"64MB", 64 * MB, false},
		{"1.5Gi", GiB + 512*MiB, false},
		{" 2 Ki ", 2 * KiB, false},
		{"12B", 12, false},
		{"", 0, true},
		{"Mi", 0, true},
		{"10Xi", 0, true},
		{"-5", 0, true},
		{"1.2.3Mi", 0, true},
		{"99999999999999999999Ti", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, v := range []ByteSize{0, 1, 1000, KiB, 100 * MiB, 3 * GiB, 2 * TiB, MiB + 1} {
		got, err := Parse(v.String())
		require.NoError(t, err, v.String())
		assert.Equal(t, v, got)
	}
	assert.Equal(t, "100Mi", (100 * MiB).String())
	assert.Equal(t, "1000", KB.String())
}

func TestTextMarshaling(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("50Mi")))
	assert.Equal(t, 50*MiB, b)

	out, err := b.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "50Mi", string(out))

	assert.Error(t, b.UnmarshalText([]byte("lots")))
}

func TestHuman(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).Human())
	assert.Equal(t, "1.50KiB", ByteSize(1536).Human())
	assert.Equal(t, "100.00MiB", (100 * MiB).Human())
}

func TestMustParsePanics(t *testing.T) {
	assert.Equal(t, 4*KiB, MustParse("4Ki"))
	assert.Panics(t, func() { MustParse("nope") })
}
