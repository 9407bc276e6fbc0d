package printer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandsPartition(t *testing.T) {
	for _, h := range []int{1, 7, 199, 200, 201, 999, 1000, 1001, 4096} {
		for _, c := range []int{1, 24, 200, 255, 5000} {
			bands := Bands(h, c)
			require.Len(t, bands, (h+c-1)/c, "H=%d C=%d", h, c)

			next := 0
			for i, b := range bands {
				assert.Equal(t, i, b.Index)
				assert.Equal(t, next, b.Y0, "gap or overlap at band %d (H=%d C=%d)", i, h, c)
				assert.Positive(t, b.Height())
				assert.LessOrEqual(t, b.Height(), c)
				if i < len(bands)-1 {
					assert.Equal(t, c, b.Height())
				}
				next = b.Y1
			}
			assert.Equal(t, h, next)
		}
	}
}

func TestBandsThousandRows(t *testing.T) {
	want := []Band{
		{0, 0, 200},
		{1, 200, 400},
		{2, 400, 600},
		{3, 600, 800},
		{4, 800, 1000},
	}
	if diff := cmp.Diff(want, Bands(1000, 200)); diff != "" {
		t.Errorf("bands mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "band 4 rows [800,1000)", Bands(1000, 200)[4].String())
}

func TestBandsInvalid(t *testing.T) {
	assert.Nil(t, Bands(0, 200))
	assert.Nil(t, Bands(-5, 200))
	assert.Nil(t, Bands(100, 0))
}

func TestTrailer(t *testing.T) {
	tests := []struct {
		name   string
		policy TrailerPolicy
		lines  int
		want   []byte
	}{
		{"cut", TrailerCut, 4, []byte{0x0a, 0x0a, 0x0a, 0x0a, 0x1d, 0x56, 0x42, 0x00}},
		{"feed only", TrailerFeed, 4, []byte{0x0a, 0x0a, 0x0a, 0x0a}},
		{"cut without feed", TrailerCut, 0, []byte{0x1d, 0x56, 0x42, 0x00}},
		{"negative lines", TrailerFeed, -1, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trailer(tt.policy, tt.lines))
		})
	}
}

func TestParsePolicies(t *testing.T) {
	p, err := ParseTrailerPolicy("feed")
	require.NoError(t, err)
	assert.Equal(t, TrailerFeed, p)
	_, err = ParseTrailerPolicy("guillotine")
	assert.Error(t, err)

	f, err := ParseFailurePolicy("continue")
	require.NoError(t, err)
	assert.Equal(t, ContinueOnFailure, f)
	_, err = ParseFailurePolicy("retry")
	assert.Error(t, err)
}
