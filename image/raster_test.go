package image

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRasterCheckerboard(t *testing.T) {
	src := &Grayscale{Width: 2, Height: 2, Pix: []uint8{
		0, 255,
		255, 0,
	}}
	m, err := Dither(src)
	require.NoError(t, err)

	got, err := EncodeRaster(m)
	require.NoError(t, err)

	want := []byte{
		0x1d, 0x76, 0x30, 0x00, // GS v 0, normal mode
		0x01, 0x00, // 1 byte per row
		0x02, 0x00, // 2 rows
		0x80, // row 0: leftmost dot burned
		0x40, // row 1: second dot burned
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("checkerboard packet mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeRasterPartialByte(t *testing.T) {
	// 10 dots wide: two bytes per row, the last six bits are padding.
	m := &Monochrome{Width: 10, Height: 1, Pix: []uint8{
		0, 255, 255, 255, 255, 255, 255, 0, 0, 0,
	}}
	got, err := EncodeRaster(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1d, 0x76, 0x30, 0x00, 0x02, 0x00, 0x01, 0x00, 0x81, 0xc0}, got)
}

func TestEncodeRasterHeaderMatchesPayload(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	for i := 0; i < 25; i++ {
		w, h := 1+r.IntN(700), 1+r.IntN(300)
		t.Run(fmt.Sprintf("%dx%d", w, h), func(t *testing.T) {
			m, err := Dither(randomGray(r, w, h))
			require.NoError(t, err)

			packet, err := EncodeRaster(m)
			require.NoError(t, err)

			hdr, err := ParseRasterHeader(packet)
			require.NoError(t, err)
			assert.Equal(t, ModeNormal, hdr.Mode)
			assert.Equal(t, (w+7)/8, hdr.WidthBytes)
			assert.Equal(t, h, hdr.HeightDots)
			assert.Equal(t, hdr.PayloadLen(), len(packet)-RasterHeaderLen)

			back, err := DecodeRaster(packet, w)
			require.NoError(t, err)
			assert.Equal(t, m.Pix, back.Pix)
		})
	}
}

func TestEncodeRasterOverflow(t *testing.T) {
	m := &Monochrome{Width: MaxRasterDimension + 1, Height: 1, Pix: make([]uint8, MaxRasterDimension+1)}
	_, err := EncodeRaster(m)
	assert.ErrorIs(t, err, ErrRasterDimensionOverflow)

	m = &Monochrome{Width: 1, Height: MaxRasterDimension + 1, Pix: make([]uint8, MaxRasterDimension+1)}
	_, err = EncodeRaster(m)
	assert.ErrorIs(t, err, ErrRasterDimensionOverflow)
}

func TestEncodeRasterInvalid(t *testing.T) {
	_, err := EncodeRaster(nil)
	assert.ErrorIs(t, err, ErrInvalidImageDimensions)

	_, err = EncodeRaster(&Monochrome{Width: 4, Height: 0})
	assert.ErrorIs(t, err, ErrInvalidImageDimensions)
}

func TestParseRasterHeaderRejects(t *testing.T) {
	_, err := ParseRasterHeader([]byte{0x1d, 0x76})
	assert.ErrorIs(t, err, ErrMalformedRaster)

	_, err = ParseRasterHeader([]byte{0x1b, 0x40, 0x30, 0, 1, 0, 1, 0})
	assert.ErrorIs(t, err, ErrMalformedRaster)

	_, err = DecodeRaster([]byte{0x1d, 0x76, 0x30, 0, 1, 0, 2, 0, 0xff}, 8)
	assert.ErrorIs(t, err, ErrMalformedRaster)
}

func TestRowsSharesPixels(t *testing.T) {
	m := &Monochrome{Width: 2, Height: 3, Pix: []uint8{0, 0, 255, 255, 0, 255}}

	band, err := m.Rows(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, band.Height)
	assert.Equal(t, []uint8{255, 255, 0, 255}, band.Pix)

	_, err = m.Rows(2, 4)
	assert.ErrorIs(t, err, ErrInvalidImageDimensions)
	_, err = m.Rows(1, 1)
	assert.ErrorIs(t, err, ErrInvalidImageDimensions)
}
