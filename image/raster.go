package image

import (
	"bytes"
	"fmt"

	"github.com/AlexStarov/escpos-raster/util"
)

// GS v 0 — print raster bit image.
var rasterTag = []byte{0x1d, 0x76, 0x30}

const (
	// RasterHeaderLen is the size of the GS v 0 m xL xH yL yH prefix.
	RasterHeaderLen = 8
	// MaxRasterDimension is the largest value the 16-bit size fields hold.
	MaxRasterDimension = 0xffff

	ModeNormal byte = 0
)

// RasterHeader is the decoded GS v 0 prefix.
type RasterHeader struct {
	Mode       byte
	WidthBytes int
	HeightDots int
}

// PayloadLen is the number of bitmap bytes the header announces.
func (h RasterHeader) PayloadLen() int { return h.WidthBytes * h.HeightDots }

// WidthBytes is ceil(w/8), the packed row stride.
func WidthBytes(w int) int { return (w + 7) >> 3 }

// EncodeRaster packs m into one self-contained GS v 0 command: the header
// followed by ceil(W/8)*H bytes, MSB = leftmost dot, 1 = printed.
func EncodeRaster(m *Monochrome) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Width > MaxRasterDimension || m.Height > MaxRasterDimension {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrRasterDimensionOverflow, m.Width, m.Height, MaxRasterDimension)
	}

	bw := WidthBytes(m.Width)
	xLH, err := util.IntLowHigh(bw, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterDimensionOverflow, err)
	}
	yLH, err := util.IntLowHigh(m.Height, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterDimensionOverflow, err)
	}

	out := make([]byte, RasterHeaderLen+bw*m.Height)
	copy(out, rasterTag)
	out[3] = ModeNormal
	copy(out[4:6], xLH)
	copy(out[6:8], yLH)

	data := out[RasterHeaderLen:]
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		line := data[y*bw : (y+1)*bw]
		for x, v := range row {
			if v == Black {
				line[x>>3] |= 0x80 >> uint(x&7)
			}
		}
	}

	return out, nil
}

// ParseRasterHeader decodes the first RasterHeaderLen bytes of a GS v 0 packet.
func ParseRasterHeader(b []byte) (RasterHeader, error) {
	if len(b) < RasterHeaderLen {
		return RasterHeader{}, fmt.Errorf("%w: %d bytes, need %d", ErrMalformedRaster, len(b), RasterHeaderLen)
	}
	if !bytes.Equal(b[:3], rasterTag) {
		return RasterHeader{}, fmt.Errorf("%w: tag % x", ErrMalformedRaster, b[:3])
	}
	return RasterHeader{
		Mode:       b[3],
		WidthBytes: util.LowHigh(b[4:6]),
		HeightDots: util.LowHigh(b[6:8]),
	}, nil
}

// DecodeRaster unpacks a full GS v 0 packet into a Monochrome of the given
// dot width. It is the inverse of EncodeRaster and checks that the payload
// length matches the header exactly.
func DecodeRaster(b []byte, width int) (*Monochrome, error) {
	h, err := ParseRasterHeader(b)
	if err != nil {
		return nil, err
	}
	if got := len(b) - RasterHeaderLen; got != h.PayloadLen() {
		return nil, fmt.Errorf("%w: payload %d bytes, header says %d", ErrMalformedRaster, got, h.PayloadLen())
	}
	if width <= 0 || WidthBytes(width) != h.WidthBytes {
		return nil, fmt.Errorf("%w: width %d does not match %d row bytes", ErrMalformedRaster, width, h.WidthBytes)
	}

	m := &Monochrome{Width: width, Height: h.HeightDots, Pix: make([]uint8, width*h.HeightDots)}
	data := b[RasterHeaderLen:]
	for y := 0; y < m.Height; y++ {
		for x := 0; x < width; x++ {
			if data[y*h.WidthBytes+(x>>3)]&(0x80>>uint(x&7)) != 0 {
				m.Pix[y*width+x] = Black
			} else {
				m.Pix[y*width+x] = White
			}
		}
	}
	return m, nil
}
