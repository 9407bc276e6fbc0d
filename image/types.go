package image

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImageDimensions reports a zero, negative or inconsistent size.
	ErrInvalidImageDimensions = errors.New("invalid image dimensions")
	// ErrRasterDimensionOverflow reports an image the 16-bit GS v 0 fields cannot describe.
	ErrRasterDimensionOverflow = errors.New("raster dimension overflow")
	// ErrMalformedRaster reports bytes that are not a GS v 0 packet.
	ErrMalformedRaster = errors.New("malformed raster packet")
)

// Pixel values shared by both image kinds.
const (
	Black uint8 = 0
	White uint8 = 255
)

// Grayscale is an 8-bit luminance image, row-major, 0 = black, 255 = white.
type Grayscale struct {
	Width, Height int
	Pix           []uint8
}

// NewGrayscale allocates a white w×h image.
func NewGrayscale(w, h int) *Grayscale {
	g := &Grayscale{Width: w, Height: h}
	if w > 0 && h > 0 {
		g.Pix = make([]uint8, w*h)
		for i := range g.Pix {
			g.Pix[i] = White
		}
	}
	return g
}

// At returns the sample at (x, y).
func (g *Grayscale) At(x, y int) uint8 { return g.Pix[y*g.Width+x] }

// Set stores v at (x, y).
func (g *Grayscale) Set(x, y int, v uint8) { g.Pix[y*g.Width+x] = v }

func (g *Grayscale) validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImageDimensions)
	}
	return checkDims(g.Width, g.Height, len(g.Pix))
}

// Monochrome is a 1-bit image stored one byte per pixel: Black (printed) or
// White (blank).
type Monochrome struct {
	Width, Height int
	Pix           []uint8
}

// At returns the pixel at (x, y).
func (m *Monochrome) At(x, y int) uint8 { return m.Pix[y*m.Width+x] }

// Printed reports whether (x, y) burns a dot.
func (m *Monochrome) Printed(x, y int) bool { return m.At(x, y) == Black }

// Rows returns the band [y0, y1) as a Monochrome sharing m's pixels.
func (m *Monochrome) Rows(y0, y1 int) (*Monochrome, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if y0 < 0 || y1 > m.Height || y0 >= y1 {
		return nil, fmt.Errorf("%w: rows [%d,%d) outside height %d", ErrInvalidImageDimensions, y0, y1, m.Height)
	}
	return &Monochrome{
		Width:  m.Width,
		Height: y1 - y0,
		Pix:    m.Pix[y0*m.Width : y1*m.Width],
	}, nil
}

// Validate checks that the size is positive and matches len(Pix).
func (m *Monochrome) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImageDimensions)
	}
	return checkDims(m.Width, m.Height, len(m.Pix))
}

func checkDims(w, h, n int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImageDimensions, w, h)
	}
	if n != w*h {
		return fmt.Errorf("%w: %dx%d image has %d samples", ErrInvalidImageDimensions, w, h, n)
	}
	return nil
}
