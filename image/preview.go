package image

import (
	"image"
	"image/png"
	"io"
)

// Image returns m as a standard library gray image.
func (m *Monochrome) Image() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(g.Pix, m.Pix)
	return g
}

// Preview renders what the printer will produce for src. It runs the same
// Dither as the print path.
func Preview(src *Grayscale) (*image.Gray, error) {
	m, err := Dither(src)
	if err != nil {
		return nil, err
	}
	return m.Image(), nil
}

// WritePreviewPNG writes Preview(src) to w as PNG.
func WritePreviewPNG(w io.Writer, src *Grayscale) error {
	g, err := Preview(src)
	if err != nil {
		return err
	}
	return png.Encode(w, g)
}
