package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"regexp"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	logInternal "github.com/AlexStarov/escpos-raster/log"
)

// DefaultPaperWidth is the printable width of an 80mm head, in dots.
const DefaultPaperWidth = 576

var dataURLPrefix = regexp.MustCompile(`^data:image/[\w.+-]+;base64,`)

// Converter turns encoded pictures into Grayscale images the width of the
// paper: transparency is flattened onto white, the picture is scaled to
// Width keeping its aspect ratio, and colors are reduced to luminance.
type Converter struct {
	// Width is the target width in dots; zero means DefaultPaperWidth.
	Width int
}

// Decode reads a PNG, JPEG, GIF, BMP or WebP picture from r.
func (c *Converter) Decode(r io.Reader) (*Grayscale, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	sz := img.Bounds().Size()
	logInternal.LogMessage(logInternal.DEBUG, fmt.Sprintf("decoded %s image %dx%d", format, sz.X, sz.Y))
	return c.FromImage(img)
}

// DecodeBase64 decodes a base64 picture, with or without a
// "data:image/...;base64," prefix.
func (c *Converter) DecodeBase64(data string) (*Grayscale, error) {
	raw, err := base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(data, ""))
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return c.Decode(bytes.NewReader(raw))
}

// FromImage converts an already decoded image.
func (c *Converter) FromImage(img image.Image) (*Grayscale, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: source %dx%d", ErrInvalidImageDimensions, b.Dx(), b.Dy())
	}

	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)

	width := c.Width
	if width <= 0 {
		width = DefaultPaperWidth
	}
	var scaled image.Image = flat
	if b.Dx() != width {
		scaled = resize.Resize(uint(width), 0, flat, resize.Lanczos3)
	}

	sb := scaled.Bounds()
	g := &Grayscale{Width: sb.Dx(), Height: sb.Dy(), Pix: make([]uint8, sb.Dx()*sb.Dy())}
	if g.Width <= 0 || g.Height <= 0 {
		return nil, fmt.Errorf("%w: scaled to %dx%d", ErrInvalidImageDimensions, g.Width, g.Height)
	}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			g.Pix[y*g.Width+x] = lightness(scaled.At(sb.Min.X+x, sb.Min.Y+y))
		}
	}
	return g, nil
}

const lumR, lumG, lumB = 55, 182, 18

// lightness maps a color to 8-bit luminance with Rec. 709 style weights.
func lightness(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	y := (lumR*r + lumG*g + lumB*b) / (lumR + lumG + lumB)
	return uint8(y >> 8)
}
