package image

import "io"

// Decoder produces print-ready Grayscale images from encoded pictures.
// Converter is the default implementation.
type Decoder interface {
	Decode(r io.Reader) (*Grayscale, error)
	DecodeBase64(data string) (*Grayscale, error)
}

var _ Decoder = (*Converter)(nil)
