package printer

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// DefaultCharset is CP932, the native set of Japanese receipt printers.
	DefaultCharset = "shift_jis"
	// DefaultFallback replaces characters the charset cannot encode.
	DefaultFallback = '?'
)

// UnencodableCharacter records one substituted rune.
type UnencodableCharacter struct {
	Rune   rune
	Offset int // byte offset in the input string
}

func (u UnencodableCharacter) Error() string {
	return fmt.Sprintf("character %q (U+%04X) at offset %d is not encodable", u.Rune, u.Rune, u.Offset)
}

// TextFrame is an encoded text job ready for the sink.
type TextFrame struct {
	Data          []byte // body + line terminator + trailer
	Body          []byte
	Substitutions []UnencodableCharacter
}

// TextEncoder converts UTF-8 text into the printer's code page.
type TextEncoder struct {
	charset  encoding.Encoding
	name     string
	fallback []byte
	trailer  []byte
}

// NewTextEncoder resolves charset by its WHATWG label ("shift_jis",
// "windows-1251", "ibm866", ...). fallback must be encodable in it.
func NewTextEncoder(charset string, fallback rune, trailer []byte) (*TextEncoder, error) {
	if charset == "" {
		charset = DefaultCharset
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("text charset %q: %w", charset, err)
	}
	fb, err := enc.NewEncoder().String(string(fallback))
	if err != nil || fb == "" {
		return nil, fmt.Errorf("fallback %q is not encodable in %s", fallback, charset)
	}
	return &TextEncoder{
		charset:  enc,
		name:     charset,
		fallback: []byte(fb),
		trailer:  append([]byte(nil), trailer...),
	}, nil
}

// WithTrailer returns a copy of e that appends trailer instead.
func (e *TextEncoder) WithTrailer(trailer []byte) *TextEncoder {
	c := *e
	c.trailer = append([]byte(nil), trailer...)
	return &c
}

// Charset is the label the encoder was built with.
func (e *TextEncoder) Charset() string { return e.name }

// Encode transcodes text rune by rune, substituting the fallback glyph for
// anything outside the charset, and appends a line feed and the trailer.
// Substitutions are reported in the frame, never as an error.
func (e *TextEncoder) Encode(text string) *TextFrame {
	enc := e.charset.NewEncoder()
	body := make([]byte, 0, len(text))
	var subs []UnencodableCharacter

	var rb [utf8.UTFMax]byte
	for off, r := range text {
		n := utf8.EncodeRune(rb[:], r)
		out, err := enc.Bytes(rb[:n])
		if err != nil || len(out) == 0 {
			subs = append(subs, UnencodableCharacter{Rune: r, Offset: off})
			body = append(body, e.fallback...)
			continue
		}
		body = append(body, out...)
	}

	data := make([]byte, 0, len(body)+len(terminator)+len(e.trailer))
	data = append(data, body...)
	data = append(data, terminator...)
	data = append(data, e.trailer...)
	return &TextFrame{Data: data, Body: body, Substitutions: subs}
}
