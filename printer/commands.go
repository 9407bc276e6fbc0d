package printer

import (
	"bytes"
	"fmt"
)

// ESC/POS control bytes.
var (
	cmdInit    = []byte{0x1b, 0x40}             // ESC @
	cmdXON     = []byte{0x11}                   // DC1
	cmdCut     = []byte{0x1d, 0x56, 0x42, 0x00} // GS V 66 0: feed to cutter, partial cut
	lineFeed   = byte(0x0a)
	terminator = []byte{lineFeed}
)

// TrailerPolicy selects what follows the last band of a job.
type TrailerPolicy string

const (
	// TrailerCut feeds and cuts. Printers that auto-cut will cut twice.
	TrailerCut TrailerPolicy = "cut"
	// TrailerFeed only feeds, for auto-cutting printers or manual tear-off.
	TrailerFeed TrailerPolicy = "feed"
)

// DefaultFeedLines is the number of blank lines fed before the cut.
const DefaultFeedLines = 4

// ParseTrailerPolicy accepts "cut" or "feed".
func ParseTrailerPolicy(s string) (TrailerPolicy, error) {
	switch p := TrailerPolicy(s); p {
	case TrailerCut, TrailerFeed:
		return p, nil
	}
	return "", fmt.Errorf("unknown trailer policy %q: expected %q or %q", s, TrailerCut, TrailerFeed)
}

// Trailer builds the feed (and optionally cut) sequence: feedLines LF bytes,
// then GS V 66 0 for TrailerCut.
func Trailer(policy TrailerPolicy, feedLines int) []byte {
	if feedLines < 0 {
		feedLines = 0
	}
	out := bytes.Repeat([]byte{lineFeed}, feedLines)
	if policy == TrailerCut {
		out = append(out, cmdCut...)
	}
	return out
}
