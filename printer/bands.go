package printer

import "fmt"

// DefaultChunkHeight keeps one band (576 dots × 200 rows = 14.4KB) inside
// the receive buffer of common 80mm printers.
const DefaultChunkHeight = 200

// Band is the row range [Y0, Y1) of one chunk.
type Band struct {
	Index  int
	Y0, Y1 int
}

func (b Band) Height() int { return b.Y1 - b.Y0 }

func (b Band) String() string { return fmt.Sprintf("band %d rows [%d,%d)", b.Index, b.Y0, b.Y1) }

// Bands cuts height rows into consecutive bands of chunkHeight rows; the last
// band may be shorter. It returns nil for non-positive arguments.
func Bands(height, chunkHeight int) []Band {
	if height <= 0 || chunkHeight <= 0 {
		return nil
	}
	bands := make([]Band, 0, (height+chunkHeight-1)/chunkHeight)
	for y := 0; y < height; y += chunkHeight {
		end := y + chunkHeight
		if end > height {
			end = height
		}
		bands = append(bands, Band{Index: len(bands), Y0: y, Y1: end})
	}
	return bands
}
