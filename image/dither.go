package image

// Floyd–Steinberg weights, in sixteenths.
const (
	weightRight      = 7
	weightBelowLeft  = 3
	weightBelow      = 5
	weightBelowRight = 1
	weightDivisor    = 16

	threshold = 128
)

// Dither reduces src to black and white with Floyd–Steinberg error
// diffusion in row-major order.
//
// Errors are spread as (err*w)/16 using Go's truncating division, so the
// output is bit-for-bit reproducible; the preview and print paths both call
// this function. src is not modified.
func Dither(src *Grayscale) (*Monochrome, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}

	w, h := src.Width, src.Height
	work := make([]int32, len(src.Pix))
	for i, v := range src.Pix {
		work[i] = int32(v)
	}
	out := &Monochrome{Width: w, Height: h, Pix: make([]uint8, len(src.Pix))}

	for y := 0; y < h; y++ {
		lastRow := y+1 >= h
		for x := 0; x < w; x++ {
			idx := y*w + x
			old := work[idx]

			var nv int32
			if old >= threshold {
				nv = int32(White)
			}
			work[idx] = nv
			out.Pix[idx] = uint8(nv)

			e := old - nv
			if e == 0 {
				continue
			}
			if x+1 < w {
				work[idx+1] += e * weightRight / weightDivisor
			}
			if lastRow {
				continue
			}
			below := idx + w
			if x > 0 {
				work[below-1] += e * weightBelowLeft / weightDivisor
			}
			work[below] += e * weightBelow / weightDivisor
			if x+1 < w {
				work[below+1] += e * weightBelowRight / weightDivisor
			}
		}
	}

	return out, nil
}
