package util

import "fmt"

// IntLowHigh splits n into b little-endian bytes (1–4), the way ESC/POS
// encodes numeric parameters (xL xH, yL yH, p1..p4).
func IntLowHigh(n int, b int) ([]byte, error) {
	if b < 1 || b > 4 {
		return nil, fmt.Errorf("IntLowHigh: 1–4 bytes only, got %d", b)
	}
	maxInput := 1<<(uint(b)*8) - 1
	if n < 0 || n > maxInput {
		return nil, fmt.Errorf("IntLowHigh: %d does not fit in %d byte(s) (max %d)", n, b, maxInput)
	}

	out := make([]byte, b)
	for i := 0; i < b; i++ {
		out[i] = byte(n % 256)
		n = n / 256
	}
	return out, nil
}

// LowHigh reverses IntLowHigh.
func LowHigh(b []byte) int {
	n := 0
	for i := len(b) - 1; i >= 0; i-- {
		n = n*256 + int(b[i])
	}
	return n
}
