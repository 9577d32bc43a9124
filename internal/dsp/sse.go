package dsp

import "math"

func sse(a, b []byte, w, h int) int {
	s := 0
	for y := 0; y < h; y++ {
		ra := a[y*BPS : y*BPS+w]
		rb := b[y*BPS : y*BPS+w]
		for x := range ra {
			d := int(ra[x]) - int(rb[x])
			s += d * d
		}
	}
	return s
}

// SSE16x16 returns the sum of squared differences of two BPS-strided
// 16x16 blocks.
func SSE16x16(a, b []byte) int { return sse(a, b, 16, 16) }

// SSE16x8 covers the U and V blocks together when they sit side by side.
func SSE16x8(a, b []byte) int { return sse(a, b, 16, 8) }

// SSE8x8 returns the sum of squared differences of two 8x8 blocks.
func SSE8x8(a, b []byte) int { return sse(a, b, 8, 8) }

// SSE4x4 returns the sum of squared differences of two 4x4 blocks.
func SSE4x4(a, b []byte) int { return sse(a, b, 4, 4) }

// PSNR converts a sum of squared errors over count samples into decibels.
// A perfect match reports 99 dB.
func PSNR(sse uint64, count int) float64 {
	if sse == 0 || count == 0 {
		return 99
	}
	mse := float64(sse) / float64(count)
	return 10 * math.Log10(255*255/mse)
}
