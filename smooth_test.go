package vp8enc

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

// bandedGray returns a horizontal ramp quantized to a few levels.
func bandedGray(w, h, levels int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	step := 255 / (levels - 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8(x * levels / w * step)
		}
	}
	return img
}

func TestSmoothLevels(t *testing.T) {
	img := bandedGray(64, 16, 6)
	orig := append([]byte(nil), img.Pix...)

	require.NoError(t, SmoothLevels(img, 0))
	require.Equal(t, orig, img.Pix, "strength 0 is the identity")

	require.NoError(t, SmoothLevels(img, 100))
	require.NotEqual(t, orig, img.Pix, "band edges are smoothed")
	for i, v := range orig {
		if v == 0 || v == 255 {
			require.Equal(t, v, img.Pix[i], "extreme level moved at %d", i)
		}
	}
}

func TestSmoothLevelsSubImage(t *testing.T) {
	img := bandedGray(64, 32, 5)
	before := append([]byte(nil), img.Pix...)
	sub := img.SubImage(image.Rect(16, 8, 48, 24)).(*image.Gray)
	require.NoError(t, SmoothLevels(sub, 80))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			if x >= 16 && x < 48 && y >= 8 && y < 24 {
				continue
			}
			require.Equal(t, before[y*64+x], img.Pix[y*64+x], "pixel (%d,%d) outside the sub-image changed", x, y)
		}
	}
}

func TestSmoothLevelsErrors(t *testing.T) {
	require.ErrorContains(t, SmoothLevels(bandedGray(8, 8, 3), 101), "invalid strength")
	require.ErrorContains(t, SmoothLevels(bandedGray(8, 8, 3), -1), "invalid strength")
	require.ErrorIs(t, SmoothLevels(image.NewGray(image.Rect(0, 0, 0, 4)), 50), ErrInvalidDimensions)
}
