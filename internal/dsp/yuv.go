package dsp

// BT.601 RGB to YUV conversion in 16-bit fixed point, limited range
// (Y in [16, 235], U and V centred on 128).

const (
	yuvFix  = 16
	yuvHalf = 1 << (yuvFix - 1)

	kRGBToY0 = 16839 // 0.2568
	kRGBToY1 = 33059 // 0.5041
	kRGBToY2 = 6420  // 0.0979
	kRGBToU0 = -9719
	kRGBToU1 = -19081
	kRGBToU2 = 28800
	kRGBToV0 = 28800
	kRGBToV1 = -24116
	kRGBToV2 = -4684
)

// RGBToY converts one RGB sample to luma.
func RGBToY(r, g, b int) uint8 {
	return uint8((kRGBToY0*r + kRGBToY1*g + kRGBToY2*b + yuvHalf + (16 << yuvFix)) >> yuvFix)
}

// clipUV finishes a chroma value accumulated from the sum of four samples.
func clipUV(uv int) uint8 {
	uv = (uv + (yuvHalf << 2) + (128 << (yuvFix + 2))) >> (yuvFix + 2)
	if uv&^0xff == 0 {
		return uint8(uv)
	}
	if uv < 0 {
		return 0
	}
	return 255
}

// RGBToU converts the sum of four RGB samples (a 2x2 block) to Cb.
func RGBToU(r, g, b int) uint8 {
	return clipUV(kRGBToU0*r + kRGBToU1*g + kRGBToU2*b)
}

// RGBToV converts the sum of four RGB samples (a 2x2 block) to Cr.
func RGBToV(r, g, b int) uint8 {
	return clipUV(kRGBToV0*r + kRGBToV1*g + kRGBToV2*b)
}
