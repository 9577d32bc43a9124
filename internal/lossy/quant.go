package lossy

import "math"

const qfix = 17

// kBiasMatrices holds the rounding bias per component [Y1, Y2, UV][DC, AC].
var kBiasMatrices = [3][2]int{
	{96, 110},
	{96, 108},
	{110, 115},
}

// kFreqSharpening boosts the high frequencies of luma blocks, in raster order.
var kFreqSharpening = [16]int{
	0, 30, 60, 90,
	30, 60, 90, 90,
	60, 90, 90, 90,
	90, 90, 90, 90,
}

const sharpenBits = 11

// QuantMatrix holds the quantizer of one component in raster order. The
// first entry is the DC step, the others share the AC step.
type QuantMatrix struct {
	Q       [16]int
	IQ      [16]int
	Bias    [16]int
	ZThresh [16]int
	Sharpen [16]int
}

func (m *QuantMatrix) init(dc, ac, biasType int, sharpen bool) {
	for i := 0; i < 16; i++ {
		q, b := ac, kBiasMatrices[biasType][1]
		if i == 0 {
			q, b = dc, kBiasMatrices[biasType][0]
		}
		m.Q[i] = q
		m.IQ[i] = (1 << qfix) / q
		m.Bias[i] = b << (qfix - 8)
		m.ZThresh[i] = ((1 << qfix) - 1 - m.Bias[i]) / m.IQ[i]
		m.Sharpen[i] = 0
		if sharpen {
			m.Sharpen[i] = (kFreqSharpening[i] * q) >> sharpenBits
		}
	}
}

// average step, used for the rate-distortion lambdas
func (m *QuantMatrix) average() int {
	return (m.Q[0] + 15*m.Q[1] + 8) >> 4
}

// Segment carries the quantization and filtering parameters shared by the
// macroblocks of one segment.
type Segment struct {
	Quant     int // quantizer index [0, 127]
	FStrength int // loop filter level [0, 63]
	Alpha     int // complexity relative to the frame [-127, 127]
	Beta      int // filtering susceptibility [0, 255]

	Y1, Y2, UV QuantMatrix

	LambdaI4, LambdaI16, LambdaUV, LambdaMode int
}

// quantDeltas are the frame-wide quantizer index offsets written in the
// frame header.
type quantDeltas struct {
	y1DC, y2DC, y2AC, uvDC, uvAC int
}

// setup derives the matrices and lambdas of s from its quantizer index.
func (s *Segment) setup(d quantDeltas) {
	q := s.Quant
	y1dc := int(kDcTable[clampInt(q+d.y1DC, 0, 127)])
	y1ac := int(kAcTable[clampInt(q, 0, 127)])
	s.Y1.init(y1dc, y1ac, 0, true)

	y2dc := int(kDcTable[clampInt(q+d.y2DC, 0, 127)]) * 2
	y2ac := int(kAcTable[clampInt(q+d.y2AC, 0, 127)]) * 155 / 100
	s.Y2.init(max(y2dc, 8), max(y2ac, 8), 1, false)

	uvdc := int(kDcTable[clampInt(q+d.uvDC, 0, 117)])
	uvac := int(kAcTable[clampInt(q+d.uvAC, 0, 127)])
	s.UV.init(uvdc, uvac, 2, false)

	qI4 := s.Y1.average()
	qI16 := s.Y2.average()
	qUV := s.UV.average()
	s.LambdaI4 = max((3*qI4*qI4)>>7, 1)
	s.LambdaI16 = max(3*qI16*qI16, 1)
	s.LambdaUV = max((3*qUV*qUV)>>6, 1)
	s.LambdaMode = max((qI4*qI4)>>7, 1)
}

// quantizeBlock quantizes the raster-order coefficients in to zig-zag levels
// in out, replacing in with the dequantized values. It reports whether any
// level is non-zero.
func quantizeBlock(in, out *[16]int16, m *QuantMatrix) bool {
	last := -1
	for n := 0; n < 16; n++ {
		j := kZigzag[n]
		sign := in[j] < 0
		coeff := int(in[j])
		if sign {
			coeff = -coeff
		}
		coeff += m.Sharpen[j]
		if coeff > m.ZThresh[j] {
			level := (coeff*m.IQ[j] + m.Bias[j]) >> qfix
			if level > MaxLevel {
				level = MaxLevel
			}
			if sign {
				level = -level
			}
			in[j] = int16(level * m.Q[j])
			out[n] = int16(level)
			if level != 0 {
				last = n
			}
		} else {
			out[n] = 0
			in[j] = 0
		}
	}
	return last >= 0
}

// qualityToCompression maps a quality in [0, 100] to a compression factor in
// [0, 1]. The curve is linear up to 75 with a steeper slope above, followed
// by a cube root that spreads the quantizer indices evenly.
func qualityToCompression(quality float64) float64 {
	c := quality / 100
	var linear float64
	if c < 0.75 {
		linear = c * (2.0 / 3.0)
	} else {
		linear = 2*c - 1
	}
	return math.Cbrt(linear)
}

// qualityToQIndex maps a quality to a VP8 quantizer index.
func qualityToQIndex(quality float64) int {
	return clampInt(int(127*(1-qualityToCompression(quality))), 0, 127)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
