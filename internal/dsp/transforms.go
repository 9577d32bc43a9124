package dsp

// Integer DCT and Walsh-Hadamard transforms of the VP8 format. The inverse
// transforms must match the decoder bit for bit, otherwise the encoder's
// reconstruction drifts away from what a decoder produces.

const (
	kC1 = 20091 // (cos(pi/8)*sqrt(2) - 1) * 2^16
	kC2 = 35468 // sin(pi/8)*sqrt(2) * 2^16
)

func mul1(a int) int { return ((a * kC1) >> 16) + a }
func mul2(a int) int { return (a * kC2) >> 16 }

// Clip8b clamps v to [0, 255].
func Clip8b(v int) uint8 {
	if uint(v) <= 255 {
		return uint8(v)
	}
	if v < 0 {
		return 0
	}
	return 255
}

func b2i(cond bool) int {
	if cond {
		return 1
	}
	return 0
}

// fTransform computes the forward DCT of the 4x4 difference src-ref. Both
// inputs are BPS-strided.
func fTransform(src, ref []byte, out []int16) {
	_ = src[3+3*BPS]
	_ = ref[3+3*BPS]
	_ = out[15]

	var tmp [16]int
	for i := 0; i < 4; i++ {
		s := src[i*BPS : i*BPS+4]
		r := ref[i*BPS : i*BPS+4]
		d0 := int(s[0]) - int(r[0])
		d1 := int(s[1]) - int(r[1])
		d2 := int(s[2]) - int(r[2])
		d3 := int(s[3]) - int(r[3])
		a0 := d0 + d3
		a1 := d1 + d2
		a2 := d1 - d2
		a3 := d0 - d3
		tmp[i*4+0] = (a0 + a1) * 8
		tmp[i*4+1] = (a2*2217 + a3*5352 + 1812) >> 9
		tmp[i*4+2] = (a0 - a1) * 8
		tmp[i*4+3] = (a3*2217 - a2*5352 + 937) >> 9
	}
	for i := 0; i < 4; i++ {
		a0 := tmp[i] + tmp[12+i]
		a1 := tmp[4+i] + tmp[8+i]
		a2 := tmp[4+i] - tmp[8+i]
		a3 := tmp[i] - tmp[12+i]
		out[i] = int16((a0 + a1 + 7) >> 4)
		out[4+i] = int16((a2*2217+a3*5352+12000)>>16 + b2i(a3 != 0))
		out[8+i] = int16((a0 - a1 + 7) >> 4)
		out[12+i] = int16((a3*2217 - a2*5352 + 51000) >> 16)
	}
}

func iTransform(ref []byte, in []int16, dst []byte, doTwo bool) {
	iTransformOne(ref, in, dst)
	if doTwo {
		iTransformOne(ref[4:], in[16:], dst[4:])
	}
}

// iTransformOne adds the inverse DCT of in to ref. ref and dst may alias.
func iTransformOne(ref []byte, in []int16, dst []byte) {
	_ = in[15]
	_ = ref[3+3*BPS]
	_ = dst[3+3*BPS]

	// Columns first; tmp is stored transposed so the row pass reads it
	// sequentially.
	var tmp [16]int
	for i := 0; i < 4; i++ {
		a := int(in[i]) + int(in[8+i])
		b := int(in[i]) - int(in[8+i])
		c := mul2(int(in[4+i])) - mul1(int(in[12+i]))
		d := mul1(int(in[4+i])) + mul2(int(in[12+i]))
		tmp[i] = a + d
		tmp[4+i] = b + c
		tmp[8+i] = b - c
		tmp[12+i] = a - d
	}
	for j := 0; j < 4; j++ {
		t := tmp[j*4 : j*4+4]
		dc := t[0] + 4
		a := dc + t[2]
		b := dc - t[2]
		c := mul2(t[1]) - mul1(t[3])
		d := mul1(t[1]) + mul2(t[3])
		o := j * BPS
		dst[o+0] = Clip8b(int(ref[o+0]) + ((a + d) >> 3))
		dst[o+1] = Clip8b(int(ref[o+1]) + ((b + c) >> 3))
		dst[o+2] = Clip8b(int(ref[o+2]) + ((b - c) >> 3))
		dst[o+3] = Clip8b(int(ref[o+3]) + ((a - d) >> 3))
	}
}

// fTransformWHT transforms the sixteen luma DC coefficients. in and out are
// 4x4 arrays in raster block order.
func fTransformWHT(in, out []int16) {
	_ = in[15]
	_ = out[15]

	var tmp [16]int
	for i := 0; i < 4; i++ {
		r := in[i*4 : i*4+4]
		a0 := int(r[0]) + int(r[2])
		a1 := int(r[1]) + int(r[3])
		a2 := int(r[1]) - int(r[3])
		a3 := int(r[0]) - int(r[2])
		tmp[i*4+0] = a0 + a1
		tmp[i*4+1] = a3 + a2
		tmp[i*4+2] = a3 - a2
		tmp[i*4+3] = a0 - a1
	}
	for i := 0; i < 4; i++ {
		a0 := tmp[i] + tmp[8+i]
		a1 := tmp[4+i] + tmp[12+i]
		a2 := tmp[4+i] - tmp[12+i]
		a3 := tmp[i] - tmp[8+i]
		out[i] = int16((a0 + a1) >> 1)
		out[4+i] = int16((a3 + a2) >> 1)
		out[8+i] = int16((a3 - a2) >> 1)
		out[12+i] = int16((a0 - a1) >> 1)
	}
}

// iTransformWHT is the decoder's inverse Walsh-Hadamard transform.
func iTransformWHT(in, out []int16) {
	_ = in[15]
	_ = out[15]

	var tmp [16]int
	for i := 0; i < 4; i++ {
		a0 := int(in[i]) + int(in[12+i])
		a1 := int(in[4+i]) + int(in[8+i])
		a2 := int(in[4+i]) - int(in[8+i])
		a3 := int(in[i]) - int(in[12+i])
		tmp[i] = a0 + a1
		tmp[8+i] = a0 - a1
		tmp[4+i] = a3 + a2
		tmp[12+i] = a3 - a2
	}
	for i := 0; i < 4; i++ {
		t := tmp[i*4 : i*4+4]
		dc := t[0] + 3
		a0 := dc + t[3]
		a1 := t[1] + t[2]
		a2 := t[1] - t[2]
		a3 := dc - t[3]
		out[i*4+0] = int16((a0 + a1) >> 3)
		out[i*4+1] = int16((a3 + a2) >> 3)
		out[i*4+2] = int16((a0 - a1) >> 3)
		out[i*4+3] = int16((a3 - a2) >> 3)
	}
}
