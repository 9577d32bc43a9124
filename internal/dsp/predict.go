package dsp

// Intra predictors. Each predictor reads its context from the pixels around
// the block (see PredFunc) and overwrites the block itself, so predicting in
// place inside a reconstruction buffer never disturbs the context.

func avg3(a, b, c uint8) uint8 {
	return uint8((int(a) + 2*int(b) + int(c) + 2) >> 2)
}

func avg2(a, b uint8) uint8 {
	return uint8((int(a) + int(b) + 1) >> 1)
}

func fill(dst []byte, off, size int, v uint8) {
	for j := 0; j < size; j++ {
		row := dst[off+j*BPS : off+j*BPS+size]
		for i := range row {
			row[i] = v
		}
	}
}

func sumTop(dst []byte, off, size int) int {
	s := 0
	for _, v := range dst[off-BPS : off-BPS+size] {
		s += int(v)
	}
	return s
}

func sumLeft(dst []byte, off, size int) int {
	s := 0
	for j := 0; j < size; j++ {
		s += int(dst[off-1+j*BPS])
	}
	return s
}

func trueMotion(dst []byte, off, size int) {
	top := dst[off-BPS : off-BPS+size]
	corner := int(dst[off-BPS-1])
	for j := 0; j < size; j++ {
		base := int(dst[off-1+j*BPS]) - corner
		row := dst[off+j*BPS : off+j*BPS+size]
		for i := range row {
			row[i] = Clip8b(base + int(top[i]))
		}
	}
}

func vertical(dst []byte, off, size int) {
	top := dst[off-BPS : off-BPS+size]
	for j := 0; j < size; j++ {
		copy(dst[off+j*BPS:off+j*BPS+size], top)
	}
}

func horizontal(dst []byte, off, size int) {
	for j := 0; j < size; j++ {
		v := dst[off-1+j*BPS]
		row := dst[off+j*BPS : off+j*BPS+size]
		for i := range row {
			row[i] = v
		}
	}
}

// 16x16 luma.

func dc16(dst []byte, off int) {
	fill(dst, off, 16, uint8((sumTop(dst, off, 16)+sumLeft(dst, off, 16)+16)>>5))
}
func dc16NoTop(dst []byte, off int)     { fill(dst, off, 16, uint8((sumLeft(dst, off, 16)+8)>>4)) }
func dc16NoLeft(dst []byte, off int)    { fill(dst, off, 16, uint8((sumTop(dst, off, 16)+8)>>4)) }
func dc16NoTopLeft(dst []byte, off int) { fill(dst, off, 16, 0x80) }
func tm16(dst []byte, off int)          { trueMotion(dst, off, 16) }
func ve16(dst []byte, off int)          { vertical(dst, off, 16) }
func he16(dst []byte, off int)          { horizontal(dst, off, 16) }

// 8x8 chroma.

func dc8uv(dst []byte, off int) {
	fill(dst, off, 8, uint8((sumTop(dst, off, 8)+sumLeft(dst, off, 8)+8)>>4))
}
func dc8uvNoTop(dst []byte, off int)     { fill(dst, off, 8, uint8((sumLeft(dst, off, 8)+4)>>3)) }
func dc8uvNoLeft(dst []byte, off int)    { fill(dst, off, 8, uint8((sumTop(dst, off, 8)+4)>>3)) }
func dc8uvNoTopLeft(dst []byte, off int) { fill(dst, off, 8, 0x80) }
func tm8uv(dst []byte, off int)          { trueMotion(dst, off, 8) }
func ve8uv(dst []byte, off int)          { vertical(dst, off, 8) }
func he8uv(dst []byte, off int)          { horizontal(dst, off, 8) }

// 4x4 luma. The sub-block predictors use up to eight pixels of the top row
// (the four above plus four above-right), the corner and four left pixels.

type edge4 struct {
	top    [8]uint8
	left   [4]uint8
	corner uint8
}

func loadEdge4(dst []byte, off int) (e edge4) {
	copy(e.top[:], dst[off-BPS:off-BPS+8])
	for j := 0; j < 4; j++ {
		e.left[j] = dst[off-1+j*BPS]
	}
	e.corner = dst[off-BPS-1]
	return e
}

func put4(dst []byte, off, x, y int, v uint8) {
	dst[off+x+y*BPS] = v
}

func dc4(dst []byte, off int) {
	fill(dst, off, 4, uint8((sumTop(dst, off, 4)+sumLeft(dst, off, 4)+4)>>3))
}

func tm4(dst []byte, off int) { trueMotion(dst, off, 4) }

func ve4(dst []byte, off int) {
	e := loadEdge4(dst, off)
	var row [4]uint8
	row[0] = avg3(e.corner, e.top[0], e.top[1])
	for i := 1; i < 4; i++ {
		row[i] = avg3(e.top[i-1], e.top[i], e.top[i+1])
	}
	for j := 0; j < 4; j++ {
		copy(dst[off+j*BPS:off+j*BPS+4], row[:])
	}
}

func he4(dst []byte, off int) {
	e := loadEdge4(dst, off)
	l := e.left
	vals := [4]uint8{
		avg3(e.corner, l[0], l[1]),
		avg3(l[0], l[1], l[2]),
		avg3(l[1], l[2], l[3]),
		avg3(l[2], l[3], l[3]),
	}
	for j, v := range vals {
		for i := 0; i < 4; i++ {
			put4(dst, off, i, j, v)
		}
	}
}

// rd4 predicts down-right along the diagonal that runs from the left column
// through the corner into the top row.
func rd4(dst []byte, off int) {
	e := loadEdge4(dst, off)
	diag := [9]uint8{
		e.left[3], e.left[2], e.left[1], e.left[0], e.corner,
		e.top[0], e.top[1], e.top[2], e.top[3],
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			k := 3 + x - y
			put4(dst, off, x, y, avg3(diag[k], diag[k+1], diag[k+2]))
		}
	}
}

// ld4 predicts down-left from the top and above-right pixels.
func ld4(dst []byte, off int) {
	t := loadEdge4(dst, off).top
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			s := x + y
			c := s + 2
			if c > 7 {
				c = 7
			}
			put4(dst, off, x, y, avg3(t[s], t[s+1], t[c]))
		}
	}
}

func vr4(dst []byte, off int) {
	e := loadEdge4(dst, off)
	i, j, k := e.left[0], e.left[1], e.left[2]
	x, a, b, c, d := e.corner, e.top[0], e.top[1], e.top[2], e.top[3]

	put4(dst, off, 0, 0, avg2(x, a))
	put4(dst, off, 1, 2, avg2(x, a))
	put4(dst, off, 1, 0, avg2(a, b))
	put4(dst, off, 2, 2, avg2(a, b))
	put4(dst, off, 2, 0, avg2(b, c))
	put4(dst, off, 3, 2, avg2(b, c))
	put4(dst, off, 3, 0, avg2(c, d))

	put4(dst, off, 0, 3, avg3(k, j, i))
	put4(dst, off, 0, 2, avg3(j, i, x))
	put4(dst, off, 0, 1, avg3(i, x, a))
	put4(dst, off, 1, 3, avg3(i, x, a))
	put4(dst, off, 1, 1, avg3(x, a, b))
	put4(dst, off, 2, 3, avg3(x, a, b))
	put4(dst, off, 2, 1, avg3(a, b, c))
	put4(dst, off, 3, 3, avg3(a, b, c))
	put4(dst, off, 3, 1, avg3(b, c, d))
}

func vl4(dst []byte, off int) {
	t := loadEdge4(dst, off).top
	a, b, c, d, e, f, g, h := t[0], t[1], t[2], t[3], t[4], t[5], t[6], t[7]

	put4(dst, off, 0, 0, avg2(a, b))
	put4(dst, off, 1, 0, avg2(b, c))
	put4(dst, off, 0, 2, avg2(b, c))
	put4(dst, off, 2, 0, avg2(c, d))
	put4(dst, off, 1, 2, avg2(c, d))
	put4(dst, off, 3, 0, avg2(d, e))
	put4(dst, off, 2, 2, avg2(d, e))

	put4(dst, off, 0, 1, avg3(a, b, c))
	put4(dst, off, 1, 1, avg3(b, c, d))
	put4(dst, off, 0, 3, avg3(b, c, d))
	put4(dst, off, 2, 1, avg3(c, d, e))
	put4(dst, off, 1, 3, avg3(c, d, e))
	put4(dst, off, 3, 1, avg3(d, e, f))
	put4(dst, off, 2, 3, avg3(d, e, f))
	put4(dst, off, 3, 2, avg3(e, f, g))
	put4(dst, off, 3, 3, avg3(f, g, h))
}

func hd4(dst []byte, off int) {
	e := loadEdge4(dst, off)
	i, j, k, l := e.left[0], e.left[1], e.left[2], e.left[3]
	x, a, b, c := e.corner, e.top[0], e.top[1], e.top[2]

	put4(dst, off, 0, 0, avg2(i, x))
	put4(dst, off, 2, 1, avg2(i, x))
	put4(dst, off, 0, 1, avg2(j, i))
	put4(dst, off, 2, 2, avg2(j, i))
	put4(dst, off, 0, 2, avg2(k, j))
	put4(dst, off, 2, 3, avg2(k, j))
	put4(dst, off, 0, 3, avg2(l, k))

	put4(dst, off, 3, 0, avg3(a, b, c))
	put4(dst, off, 2, 0, avg3(x, a, b))
	put4(dst, off, 1, 0, avg3(i, x, a))
	put4(dst, off, 3, 1, avg3(i, x, a))
	put4(dst, off, 1, 1, avg3(j, i, x))
	put4(dst, off, 3, 2, avg3(j, i, x))
	put4(dst, off, 1, 2, avg3(k, j, i))
	put4(dst, off, 3, 3, avg3(k, j, i))
	put4(dst, off, 1, 3, avg3(l, k, j))
}

func hu4(dst []byte, off int) {
	e := loadEdge4(dst, off)
	i, j, k, l := e.left[0], e.left[1], e.left[2], e.left[3]

	put4(dst, off, 0, 0, avg2(i, j))
	put4(dst, off, 2, 0, avg2(j, k))
	put4(dst, off, 0, 1, avg2(j, k))
	put4(dst, off, 2, 1, avg2(k, l))
	put4(dst, off, 0, 2, avg2(k, l))
	put4(dst, off, 1, 0, avg3(i, j, k))
	put4(dst, off, 3, 0, avg3(j, k, l))
	put4(dst, off, 1, 1, avg3(j, k, l))
	put4(dst, off, 3, 1, avg3(k, l, l))
	put4(dst, off, 1, 2, avg3(k, l, l))
	put4(dst, off, 3, 2, l)
	put4(dst, off, 2, 2, l)
	for x := 0; x < 4; x++ {
		put4(dst, off, x, 3, l)
	}
}

func initPredictors() {
	PredLuma16 = [7]PredFunc{dc16, tm16, ve16, he16, dc16NoTop, dc16NoLeft, dc16NoTopLeft}
	PredChroma8 = [7]PredFunc{dc8uv, tm8uv, ve8uv, he8uv, dc8uvNoTop, dc8uvNoLeft, dc8uvNoTopLeft}
	PredLuma4 = [10]PredFunc{dc4, tm4, ve4, he4, rd4, vr4, ld4, vl4, hd4, hu4}
}
