package lossy

import (
	"github.com/deepteams/vp8enc/internal/dsp"
)

// MBInfo holds the decisions and quantized levels of one macroblock.
type MBInfo struct {
	I16     bool
	Modes   [16]uint8 // 4x4 modes in raster order, or the 16x16 mode in Modes[0]
	UVMode  uint8
	Segment uint8
	Alpha   int
	Skip    bool

	YDC [16]int16     // Y2 levels, 16x16 macroblocks only
	YAC [16][16]int16 // luma levels per block
	UV  [8][16]int16  // U blocks 0-3, V blocks 4-7

	Rate       int // residual cost, 1/256 bits
	UVRate     int // chroma share of Rate
	HeaderBits int // mode cost, 1/256 bits
	Disto      int // sum of squared errors of the reconstruction
}

// reset clears everything but the analysis results.
func (m *MBInfo) reset() {
	seg, alpha := m.Segment, m.Alpha
	*m = MBInfo{Segment: seg, Alpha: alpha}
}

// ModeDecider picks the prediction modes and quantized levels of the current
// macroblock. It reads the source from the iterator, predicts using the
// filled context and leaves the reconstruction in the iterator's output
// buffer.
type ModeDecider interface {
	Decide(it *Iterator, seg *Segment, proba *Proba, maxI4HeaderBits int, out *MBInfo)
}

// RDDecider is the rate-distortion mode decision. Methods 0 and 1 only use
// 16x16 prediction chosen by distortion; higher methods score every mode by
// rate and distortion and also try 4x4 prediction.
type RDDecider struct {
	Method int
}

type score struct {
	rate, header, disto int
}

func (s score) value(lambda int) int64 {
	return int64(s.rate+s.header)*int64(lambda) + 256*int64(s.disto)
}

// Decide implements ModeDecider.
func (d *RDDecider) Decide(it *Iterator, seg *Segment, proba *Proba, maxI4HeaderBits int, out *MBInfo) {
	out.reset()
	var y16, uv score
	if d.Method < 2 {
		y16 = d.fastI16(it, seg, proba, out)
		uv = d.fastUV(it, seg, proba, out)
	} else {
		y16 = d.pickI16(it, seg, proba, out)
		if y4, ok := d.pickI4(it, seg, proba, maxI4HeaderBits, y16.value(seg.LambdaMode), out); ok {
			y16 = y4
		}
		uv = d.pickUV(it, seg, proba, out)
	}
	out.Rate = y16.rate + uv.rate
	out.UVRate = uv.rate
	out.HeaderBits = y16.header + uv.header
	out.Disto = y16.disto + uv.disto
	out.Skip = isZero(out)
}

func isZero(m *MBInfo) bool {
	if m.I16 && m.YDC != [16]int16{} {
		return false
	}
	for i := range m.YAC {
		if m.YAC[i] != [16]int16{} {
			return false
		}
	}
	for i := range m.UV {
		if m.UV[i] != [16]int16{} {
			return false
		}
	}
	return true
}

// reconstructI16 turns the prediction in buf into the reconstruction and
// returns the quantized levels.
func reconstructI16(src, buf []byte, seg *Segment, dc *[16]int16, ac *[16][16]int16) {
	var tmp [16][16]int16
	var dcIn, dcOut [16]int16
	for i := 0; i < 16; i++ {
		o := YOff + dsp.Scan[i]
		dsp.FTransform(src[o:], buf[o:], tmp[i][:])
		dcIn[i] = tmp[i][0]
		tmp[i][0] = 0
	}
	dsp.FTransformWHT(dcIn[:], dcOut[:])
	quantizeBlock(&dcOut, dc, &seg.Y2)
	for i := 0; i < 16; i++ {
		quantizeBlock(&tmp[i], &ac[i], &seg.Y1)
	}
	dsp.ITransformWHT(dcOut[:], dcIn[:])
	for i := 0; i < 16; i++ {
		o := YOff + dsp.Scan[i]
		tmp[i][0] = dcIn[i]
		dsp.ITransform(buf[o:], tmp[i][:], buf[o:], false)
	}
}

func costI16(it *Iterator, proba *ProbaTable, dc *[16]int16, ac *[16][16]int16) int {
	var r Residual
	r.Init(0, TypeI16DC, dc)
	cost := BlockCost(&r, it.topNz[8]+it.leftNz[8], proba)
	tnz, lnz := it.topNz, it.leftNz
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r.Init(1, TypeI16AC, &ac[y*4+x])
			cost += BlockCost(&r, tnz[x]+lnz[y], proba)
			tnz[x] = boolInt(r.Last >= 0)
			lnz[y] = tnz[x]
		}
	}
	return cost
}

func (d *RDDecider) pickI16(it *Iterator, seg *Segment, proba *Proba, out *MBInfo) score {
	var best score
	bestValue := int64(-1)
	var dc [16]int16
	var ac [16][16]int16
	for mode := uint8(0); mode < NumI16Mode; mode++ {
		buf := it.yuvOut2
		dsp.PredLuma16[predIndex(mode, it.X, it.Y)](buf, YOff)
		reconstructI16(it.yuvIn, buf, seg, &dc, &ac)
		s := score{
			rate:   costI16(it, &proba.Coeffs, &dc, &ac),
			header: modeCostI16[mode],
			disto:  dsp.SSE16x16(it.yuvIn[YOff:], buf[YOff:]),
		}
		if v := s.value(seg.LambdaI16); bestValue < 0 || v < bestValue {
			bestValue, best = v, s
			out.I16 = true
			out.Modes[0] = mode
			out.YDC, out.YAC = dc, ac
			it.swapOut()
		}
	}
	return best
}

// fastI16 selects the 16x16 mode whose prediction is closest to the source
// and quantizes only that one.
func (d *RDDecider) fastI16(it *Iterator, seg *Segment, proba *Proba, out *MBInfo) score {
	best, bestDisto := uint8(0), -1
	for mode := uint8(0); mode < NumI16Mode; mode++ {
		dsp.PredLuma16[predIndex(mode, it.X, it.Y)](it.yuvOut2, YOff)
		if sse := dsp.SSE16x16(it.yuvIn[YOff:], it.yuvOut2[YOff:]); bestDisto < 0 || sse < bestDisto {
			best, bestDisto = mode, sse
		}
	}
	buf := it.yuvOut
	dsp.PredLuma16[predIndex(best, it.X, it.Y)](buf, YOff)
	reconstructI16(it.yuvIn, buf, seg, &out.YDC, &out.YAC)
	out.I16 = true
	out.Modes[0] = best
	return score{
		rate:   costI16(it, &proba.Coeffs, &out.YDC, &out.YAC),
		header: modeCostI16[best],
		disto:  dsp.SSE16x16(it.yuvIn[YOff:], buf[YOff:]),
	}
}

// pickI4 searches the best mode of every 4x4 block in the scratch buffer. It
// gives up when the mode bits exceed maxHeaderBits or the running score can
// no longer beat limit.
func (d *RDDecider) pickI4(it *Iterator, seg *Segment, proba *Proba, maxHeaderBits int, limit int64, out *MBInfo) (score, bool) {
	buf := it.yuvOut2
	src := it.yuvIn
	tnz, lnz := it.topNz, it.leftNz
	topModes := it.TopModes()
	leftModes := it.LeftModes()

	var modes [16]uint8
	var levels [16][16]int16
	var rec [4 * dsp.BPS]byte
	total := score{header: dsp.BitCost(0, probIsI4)}

	for i := 0; i < 16; i++ {
		bx, by := i&3, i>>2
		o := YOff + dsp.Scan[i]
		top := topModes[bx]
		if by > 0 {
			top = modes[i-4]
		}
		left := leftModes[by]
		if bx > 0 {
			left = modes[i-1]
		}
		ctx := tnz[bx] + lnz[by]

		var best score
		bestValue := int64(-1)
		var bestMode uint8
		for m := uint8(0); m < NumBModes; m++ {
			var coeffs, lv [16]int16
			dsp.PredLuma4[m](buf, o)
			dsp.FTransform(src[o:], buf[o:], coeffs[:])
			quantizeBlock(&coeffs, &lv, &seg.Y1)
			dsp.ITransform(buf[o:], coeffs[:], rec[:], false)

			var r Residual
			r.Init(0, TypeI4, &lv)
			s := score{
				rate:   BlockCost(&r, ctx, &proba.Coeffs),
				header: modeCostI4[top][left][m],
				disto:  dsp.SSE4x4(src[o:], rec[:]),
			}
			if v := s.value(seg.LambdaI4); bestValue < 0 || v < bestValue {
				bestValue, best, bestMode = v, s, m
				levels[i] = lv
			}
		}

		var coeffs, lv [16]int16
		dsp.PredLuma4[bestMode](buf, o)
		dsp.FTransform(src[o:], buf[o:], coeffs[:])
		quantizeBlock(&coeffs, &lv, &seg.Y1)
		dsp.ITransform(buf[o:], coeffs[:], buf[o:], false)

		modes[i] = bestMode
		nz := boolInt(levels[i] != [16]int16{})
		tnz[bx], lnz[by] = nz, nz
		total.rate += best.rate
		total.header += best.header
		total.disto += best.disto
		if total.header > maxHeaderBits || total.value(seg.LambdaMode) >= limit {
			return score{}, false
		}
	}

	out.I16 = false
	out.Modes = modes
	out.YDC = [16]int16{}
	out.YAC = levels
	it.swapOut()
	return total, true
}

// reconstructUV predicts with mode into buf and reconstructs both chroma
// planes, returning the levels.
func reconstructUV(it *Iterator, buf []byte, mode uint8, seg *Segment, levels *[8][16]int16) {
	p := predIndex(mode, it.X, it.Y)
	dsp.PredChroma8[p](buf, UOff)
	dsp.PredChroma8[p](buf, VOff)
	for n := 0; n < 8; n++ {
		o := uvBlockOffset(n)
		var coeffs [16]int16
		dsp.FTransform(it.yuvIn[o:], buf[o:], coeffs[:])
		quantizeBlock(&coeffs, &levels[n], &seg.UV)
		dsp.ITransform(buf[o:], coeffs[:], buf[o:], false)
	}
}

// uvBlockOffset returns the offset of chroma block n: U blocks 0-3, then V
// blocks 4-7, each plane in raster order.
func uvBlockOffset(n int) int {
	base := UOff
	if n >= 4 {
		base = VOff
	}
	return base + (n&1)*4 + ((n>>1)&1)*4*dsp.BPS
}

func costUV(it *Iterator, proba *ProbaTable, levels *[8][16]int16) int {
	var r Residual
	tnz, lnz := it.topNz, it.leftNz
	cost := 0
	for ch := 0; ch <= 2; ch += 2 {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				r.Init(0, TypeChroma, &levels[ch*2+y*2+x])
				cost += BlockCost(&r, tnz[4+ch+x]+lnz[4+ch+y], proba)
				tnz[4+ch+x] = boolInt(r.Last >= 0)
				lnz[4+ch+y] = tnz[4+ch+x]
			}
		}
	}
	return cost
}

func uvDisto(it *Iterator, buf []byte) int {
	return dsp.SSE8x8(it.yuvIn[UOff:], buf[UOff:]) + dsp.SSE8x8(it.yuvIn[VOff:], buf[VOff:])
}

// copyUV copies the chroma rows of src into dst.
func copyUV(dst, src []byte) {
	for j := 0; j < 8; j++ {
		o := UOff + j*dsp.BPS
		copy(dst[o:o+24], src[o:o+24])
	}
}

func (d *RDDecider) pickUV(it *Iterator, seg *Segment, proba *Proba, out *MBInfo) score {
	var best score
	bestValue := int64(-1)
	var levels [8][16]int16
	for mode := uint8(0); mode < NumI16Mode; mode++ {
		buf := it.yuvOut2
		reconstructUV(it, buf, mode, seg, &levels)
		s := score{
			rate:   costUV(it, &proba.Coeffs, &levels),
			header: modeCostUV[mode],
			disto:  uvDisto(it, buf),
		}
		if v := s.value(seg.LambdaUV); bestValue < 0 || v < bestValue {
			bestValue, best = v, s
			out.UVMode = mode
			out.UV = levels
			copyUV(it.yuvOut, buf)
		}
	}
	return best
}

func (d *RDDecider) fastUV(it *Iterator, seg *Segment, proba *Proba, out *MBInfo) score {
	best, bestDisto := uint8(0), -1
	for mode := uint8(0); mode < NumI16Mode; mode++ {
		p := predIndex(mode, it.X, it.Y)
		dsp.PredChroma8[p](it.yuvOut2, UOff)
		dsp.PredChroma8[p](it.yuvOut2, VOff)
		if sse := uvDisto(it, it.yuvOut2); bestDisto < 0 || sse < bestDisto {
			best, bestDisto = mode, sse
		}
	}
	reconstructUV(it, it.yuvOut, best, seg, &out.UV)
	out.UVMode = best
	return score{
		rate:   costUV(it, &proba.Coeffs, &out.UV),
		header: modeCostUV[best],
		disto:  uvDisto(it, it.yuvOut),
	}
}
