package lossy

import (
	"github.com/deepteams/vp8enc/internal/bitio"
	"github.com/deepteams/vp8enc/internal/dsp"
)

// Residual describes one 4x4 block of quantized levels in zig-zag order.
type Residual struct {
	First  int // 1 for luma AC blocks whose DC travels in the Y2 block
	Last   int // index of the last non-zero level, -1 if none
	Type   int
	Coeffs *[16]int16
}

// Init binds coeffs to r and computes Last.
func (r *Residual) Init(first, typ int, coeffs *[16]int16) {
	r.First = first
	r.Type = typ
	r.Coeffs = coeffs
	r.Last = -1
	for n := 15; n >= first; n-- {
		if coeffs[n] != 0 {
			r.Last = n
			break
		}
	}
}

// tokenSink receives the decisions of the coefficient token tree. Tree nodes
// are addressed by (type, band, context, node); the extra bits of the large
// categories use fixed probabilities.
type tokenSink interface {
	node(bit, t, b, c, i int) int
	fixed(bit int, prob uint8)
	sign(bit int)
}

// codeCoeffs walks r with the VP8 token tree starting in context ctx and
// reports whether the block has a non-zero level.
func codeCoeffs(r *Residual, ctx int, s tokenSink) int {
	n := r.First
	t := r.Type
	b := int(kBands[n])
	if s.node(boolInt(r.Last >= 0), t, b, ctx, 0) == 0 {
		return 0
	}
	for n < 16 {
		c := int(r.Coeffs[n])
		n++
		sign := 0
		v := c
		if c < 0 {
			sign = 1
			v = -c
		}
		if s.node(boolInt(v != 0), t, b, ctx, 1) == 0 {
			b, ctx = int(kBands[n]), 0
			continue
		}
		if s.node(boolInt(v > 1), t, b, ctx, 2) == 0 {
			ctx = 1
		} else {
			if v > MaxLevel {
				v = MaxLevel
			}
			if s.node(boolInt(v > 4), t, b, ctx, 3) == 0 {
				if s.node(boolInt(v != 2), t, b, ctx, 4) != 0 {
					s.node(boolInt(v == 4), t, b, ctx, 5)
				}
			} else if s.node(boolInt(v > 10), t, b, ctx, 6) == 0 {
				if s.node(boolInt(v > 6), t, b, ctx, 7) == 0 {
					s.fixed(boolInt(v == 6), 159)
				} else {
					s.fixed(boolInt(v >= 9), 165)
					s.fixed(boolInt(v&1 == 0), 145)
				}
			} else {
				var tab []uint8
				switch {
				case v < 19:
					s.node(0, t, b, ctx, 8)
					s.node(0, t, b, ctx, 9)
					v -= 11
					tab = kCat3
				case v < 35:
					s.node(0, t, b, ctx, 8)
					s.node(1, t, b, ctx, 9)
					v -= 19
					tab = kCat4
				case v < 67:
					s.node(1, t, b, ctx, 8)
					s.node(0, t, b, ctx, 10)
					v -= 35
					tab = kCat5
				default:
					s.node(1, t, b, ctx, 8)
					s.node(1, t, b, ctx, 10)
					v -= 67
					tab = kCat6
				}
				for k, p := range tab {
					s.fixed((v>>(len(tab)-1-k))&1, p)
				}
			}
			ctx = 2
		}
		b = int(kBands[n])
		s.sign(sign)
		if n == 16 || s.node(boolInt(n <= r.Last), t, b, ctx, 0) == 0 {
			return 1
		}
	}
	return 1
}

// MagnitudeCategory returns the token class of an absolute level v >= 1 and
// the number of literal bits that follow it. Classes 0 to 6 are the direct
// tokens 1 to 4 (class 0), then cat1 to cat6.
func MagnitudeCategory(v int) (cat, extraBits int) {
	switch {
	case v <= 4:
		return 0, 0
	case v <= 6:
		return 1, 1
	case v <= 10:
		return 2, 2
	case v <= 18:
		return 3, len(kCat3)
	case v <= 34:
		return 4, len(kCat4)
	case v <= 66:
		return 5, len(kCat5)
	default:
		return 6, len(kCat6)
	}
}

type writerSink struct {
	bw    *bitio.BoolWriter
	proba *ProbaTable
}

func (w *writerSink) node(bit, t, b, c, i int) int {
	return w.bw.PutBit(bit, int(w.proba[t][b][c][i]))
}

func (w *writerSink) fixed(bit int, prob uint8) { w.bw.PutBit(bit, int(prob)) }
func (w *writerSink) sign(bit int)              { w.bw.PutBitUniform(bit) }

type statsSink struct {
	stats *ProbaStats
	bits  int // signs and extra bits, coded at fixed probabilities
}

func (s *statsSink) node(bit, t, b, c, i int) int {
	s.stats.record(bit, t, b, c, i)
	return bit
}

func (s *statsSink) fixed(bit int, prob uint8) { s.bits += dsp.BitCost(bit, prob) }
func (s *statsSink) sign(int)                  { s.bits += 256 }

type costSink struct {
	proba *ProbaTable
	cost  int
}

func (s *costSink) node(bit, t, b, c, i int) int {
	s.cost += dsp.BitCost(bit, s.proba[t][b][c][i])
	return bit
}

func (s *costSink) fixed(bit int, prob uint8) { s.cost += dsp.BitCost(bit, prob) }
func (s *costSink) sign(int)                  { s.cost += 256 }

// CodeBlock writes r to bw and returns the non-zero flag for the block.
func CodeBlock(bw *bitio.BoolWriter, r *Residual, ctx int, proba *ProbaTable) int {
	return codeCoeffs(r, ctx, &writerSink{bw: bw, proba: proba})
}

// RecordStatistics tallies the tree decisions of r without emitting bits.
// The cost of the bits the tree does not model, signs and literal extra
// bits, is added to fixedBits in 1/256 bits when it is not nil.
func RecordStatistics(stats *ProbaStats, r *Residual, ctx int, fixedBits *int) int {
	s := statsSink{stats: stats}
	nz := codeCoeffs(r, ctx, &s)
	if fixedBits != nil {
		*fixedBits += s.bits
	}
	return nz
}

// BlockCost estimates the cost of r in 1/256 bits.
func BlockCost(r *Residual, ctx int, proba *ProbaTable) int {
	s := costSink{proba: proba}
	codeCoeffs(r, ctx, &s)
	return s.cost
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
