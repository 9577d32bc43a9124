package lossy

import (
	"github.com/deepteams/vp8enc/internal/bitio"
	"github.com/deepteams/vp8enc/internal/dsp"
)

// bitCoder is either a real writer or a cost counter, so the mode trees are
// spelled out only once.
type bitCoder interface {
	put(bit int, prob uint8)
}

type boolCoder struct{ bw *bitio.BoolWriter }

func (c boolCoder) put(bit int, prob uint8) { c.bw.PutBit(bit, int(prob)) }

type costCounter struct{ cost int }

func (c *costCounter) put(bit int, prob uint8) { c.cost += dsp.BitCost(bit, prob) }

// Fixed probabilities of the key frame mode trees.
const (
	probIsI4 = 145
)

func putI16Mode(c bitCoder, mode uint8) {
	c.put(1, probIsI4)
	switch mode {
	case ModeDC:
		c.put(0, 156)
		c.put(0, 163)
	case ModeVE:
		c.put(0, 156)
		c.put(1, 163)
	case ModeHE:
		c.put(1, 156)
		c.put(0, 128)
	default:
		c.put(1, 156)
		c.put(1, 128)
	}
}

func putUVMode(c bitCoder, mode uint8) {
	if mode == ModeDC {
		c.put(0, 142)
		return
	}
	c.put(1, 142)
	if mode == ModeVE {
		c.put(0, 114)
		return
	}
	c.put(1, 114)
	c.put(boolInt(mode == ModeTM), 183)
}

// putI4Mode codes one 4x4 mode with the tree probabilities p selected by
// the modes above and to the left of the block.
func putI4Mode(c bitCoder, mode uint8, p *[9]uint8) {
	if mode == ModeDC {
		c.put(0, p[0])
		return
	}
	c.put(1, p[0])
	if mode == ModeTM {
		c.put(0, p[1])
		return
	}
	c.put(1, p[1])
	if mode == ModeVE {
		c.put(0, p[2])
		return
	}
	c.put(1, p[2])
	switch mode {
	case ModeHE, ModeRD, ModeVR:
		c.put(0, p[3])
		if mode == ModeHE {
			c.put(0, p[4])
			return
		}
		c.put(1, p[4])
		c.put(boolInt(mode == ModeVR), p[5])
		return
	}
	c.put(1, p[3])
	if mode == ModeLD {
		c.put(0, p[6])
		return
	}
	c.put(1, p[6])
	if mode == ModeVL {
		c.put(0, p[7])
		return
	}
	c.put(1, p[7])
	c.put(boolInt(mode == ModeHU), p[8])
}

// Precomputed mode costs in 1/256 bits.
var (
	modeCostI16 [NumI16Mode]int
	modeCostUV  [NumI16Mode]int
	modeCostI4  [NumBModes][NumBModes][NumBModes]int // [top][left][mode]
)

func init() {
	for m := uint8(0); m < NumI16Mode; m++ {
		var c costCounter
		putI16Mode(&c, m)
		modeCostI16[m] = c.cost
		c = costCounter{}
		putUVMode(&c, m)
		modeCostUV[m] = c.cost
	}
	for t := range kBModesProba {
		for l := range kBModesProba[t] {
			for m := uint8(0); m < NumBModes; m++ {
				var c costCounter
				putI4Mode(&c, m, &kBModesProba[t][l])
				modeCostI4[t][l][m] = c.cost
			}
		}
	}
}

// predDC picks the DC predictor variant for a macroblock at (x, y): the
// first row has no top context and the first column no left one.
func predDC(x, y int) int {
	switch {
	case x == 0 && y == 0:
		return 6
	case y == 0:
		return 4
	case x == 0:
		return 5
	}
	return ModeDC
}

// predIndex maps a 16x16 or chroma mode to its predictor table entry.
func predIndex(mode uint8, x, y int) int {
	if mode == ModeDC {
		return predDC(x, y)
	}
	return int(mode)
}
