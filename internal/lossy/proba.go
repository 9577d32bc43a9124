package lossy

import "github.com/deepteams/vp8enc/internal/dsp"

// Proba holds the probabilities signalled in the frame header.
type Proba struct {
	Coeffs       ProbaTable
	Segments     [3]uint8 // segment id tree
	SkipProba    uint8
	UseSkipProba bool
	NbSkip       int
}

// Reset restores the default tables.
func (p *Proba) Reset() {
	p.Coeffs = CoeffsProba0
	p.Segments = [3]uint8{255, 255, 255}
	p.SkipProba = 255
	p.UseSkipProba = false
	p.NbSkip = 0
}

// ProbaStats counts, per tree node, how many ones were seen ([0]) out of how
// many decisions ([1]).
type ProbaStats [NumTypes][NumBands][NumCtx][NumProbas][2]uint32

func (s *ProbaStats) record(bit, t, b, c, i int) {
	cell := &s[t][b][c][i]
	if bit != 0 {
		cell[0]++
	}
	cell[1]++
}

// Add merges o into s.
func (s *ProbaStats) Add(o *ProbaStats) {
	for t := range s {
		for b := range s[t] {
			for c := range s[t][b] {
				for i := range s[t][b][c] {
					s[t][b][c][i][0] += o[t][b][c][i][0]
					s[t][b][c][i][1] += o[t][b][c][i][1]
				}
			}
		}
	}
}

// calcTokenProba returns the probability of a zero given nb ones in total.
func calcTokenProba(nb, total uint32) uint8 {
	if nb == 0 {
		return 255
	}
	return uint8(255 - nb*255/total)
}

func branchCost(nb, total uint32, p uint8) int {
	return dsp.BranchCost(int(total-nb), int(nb), p)
}

// FinalizeProbabilities fits a probability to every cell of stats and keeps
// it only when coding the observed decisions with it, plus the update flag
// and the 8-bit value, is strictly cheaper than coding them with the default.
// bitCost is the resulting cost of the coefficient tokens and of the update
// flags, in 1/256 bits. changed reports whether any cell differs from
// defaults.
func FinalizeProbabilities(stats *ProbaStats, defaults *ProbaTable) (fitted ProbaTable, bitCost int, changed bool) {
	for t := 0; t < NumTypes; t++ {
		for b := 0; b < NumBands; b++ {
			for c := 0; c < NumCtx; c++ {
				for i := 0; i < NumProbas; i++ {
					nb, total := stats[t][b][c][i][0], stats[t][b][c][i][1]
					upd := CoeffsUpdateProba[t][b][c][i]
					oldP := defaults[t][b][c][i]
					newP := calcTokenProba(nb, total)
					oldCost := branchCost(nb, total, oldP) + dsp.BitCost(0, upd)
					newCost := branchCost(nb, total, newP) + dsp.BitCost(1, upd) + 8*256
					if oldCost > newCost {
						fitted[t][b][c][i] = newP
						changed = changed || newP != oldP
						bitCost += newCost
					} else {
						fitted[t][b][c][i] = oldP
						bitCost += oldCost
					}
				}
			}
		}
	}
	return fitted, bitCost, changed
}

// skipProbaThreshold is the probability above which signalling skips costs
// more than it saves.
const skipProbaThreshold = 250

// FinalizeSkipProba derives the skip probability from the number of skipped
// macroblocks and returns the cost of the skip flags in 1/256 bits.
func (p *Proba) FinalizeSkipProba(nbMBs int) int {
	nb := p.NbSkip
	p.SkipProba = 255
	if nbMBs > 0 {
		p.SkipProba = uint8((nbMBs - nb) * 255 / nbMBs)
	}
	p.UseSkipProba = p.SkipProba < skipProbaThreshold
	size := 256
	if p.UseSkipProba {
		size += nb*dsp.BitCost(1, p.SkipProba) + (nbMBs-nb)*dsp.BitCost(0, p.SkipProba)
		size += 8 * 256
	}
	return size
}

// SetSegmentProbas fits the segment id tree to the macroblock counts per
// segment. It reports false when every macroblock sits in segment 0, in which
// case no map needs to be sent.
func (p *Proba) SetSegmentProbas(counts [NumMBSegments]int) bool {
	get := func(a, b int) uint8 {
		total := a + b
		if total == 0 {
			return 255
		}
		return uint8((255*a + total/2) / total)
	}
	p.Segments[0] = get(counts[0]+counts[1], counts[2]+counts[3])
	p.Segments[1] = get(counts[0], counts[1])
	p.Segments[2] = get(counts[2], counts[3])
	return p.Segments != [3]uint8{255, 255, 255}
}

// segmentCost is the cost of coding segment id s with the current tree.
func (p *Proba) segmentCost(s int) int {
	cost := dsp.BitCost(s>>1, p.Segments[0])
	if s >= 2 {
		return cost + dsp.BitCost(s&1, p.Segments[2])
	}
	return cost + dsp.BitCost(s&1, p.Segments[1])
}
