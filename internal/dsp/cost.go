package dsp

import "math"

// entropyCost[p] is the cost, in 1/256 bit units, of coding a zero with
// probability p/256.
var entropyCost [256]uint16

func initEntropyCost() {
	for p := range entropyCost {
		q := p
		if q == 0 {
			q = 1
		}
		entropyCost[p] = uint16(math.Round(-math.Log2(float64(q)/256) * 256))
	}
}

// BitCost returns the cost in 1/256 bits of coding bit with probability
// prob/256 of being zero. The encoder's rate estimates and the probability
// update decisions share this model so they agree with each other.
func BitCost(bit int, prob uint8) int {
	if bit == 0 {
		return int(entropyCost[prob])
	}
	return int(entropyCost[255-prob])
}

// BranchCost is the cost of coding n0 zeros and n1 ones at prob.
func BranchCost(n0, n1 int, prob uint8) int {
	return n0*BitCost(0, prob) + n1*BitCost(1, prob)
}
