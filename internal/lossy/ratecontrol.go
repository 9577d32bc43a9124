package lossy

import (
	"math"
)

const (
	dqLimit     = 0.4 // quality step below which the search has converged
	dqMaxStep   = 30
	defaultPSNR = 40
	maxRetries  = 16
)

// passStats is the state of the quality search over successive passes. The
// searched value is either the estimated size in bytes or the PSNR.
type passStats struct {
	isFirst          bool
	doSearch         bool
	doSizeSearch     bool
	dq               float64
	q, lastQ         float64
	qmin, qmax       float64
	value, lastValue float64
	target           float64
}

// passResult is what one pass reports to the search.
type passResult struct {
	size   float64 // estimated frame size in bytes
	psnr   float64
	stable bool // the fitted probabilities did not change the cost model
}

func initPassStats(targetSize int, targetPSNR, quality, qmin, qmax float64) *passStats {
	ps := &passStats{
		isFirst:      true,
		dq:           10,
		doSizeSearch: targetSize > 0,
		doSearch:     targetSize > 0 || targetPSNR > 0,
	}
	switch {
	case ps.doSizeSearch:
		ps.target = float64(targetSize)
	case targetPSNR > 0:
		ps.target = targetPSNR
	default:
		ps.target = defaultPSNR
	}
	ps.qmin = math.Max(qmin, 0)
	ps.qmax = math.Min(qmax, 100)
	if ps.qmax < ps.qmin {
		ps.qmax = ps.qmin
	}
	ps.q = math.Min(math.Max(quality, ps.qmin), ps.qmax)
	ps.lastQ = ps.q
	return ps
}

// computeNextQ moves q toward the target: a fixed step on the first call,
// then a secant step through the last two measurements.
func (ps *passStats) computeNextQ() float64 {
	var dq float64
	switch {
	case ps.isFirst:
		dq = ps.dq
		if ps.value > ps.target {
			dq = -dq
		}
		ps.isFirst = false
	case ps.value != ps.lastValue:
		slope := (ps.target - ps.value) / (ps.lastValue - ps.value)
		dq = slope * (ps.lastQ - ps.q)
	}
	dq = math.Min(math.Max(dq, -dqMaxStep), dqMaxStep)
	ps.dq = dq
	ps.lastQ = ps.q
	ps.lastValue = ps.value
	ps.q = math.Min(math.Max(ps.q+dq, ps.qmin), ps.qmax)
	return ps.q
}

// search runs at most maxPasses passes. With a target it adjusts q between
// passes until the step falls under dqLimit; without one it repeats the pass
// at a fixed q until the probabilities settle. It returns the number of
// passes run and the quality of the last one.
func (ps *passStats) search(maxPasses int, pass func(q float64) (passResult, error)) (passes int, q float64, err error) {
	maxPasses = max(maxPasses, 1)
	for passes < maxPasses {
		q = ps.q
		res, err := pass(q)
		if err != nil {
			return passes, q, err
		}
		passes++
		if !ps.doSearch {
			if res.stable {
				break
			}
			continue
		}
		ps.value = res.psnr
		if ps.doSizeSearch {
			ps.value = res.size
		}
		if passes == maxPasses {
			break
		}
		ps.computeNextQ()
		if math.Abs(ps.dq) <= dqLimit {
			break
		}
	}
	return passes, q, nil
}
