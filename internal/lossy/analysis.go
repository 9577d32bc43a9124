package lossy

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/deepteams/vp8enc/internal/dsp"
)

const (
	maxCoeffThresh = 31
	maxAlpha       = 255
	alphaScale     = 2 * maxAlpha
	maxItersKMeans = 6
)

// analysisWorker holds the buffers of one analysis goroutine.
type analysisWorker struct {
	src    [YUVSize]byte
	pred   [YUVSize]byte
	coeffs [16]int16
}

// analyze measures the complexity of every macroblock, clusters the
// macroblocks into segments and records the per-segment alpha and beta.
func (e *Encoder) analyze() {
	alphas := make([]int, len(e.mbInfo))
	e.uvAlpha = e.computeAlphas(alphas)

	numSegs := clampInt(e.cfg.Segments, 1, NumMBSegments)
	if numSegs == 1 || len(alphas) < numSegs {
		for i := range e.mbInfo {
			e.mbInfo[i].Segment = 0
		}
		e.segs[0].Alpha, e.segs[0].Beta = 0, 0
		e.numSegs = 1
	} else {
		e.assignSegments(alphas, numSegs)
		e.numSegs = numSegs
	}
	e.segAssign = make([]uint8, len(e.mbInfo))
	for i := range e.mbInfo {
		e.segAssign[i] = e.mbInfo[i].Segment
	}
	for i := range e.segs {
		e.segAlpha[i], e.segBeta[i] = e.segs[i].Alpha, e.segs[i].Beta
	}
}

// computeAlphas fills alphas and returns the average chroma alpha. Rows are
// spread over GOMAXPROCS workers; analysis only reads the source.
func (e *Encoder) computeAlphas(alphas []int) int {
	total := len(alphas)
	workers := min(runtime.GOMAXPROCS(0), e.mbH)
	if workers < 1 {
		workers = 1
	}
	var uvSum int64
	var wg sync.WaitGroup
	rows := (e.mbH + workers - 1) / workers
	for start := 0; start < e.mbH; start += rows {
		end := min(start+rows, e.mbH)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			var w analysisWorker
			local := 0
			for y := start; y < end; y++ {
				for x := 0; x < e.mbW; x++ {
					w.load(e.pic, x, y)
					luma := w.lumaAlpha(x, y)
					uv := w.uvAlpha(x, y)
					mixed := clampInt(maxAlpha-((3*luma+uv+2)>>2), 0, maxAlpha)
					idx := y*e.mbW + x
					alphas[idx] = mixed
					e.mbInfo[idx].Alpha = mixed
					local += uv
				}
			}
			atomic.AddInt64(&uvSum, int64(local))
		}(start, end)
	}
	wg.Wait()
	return int(uvSum) / total
}

// load copies the source macroblock and its source neighbours.
func (w *analysisWorker) load(pic *Picture, mbX, mbY int) {
	uvW, uvH := (pic.Width+1)>>1, (pic.Height+1)>>1
	loadPlane(w.src[:], w.pred[:], YOff, pic.Y, pic.YStride, pic.Width, pic.Height, mbX*16, mbY*16, 16)
	loadPlane(w.src[:], w.pred[:], UOff, pic.U, pic.UVStride, uvW, uvH, mbX*8, mbY*8, 8)
	loadPlane(w.src[:], w.pred[:], VOff, pic.V, pic.UVStride, uvW, uvH, mbX*8, mbY*8, 8)
}

func loadPlane(src, pred []byte, off int, plane []byte, stride, width, height, x0, y0, size int) {
	at := func(x, y int) byte {
		return plane[min(y, height-1)*stride+min(x, width-1)]
	}
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			src[off+j*dsp.BPS+i] = at(x0+i, y0+j)
		}
	}
	for i := 0; i < size; i++ {
		v := byte(127)
		if y0 > 0 {
			v = at(x0+i, y0-1)
		}
		pred[off-dsp.BPS+i] = v
	}
	for j := 0; j < size; j++ {
		v := byte(129)
		if x0 > 0 {
			v = at(x0-1, y0+j)
		}
		pred[off-1+j*dsp.BPS] = v
	}
	switch {
	case x0 > 0 && y0 > 0:
		pred[off-dsp.BPS-1] = at(x0-1, y0-1)
	case y0 > 0:
		pred[off-dsp.BPS-1] = 129
	default:
		pred[off-dsp.BPS-1] = 127
	}
}

// lumaAlpha tries DC and, when both neighbours exist, TM prediction and
// keeps the smaller residual alpha.
func (w *analysisWorker) lumaAlpha(x, y int) int {
	best := maxAlpha
	modes := []int{predDC(x, y)}
	if x > 0 && y > 0 {
		modes = append(modes, ModeTM)
	}
	for _, m := range modes {
		dsp.PredLuma16[m](w.pred[:], YOff)
		var histo [maxCoeffThresh + 1]int
		for i := 0; i < 16; i++ {
			o := YOff + dsp.Scan[i]
			w.histogram(&histo, o)
		}
		best = min(best, alphaFromHistogram(&histo))
	}
	return best
}

func (w *analysisWorker) uvAlpha(x, y int) int {
	p := predDC(x, y)
	dsp.PredChroma8[p](w.pred[:], UOff)
	dsp.PredChroma8[p](w.pred[:], VOff)
	var histo [maxCoeffThresh + 1]int
	for n := 0; n < 8; n++ {
		w.histogram(&histo, uvBlockOffset(n))
	}
	return alphaFromHistogram(&histo)
}

func (w *analysisWorker) histogram(histo *[maxCoeffThresh + 1]int, o int) {
	dsp.FTransform(w.src[o:], w.pred[o:], w.coeffs[:])
	for _, c := range w.coeffs {
		v := int(c)
		if v < 0 {
			v = -v
		}
		histo[min(v>>3, maxCoeffThresh)]++
	}
}

// alphaFromHistogram grows with the spread of the coefficient histogram
// relative to its peak.
func alphaFromHistogram(histo *[maxCoeffThresh + 1]int) int {
	maxValue, lastNonZero := 0, 1
	for k, n := range histo {
		if n > 0 {
			maxValue = max(maxValue, n)
			lastNonZero = k
		}
	}
	if maxValue <= 1 {
		return 0
	}
	return min(alphaScale*lastNonZero/maxValue, maxAlpha)
}

// assignSegments clusters the alphas with k-means on their histogram and
// maps every macroblock to the nearest center.
func (e *Encoder) assignSegments(alphas []int, numSegs int) {
	var histo [maxAlpha + 1]int
	for _, a := range alphas {
		histo[a]++
	}
	minA := 0
	for minA < maxAlpha && histo[minA] == 0 {
		minA++
	}
	maxA := maxAlpha
	for maxA > minA && histo[maxA] == 0 {
		maxA--
	}
	rangeA := maxA - minA

	var centers [NumMBSegments]int
	for k := 0; k < numSegs; k++ {
		centers[k] = minA + (2*k+1)*rangeA/(2*numSegs)
	}

	var alphaMap [maxAlpha + 1]int
	weightedAvg := 0
	for iter := 0; iter < maxItersKMeans; iter++ {
		var accum, distAccum [NumMBSegments]int
		n := 0
		for a := minA; a <= maxA; a++ {
			if histo[a] == 0 {
				continue
			}
			for n+1 < numSegs && abs(a-centers[n+1]) < abs(a-centers[n]) {
				n++
			}
			alphaMap[a] = n
			distAccum[n] += a * histo[a]
			accum[n] += histo[a]
		}
		displaced, totalWeight := 0, 0
		weightedAvg = 0
		for s := 0; s < numSegs; s++ {
			if accum[s] == 0 {
				continue
			}
			c := (distAccum[s] + accum[s]/2) / accum[s]
			displaced += abs(centers[s] - c)
			centers[s] = c
			weightedAvg += c * accum[s]
			totalWeight += accum[s]
		}
		weightedAvg = (weightedAvg + totalWeight/2) / totalWeight
		if displaced < 5 {
			break
		}
	}

	for i := range e.mbInfo {
		a := e.mbInfo[i].Alpha
		e.mbInfo[i].Segment = uint8(alphaMap[a])
		e.mbInfo[i].Alpha = centers[alphaMap[a]]
	}

	minC, maxC := centers[0], centers[0]
	for s := 1; s < numSegs; s++ {
		minC = min(minC, centers[s])
		maxC = max(maxC, centers[s])
	}
	rangeC := max(maxC-minC, 1)
	for s := 0; s < numSegs; s++ {
		e.segs[s].Alpha = clampInt(255*(centers[s]-weightedAvg)/rangeC, -127, 127)
		e.segs[s].Beta = clampInt(255*(centers[s]-minC)/rangeC, 0, 255)
	}
}

// setSegmentParams derives the quantizer of every segment for the given
// quality, modulated by the segment alpha, then the filter strengths. Equal
// segments are merged and the macroblock map rewritten from the analysis
// assignment.
func (e *Encoder) setSegmentParams(quality float64) {
	const (
		snsToDQ  = 0.9
		midAlpha = 64
		minAlpha = 30
		maxAlph2 = 100
		maxDQUV  = 6
		minDQUV  = -4
	)
	sns := max(e.cfg.SNSStrength, 0)
	amp := snsToDQ * float64(sns) / 100 / 128
	cBase := qualityToCompression(quality)
	numSegs := e.numSegs

	for i := 0; i < NumMBSegments; i++ {
		s := &e.segs[i]
		src := i
		if i >= numSegs {
			src = 0
		}
		s.Alpha, s.Beta = e.segAlpha[src], e.segBeta[src]
		c := math.Pow(cBase, 1-amp*float64(s.Alpha))
		s.Quant = clampInt(int(127*(1-c)), 0, 127)
	}

	dqUVAC := (e.uvAlpha - midAlpha) * (maxDQUV - minDQUV) / (maxAlph2 - minAlpha)
	e.deltas = quantDeltas{
		uvAC: clampInt(dqUVAC*sns/100, minDQUV, maxDQUV),
		uvDC: clampInt(-4*sns/100, -15, 15),
	}

	e.setupFilterStrength()

	// Merge segments with identical parameters.
	remap := [NumMBSegments]uint8{0, 1, 2, 3}
	final := 1
	for s1 := 1; s1 < numSegs; s1++ {
		found := false
		for s2 := 0; s2 < final; s2++ {
			if e.segs[s1].Quant == e.segs[s2].Quant && e.segs[s1].FStrength == e.segs[s2].FStrength {
				remap[s1] = uint8(s2)
				found = true
				break
			}
		}
		if !found {
			remap[s1] = uint8(final)
			if final != s1 {
				e.segs[final] = e.segs[s1]
			}
			final++
		}
	}
	for i := final; i < NumMBSegments; i++ {
		e.segs[i] = e.segs[final-1]
	}
	e.activeSegs = final

	var counts [NumMBSegments]int
	for i := range e.mbInfo {
		s := remap[e.segAssign[i]]
		e.mbInfo[i].Segment = s
		counts[s]++
	}
	e.updateMap = final > 1 && e.proba.SetSegmentProbas(counts)
	if !e.updateMap {
		e.activeSegs = 1
		for i := range e.mbInfo {
			e.mbInfo[i].Segment = 0
		}
	}

	for i := range e.segs {
		e.segs[i].setup(e.deltas)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
