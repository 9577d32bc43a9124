package lossy

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/deepteams/vp8enc/internal/dsp"
)

// MaxPartitions is the largest number of token partitions.
const MaxPartitions = 8

// Config holds the resolved encoding parameters.
type Config struct {
	Quality         float64 // 0-100
	TargetSize      int     // bytes, 0 disables the size search
	TargetPSNR      float64 // dB, 0 disables the distortion search
	Method          int     // 0-6, effort of the mode decision
	SNSStrength     int     // 0-100, spatial noise shaping
	FilterStrength  int     // 0-100
	FilterSharpness int     // 0-7
	FilterType      int     // 0 simple, 1 normal
	Partitions      int     // log2 of the token partition count, 0-3
	Segments        int     // 1-4
	Pass            int     // pass budget, 1-10
	QMin, QMax      float64

	// Progress is called between macroblocks with the overall percentage.
	// Returning false cancels the encode.
	Progress func(percent int) bool
	Logger   *log.Logger
	// Decider replaces the default rate-distortion mode decision.
	Decider ModeDecider
}

// DefaultConfig returns the parameters used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Quality:         75,
		Method:          4,
		SNSStrength:     50,
		FilterStrength:  60,
		FilterSharpness: 0,
		FilterType:      1,
		Segments:        4,
		Pass:            1,
		QMin:            0,
		QMax:            100,
	}
}

// Stats reports on a finished encode.
type Stats struct {
	Quality      float64 // quality of the pass that was written
	Passes       int
	Retries      int // passes rerun to keep partition 0 under its limit
	EstimateSize int // size predicted by the last pass
	CodedSize    int
	PSNR         float64 // of the reconstruction, over Y, U and V
	SegmentQuant [NumMBSegments]int
	SegmentLevel [NumMBSegments]int
	NbSkip       int
	BitCount     [NumMBSegments][3]int // 1/256 bits, see BitsLuma
}

// Encoder encodes one picture. It is not safe for concurrent use and is
// meant for a single Encode call.
type Encoder struct {
	cfg     Config
	pic     *Picture
	it      *Iterator
	decider ModeDecider

	mbW, mbH int
	mbInfo   []MBInfo

	// Segmentation: the analysis assignment is kept apart from the map of
	// the current pass, which may merge segments.
	segAssign  []uint8
	segs       [NumMBSegments]Segment
	segAlpha   [NumMBSegments]int
	segBeta    [NumMBSegments]int
	numSegs    int
	activeSegs int
	updateMap  bool
	uvAlpha    int
	deltas     quantDeltas
	filter     filterHeader

	proba     Proba
	stats     ProbaStats
	skipStats ProbaStats

	maxI4HeaderBits int
	part0Limit      int // 1/256 bits
	retries         int
	numParts        int

	passIndex, maxPasses int
	result               Stats
}

// errPart0Overflow is returned by a pass whose mode bits exceed the limit
// of partition 0.
var errPart0Overflow = errors.New("lossy: partition 0 overflow")

// NewEncoder validates the picture and prepares an encoder for it.
func NewEncoder(pic *Picture, cfg Config) (*Encoder, error) {
	it, err := NewIterator(pic)
	if err != nil {
		return nil, err
	}
	decider := cfg.Decider
	if decider == nil {
		decider = &RDDecider{Method: cfg.Method}
	}
	e := &Encoder{
		cfg:             cfg,
		pic:             pic,
		it:              it,
		decider:         decider,
		mbW:             it.MBWidth(),
		mbH:             it.MBHeight(),
		mbInfo:          make([]MBInfo, it.MBWidth()*it.MBHeight()),
		maxI4HeaderBits: 256 * 16 * 16,
		part0Limit:      (maxPart0Size + 1 - 2048) << 11,
		numParts:        1 << clampInt(cfg.Partitions, 0, 3),
	}
	e.proba.Reset()
	return e, nil
}

// Encode runs the analysis, the pass loop and writes the VP8 frame. On
// failure no bytes are returned.
func (e *Encoder) Encode(ctx context.Context) ([]byte, error) {
	e.analyze()

	ps := initPassStats(e.cfg.TargetSize, e.cfg.TargetPSNR, e.cfg.Quality, e.cfg.QMin, e.cfg.QMax)
	e.maxPasses = clampInt(e.cfg.Pass, 1, 10)
	passes, q, err := ps.search(e.maxPasses, func(q float64) (passResult, error) {
		res, err := e.runPassChecked(ctx, q)
		if err == nil {
			e.logf("pass %d: q=%.2f size=%.0f psnr=%.2f dq=%.2f", e.passIndex, q, res.size, res.psnr, ps.dq)
			e.passIndex++
		}
		return res, err
	})
	if err != nil {
		return nil, err
	}

	bitCount := e.it.BitCount
	out, err := e.emit()
	if err != nil {
		return nil, err
	}
	if e.cfg.Progress != nil && !e.cfg.Progress(100) {
		return nil, ErrCanceled
	}

	r := &e.result
	r.Quality = q
	r.Passes = passes
	r.Retries = e.retries
	r.CodedSize = len(out)
	r.NbSkip = e.proba.NbSkip
	r.BitCount = bitCount
	for i := range e.segs {
		r.SegmentQuant[i] = e.segs[i].Quant
		r.SegmentLevel[i] = e.segs[i].FStrength
	}
	return out, nil
}

// Stats returns the statistics of the last Encode call.
func (e *Encoder) Stats() Stats { return e.result }

// runPassChecked runs a pass and, while partition 0 overflows, halves the
// bit budget of 4x4 modes and runs it again.
func (e *Encoder) runPassChecked(ctx context.Context, q float64) (passResult, error) {
	for {
		res, err := e.runPass(ctx, q)
		if !errors.Is(err, errPart0Overflow) {
			return res, err
		}
		if e.maxI4HeaderBits == 0 || e.retries >= maxRetries {
			return passResult{}, errors.Wrapf(ErrStructuralLimit, "after %d retries", e.retries)
		}
		e.retries++
		e.maxI4HeaderBits >>= 1
		e.logf("partition 0 overflow, retry %d with 4x4 header budget %d", e.retries, e.maxI4HeaderBits)
	}
}

// runPass decides every macroblock at quality q and measures the result.
// The probabilities fitted to the pass become the cost model of the next
// one.
func (e *Encoder) runPass(ctx context.Context, q float64) (passResult, error) {
	e.setSegmentParams(q)
	it := e.it
	it.Reset()
	e.stats = ProbaStats{}
	e.skipStats = ProbaStats{}
	e.proba.NbSkip = 0

	total := len(e.mbInfo)
	var headerBits, fixedBits int
	var sse uint64
	for {
		i := it.Index()
		if err := e.poll(ctx, i, total); err != nil {
			return passResult{}, err
		}
		info := &e.mbInfo[i]
		seg := &e.segs[info.Segment]

		it.Import()
		it.FillPredContext()
		it.NzToFlags()
		e.decider.Decide(it, seg, &e.proba, e.maxI4HeaderBits, info)

		stats := &e.stats
		if info.Skip {
			stats = &e.skipStats
			e.proba.NbSkip++
		}
		walkResiduals(it, info, func(r *Residual, ctx int) int {
			return RecordStatistics(stats, r, ctx, &fixedBits)
		})
		it.FlagsToNz()
		it.SaveModes(info)
		it.SaveBoundary()

		s := int(info.Segment)
		it.AddBits(s, BitsLuma, info.Rate-info.UVRate)
		it.AddBits(s, BitsChroma, info.UVRate)
		mbHeader := info.HeaderBits
		if e.updateMap {
			mbHeader += e.proba.segmentCost(s)
		}
		it.AddBits(s, BitsHeader, mbHeader)
		headerBits += mbHeader
		sse += uint64(info.Disto)
		if !it.Next() {
			break
		}
	}
	if headerBits > e.part0Limit {
		return passResult{}, errPart0Overflow
	}

	skipBits := e.proba.FinalizeSkipProba(total)
	if !e.proba.UseSkipProba {
		e.stats.Add(&e.skipStats)
	}
	fitted, tokenBits, _ := FinalizeProbabilities(&e.stats, &CoeffsProba0)
	stable := fitted == e.proba.Coeffs
	e.proba.Coeffs = fitted

	bits := tokenBits + fixedBits + headerBits + skipBits
	size := bits>>11 + e.headerSize() + frameHeaderSize + 3*(e.numParts-1)
	res := passResult{
		size:   float64(size),
		psnr:   dsp.PSNR(sse, total*384),
		stable: stable,
	}
	e.result.EstimateSize = size
	e.result.PSNR = res.psnr
	return res, nil
}

// poll reports progress and checks for cancellation before macroblock i.
func (e *Encoder) poll(ctx context.Context, i, total int) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrCanceled, err.Error())
	}
	if e.cfg.Progress == nil {
		return nil
	}
	percent := (100*e.passIndex + 100*i/total) / e.maxPasses
	if !e.cfg.Progress(min(percent, 99)) {
		return ErrCanceled
	}
	return nil
}

func (e *Encoder) logf(format string, args ...any) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.Printf(format, args...)
	}
}
