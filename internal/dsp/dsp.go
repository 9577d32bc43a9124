// Package dsp provides the pixel-level kernels used by the VP8 encoder:
// forward and inverse transforms, intra predictors, distortion metrics, the
// entropy cost table, colour conversion and the level dequantization smoother.
package dsp

// BPS is the stride of the encoder's macroblock work buffers.
const BPS = 32

// Transform function variables. They are set to the pure-Go kernels by Init
// and may be replaced by faster implementations.
var (
	// FTransform computes the forward DCT of src-ref for one 4x4 block.
	FTransform func(src, ref []byte, out []int16)
	// ITransform adds the inverse DCT of in to ref and stores into dst.
	// When doTwo is set a second block four pixels to the right is processed.
	ITransform func(ref []byte, in []int16, dst []byte, doTwo bool)
	// FTransformWHT computes the forward Walsh-Hadamard transform of the 16
	// luma DC values, given in raster block order.
	FTransformWHT func(in, out []int16)
	// ITransformWHT inverts FTransformWHT; out is in raster block order.
	ITransformWHT func(in, out []int16)
)

// PredFunc predicts a block in place. buf[off] is the block's top-left pixel;
// the top row lives at off-BPS, the left column at off-1 and the corner at
// off-BPS-1.
type PredFunc func(buf []byte, off int)

// Prediction tables. The first four entries of the luma-16 and chroma tables
// are DC, TM, VE and HE; entries 4-6 are the DC variants used when the top
// row, the left column or both are unavailable.
var (
	PredLuma16  [7]PredFunc
	PredChroma8 [7]PredFunc
	PredLuma4   [10]PredFunc
)

// Scan holds the byte offsets of the sixteen 4x4 luma blocks relative to the
// macroblock origin, in raster order.
var Scan [16]int

func initScan() {
	for i := range Scan {
		Scan[i] = (i&3)*4 + (i>>2)*4*BPS
	}
}

// Init installs the default kernels and builds the lookup tables.
func Init() {
	initScan()
	initEntropyCost()

	FTransform = fTransform
	ITransform = iTransform
	FTransformWHT = fTransformWHT
	ITransformWHT = iTransformWHT

	initPredictors()
}

func init() {
	Init()
}
