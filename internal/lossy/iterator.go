package lossy

import (
	"github.com/pkg/errors"

	"github.com/deepteams/vp8enc/internal/dsp"
)

// Layout of the macroblock work buffers (BPS-strided):
//
//	+----+--------------------+----+
//	|    | top context        | TR |  row 0
//	| L  | Y (16x16)          |    |  rows 1-16
//	+----+--------------------+----+
//	|    | U (8x8)  |    | V (8x8) |  rows 18-25, top context on row 17
//
// The top row holds four top-right pixels after the luma row; they are
// repeated on rows 3, 7 and 11 for the rightmost 4x4 blocks.
const (
	YOff    = dsp.BPS + 8
	UOff    = YOff + 16*dsp.BPS + dsp.BPS
	VOff    = UOff + 16
	YUVSize = dsp.BPS*17 + dsp.BPS*9
)

// MaxDimension is the largest width or height a VP8 frame can carry.
const MaxDimension = 16383

// Bit counter kinds, see Iterator.BitCount.
const (
	BitsLuma = iota
	BitsChroma
	BitsHeader
)

// Picture is a planar YUV 4:2:0 source image.
type Picture struct {
	Width, Height int
	Y, U, V       []byte
	YStride       int
	UVStride      int
}

// Iterator walks the macroblocks of a picture in raster order and keeps the
// boundary pixels, intra modes and non-zero flags of the already coded
// neighbours.
type Iterator struct {
	pic      *Picture
	X, Y     int
	mbW, mbH int
	done     bool

	yuvIn   []byte // source macroblock
	yuvOut  []byte // reconstruction with prediction context
	yuvOut2 []byte // scratch reconstruction

	topY, topU, topV    []uint8 // bottom rows of the previous macroblock row
	leftY               [16]uint8
	leftU, leftV        [8]uint8
	cornerY             uint8
	cornerU, cornerV    uint8
	topModes            []uint8 // 4 per macroblock column
	leftModes           [4]uint8
	nz                  []uint32 // nz[1+x] per column, nz[x] is the left neighbour
	topNz, leftNz       [9]int   // per-block flags, index 8 is the Y2 block
	BitCount            [NumMBSegments][3]int
}

// NewIterator prepares an iterator over pic.
func NewIterator(pic *Picture) (*Iterator, error) {
	if pic.Width <= 0 || pic.Height <= 0 || pic.Width > MaxDimension || pic.Height > MaxDimension {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d", pic.Width, pic.Height)
	}
	uvW, uvH := (pic.Width+1)>>1, (pic.Height+1)>>1
	if pic.YStride < pic.Width || pic.UVStride < uvW ||
		len(pic.Y) < (pic.Height-1)*pic.YStride+pic.Width ||
		len(pic.U) < (uvH-1)*pic.UVStride+uvW || len(pic.V) < (uvH-1)*pic.UVStride+uvW {
		return nil, errors.Wrap(ErrInvalidDimensions, "planes too small for picture size")
	}
	mbW := (pic.Width + 15) >> 4
	mbH := (pic.Height + 15) >> 4
	it := &Iterator{
		pic:      pic,
		mbW:      mbW,
		mbH:      mbH,
		yuvIn:    make([]byte, YUVSize),
		yuvOut:   make([]byte, YUVSize),
		yuvOut2:  make([]byte, YUVSize),
		topY:     make([]uint8, mbW*16),
		topU:     make([]uint8, mbW*8),
		topV:     make([]uint8, mbW*8),
		topModes: make([]uint8, mbW*4),
		nz:       make([]uint32, mbW+1),
	}
	it.Reset()
	return it, nil
}

// MBWidth returns the number of macroblock columns.
func (it *Iterator) MBWidth() int { return it.mbW }

// MBHeight returns the number of macroblock rows.
func (it *Iterator) MBHeight() int { return it.mbH }

// Index returns the raster index of the current macroblock.
func (it *Iterator) Index() int { return it.Y*it.mbW + it.X }

// Reset rewinds to the first macroblock and clears all contexts.
func (it *Iterator) Reset() {
	it.X, it.Y = 0, 0
	it.done = false
	fillBytes(it.topY, 127)
	fillBytes(it.topU, 127)
	fillBytes(it.topV, 127)
	fillBytes(it.topModes, ModeDC)
	for i := range it.nz {
		it.nz[i] = 0
	}
	it.BitCount = [NumMBSegments][3]int{}
	it.initLeft()
}

func (it *Iterator) initLeft() {
	for i := range it.leftY {
		it.leftY[i] = 129
	}
	for i := range it.leftU {
		it.leftU[i] = 129
		it.leftV[i] = 129
	}
	c := uint8(127)
	if it.Y > 0 {
		c = 129
	}
	it.cornerY, it.cornerU, it.cornerV = c, c, c
	it.leftModes = [4]uint8{}
	it.leftNz[8] = 0
}

// Next moves to the next macroblock and reports false once the last one has
// been passed. Calling Next again after that is a programming error.
func (it *Iterator) Next() bool {
	if it.done {
		panic("lossy: Next on exhausted macroblock iterator")
	}
	it.X++
	if it.X == it.mbW {
		it.X = 0
		it.Y++
		if it.Y == it.mbH {
			it.done = true
			return false
		}
		it.initLeft()
	}
	return true
}

// Done reports whether every macroblock has been visited.
func (it *Iterator) Done() bool { return it.done }

// Import copies the current macroblock into yuvIn. Columns and rows past the
// picture edge repeat the last valid sample. It returns the number of valid
// luma columns and rows.
func (it *Iterator) Import() (w, h int) {
	pic := it.pic
	x, y := it.X*16, it.Y*16
	w = min(pic.Width-x, 16)
	h = min(pic.Height-y, 16)
	importBlock(pic.Y, pic.YStride, it.yuvIn, YOff, x, y, w, h, 16)

	uvW, uvH := (w+1)>>1, (h+1)>>1
	importBlock(pic.U, pic.UVStride, it.yuvIn, UOff, x>>1, y>>1, uvW, uvH, 8)
	importBlock(pic.V, pic.UVStride, it.yuvIn, VOff, x>>1, y>>1, uvW, uvH, 8)
	return w, h
}

// importBlock copies a w x h region of src into the size x size block of dst
// at dstOff and pads it by replicating the last column and row.
func importBlock(src []byte, srcStride int, dst []byte, dstOff, srcX, srcY, w, h, size int) {
	for j := 0; j < h; j++ {
		s := (srcY+j)*srcStride + srcX
		d := dstOff + j*dsp.BPS
		copy(dst[d:d+w], src[s:s+w])
		fillBytes(dst[d+w:d+size], dst[d+w-1])
	}
	last := dstOff + (h-1)*dsp.BPS
	for j := h; j < size; j++ {
		d := dstOff + j*dsp.BPS
		copy(dst[d:d+size], dst[last:last+size])
	}
}

// FillPredContext writes the neighbour pixels of the current macroblock
// around the luma and chroma blocks of both reconstruction buffers.
func (it *Iterator) FillPredContext() {
	const bps = dsp.BPS
	out := it.yuvOut
	x := it.X

	if it.Y > 0 {
		copy(out[YOff-bps:YOff-bps+16], it.topY[x*16:x*16+16])
		copy(out[UOff-bps:UOff-bps+8], it.topU[x*8:x*8+8])
		copy(out[VOff-bps:VOff-bps+8], it.topV[x*8:x*8+8])
		if x < it.mbW-1 {
			copy(out[YOff-bps+16:YOff-bps+20], it.topY[x*16+16:x*16+20])
		} else {
			fillBytes(out[YOff-bps+16:YOff-bps+20], it.topY[x*16+15])
		}
	} else {
		fillBytes(out[YOff-bps:YOff-bps+20], 127)
		fillBytes(out[UOff-bps:UOff-bps+8], 127)
		fillBytes(out[VOff-bps:VOff-bps+8], 127)
	}
	for r := 1; r <= 3; r++ {
		o := YOff - bps + 16 + r*4*bps
		copy(out[o:o+4], out[YOff-bps+16:YOff-bps+20])
	}

	out[YOff-bps-1] = it.cornerY
	out[UOff-bps-1] = it.cornerU
	out[VOff-bps-1] = it.cornerV
	for j := 0; j < 16; j++ {
		out[YOff-1+j*bps] = it.leftY[j]
	}
	for j := 0; j < 8; j++ {
		out[UOff-1+j*bps] = it.leftU[j]
		out[VOff-1+j*bps] = it.leftV[j]
	}
	copy(it.yuvOut2, out)
}

// SaveBoundary stores the right column and bottom row of the reconstructed
// macroblock in yuvOut as context for the following macroblocks.
func (it *Iterator) SaveBoundary() {
	const bps = dsp.BPS
	out := it.yuvOut
	x := it.X

	// The old top row becomes the corner of the next macroblock.
	if it.Y > 0 {
		it.cornerY = it.topY[x*16+15]
		it.cornerU = it.topU[x*8+7]
		it.cornerV = it.topV[x*8+7]
	} else {
		it.cornerY, it.cornerU, it.cornerV = 127, 127, 127
	}
	for j := 0; j < 16; j++ {
		it.leftY[j] = out[YOff+15+j*bps]
	}
	for j := 0; j < 8; j++ {
		it.leftU[j] = out[UOff+7+j*bps]
		it.leftV[j] = out[VOff+7+j*bps]
	}
	copy(it.topY[x*16:x*16+16], out[YOff+15*bps:YOff+15*bps+16])
	copy(it.topU[x*8:x*8+8], out[UOff+7*bps:UOff+7*bps+8])
	copy(it.topV[x*8:x*8+8], out[VOff+7*bps:VOff+7*bps+8])
}

func (it *Iterator) swapOut() {
	it.yuvOut, it.yuvOut2 = it.yuvOut2, it.yuvOut
}

// TopModes returns the 4x4 modes of the bottom row of the macroblock above.
func (it *Iterator) TopModes() []uint8 { return it.topModes[it.X*4 : it.X*4+4] }

// LeftModes returns the 4x4 modes of the right column of the left macroblock.
func (it *Iterator) LeftModes() *[4]uint8 { return &it.leftModes }

// SaveModes records the modes of the current macroblock as context. For a
// 16x16 macroblock the single mode stands for all sixteen blocks.
func (it *Iterator) SaveModes(info *MBInfo) {
	top := it.TopModes()
	if info.I16 {
		fillBytes(top, info.Modes[0])
		fillBytes(it.leftModes[:], info.Modes[0])
		return
	}
	copy(top, info.Modes[12:16])
	for j := 0; j < 4; j++ {
		it.leftModes[j] = info.Modes[j*4+3]
	}
}

// Non-zero summary layout: bits 0-15 luma blocks in raster order, 16-19 U,
// 20-23 V, 24 the luma DC (Y2) block.
func bit(nz uint32, n uint) int { return int(nz>>n) & 1 }

// NzToFlags unpacks the summaries of the top and left neighbours into the
// per-block flags read by the residual coder. The left Y2 flag is kept in
// leftNz[8] for the whole row.
func (it *Iterator) NzToFlags() {
	tnz, lnz := it.nz[1+it.X], it.nz[it.X]
	it.topNz[0] = bit(tnz, 12)
	it.topNz[1] = bit(tnz, 13)
	it.topNz[2] = bit(tnz, 14)
	it.topNz[3] = bit(tnz, 15)
	it.topNz[4] = bit(tnz, 18)
	it.topNz[5] = bit(tnz, 19)
	it.topNz[6] = bit(tnz, 22)
	it.topNz[7] = bit(tnz, 23)
	it.topNz[8] = bit(tnz, 24)

	it.leftNz[0] = bit(lnz, 3)
	it.leftNz[1] = bit(lnz, 7)
	it.leftNz[2] = bit(lnz, 11)
	it.leftNz[3] = bit(lnz, 15)
	it.leftNz[4] = bit(lnz, 17)
	it.leftNz[5] = bit(lnz, 19)
	it.leftNz[6] = bit(lnz, 21)
	it.leftNz[7] = bit(lnz, 23)
}

// FlagsToNz packs the flags left by the residual coder back into the summary
// of the current macroblock. Only the flags of the bottom row and right
// column survive; they are all the neighbours need.
func (it *Iterator) FlagsToNz() {
	t, l := &it.topNz, &it.leftNz
	nz := uint32(t[0])<<12 | uint32(t[1])<<13 | uint32(t[2])<<14 | uint32(t[3])<<15
	nz |= uint32(t[4])<<18 | uint32(t[5])<<19
	nz |= uint32(t[6])<<22 | uint32(t[7])<<23
	nz |= uint32(t[8]) << 24
	nz |= uint32(l[0])<<3 | uint32(l[1])<<7 | uint32(l[2])<<11
	nz |= uint32(l[4])<<17 | uint32(l[6])<<21
	it.nz[1+it.X] = nz
}

// Nz returns the summary of the current macroblock.
func (it *Iterator) Nz() uint32 { return it.nz[1+it.X] }

// SkipNz resets the summary after a macroblock coded without residuals. A
// 16x16 macroblock clears everything including the Y2 flags; a 4x4 one keeps
// the Y2 flag inherited from above.
func (it *Iterator) SkipNz(i16 bool) {
	if i16 {
		it.nz[1+it.X] = 0
		it.leftNz[8] = 0
	} else {
		it.nz[1+it.X] &= 1 << 24
	}
}

// AddBits accumulates n bits (in 1/256 units) of the given kind for
// segment seg.
func (it *Iterator) AddBits(seg, kind, n int) {
	it.BitCount[seg][kind] += n
}

func fillBytes(b []byte, v uint8) {
	for i := range b {
		b[i] = v
	}
}
