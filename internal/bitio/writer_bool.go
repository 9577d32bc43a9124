package bitio

import (
	"github.com/pkg/errors"

	"github.com/deepteams/vp8enc/internal/pool"
)

// ErrAllocation is recorded by a BoolWriter whose output buffer could not
// grow, either because the configured limit was reached or because the
// allocation itself failed.
var ErrAllocation = errors.New("bitio: output buffer allocation failed")

type writerState uint8

const (
	stateEmpty writerState = iota
	stateWriting
	stateFinished
)

// BoolWriter implements the VP8 boolean (arithmetic) encoder.
//
// Symbols are encoded by narrowing a probability-weighted interval; whenever
// the interval drops below 127 it is renormalised and the shifted-out bits
// are accumulated until a whole byte can be emitted. A byte of 0xff cannot be
// written immediately because a later carry may still ripple into it, so
// such bytes are counted in run and written once the carry is resolved.
//
// A writer moves through three states: Empty until the first symbol,
// Writing while symbols are added, and Finished after Finish. Putting a
// symbol into a finished writer is a programming error and panics.
type BoolWriter struct {
	range_ int32 // current range minus one, kept in [127, 254]
	value  int32 // pending low bits of the interval
	run    int   // number of buffered 0xff bytes awaiting carry resolution
	nbBits int   // pending bit count; a byte is flushed when it turns positive
	buf    []byte
	pos    int
	limit  int
	err    error
	state  writerState
	out    []byte
}

// NewBoolWriter creates a BoolWriter whose buffer is pre-sized for
// expectedSize bytes. Pass 0 for a small default allocation.
func NewBoolWriter(expectedSize int) *BoolWriter {
	bw := &BoolWriter{}
	bw.Reset(expectedSize)
	return bw
}

// Reset rewinds the writer to the Empty state. The current buffer is kept
// when it is large enough for expectedSize bytes.
func (bw *BoolWriter) Reset(expectedSize int) {
	if expectedSize < pool.Size1K {
		expectedSize = pool.Size1K
	}
	if len(bw.buf) < expectedSize {
		if bw.buf != nil {
			pool.Put(bw.buf)
		}
		bw.buf = pool.Get(expectedSize)
	}
	bw.range_ = 255 - 1
	bw.value = 0
	bw.run = 0
	bw.nbBits = -8
	bw.pos = 0
	bw.err = nil
	bw.state = stateEmpty
	bw.out = nil
}

// SetLimit caps the output at n bytes. Writing beyond the cap records
// ErrAllocation instead of growing the buffer. Zero removes the cap.
func (bw *BoolWriter) SetLimit(n int) {
	bw.limit = n
}

// Release hands the buffer back to the shared pool. Slices returned by
// Finish or Bytes must not be used afterwards.
func (bw *BoolWriter) Release() {
	if bw.buf != nil {
		pool.Put(bw.buf)
	}
	bw.buf = nil
	bw.out = nil
	bw.pos = 0
}

func (bw *BoolWriter) begin() {
	switch bw.state {
	case stateEmpty:
		bw.state = stateWriting
	case stateFinished:
		panic("bitio: write to finished BoolWriter")
	}
}

// PutBit encodes a single boolean symbol. prob is the probability of a zero
// in 1/256 units and must lie in [1, 255]. It returns bit unchanged so the
// call can drive the caller's control flow.
func (bw *BoolWriter) PutBit(bit int, prob int) int {
	bw.begin()
	split := (bw.range_ * int32(prob)) >> 8
	if bit != 0 {
		bw.value += split + 1
		bw.range_ -= split + 1
	} else {
		bw.range_ = split
	}
	if bw.range_ < 127 {
		shift := kNorm[bw.range_]
		bw.range_ = int32(kNewRange[bw.range_])
		bw.value <<= shift
		bw.nbBits += int(shift)
		if bw.nbBits > 0 {
			bw.flush()
		}
	}
	return bit
}

// PutBitUniform encodes a single boolean symbol with probability 128.
func (bw *BoolWriter) PutBitUniform(bit int) int {
	bw.begin()
	split := bw.range_ >> 1
	if bit != 0 {
		bw.value += split + 1
		bw.range_ -= split + 1
	} else {
		bw.range_ = split
	}
	if bw.range_ < 127 {
		bw.range_ = int32(kNewRange[bw.range_])
		bw.value <<= 1
		bw.nbBits++
		if bw.nbBits > 0 {
			bw.flush()
		}
	}
	return bit
}

// PutBits encodes the low nbBits of value, most significant bit first, each
// with uniform probability.
func (bw *BoolWriter) PutBits(value uint32, nbBits int) {
	for mask := uint32(1) << uint(nbBits-1); mask != 0; mask >>= 1 {
		bw.PutBitUniform(boolToInt(value&mask != 0))
	}
}

// PutSignedBits encodes an optional signed value: a presence flag, then
// the magnitude in nbBits and finally the sign. A zero value costs only
// the flag.
func (bw *BoolWriter) PutSignedBits(value int, nbBits int) {
	if bw.PutBitUniform(boolToInt(value != 0)) == 0 {
		return
	}
	if value < 0 {
		bw.PutBits(uint32(-value)<<1|1, nbBits+1)
	} else {
		bw.PutBits(uint32(value)<<1, nbBits+1)
	}
}

// grow makes room for n more bytes, doubling the buffer as needed.
func (bw *BoolWriter) grow(n int) bool {
	if bw.err != nil {
		return false
	}
	need := bw.pos + n
	if bw.limit > 0 && need > bw.limit {
		bw.err = errors.Wrapf(ErrAllocation, "limit of %d bytes reached", bw.limit)
		return false
	}
	if need <= len(bw.buf) {
		return true
	}
	size := 2 * len(bw.buf)
	if size < need {
		size = need
	}
	if bw.limit > 0 && size > bw.limit {
		size = bw.limit
	}
	nb := pool.Get(size)
	if len(nb) < need {
		bw.err = ErrAllocation
		return false
	}
	copy(nb, bw.buf[:bw.pos])
	pool.Put(bw.buf)
	bw.buf = nb
	return true
}

// flush emits one byte from the value register, resolving any carry into
// the last written byte and the pending run of 0xff bytes.
func (bw *BoolWriter) flush() {
	s := 8 + bw.nbBits
	bits := bw.value >> uint(s)
	bw.value -= bits << uint(s)
	bw.nbBits -= 8
	if bits&0xff == 0xff {
		bw.run++
		return
	}
	if !bw.grow(bw.run + 1) {
		return
	}
	carry := bits&0x100 != 0
	if carry && bw.pos > 0 {
		bw.buf[bw.pos-1]++
	}
	pending := byte(0xff)
	if carry {
		pending = 0x00
	}
	for ; bw.run > 0; bw.run-- {
		bw.buf[bw.pos] = pending
		bw.pos++
	}
	bw.buf[bw.pos] = byte(bits)
	bw.pos++
}

// Finish pads the stream, flushes every pending byte and returns the
// encoded bytes. Later calls return the same slice without touching the
// writer. Check Err afterwards for allocation failures.
func (bw *BoolWriter) Finish() []byte {
	if bw.state == stateFinished {
		return bw.out
	}
	bw.PutBits(0, 9-bw.nbBits)
	bw.nbBits = 0
	bw.flush()
	bw.state = stateFinished
	bw.out = bw.buf[:bw.pos:bw.pos]
	return bw.out
}

// Finished reports whether Finish has been called.
func (bw *BoolWriter) Finished() bool {
	return bw.state == stateFinished
}

// Bytes returns the bytes emitted so far. Pending 0xff runs and bits still
// in the value register are not included until Finish.
func (bw *BoolWriter) Bytes() []byte {
	return bw.buf[:bw.pos]
}

// Err returns the first error recorded while writing.
func (bw *BoolWriter) Err() error {
	return bw.err
}

// Pos returns the number of bits written so far, including pending ones.
func (bw *BoolWriter) Pos() uint64 {
	nb := uint64(8 + bw.nbBits)
	return uint64(bw.pos+bw.run)*8 + nb
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// kNorm maps a range below 127 to the left shift that brings it back
// into [127, 254].
var kNorm = [128]uint8{
	7, 6, 6, 5, 5, 5, 5, 4, 4, 4, 4, 4, 4, 4, 4, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0,
}

// kNewRange is ((range + 1) << kNorm[range]) - 1.
var kNewRange = [128]uint8{
	127, 127, 191, 127, 159, 191, 223, 127, 143, 159, 175, 191, 207, 223, 239,
	127, 135, 143, 151, 159, 167, 175, 183, 191, 199, 207, 215, 223, 231, 239,
	247, 127, 131, 135, 139, 143, 147, 151, 155, 159, 163, 167, 171, 175, 179,
	183, 187, 191, 195, 199, 203, 207, 211, 215, 219, 223, 227, 231, 235, 239,
	243, 247, 251, 127, 129, 131, 133, 135, 137, 139, 141, 143, 145, 147, 149,
	151, 153, 155, 157, 159, 161, 163, 165, 167, 169, 171, 173, 175, 177, 179,
	181, 183, 185, 187, 189, 191, 193, 195, 197, 199, 201, 203, 205, 207, 209,
	211, 213, 215, 217, 219, 221, 223, 225, 227, 229, 231, 233, 235, 237, 239,
	241, 243, 245, 247, 249, 251, 253, 127,
}
