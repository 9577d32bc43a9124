// Package bitio implements the VP8 boolean entropy coder.
package bitio

// BoolReader decodes a stream produced by BoolWriter. The encoder only needs
// it to verify its own output, so it favours clarity over throughput and
// consumes one byte at a time.
type BoolReader struct {
	data     []byte
	pos      int
	value    uint32 // two-byte window; the top byte is compared against split
	range_   uint32 // current range in [128, 255]
	bitCount int    // bits shifted out of the window since the last byte load
	eof      bool
}

// NewBoolReader creates a BoolReader over data.
func NewBoolReader(data []byte) *BoolReader {
	br := &BoolReader{data: data, range_: 255}
	br.value = uint32(br.next())<<8 | uint32(br.next())
	return br
}

func (br *BoolReader) next() byte {
	if br.pos >= len(br.data) {
		br.eof = true
		br.pos++
		return 0
	}
	b := br.data[br.pos]
	br.pos++
	return b
}

// GetBit decodes one boolean symbol whose probability of being zero is prob/256.
func (br *BoolReader) GetBit(prob uint8) int {
	split := 1 + (((br.range_ - 1) * uint32(prob)) >> 8)
	bigSplit := split << 8
	bit := 0
	if br.value >= bigSplit {
		bit = 1
		br.range_ -= split
		br.value -= bigSplit
	} else {
		br.range_ = split
	}
	for br.range_ < 128 {
		br.value <<= 1
		br.range_ <<= 1
		br.bitCount++
		if br.bitCount == 8 {
			br.bitCount = 0
			br.value |= uint32(br.next())
		}
	}
	return bit
}

// GetValue reads an nbBits unsigned literal, most significant bit first.
func (br *BoolReader) GetValue(nbBits int) uint32 {
	var v uint32
	for ; nbBits > 0; nbBits-- {
		v = v<<1 | uint32(br.GetBit(0x80))
	}
	return v
}

// GetSignedValue reads an nbBits magnitude followed by a sign bit.
func (br *BoolReader) GetSignedValue(nbBits int) int32 {
	v := int32(br.GetValue(nbBits))
	if br.GetBit(0x80) != 0 {
		return -v
	}
	return v
}

// GetOptionalSigned mirrors BoolWriter.PutSignedBits: a presence flag and,
// when set, a signed nbBits value.
func (br *BoolReader) GetOptionalSigned(nbBits int) int32 {
	if br.GetBit(0x80) == 0 {
		return 0
	}
	return br.GetSignedValue(nbBits)
}

// EOF reports whether the reader needed bytes past the end of its input.
func (br *BoolReader) EOF() bool {
	return br.eof
}
