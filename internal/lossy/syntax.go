package lossy

import (
	"github.com/pkg/errors"

	"github.com/deepteams/vp8enc/internal/bitio"
)

const (
	maxPart0Size     = 1<<19 - 1 // 19-bit size field of the frame tag
	maxPartitionSize = 1 << 24   // 24-bit partition size fields
	frameHeaderSize  = 10        // tag, start code, width and height
)

// walkResiduals feeds the blocks of info to code in bitstream order (Y2,
// luma, U, V) and keeps the non-zero flags of it up to date.
func walkResiduals(it *Iterator, info *MBInfo, code func(r *Residual, ctx int) int) {
	var r Residual
	first, typ := 0, TypeI4
	if info.I16 {
		r.Init(0, TypeI16DC, &info.YDC)
		nz := code(&r, it.topNz[8]+it.leftNz[8])
		it.topNz[8], it.leftNz[8] = nz, nz
		first, typ = 1, TypeI16AC
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r.Init(first, typ, &info.YAC[y*4+x])
			nz := code(&r, it.topNz[x]+it.leftNz[y])
			it.topNz[x], it.leftNz[y] = nz, nz
		}
	}
	for ch := 0; ch <= 2; ch += 2 {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				r.Init(0, TypeChroma, &info.UV[ch*2+y*2+x])
				nz := code(&r, it.topNz[4+ch+x]+it.leftNz[4+ch+y])
				it.topNz[4+ch+x], it.leftNz[4+ch+y] = nz, nz
			}
		}
	}
}

// putFrameHeader writes the part of partition 0 that precedes the
// probability updates.
func (e *Encoder) putFrameHeader(bw *bitio.BoolWriter) {
	bw.PutBitUniform(0) // colour space
	bw.PutBitUniform(0) // clamping type
	e.putSegmentHeader(bw)
	e.putFilterHeader(bw)
	bw.PutBits(uint32(log2Parts(e.numParts)), 2)
	e.putQuant(bw)
	bw.PutBitUniform(0) // no refresh of the entropy probabilities
}

func (e *Encoder) putSegmentHeader(bw *bitio.BoolWriter) {
	if bw.PutBitUniform(boolInt(e.activeSegs > 1)) == 0 {
		return
	}
	bw.PutBitUniform(boolInt(e.updateMap))
	bw.PutBitUniform(1) // update segment data
	bw.PutBitUniform(1) // absolute values
	for s := 0; s < NumMBSegments; s++ {
		bw.PutSignedBits(e.segs[s].Quant, 7)
	}
	for s := 0; s < NumMBSegments; s++ {
		bw.PutSignedBits(e.segs[s].FStrength, 6)
	}
	if e.updateMap {
		for _, p := range e.proba.Segments {
			if bw.PutBitUniform(boolInt(p != 255)) != 0 {
				bw.PutBits(uint32(p), 8)
			}
		}
	}
}

func (e *Encoder) putFilterHeader(bw *bitio.BoolWriter) {
	bw.PutBitUniform(boolInt(e.filter.simple))
	bw.PutBits(uint32(e.filter.level), 6)
	bw.PutBits(uint32(e.filter.sharpness), 3)
	bw.PutBitUniform(0) // no mode or reference deltas
}

func (e *Encoder) putQuant(bw *bitio.BoolWriter) {
	bw.PutBits(uint32(e.segs[0].Quant), 7)
	d := e.deltas
	for _, v := range [...]int{d.y1DC, d.y2DC, d.y2AC, d.uvDC, d.uvAC} {
		bw.PutSignedBits(v, 4)
	}
}

// putProbas writes the coefficient probability updates against the default
// tables and the skip probability.
func (e *Encoder) putProbas(bw *bitio.BoolWriter) {
	for t := 0; t < NumTypes; t++ {
		for b := 0; b < NumBands; b++ {
			for c := 0; c < NumCtx; c++ {
				for i := 0; i < NumProbas; i++ {
					p := e.proba.Coeffs[t][b][c][i]
					update := p != CoeffsProba0[t][b][c][i]
					if bw.PutBit(boolInt(update), int(CoeffsUpdateProba[t][b][c][i])) != 0 {
						bw.PutBits(uint32(p), 8)
					}
				}
			}
		}
	}
	if bw.PutBitUniform(boolInt(e.proba.UseSkipProba)) != 0 {
		bw.PutBits(uint32(e.proba.SkipProba), 8)
	}
}

// putMBHeader writes the segment id, skip flag and modes of the current
// macroblock.
func (e *Encoder) putMBHeader(bw *bitio.BoolWriter, it *Iterator, info *MBInfo) {
	if e.updateMap {
		s := int(info.Segment)
		bw.PutBit(s>>1, int(e.proba.Segments[0]))
		if s < 2 {
			bw.PutBit(s&1, int(e.proba.Segments[1]))
		} else {
			bw.PutBit(s&1, int(e.proba.Segments[2]))
		}
	}
	if e.proba.UseSkipProba {
		bw.PutBit(boolInt(info.Skip), int(e.proba.SkipProba))
	}
	c := boolCoder{bw}
	if info.I16 {
		putI16Mode(c, info.Modes[0])
	} else {
		c.put(0, probIsI4)
		top := it.TopModes()
		left := it.LeftModes()
		var modes [4]uint8
		copy(modes[:], top)
		for y := 0; y < 4; y++ {
			l := left[y]
			for x := 0; x < 4; x++ {
				m := info.Modes[y*4+x]
				putI4Mode(c, m, &kBModesProba[modes[x]][l])
				modes[x], l = m, m
			}
		}
	}
	putUVMode(c, info.UVMode)
}

// headerSize returns the size in bytes of the fixed frame header fields,
// which do not depend on the macroblock data.
func (e *Encoder) headerSize() int {
	bw := bitio.NewBoolWriter(0)
	defer bw.Release()
	e.putFrameHeader(bw)
	return len(bw.Finish())
}

// emit writes the complete VP8 frame from the decisions of the last pass.
func (e *Encoder) emit() ([]byte, error) {
	it := e.it
	it.Reset()

	bw0 := bitio.NewBoolWriter(len(e.mbInfo) * 4)
	defer bw0.Release()
	e.putFrameHeader(bw0)
	e.putProbas(bw0)

	parts := make([]*bitio.BoolWriter, e.numParts)
	for i := range parts {
		parts[i] = bitio.NewBoolWriter(len(e.mbInfo) * 64 / e.numParts)
		parts[i].SetLimit(maxPartitionSize)
		defer parts[i].Release()
	}

	for {
		info := &e.mbInfo[it.Index()]
		e.putMBHeader(bw0, it, info)
		bw := parts[it.Y&(e.numParts-1)]
		it.NzToFlags()
		if info.Skip && e.proba.UseSkipProba {
			it.SkipNz(info.I16)
		} else {
			walkResiduals(it, info, func(r *Residual, ctx int) int {
				return CodeBlock(bw, r, ctx, &e.proba.Coeffs)
			})
			it.FlagsToNz()
		}
		it.SaveModes(info)
		if !it.Next() {
			break
		}
	}

	p0 := bw0.Finish()
	if err := bw0.Err(); err != nil {
		return nil, errors.Wrap(err, "partition 0")
	}
	if len(p0) > maxPart0Size {
		return nil, errors.Wrapf(ErrStructuralLimit, "partition 0 is %d bytes", len(p0))
	}
	size := frameHeaderSize + len(p0) + 3*(e.numParts-1)
	tokens := make([][]byte, e.numParts)
	for i, bw := range parts {
		tokens[i] = bw.Finish()
		if err := bw.Err(); err != nil {
			return nil, errors.Wrapf(err, "token partition %d", i)
		}
		size += len(tokens[i])
	}

	out := make([]byte, 0, size)
	tag := 1<<4 | len(p0)<<5 // key frame, version 0, shown
	out = append(out, byte(tag), byte(tag>>8), byte(tag>>16))
	out = append(out, 0x9d, 0x01, 0x2a)
	out = append(out, byte(e.pic.Width), byte(e.pic.Width>>8))
	out = append(out, byte(e.pic.Height), byte(e.pic.Height>>8))
	out = append(out, p0...)
	for _, t := range tokens[:e.numParts-1] {
		n := len(t)
		out = append(out, byte(n), byte(n>>8), byte(n>>16))
	}
	for _, t := range tokens {
		out = append(out, t...)
	}
	return out, nil
}

func log2Parts(n int) int {
	switch n {
	case 8:
		return 3
	case 4:
		return 2
	case 2:
		return 1
	}
	return 0
}
