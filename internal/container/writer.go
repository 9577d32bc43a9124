package container

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// SimpleSize returns the size of a simple-format file around a VP8 frame of
// n bytes.
func SimpleSize(n int) int {
	return RIFFHeaderSize + ChunkHeaderSize + int(PaddedSize(uint32(n)))
}

// WriteSimple wraps a VP8 key frame in "RIFF size WEBP VP8 size" and writes
// it to w, padding the payload to an even length.
func WriteSimple(w io.Writer, vp8 []byte) error {
	if uint64(len(vp8)) > uint64(MaxChunkPayload)-TagSize-ChunkHeaderSize-1 {
		return ErrTooLarge
	}
	padded := PaddedSize(uint32(len(vp8)))

	var hdr [RIFFHeaderSize + ChunkHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], FourCCRIFF)
	binary.LittleEndian.PutUint32(hdr[4:8], TagSize+ChunkHeaderSize+padded)
	binary.LittleEndian.PutUint32(hdr[8:12], FourCCWEBP)
	binary.LittleEndian.PutUint32(hdr[12:16], FourCCVP8)
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(len(vp8)))

	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "webp: writing header")
	}
	if _, err := w.Write(vp8); err != nil {
		return errors.Wrap(err, "webp: writing VP8 chunk")
	}
	if padded != uint32(len(vp8)) {
		if _, err := w.Write([]byte{0}); err != nil {
			return errors.Wrap(err, "webp: writing padding")
		}
	}
	return nil
}
