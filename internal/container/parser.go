package container

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// FrameHeader holds the uncompressed data chunk at the start of a VP8 frame.
type FrameHeader struct {
	KeyFrame  bool
	Version   int
	ShowFrame bool
	Part0Size int // length of the first partition in bytes
	Width     int
	Height    int
	XScale    int // upscaling hints, 2 bits each
	YScale    int
}

// ParseFrameHeader extracts the frame header of a VP8 key frame.
func ParseFrameHeader(data []byte) (FrameHeader, error) {
	if len(data) < VP8FrameHeaderSize {
		return FrameHeader{}, ErrTruncated
	}

	// First 3 bytes: frame tag (keyframe info, version, show, partition size).
	tag := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
	fh := FrameHeader{
		KeyFrame:  tag&1 == 0,
		Version:   int(tag>>1) & 7,
		ShowFrame: tag>>4&1 != 0,
		Part0Size: int(tag >> 5),
	}
	if !fh.KeyFrame {
		return fh, errors.Wrap(ErrUnsupported, "VP8 inter frame")
	}

	// Bytes 3-5: start code, read as big-endian.
	sig := uint32(data[3])<<16 | uint32(data[4])<<8 | uint32(data[5])
	if sig != VP8Signature {
		return fh, errors.Wrapf(ErrInvalidFrame, "start code 0x%06x", sig)
	}

	w := binary.LittleEndian.Uint16(data[6:8])
	h := binary.LittleEndian.Uint16(data[8:10])
	fh.Width, fh.XScale = int(w&0x3fff), int(w>>14)
	fh.Height, fh.YScale = int(h&0x3fff), int(h>>14)
	if fh.Width == 0 || fh.Height == 0 {
		return fh, ErrInvalidImage
	}
	if VP8FrameHeaderSize+fh.Part0Size > len(data) {
		return fh, errors.Wrapf(ErrTruncated, "partition 0 of %d bytes", fh.Part0Size)
	}
	return fh, nil
}

// Simple is a parsed simple-format lossy file.
type Simple struct {
	FileSize uint32 // as declared by the RIFF header
	Header   FrameHeader
	Payload  []byte // the VP8 frame, aliasing the input
	Extra    []Chunk
}

// ParseSimple parses a simple-format file whose first chunk is "VP8 ".
// Chunks after the frame are returned in Extra.
func ParseSimple(data []byte) (*Simple, error) {
	hdr, _, err := ParseRIFFHeader(data)
	if err != nil {
		return nil, err
	}
	chunks, err := Chunks(data)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrTruncated
	}
	if first := chunks[0].FourCC; first != FourCCVP8 {
		return nil, errors.Wrapf(ErrUnsupported, "first chunk %q", FourCCString(first))
	}

	fh, err := ParseFrameHeader(chunks[0].Payload)
	if err != nil {
		return nil, err
	}
	return &Simple{
		FileSize: hdr.FileSize,
		Header:   fh,
		Payload:  chunks[0].Payload,
		Extra:    chunks[1:],
	}, nil
}
