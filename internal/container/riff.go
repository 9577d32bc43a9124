package container

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Common errors.
var (
	ErrInvalidRIFF  = errors.New("webp: invalid RIFF header")
	ErrInvalidWebP  = errors.New("webp: invalid WEBP signature")
	ErrTruncated    = errors.New("webp: truncated data")
	ErrTooLarge     = errors.New("webp: file too large")
	ErrUnsupported  = errors.New("webp: unsupported format")
	ErrInvalidImage = errors.New("webp: invalid image dimensions")
	ErrInvalidFrame = errors.New("webp: invalid VP8 frame header")
)

// Chunk represents a single RIFF chunk with its FourCC tag and payload.
type Chunk struct {
	FourCC  uint32
	Offset  int // of the chunk header within the file
	Payload []byte
}

// RIFFHeader holds the parsed RIFF container header.
type RIFFHeader struct {
	FileSize uint32 // total RIFF file size (excluding 8-byte RIFF header)
}

// ParseRIFFHeader validates and parses the 12-byte RIFF/WEBP header from data.
// Returns the header and the number of bytes consumed.
func ParseRIFFHeader(data []byte) (RIFFHeader, int, error) {
	if len(data) < RIFFHeaderSize {
		return RIFFHeader{}, 0, ErrTruncated
	}
	if binary.LittleEndian.Uint32(data[0:4]) != FourCCRIFF {
		return RIFFHeader{}, 0, ErrInvalidRIFF
	}

	fileSize := binary.LittleEndian.Uint32(data[4:8])
	if fileSize < TagSize+ChunkHeaderSize {
		return RIFFHeader{}, 0, ErrInvalidRIFF
	}
	if fileSize > MaxChunkPayload {
		return RIFFHeader{}, 0, ErrTooLarge
	}
	if binary.LittleEndian.Uint32(data[8:12]) != FourCCWEBP {
		return RIFFHeader{}, 0, ErrInvalidWebP
	}
	return RIFFHeader{FileSize: fileSize}, RIFFHeaderSize, nil
}

// ReadChunkHeader reads a chunk's FourCC tag and payload size from data.
func ReadChunkHeader(data []byte) (fourcc uint32, payloadSize uint32, err error) {
	if len(data) < ChunkHeaderSize {
		return 0, 0, ErrTruncated
	}
	fourcc = binary.LittleEndian.Uint32(data[0:4])
	payloadSize = binary.LittleEndian.Uint32(data[4:8])
	if payloadSize > MaxChunkPayload {
		return 0, 0, ErrTooLarge
	}
	return fourcc, payloadSize, nil
}

// PaddedSize returns the payload size padded to an even number of bytes,
// as required by the RIFF format.
func PaddedSize(size uint32) uint32 {
	return size + (size & 1)
}

// FourCCString returns a human-readable string for a FourCC value.
func FourCCString(fourcc uint32) string {
	b := [4]byte{
		byte(fourcc),
		byte(fourcc >> 8),
		byte(fourcc >> 16),
		byte(fourcc >> 24),
	}
	return string(b[:])
}

// Chunks lists the top-level chunks of a WebP file. Payloads alias data.
func Chunks(data []byte) ([]Chunk, error) {
	hdr, pos, err := ParseRIFFHeader(data)
	if err != nil {
		return nil, err
	}
	// Limit parsing to the declared RIFF size.
	end := min(int(hdr.FileSize)+ChunkHeaderSize, len(data))

	var chunks []Chunk
	for pos < end {
		fourcc, size, err := ReadChunkHeader(data[pos:end])
		if err != nil {
			return chunks, errors.Wrapf(err, "chunk at offset %d", pos)
		}
		payloadEnd := pos + ChunkHeaderSize + int(size)
		if payloadEnd > end {
			return chunks, errors.Wrapf(ErrTruncated, "chunk %q at offset %d", FourCCString(fourcc), pos)
		}
		chunks = append(chunks, Chunk{FourCC: fourcc, Offset: pos, Payload: data[pos+ChunkHeaderSize : payloadEnd]})
		pos += ChunkHeaderSize + int(PaddedSize(size))
	}
	return chunks, nil
}
