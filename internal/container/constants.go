// Package container reads and writes the WebP RIFF container around a lossy
// VP8 key frame.
package container

// FourCC creates a FourCC value from four bytes (little-endian).
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Container FourCC values.
var (
	FourCCRIFF = FourCC('R', 'I', 'F', 'F')
	FourCCWEBP = FourCC('W', 'E', 'B', 'P')
	FourCCVP8  = FourCC('V', 'P', '8', ' ')
	FourCCVP8L = FourCC('V', 'P', '8', 'L')
	FourCCVP8X = FourCC('V', 'P', '8', 'X')
	FourCCALPH = FourCC('A', 'L', 'P', 'H')
)

// VP8 format constants.
const (
	VP8Signature        = 0x9d012a // start code of a key frame
	VP8MaxPartition0    = 1 << 19  // max size of mode partition
	VP8MaxPartitionSize = 1 << 24  // max size for token partition
	VP8FrameHeaderSize  = 10       // frame tag, start code and dimensions
	VP8MaxDimension     = 1<<14 - 1
)

// Container structure sizes.
const (
	TagSize         = 4  // Size of a chunk tag (e.g. "VP8 ")
	ChunkHeaderSize = 8  // Size of a chunk header
	RIFFHeaderSize  = 12 // Size of the RIFF header ("RIFFnnnnWEBP")
)

// MaxChunkPayload is the largest payload a RIFF chunk can declare.
const MaxChunkPayload = ^uint32(0) - ChunkHeaderSize - 1
