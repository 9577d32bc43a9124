package vp8enc

import (
	"fmt"
	"log"
)

// Options controls encoding parameters.
type Options struct {
	// Quality is the compression quality (0-100, default 75). Lower means
	// smaller files with more artifacts.
	Quality float32

	// TargetSize sets a target output size in bytes (0 = use quality
	// instead). The encoder adjusts quality across passes to approach it.
	TargetSize int

	// TargetPSNR sets a target PSNR in dB (0 = disabled). Ignored when
	// TargetSize is set.
	TargetPSNR float32

	// Method controls encoding effort (0-6, default 4):
	//   0-1 = 16x16 prediction only, picked by distortion
	//   2-6 = 4x4 prediction tried as well, modes picked by
	//         rate-distortion cost
	Method int

	// SNSStrength controls spatial noise shaping (0-100, default 50).
	// Higher values move bits from busy areas to flat ones.
	// The value -1 is treated as 50.
	SNSStrength int

	// FilterStrength controls the deblocking loop filter (0-100, default
	// 60). The value -1 is treated as 60.
	FilterStrength int

	// FilterSharpness controls the sharpness of the loop filter (0-7,
	// default 0).
	FilterSharpness int

	// FilterType selects the loop filter (0 = simple, 1 = normal, default
	// 1). The value -1 is treated as 1.
	FilterType int

	// Partitions is the log2 of the number of token partitions (0-3,
	// default 0).
	Partitions int

	// Segments is the number of segments (1-4, default 4). The values 0
	// and -1 are treated as 4.
	Segments int

	// Pass is the number of analysis passes (1-10). The values 0 and -1
	// select 1 pass, or 6 when TargetSize or TargetPSNR is set.
	Pass int

	// QMin and QMax bound the quality explored by the rate control (0-100,
	// defaults 0 and 100). QMax 0 and -1 are treated as 100.
	QMin int
	QMax int

	// Progress, when set, is called with the overall percentage while
	// encoding. Returning false cancels the encode with ErrCanceled.
	Progress func(percent int) bool

	// Logger, when set, receives one line per rate control pass.
	Logger *log.Logger
}

// DefaultOptions returns encoding options with quality 75 and method 4.
// Sentinel values (-1) are used for fields where Go's zero value differs
// from the default, so that an uninitialized Options{} also produces
// sensible output.
func DefaultOptions() *Options {
	return &Options{
		Quality:         75,
		Method:          4,
		SNSStrength:     -1, // sentinel: treated as 50
		FilterStrength:  -1, // sentinel: treated as 60
		FilterSharpness: 0,
		FilterType:      -1, // sentinel: treated as 1 (normal)
		Partitions:      0,
		Segments:        -1, // sentinel: treated as 4
		Pass:            -1, // sentinel: 1, or 6 with a target
		QMin:            0,
		QMax:            -1, // sentinel: treated as 100
	}
}

// validateOptions returns an error describing the first invalid parameter.
// Negative values are valid sentinels for most int fields, so only the
// upper bound is checked for those.
func validateOptions(opts *Options) error {
	if opts.Quality < 0 || opts.Quality > 100 {
		return fmt.Errorf("vp8enc: invalid Quality %.2f (must be 0-100)", opts.Quality)
	}
	if opts.Method < 0 || opts.Method > 6 {
		return fmt.Errorf("vp8enc: invalid Method %d (must be 0-6)", opts.Method)
	}
	if opts.TargetSize < 0 {
		return fmt.Errorf("vp8enc: invalid TargetSize %d (must be >= 0)", opts.TargetSize)
	}
	if opts.TargetPSNR < 0 {
		return fmt.Errorf("vp8enc: invalid TargetPSNR %.2f (must be >= 0)", opts.TargetPSNR)
	}
	if opts.SNSStrength > 100 {
		return fmt.Errorf("vp8enc: invalid SNSStrength %d (must be 0-100 or -1)", opts.SNSStrength)
	}
	if opts.FilterStrength > 100 {
		return fmt.Errorf("vp8enc: invalid FilterStrength %d (must be 0-100 or -1)", opts.FilterStrength)
	}
	if opts.FilterSharpness < 0 || opts.FilterSharpness > 7 {
		return fmt.Errorf("vp8enc: invalid FilterSharpness %d (must be 0-7)", opts.FilterSharpness)
	}
	if opts.FilterType > 1 {
		return fmt.Errorf("vp8enc: invalid FilterType %d (must be 0 or 1, or -1)", opts.FilterType)
	}
	if opts.Partitions < 0 || opts.Partitions > 3 {
		return fmt.Errorf("vp8enc: invalid Partitions %d (must be 0-3)", opts.Partitions)
	}
	if opts.Segments > 4 {
		return fmt.Errorf("vp8enc: invalid Segments %d (must be 1-4 or 0/-1 for default)", opts.Segments)
	}
	if opts.Pass > 10 {
		return fmt.Errorf("vp8enc: invalid Pass %d (must be 1-10 or 0/-1 for default)", opts.Pass)
	}
	qmax := resolveQMax(opts.QMax)
	if opts.QMin < 0 || qmax > 100 || opts.QMin > qmax {
		return fmt.Errorf("vp8enc: invalid QMin/QMax %d/%d (must be 0-100, QMin <= QMax)", opts.QMin, opts.QMax)
	}
	return nil
}

// resolveSNSStrength maps negative values to 50.
func resolveSNSStrength(v int) int {
	if v < 0 {
		return 50
	}
	return v
}

// resolveFilterStrength maps negative values to 60.
func resolveFilterStrength(v int) int {
	if v < 0 {
		return 60
	}
	return v
}

// resolveFilterType maps negative values to 1 (normal).
func resolveFilterType(v int) int {
	if v < 0 {
		return 1
	}
	return v
}

// resolveSegments maps 0 and negative values to 4.
func resolveSegments(v int) int {
	if v <= 0 {
		return 4
	}
	return v
}

// resolvePass maps 0 and negative values to 1, or to 6 when the encode
// searches for a target.
func resolvePass(v int, search bool) int {
	if v > 0 {
		return v
	}
	if search {
		return 6
	}
	return 1
}

// resolveQMax maps 0 and negative values to 100.
func resolveQMax(v int) int {
	if v <= 0 {
		return 100
	}
	return v
}
