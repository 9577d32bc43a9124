package vp8enc

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/pkg/errors"

	"github.com/deepteams/vp8enc/internal/container"
	"github.com/deepteams/vp8enc/internal/dsp"
	"github.com/deepteams/vp8enc/internal/lossy"
)

// MaxDimension is the maximum allowed width or height, in pixels. VP8
// stores dimensions on 14 bits.
const MaxDimension = lossy.MaxDimension

// Errors returned by the encoder. Test for them with errors.Is.
var (
	// ErrAllocation reports that an output buffer could not grow, for
	// instance a token partition past its 16 MiB limit.
	ErrAllocation = lossy.ErrAllocation

	// ErrInvalidDimensions reports an empty image or one larger than
	// MaxDimension.
	ErrInvalidDimensions = lossy.ErrInvalidDimensions

	// ErrStructuralLimit reports that the mode partition stayed above its
	// 512 KiB limit after the encoder ran out of retries.
	ErrStructuralLimit = lossy.ErrStructuralLimit

	// ErrCanceled reports that the context or the Progress hook stopped the
	// encode.
	ErrCanceled = lossy.ErrCanceled
)

// Encode writes img to w as a simple-format lossy WebP file.
// If opts is nil, DefaultOptions() is used.
func Encode(w io.Writer, img image.Image, opts *Options) error {
	return EncodeContext(context.Background(), w, img, opts)
}

// EncodeContext is like Encode but stops with ErrCanceled when ctx is done.
// Nothing is written to w unless the encode succeeds.
func EncodeContext(ctx context.Context, w io.Writer, img image.Image, opts *Options) error {
	frame, err := encodeFrame(ctx, img, opts)
	if err != nil {
		return err
	}
	return container.WriteSimple(w, frame)
}

// EncodeFrame returns img as a raw VP8 key frame, without the RIFF
// container.
func EncodeFrame(img image.Image, opts *Options) ([]byte, error) {
	return encodeFrame(context.Background(), img, opts)
}

func encodeFrame(ctx context.Context, img image.Image, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return nil, errors.Wrapf(ErrInvalidDimensions, "vp8enc: image is %dx%d", w, h)
	}

	enc, err := lossy.NewEncoder(lossy.NewPicture(img), lossyConfig(opts))
	if err != nil {
		return nil, errors.Wrap(err, "vp8enc")
	}
	frame, err := enc.Encode(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "vp8enc")
	}
	return frame, nil
}

// lossyConfig resolves the sentinel values of opts.
func lossyConfig(opts *Options) lossy.Config {
	cfg := lossy.DefaultConfig()
	cfg.Quality = float64(opts.Quality)
	cfg.TargetSize = opts.TargetSize
	if opts.TargetSize == 0 {
		cfg.TargetPSNR = float64(opts.TargetPSNR)
	}
	cfg.Method = opts.Method
	cfg.SNSStrength = resolveSNSStrength(opts.SNSStrength)
	cfg.FilterStrength = resolveFilterStrength(opts.FilterStrength)
	cfg.FilterSharpness = opts.FilterSharpness
	cfg.FilterType = resolveFilterType(opts.FilterType)
	cfg.Partitions = opts.Partitions
	cfg.Segments = resolveSegments(opts.Segments)
	cfg.Pass = resolvePass(opts.Pass, cfg.TargetSize > 0 || cfg.TargetPSNR > 0)
	cfg.QMin = float64(opts.QMin)
	cfg.QMax = float64(resolveQMax(opts.QMax))
	cfg.Progress = opts.Progress
	cfg.Logger = opts.Logger
	return cfg
}

// SmoothLevels smooths the gradients of a greyscale image made of a few
// quantized levels, in place. strength is in [0, 100]; 0 leaves the image
// untouched. Pixels at the darkest and brightest levels are never changed.
func SmoothLevels(img *image.Gray, strength int) error {
	if strength < 0 || strength > 100 {
		return fmt.Errorf("vp8enc: invalid strength %d (must be 0-100)", strength)
	}
	b := img.Bounds()
	if b.Empty() {
		return errors.Wrap(ErrInvalidDimensions, "vp8enc: empty image")
	}
	pix := img.Pix[img.PixOffset(b.Min.X, b.Min.Y):]
	return dsp.DequantizeLevels(pix, b.Dx(), b.Dy(), img.Stride, strength)
}
