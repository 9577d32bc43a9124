// Package vp8enc is a pure Go encoder for lossy VP8 key frames, written as
// simple-format WebP files or as raw VP8 bitstreams.
//
// The encoder measures each macroblock, clusters macroblocks into up to four
// segments with their own quantizers and loop filter levels, picks intra
// modes by rate-distortion cost and codes the residuals with adaptive
// probabilities fitted to the picture. A rate control loop can re-run the
// macroblock pass to hit a target file size or PSNR.
//
// Basic usage:
//
//	err := vp8enc.Encode(w, img, &vp8enc.Options{Quality: 80})
//
// Targeting a size:
//
//	opts := vp8enc.DefaultOptions()
//	opts.TargetSize = 20_000
//	err := vp8enc.Encode(w, img, opts)
//
// The package also exposes SmoothLevels, a gradient smoother for images made
// of a few quantized grey levels, such as decoded alpha planes.
package vp8enc
