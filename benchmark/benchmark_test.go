// Package benchmark compares vp8enc with other Go WebP libraries.
//
// Run with:
//
//	go test -bench=. -benchmem -count=3
//	go test -bench=. -benchmem -count=3 -run=^$ -timeout=10m
//
// To skip CGo-based libraries (chai2010/webp):
//
//	CGO_ENABLED=0 go test -bench=. -benchmem -count=3
package benchmark

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"os"
	"testing"

	"github.com/deepteams/vp8enc"

	// Competitors
	nativewebp "github.com/HugoSmits86/nativewebp"
	chai2010 "github.com/chai2010/webp"
	gen2brain "github.com/gen2brain/webp"
	xwebp "golang.org/x/image/webp"
)

// testImage is the source for encode benchmarks, testImageSmall a 256x256 crop.
var (
	testImage      image.Image
	testImageSmall image.Image
)

// Pre-encoded buffers for decode benchmarks and the size report.
var (
	webpLossyVP8enc    []byte
	webpLossyChai      []byte
	webpLossyGen2brain []byte
	webpLosslessNative []byte
)

func TestMain(m *testing.M) {
	testImage = syntheticImage(768, 576)
	testImageSmall = testImage.(*image.NRGBA).SubImage(image.Rect(0, 0, 256, 256))

	webpLossyVP8enc = mustEncodeVP8enc(testImage, 75)
	webpLossyChai = mustEncodeChaiLossy(testImage)
	webpLossyGen2brain = mustEncodeGen2brainLossy(testImage)
	webpLosslessNative = mustEncodeNativeLossless(testImage)

	os.Exit(m.Run())
}

// syntheticImage is a checkerboard of smooth and textured areas.
func syntheticImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x), float64(y)
			r := 128 + 100*math.Sin(fx/37)*math.Cos(fy/53)
			g := float64(255 * y / h)
			b := 128 + 60*math.Sin((fx+fy)/3)
			if (x/96+y/96)%2 == 0 {
				r = 255 - r
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255})
		}
	}
	return img
}

// ============================================================================
// Helper encode functions (for pre-encoding decode test data)
// ============================================================================

func mustEncodeVP8enc(img image.Image, quality float32) []byte {
	var buf bytes.Buffer
	opts := vp8enc.DefaultOptions()
	opts.Quality = quality
	if err := vp8enc.Encode(&buf, img, opts); err != nil {
		panic("vp8enc encode: " + err.Error())
	}
	return buf.Bytes()
}

func mustEncodeChaiLossy(img image.Image) []byte {
	var buf bytes.Buffer
	if err := chai2010.Encode(&buf, img, &chai2010.Options{Lossless: false, Quality: 75}); err != nil {
		panic("chai2010 lossy encode: " + err.Error())
	}
	return buf.Bytes()
}

func mustEncodeGen2brainLossy(img image.Image) []byte {
	var buf bytes.Buffer
	if err := gen2brain.Encode(&buf, img, gen2brain.Options{Quality: 75, Lossless: false}); err != nil {
		panic("gen2brain lossy encode: " + err.Error())
	}
	return buf.Bytes()
}

func mustEncodeNativeLossless(img image.Image) []byte {
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		panic("nativewebp lossless encode: " + err.Error())
	}
	return buf.Bytes()
}

// ============================================================================
// Size report and cross-decoder check
// ============================================================================

func TestFileSizes(t *testing.T) {
	t.Logf("Source image: %dx%d", testImage.Bounds().Dx(), testImage.Bounds().Dy())
	t.Log("")
	t.Log("=== Lossy Q75 file sizes ===")
	t.Logf("  vp8enc:            %6d bytes", len(webpLossyVP8enc))
	t.Logf("  chai2010/webp:     %6d bytes", len(webpLossyChai))
	t.Logf("  gen2brain/webp:    %6d bytes", len(webpLossyGen2brain))
	t.Log("")
	t.Log("=== Lossless reference ===")
	t.Logf("  nativewebp:        %6d bytes", len(webpLosslessNative))
}

// TestDecodersAgree decodes vp8enc output with libwebp (through cgo and
// wasm) and with x/image, and checks every decoder sees the same picture.
func TestDecodersAgree(t *testing.T) {
	ref, err := xwebp.Decode(bytes.NewReader(webpLossyVP8enc))
	if err != nil {
		t.Fatalf("x/image decode: %v", err)
	}
	decoders := map[string]func([]byte) (image.Image, error){
		"chai2010": func(b []byte) (image.Image, error) { return chai2010.Decode(bytes.NewReader(b)) },
		"gen2brain": func(b []byte) (image.Image, error) {
			return gen2brain.Decode(bytes.NewReader(b))
		},
	}
	for name, decode := range decoders {
		img, err := decode(webpLossyVP8enc)
		if err != nil {
			t.Errorf("%s decode: %v", name, err)
			continue
		}
		if img.Bounds() != ref.Bounds() {
			t.Errorf("%s bounds = %v, want %v", name, img.Bounds(), ref.Bounds())
			continue
		}
		// Chroma upsampling differs between decoders; luma stays close.
		if d := meanLumaDiff(ref, img); d > 3 {
			t.Errorf("%s mean luma difference = %.2f, want <= 3", name, d)
		}
	}
}

func meanLumaDiff(a, b image.Image) float64 {
	r := a.Bounds()
	var sum float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			ga := color.GrayModel.Convert(a.At(x, y)).(color.Gray).Y
			gb := color.GrayModel.Convert(b.At(x, y)).(color.Gray).Y
			sum += math.Abs(float64(ga) - float64(gb))
		}
	}
	return sum / float64(r.Dx()*r.Dy())
}

// ============================================================================
// ENCODE BENCHMARKS: Lossy Q75
// ============================================================================

func BenchmarkEncodeLossy_VP8enc(b *testing.B) {
	benchmarkVP8enc(b, testImage, func(o *vp8enc.Options) {})
}

func BenchmarkEncodeLossy_Chai2010(b *testing.B) {
	var buf bytes.Buffer
	opts := &chai2010.Options{Lossless: false, Quality: 75}
	b.ResetTimer()
	for b.Loop() {
		buf.Reset()
		if err := chai2010.Encode(&buf, testImage, opts); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(buf.Len()))
}

func BenchmarkEncodeLossy_Gen2brain(b *testing.B) {
	var buf bytes.Buffer
	opts := gen2brain.Options{Quality: 75, Lossless: false}
	b.ResetTimer()
	for b.Loop() {
		buf.Reset()
		if err := gen2brain.Encode(&buf, testImage, opts); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(buf.Len()))
}

func BenchmarkEncodeLossless_NativeWebP(b *testing.B) {
	var buf bytes.Buffer
	b.ResetTimer()
	for b.Loop() {
		buf.Reset()
		if err := nativewebp.Encode(&buf, testImage, nil); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(buf.Len()))
}

// ============================================================================
// ENCODE BENCHMARKS: vp8enc settings
// ============================================================================

func BenchmarkEncodeMethod0_VP8enc(b *testing.B) {
	benchmarkVP8enc(b, testImage, func(o *vp8enc.Options) { o.Method = 0 })
}

func BenchmarkEncodeMethod6_VP8enc(b *testing.B) {
	benchmarkVP8enc(b, testImage, func(o *vp8enc.Options) { o.Method = 6 })
}

func BenchmarkEncodeTargetSize_VP8enc(b *testing.B) {
	target := len(webpLossyVP8enc) / 2
	benchmarkVP8enc(b, testImage, func(o *vp8enc.Options) { o.TargetSize = target })
}

func benchmarkVP8enc(b *testing.B, img image.Image, mod func(*vp8enc.Options)) {
	opts := vp8enc.DefaultOptions()
	opts.Quality = 75
	mod(opts)
	var buf bytes.Buffer
	b.ResetTimer()
	for b.Loop() {
		buf.Reset()
		if err := vp8enc.Encode(&buf, img, opts); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(buf.Len()))
}

// ============================================================================
// DECODE BENCHMARKS: vp8enc output
// ============================================================================

func BenchmarkDecodeLossy_XImage(b *testing.B) {
	b.SetBytes(int64(len(webpLossyVP8enc)))
	b.ResetTimer()
	for b.Loop() {
		if _, err := xwebp.Decode(bytes.NewReader(webpLossyVP8enc)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeLossy_Chai2010(b *testing.B) {
	b.SetBytes(int64(len(webpLossyVP8enc)))
	b.ResetTimer()
	for b.Loop() {
		if _, err := chai2010.Decode(bytes.NewReader(webpLossyVP8enc)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeLossy_Gen2brain(b *testing.B) {
	b.SetBytes(int64(len(webpLossyVP8enc)))
	b.ResetTimer()
	for b.Loop() {
		if _, err := gen2brain.Decode(bytes.NewReader(webpLossyVP8enc)); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// ENCODE BENCHMARKS: Small image (256x256) for faster iteration
// ============================================================================

func BenchmarkEncodeSmallLossy_VP8enc(b *testing.B) {
	benchmarkVP8enc(b, testImageSmall, func(o *vp8enc.Options) {})
}

func BenchmarkEncodeSmallLossy_Chai2010(b *testing.B) {
	var buf bytes.Buffer
	opts := &chai2010.Options{Lossless: false, Quality: 75}
	b.ResetTimer()
	for b.Loop() {
		buf.Reset()
		if err := chai2010.Encode(&buf, testImageSmall, opts); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(buf.Len()))
}

func BenchmarkEncodeSmallLossy_Gen2brain(b *testing.B) {
	var buf bytes.Buffer
	opts := gen2brain.Options{Quality: 75, Lossless: false}
	b.ResetTimer()
	for b.Loop() {
		buf.Reset()
		if err := gen2brain.Encode(&buf, testImageSmall, opts); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(buf.Len()))
}
