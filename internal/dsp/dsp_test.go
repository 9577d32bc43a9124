package dsp

import (
	"errors"
	"math/rand"
	"testing"
)

func TestTransformRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	src := make([]byte, 4*BPS)
	ref := make([]byte, 4*BPS)
	dst := make([]byte, 4*BPS)
	var coeffs [16]int16
	for trial := 0; trial < 2000; trial++ {
		for i := range src {
			src[i] = byte(rng.Intn(256))
			ref[i] = byte(rng.Intn(256))
		}
		FTransform(src, ref, coeffs[:])
		ITransform(ref, coeffs[:], dst, false)
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				d := int(dst[x+y*BPS]) - int(src[x+y*BPS])
				if d < -1 || d > 1 {
					t.Fatalf("trial %d (%d,%d): got %d, want %d+-1", trial, x, y, dst[x+y*BPS], src[x+y*BPS])
				}
			}
		}
	}
}

func TestWHTRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	var in, mid, out [16]int16
	for trial := 0; trial < 2000; trial++ {
		for i := range in {
			in[i] = int16(rng.Intn(4000) - 2000)
		}
		FTransformWHT(in[:], mid[:])
		ITransformWHT(mid[:], out[:])
		for i := range in {
			if d := int(out[i]) - int(in[i]); d < -1 || d > 1 {
				t.Fatalf("trial %d coeff %d: got %d, want %d+-1", trial, i, out[i], in[i])
			}
		}
	}
}

// A constant offset transforms to its DC term plus the rounding residue of
// the first pass, which leaves a single unit in the first AC coefficient.
func TestFTransformConstantOffset(t *testing.T) {
	src := make([]byte, 4*BPS)
	ref := make([]byte, 4*BPS)
	for i := range src {
		src[i] = 140
		ref[i] = 128
	}
	var out [16]int16
	FTransform(src, ref, out[:])
	want := [16]int16{96, 1}
	if out != want {
		t.Fatalf("FTransform of a flat +12 block = %v, want %v", out, want)
	}
}

func newPredBuf(top, left, corner byte) ([]byte, int) {
	buf := make([]byte, 18*BPS)
	off := BPS + 8
	for i := -1; i < 20; i++ {
		buf[off-BPS+i] = top
	}
	buf[off-BPS-1] = corner
	for j := 0; j < 16; j++ {
		buf[off-1+j*BPS] = left
	}
	return buf, off
}

func TestPredictors16(t *testing.T) {
	tests := []struct {
		name string
		mode int
		want byte
	}{
		{"DC", 0, 110},
		{"TM", 1, 140},
		{"VE", 2, 100},
		{"HE", 3, 120},
		{"DCNoTop", 4, 120},
		{"DCNoLeft", 5, 100},
		{"DCNoTopLeft", 6, 0x80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, off := newPredBuf(100, 120, 80)
			PredLuma16[tt.mode](buf, off)
			for y := 0; y < 16; y++ {
				for x := 0; x < 16; x++ {
					if got := buf[off+x+y*BPS]; got != tt.want {
						t.Fatalf("(%d,%d): got %d, want %d", x, y, got, tt.want)
					}
				}
			}
		})
	}
}

func TestPredictorsLeaveContextIntact(t *testing.T) {
	for mode := range PredLuma4 {
		buf, off := newPredBuf(90, 150, 60)
		before := append([]byte(nil), buf...)
		PredLuma4[mode](buf, off)
		for i := -1; i < 8; i++ {
			if buf[off-BPS+i] != before[off-BPS+i] {
				t.Fatalf("mode %d modified top context at %d", mode, i)
			}
		}
		for j := 0; j < 4; j++ {
			if buf[off-1+j*BPS] != before[off-1+j*BPS] {
				t.Fatalf("mode %d modified left context at row %d", mode, j)
			}
		}
	}
}

func TestPredictor4Uniform(t *testing.T) {
	// With a uniform neighbourhood every 4x4 mode predicts the same value.
	for mode := range PredLuma4 {
		buf, off := newPredBuf(77, 77, 77)
		PredLuma4[mode](buf, off)
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				if got := buf[off+x+y*BPS]; got != 77 {
					t.Fatalf("mode %d (%d,%d): got %d, want 77", mode, x, y, got)
				}
			}
		}
	}
}

func TestBitCost(t *testing.T) {
	if got := BitCost(0, 128); got != 256 {
		t.Fatalf("BitCost(0, 128) = %d, want 256", got)
	}
	if got := BitCost(1, 128); got < 256 || got > 260 {
		t.Fatalf("BitCost(1, 128) = %d, want about 256", got)
	}
	for p := 2; p < 256; p++ {
		if BitCost(0, uint8(p)) > BitCost(0, uint8(p-1)) {
			t.Fatalf("cost of zero not decreasing at p=%d", p)
		}
	}
	if got, want := BranchCost(3, 2, 200), 3*BitCost(0, 200)+2*BitCost(1, 200); got != want {
		t.Fatalf("BranchCost = %d, want %d", got, want)
	}
}

func TestSSE(t *testing.T) {
	a := make([]byte, 16*BPS)
	b := make([]byte, 16*BPS)
	for i := range a {
		a[i] = 10
		b[i] = 13
	}
	if got := SSE16x16(a, b); got != 256*9 {
		t.Fatalf("SSE16x16 = %d, want %d", got, 256*9)
	}
	if got := SSE4x4(a, b); got != 16*9 {
		t.Fatalf("SSE4x4 = %d, want %d", got, 16*9)
	}
	if got := PSNR(0, 100); got != 99 {
		t.Fatalf("PSNR(0) = %v, want 99", got)
	}
}

func TestRGBToYUVGray(t *testing.T) {
	for _, v := range []int{0, 64, 128, 255} {
		y := RGBToY(v, v, v)
		u := RGBToU(4*v, 4*v, 4*v)
		w := RGBToV(4*v, 4*v, 4*v)
		if u < 127 || u > 129 || w < 127 || w > 129 {
			t.Fatalf("gray %d: chroma (%d,%d), want about 128", v, u, w)
		}
		if v == 0 && y != 16 {
			t.Fatalf("black luma = %d, want 16", y)
		}
		if v == 255 && (y < 234 || y > 236) {
			t.Fatalf("white luma = %d, want about 235", y)
		}
	}
}

func staircase(w, h, step, base int) []byte {
	data := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[x+y*w] = byte((x/8)*step + base)
		}
	}
	return data
}

func TestDequantizeLevelsStrengthZeroIsIdentity(t *testing.T) {
	data := staircase(64, 16, 8, 40)
	orig := append([]byte(nil), data...)
	if err := DequantizeLevels(data, 64, 16, 64, 0); err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if data[i] != orig[i] {
			t.Fatalf("pixel %d changed from %d to %d", i, orig[i], data[i])
		}
	}
}

func TestDequantizeLevelsSmoothsBands(t *testing.T) {
	const w, h, step = 64, 16, 8
	data := staircase(w, h, step, 40)
	orig := append([]byte(nil), data...)
	if err := DequantizeLevels(data, w, h, w, 100); err != nil {
		t.Fatal(err)
	}
	changed := 0
	for i := range data {
		d := int(data[i]) - int(orig[i])
		if d != 0 {
			changed++
		}
		if d <= -step || d >= step {
			t.Fatalf("pixel %d moved by %d, more than a level step", i, d)
		}
		if (orig[i] == 40 || orig[i] == 96) && d != 0 {
			t.Fatalf("extreme level %d at pixel %d changed to %d", orig[i], i, data[i])
		}
	}
	if changed == 0 {
		t.Fatal("no pixel was smoothed")
	}
	for x := 1; x < w; x++ {
		if data[x] < data[x-1] {
			t.Fatalf("row 0 not monotonic at %d: %d < %d", x, data[x], data[x-1])
		}
	}
}

func TestDequantizeLevelsExtremesUnchanged(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const w, h = 40, 30
	levels := []byte{20, 60, 100, 140, 180}
	for strength := 0; strength <= 100; strength += 25 {
		data := make([]byte, w*h)
		for i := range data {
			data[i] = levels[rng.Intn(len(levels))]
		}
		orig := append([]byte(nil), data...)
		if err := DequantizeLevels(data, w, h, w, strength); err != nil {
			t.Fatal(err)
		}
		for i := range data {
			if (orig[i] == 20 || orig[i] == 180) && data[i] != orig[i] {
				t.Fatalf("strength %d: extreme pixel %d changed %d -> %d", strength, i, orig[i], data[i])
			}
		}
	}
}

func TestDequantizeLevelsTwoLevelsUntouched(t *testing.T) {
	const w, h = 16, 16
	data := make([]byte, w*h)
	for i := range data {
		if (i/w+i%w)%2 == 0 {
			data[i] = 200
		}
	}
	orig := append([]byte(nil), data...)
	if err := DequantizeLevels(data, w, h, w, 100); err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if data[i] != orig[i] {
			t.Fatalf("pixel %d changed", i)
		}
	}
}

func TestDequantizeLevelsErrors(t *testing.T) {
	if err := DequantizeLevels(make([]byte, 16), 0, 4, 4, 50); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("zero width: got %v, want ErrInvalidDimensions", err)
	}
	if err := DequantizeLevels(make([]byte, 15), 4, 4, 4, 50); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("short buffer: got %v, want ErrInvalidDimensions", err)
	}
	if err := DequantizeLevels(make([]byte, 16), 4, 4, 4, 101); err == nil {
		t.Fatal("strength 101 accepted")
	}
}
