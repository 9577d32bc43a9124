package lossy

import (
	"errors"
	"testing"

	"github.com/deepteams/vp8enc/internal/dsp"
)

// newTestPicture returns a picture whose samples encode their position.
func newTestPicture(w, h int) *Picture {
	uvW, uvH := (w+1)>>1, (h+1)>>1
	pic := &Picture{
		Width: w, Height: h,
		Y: make([]byte, w*h), U: make([]byte, uvW*uvH), V: make([]byte, uvW*uvH),
		YStride: w, UVStride: uvW,
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pic.Y[y*w+x] = byte(x + 7*y)
		}
	}
	for y := 0; y < uvH; y++ {
		for x := 0; x < uvW; x++ {
			pic.U[y*uvW+x] = byte(3*x + y)
			pic.V[y*uvW+x] = byte(x + 5*y)
		}
	}
	return pic
}

func TestNewIteratorRejectsDimensions(t *testing.T) {
	for _, sz := range [][2]int{{0, 16}, {16, 0}, {-1, 8}, {MaxDimension + 1, 16}} {
		pic := &Picture{Width: sz[0], Height: sz[1]}
		if _, err := NewIterator(pic); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("%dx%d: err = %v, want ErrInvalidDimensions", sz[0], sz[1], err)
		}
	}
	pic := newTestPicture(32, 32)
	pic.Y = pic.Y[:100]
	if _, err := NewIterator(pic); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("short luma plane: err = %v, want ErrInvalidDimensions", err)
	}
}

func TestIteratorRasterOrder(t *testing.T) {
	it, err := NewIterator(newTestPicture(40, 20))
	if err != nil {
		t.Fatal(err)
	}
	if it.MBWidth() != 3 || it.MBHeight() != 2 {
		t.Fatalf("macroblocks = %dx%d, want 3x2", it.MBWidth(), it.MBHeight())
	}
	visited := 0
	for {
		if it.Index() != visited {
			t.Fatalf("Index = %d, want %d", it.Index(), visited)
		}
		visited++
		if !it.Next() {
			break
		}
	}
	if visited != 6 || !it.Done() {
		t.Errorf("visited %d macroblocks, done = %v", visited, it.Done())
	}
}

func TestIteratorNextPanicsWhenExhausted(t *testing.T) {
	it, _ := NewIterator(newTestPicture(16, 16))
	if it.Next() {
		t.Fatal("Next = true on a single macroblock picture")
	}
	defer func() {
		if recover() == nil {
			t.Error("Next on an exhausted iterator did not panic")
		}
	}()
	it.Next()
}

func TestIteratorImportReplicatesEdges(t *testing.T) {
	pic := newTestPicture(17, 18)
	it, _ := NewIterator(pic)
	it.Next() // second column holds a single valid luma column

	w, h := it.Import()
	if w != 1 || h != 16 {
		t.Fatalf("Import = (%d, %d), want (1, 16)", w, h)
	}
	for j := 0; j < 16; j++ {
		want := pic.Y[j*17+16]
		for i := 0; i < 16; i++ {
			if got := it.yuvIn[YOff+j*dsp.BPS+i]; got != want {
				t.Fatalf("luma (%d,%d) = %d, want %d", i, j, got, want)
			}
		}
	}

	it.Next() // bottom row, first column: two valid rows
	if _, h := it.Import(); h != 2 {
		t.Fatalf("bottom row height = %d, want 2", h)
	}
	for j := 2; j < 16; j++ {
		for i := 0; i < 16; i++ {
			if got, want := it.yuvIn[YOff+j*dsp.BPS+i], pic.Y[17*17+i]; got != want {
				t.Fatalf("replicated row %d col %d = %d, want %d", j, i, got, want)
			}
		}
	}
}

func TestIteratorInitialContext(t *testing.T) {
	it, _ := NewIterator(newTestPicture(32, 32))
	it.FillPredContext()
	out := it.yuvOut
	for i := -1; i < 20; i++ {
		if got := out[YOff-dsp.BPS+i]; got != 127 {
			t.Fatalf("top context[%d] = %d, want 127", i, got)
		}
	}
	for j := 0; j < 16; j++ {
		if got := out[YOff-1+j*dsp.BPS]; got != 129 {
			t.Fatalf("left context[%d] = %d, want 129", j, got)
		}
	}
	if it.TopModes()[0] != ModeDC || it.LeftModes()[3] != ModeDC {
		t.Error("mode contexts not reset to DC")
	}
}

func TestIteratorBoundaryPropagates(t *testing.T) {
	it, _ := NewIterator(newTestPicture(32, 32))
	it.FillPredContext()
	for j := 0; j < 16; j++ {
		for i := 0; i < 16; i++ {
			it.yuvOut[YOff+j*dsp.BPS+i] = byte(10*j + i)
		}
	}
	it.SaveBoundary()
	it.Next()
	it.FillPredContext()
	for j := 0; j < 16; j++ {
		if got, want := it.yuvOut[YOff-1+j*dsp.BPS], byte(10*j+15); got != want {
			t.Fatalf("left context[%d] = %d, want %d", j, got, want)
		}
	}
	if got := it.yuvOut[YOff-dsp.BPS-1]; got != 127 {
		t.Errorf("corner on the first row = %d, want 127", got)
	}
}

func TestNzPackUnpack(t *testing.T) {
	it, _ := NewIterator(newTestPicture(48, 32))
	it.NzToFlags()
	for i := range it.topNz {
		it.topNz[i] = i & 1
	}
	for i := 0; i < 8; i++ {
		it.leftNz[i] = (i + 1) & 1
	}
	it.leftNz[8] = 1
	it.FlagsToNz()
	nz := it.Nz()

	wantBits := []uint{13, 15, 19, 23, 3, 11, 17, 21}
	var want uint32
	for _, b := range wantBits {
		want |= 1 << b
	}
	if nz != want {
		t.Fatalf("packed summary = %#x, want %#x", nz, want)
	}

	// The next macroblock sees the packed flags as its left neighbour. The
	// bottom right blocks are shared with the top flags.
	it.Next()
	it.NzToFlags()
	wantLeft := [8]int{1, 0, 1, 1, 1, 1, 1, 1}
	for i, w := range wantLeft {
		if it.leftNz[i] != w {
			t.Errorf("leftNz[%d] = %d, want %d", i, it.leftNz[i], w)
		}
	}
	if it.leftNz[8] != 1 {
		t.Error("left Y2 flag lost within the row")
	}
}

func TestSkipNz(t *testing.T) {
	it, _ := NewIterator(newTestPicture(16, 32))
	it.nz[1] = 0xffffff | 1<<24
	it.leftNz[8] = 1
	it.SkipNz(false)
	if it.Nz() != 1<<24 || it.leftNz[8] != 1 {
		t.Errorf("4x4 skip: nz = %#x, left DC = %d", it.Nz(), it.leftNz[8])
	}
	it.SkipNz(true)
	if it.Nz() != 0 || it.leftNz[8] != 0 {
		t.Errorf("16x16 skip: nz = %#x, left DC = %d", it.Nz(), it.leftNz[8])
	}
}
