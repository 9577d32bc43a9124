package lossy

import (
	"image"
	"image/color"
	"runtime"
	"sync"

	"github.com/deepteams/vp8enc/internal/dsp"
)

// NewPicture returns the YUV 4:2:0 planes of img. A 4:2:0 *image.YCbCr is
// used in place; anything else is converted from RGB, in parallel over
// pairs of rows. Alpha is ignored.
func NewPicture(img image.Image) *Picture {
	b := img.Bounds()
	if yuv, ok := img.(*image.YCbCr); ok && yuv.SubsampleRatio == image.YCbCrSubsampleRatio420 {
		yOff := yuv.YOffset(b.Min.X, b.Min.Y)
		cOff := yuv.COffset(b.Min.X, b.Min.Y)
		return &Picture{
			Width:    b.Dx(),
			Height:   b.Dy(),
			Y:        yuv.Y[yOff:],
			U:        yuv.Cb[cOff:],
			V:        yuv.Cr[cOff:],
			YStride:  yuv.YStride,
			UVStride: yuv.CStride,
		}
	}

	w, h := b.Dx(), b.Dy()
	uvW, uvH := (w+1)>>1, (h+1)>>1
	pic := &Picture{
		Width:    w,
		Height:   h,
		Y:        make([]byte, w*h),
		U:        make([]byte, uvW*uvH),
		V:        make([]byte, uvW*uvH),
		YStride:  w,
		UVStride: uvW,
	}
	if w <= 0 || h <= 0 {
		return pic
	}

	at := rgbAt(img)
	workers := min(runtime.GOMAXPROCS(0), uvH)
	var wg sync.WaitGroup
	for wi := 0; wi < workers; wi++ {
		start, end := wi*uvH/workers, (wi+1)*uvH/workers
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for cy := start; cy < end; cy++ {
				for cx := 0; cx < uvW; cx++ {
					var sr, sg, sb int
					for dy := 0; dy < 2; dy++ {
						y := min(2*cy+dy, h-1)
						for dx := 0; dx < 2; dx++ {
							x := min(2*cx+dx, w-1)
							r, g, bl := at(b.Min.X+x, b.Min.Y+y)
							sr += r
							sg += g
							sb += bl
							if 2*cy+dy < h && 2*cx+dx < w {
								pic.Y[y*w+x] = dsp.RGBToY(r, g, bl)
							}
						}
					}
					pic.U[cy*uvW+cx] = dsp.RGBToU(sr, sg, sb)
					pic.V[cy*uvW+cx] = dsp.RGBToV(sr, sg, sb)
				}
			}
		}(start, end)
	}
	wg.Wait()
	return pic
}

// rgbAt returns a sample accessor with direct paths for the common
// in-memory formats.
func rgbAt(img image.Image) func(x, y int) (r, g, b int) {
	switch m := img.(type) {
	case *image.NRGBA:
		return func(x, y int) (int, int, int) {
			o := m.PixOffset(x, y)
			return int(m.Pix[o]), int(m.Pix[o+1]), int(m.Pix[o+2])
		}
	case *image.RGBA:
		return func(x, y int) (int, int, int) {
			o := m.PixOffset(x, y)
			return int(m.Pix[o]), int(m.Pix[o+1]), int(m.Pix[o+2])
		}
	case *image.Gray:
		return func(x, y int) (int, int, int) {
			v := int(m.Pix[m.PixOffset(x, y)])
			return v, v, v
		}
	}
	return func(x, y int) (int, int, int) {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		return int(c.R), int(c.G), int(c.B)
	}
}
