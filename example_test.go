package vp8enc_test

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/webp"

	"github.com/deepteams/vp8enc"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(4 * x), G: uint8(4 * y), B: 128, A: 255})
		}
	}
	return img
}

func ExampleEncode() {
	var buf bytes.Buffer
	if err := vp8enc.Encode(&buf, gradient(64, 48), &vp8enc.Options{Quality: 80, Method: 4}); err != nil {
		fmt.Println(err)
		return
	}

	cfg, err := webp.DecodeConfig(&buf)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%dx%d\n", cfg.Width, cfg.Height)
	// Output:
	// 64x48
}

func ExampleEncodeFrame() {
	frame, err := vp8enc.EncodeFrame(gradient(16, 16), nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("key frame: %v, start code: % x\n", frame[0]&1 == 0, frame[3:6])
	// Output:
	// key frame: true, start code: 9d 01 2a
}

func ExampleSmoothLevels() {
	img := image.NewGray(image.Rect(0, 0, 32, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 32 / 8 * 85)
	}
	if err := vp8enc.SmoothLevels(img, 50); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(img.Pix[0], img.Pix[31])
	// Output:
	// 0 255
}
