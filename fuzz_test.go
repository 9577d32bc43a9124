package vp8enc

import (
	"bytes"
	"image"
	"testing"

	"golang.org/x/image/webp"
)

// FuzzEncode feeds arbitrary pixels, sizes and options to the encoder and
// checks that the output is always a decodable file of the right size.
func FuzzEncode(f *testing.F) {
	f.Add(uint8(1), uint8(1), uint8(75), uint8(4), uint8(0), []byte{0})
	f.Add(uint8(17), uint8(33), uint8(0), uint8(0), uint8(3), []byte{255, 0, 128})
	f.Add(uint8(40), uint8(9), uint8(100), uint8(6), uint8(1), []byte("banding"))

	f.Fuzz(func(t *testing.T, w, h, quality, method, parts uint8, pix []byte) {
		width, height := int(w%64)+1, int(h%64)+1
		if len(pix) == 0 {
			pix = []byte{0}
		}
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		for i := range img.Pix {
			img.Pix[i] = pix[i%len(pix)]
			if i%4 == 3 {
				img.Pix[i] = 255
			}
		}
		opts := DefaultOptions()
		opts.Quality = float32(quality % 101)
		opts.Method = int(method % 7)
		opts.Partitions = int(parts % 4)

		var buf bytes.Buffer
		if err := Encode(&buf, img, opts); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		dec, err := webp.Decode(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("decoding the output: %v", err)
		}
		if dec.Bounds() != img.Bounds() {
			t.Fatalf("decoded bounds %v, want %v", dec.Bounds(), img.Bounds())
		}
	})
}
