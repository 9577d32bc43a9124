package main

import (
	"image"
	"os"

	"github.com/pkg/errors"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// readDICOM returns the first frame of a DICOM file. Native frames are
// stretched from their sample range to 8 bits; encapsulated frames are
// decoded by the dicom package.
func readDICOM(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	ds, err := dicom.Parse(file, info.Size(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "parsing DICOM")
	}

	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, errors.Wrap(err, "DICOM pixel data")
	}
	pdi, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(pdi.Frames) == 0 {
		return nil, errors.New("DICOM file has no frames")
	}
	fr := pdi.Frames[0]
	if fr.Encapsulated {
		img, err := fr.GetImage()
		return img, errors.Wrap(err, "decoding DICOM frame")
	}
	nd := fr.NativeData
	if nd.Rows <= 0 || nd.Cols <= 0 || len(nd.Data) < nd.Rows*nd.Cols {
		return nil, errors.Errorf("DICOM frame of %dx%d has %d samples", nd.Cols, nd.Rows, len(nd.Data))
	}
	return grayFromSamples(nd.Data, nd.Cols, nd.Rows), nil
}

// grayFromSamples maps the first sample of every pixel linearly from the
// frame's [min, max] range to [0, 255].
func grayFromSamples(data [][]int, width, height int) *image.Gray {
	lo, hi := data[0][0], data[0][0]
	for _, px := range data[:width*height] {
		lo = min(lo, px[0])
		hi = max(hi, px[0])
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	span := hi - lo
	for i, px := range data[:width*height] {
		if span > 0 {
			img.Pix[i] = uint8((px[0] - lo) * 255 / span)
		}
	}
	return img
}
