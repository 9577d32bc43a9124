// Command vp8enc encodes images to lossy WebP from the command line.
//
// Usage:
//
//	vp8enc enc [options] <input>      PNG/JPEG/GIF/BMP/TIFF/WebP/DICOM → WebP
//	vp8enc smooth [options] <input>   smooth the grey levels of an image into a PNG
//	vp8enc info <input.webp>          display container and frame header fields
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/deepteams/vp8enc"
	"github.com/deepteams/vp8enc/internal/container"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "vp8enc: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches a subcommand. It is main without the process exit.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	switch args[0] {
	case "enc":
		return c.runEnc(args[1:])
	case "smooth":
		return c.runSmooth(args[1:])
	case "info":
		return c.runInfo(args[1:])
	case "-h", "-help", "--help", "help":
		printUsage(stdout)
		return nil
	}
	printUsage(stderr)
	return errors.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  vp8enc enc [options] <input>      Encode PNG/JPEG/GIF/BMP/TIFF/WebP/DICOM to WebP
  vp8enc smooth [options] <input>   Smooth quantized grey levels, write a PNG
  vp8enc info <input.webp>          Display container and frame header fields

Use "-" as input to read from stdin, "-o -" to write to stdout.

Run "vp8enc <command> -h" for command-specific options.
`)
}

type cli struct {
	stdin          io.Reader
	stdout, stderr io.Writer
}

// openInput returns a reader for path, or stdin for "-".
func (c *cli) openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(c.stdin), nil
	}
	return os.Open(path)
}

// readImage decodes any registered image format, or DICOM for .dcm files.
func (c *cli) readImage(path string) (image.Image, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".dcm" || ext == ".dicom" {
		return readDICOM(path)
	}
	in, err := c.openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	img, _, err := image.Decode(in)
	if err != nil {
		return nil, errors.Wrap(err, "decoding input")
	}
	return img, nil
}

// outputPath derives the default output name from the input.
func outputPath(inputPath, output, ext string) string {
	if output != "" {
		return output
	}
	if inputPath == "-" {
		return "output" + ext
	}
	return strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ext
}

// writeOutput calls write on the output file, or stdout for "-". A failed
// write removes the partial file. It returns the number of bytes written.
func (c *cli) writeOutput(path string, write func(io.Writer) error) (int64, error) {
	if path == "-" {
		cw := &countingWriter{w: c.stdout}
		err := write(cw)
		return cw.n, err
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: out}
	if err := write(cw); err != nil {
		out.Close()
		os.Remove(path)
		return 0, err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return 0, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// --- enc ---

func (c *cli) runEnc(args []string) error {
	fs := flag.NewFlagSet("enc", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	quality := fs.Float64("q", 75, "quality 0-100")
	targetSize := fs.Int("size", 0, "target size in bytes (0=use quality)")
	targetPSNR := fs.Float64("psnr", 0, "target PSNR in dB (0=use quality)")
	method := fs.Int("m", 4, "compression effort 0-6")
	pass := fs.Int("pass", -1, "analysis pass number 1-10 (-1=default)")
	segments := fs.Int("segments", -1, "number of segments 1-4 (-1=default)")
	partitions := fs.Int("partitions", 0, "log2 of the token partition count 0-3")
	filterStrength := fs.Int("f", -1, "filter strength 0-100 (-1=default)")
	filterSharpness := fs.Int("sharpness", 0, "filter sharpness 0-7")
	nostrong := fs.Bool("nostrong", false, "use the simple loop filter")
	sns := fs.Int("sns", -1, "spatial noise shaping 0-100 (-1=default)")
	qmin := fs.Int("qmin", 0, "minimum quality 0-100")
	qmax := fs.Int("qmax", -1, "maximum quality 0-100 (-1=default)")
	raw := fs.Bool("raw", false, "write the bare VP8 frame without the RIFF container")
	verbose := fs.Bool("v", false, "log rate control passes")
	output := fs.String("o", "", `output path (default: <input>.webp, "-" for stdout)`)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("enc: missing input file\nUsage: vp8enc enc [options] <input>")
	}
	inputPath := fs.Arg(0)

	opts := vp8enc.DefaultOptions()
	opts.Quality = float32(*quality)
	opts.TargetSize = *targetSize
	opts.TargetPSNR = float32(*targetPSNR)
	opts.Method = *method
	opts.Pass = *pass
	opts.Segments = *segments
	opts.Partitions = *partitions
	opts.FilterStrength = *filterStrength
	opts.FilterSharpness = *filterSharpness
	if *nostrong {
		opts.FilterType = 0
	}
	opts.SNSStrength = *sns
	opts.QMin = *qmin
	opts.QMax = *qmax
	if *verbose {
		opts.Logger = log.New(c.stderr, "vp8enc: ", 0)
	}

	img, err := c.readImage(inputPath)
	if err != nil {
		return errors.Wrap(err, "enc")
	}

	ext := ".webp"
	if *raw {
		ext = ".vp8"
	}
	outPath := outputPath(inputPath, *output, ext)
	n, err := c.writeOutput(outPath, func(w io.Writer) error {
		if !*raw {
			return vp8enc.Encode(w, img, opts)
		}
		frame, err := vp8enc.EncodeFrame(img, opts)
		if err != nil {
			return err
		}
		_, err = w.Write(frame)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "enc")
	}
	if outPath != "-" {
		fmt.Fprintf(c.stderr, "Encoded %s → %s (%d bytes)\n", inputPath, outPath, n)
	}
	return nil
}

// --- smooth ---

func (c *cli) runSmooth(args []string) error {
	fs := flag.NewFlagSet("smooth", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	strength := fs.Int("strength", 50, "smoothing strength 0-100")
	output := fs.String("o", "", `output path (default: <input>.png, "-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("smooth: missing input file\nUsage: vp8enc smooth [options] <input>")
	}
	inputPath := fs.Arg(0)

	img, err := c.readImage(inputPath)
	if err != nil {
		return errors.Wrap(err, "smooth")
	}
	gray := toGray(img)
	if err := vp8enc.SmoothLevels(gray, *strength); err != nil {
		return errors.Wrap(err, "smooth")
	}

	outPath := outputPath(inputPath, *output, ".png")
	if outPath == inputPath {
		outPath = strings.TrimSuffix(outPath, ".png") + "_smooth.png"
	}
	if _, err := c.writeOutput(outPath, func(w io.Writer) error {
		return png.Encode(w, gray)
	}); err != nil {
		return errors.Wrap(err, "smooth")
	}
	if outPath != "-" {
		fmt.Fprintf(c.stderr, "Smoothed %s → %s\n", inputPath, outPath)
	}
	return nil
}

// toGray returns the luma of img as a new *image.Gray, or img itself when
// it already is one.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.Set(x, y, img.At(x, y))
		}
	}
	return g
}

// --- info ---

func (c *cli) runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("info: missing input file\nUsage: vp8enc info <input.webp>")
	}
	in, err := c.openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	data, err := io.ReadAll(in)
	in.Close()
	if err != nil {
		return errors.Wrap(err, "info: reading input")
	}

	w := c.stdout
	frame := data
	if _, _, err := container.ParseRIFFHeader(data); err == nil {
		chunks, err := container.Chunks(data)
		if err != nil {
			return errors.Wrap(err, "info")
		}
		fmt.Fprintf(w, "File:       %s (%d bytes)\n", fs.Arg(0), len(data))
		fmt.Fprintf(w, "Container:  RIFF/WEBP, %d chunks\n", len(chunks))
		for _, ch := range chunks {
			fmt.Fprintf(w, "  %-4s      offset %d, %d bytes\n", container.FourCCString(ch.FourCC), ch.Offset, len(ch.Payload))
		}
		s, err := container.ParseSimple(data)
		if err != nil {
			return errors.Wrap(err, "info")
		}
		frame = s.Payload
	} else {
		fmt.Fprintf(w, "File:       %s (%d bytes)\n", fs.Arg(0), len(data))
		fmt.Fprintf(w, "Container:  none (raw VP8)\n")
	}

	fh, err := container.ParseFrameHeader(frame)
	if err != nil {
		return errors.Wrap(err, "info")
	}
	filter := "normal"
	if fh.Version != 0 {
		filter = "simple"
	}
	fmt.Fprintf(w, "Dimensions: %d x %d\n", fh.Width, fh.Height)
	fmt.Fprintf(w, "Key frame:  %v (version %d, %s reconstruction filter)\n", fh.KeyFrame, fh.Version, filter)
	fmt.Fprintf(w, "Shown:      %v\n", fh.ShowFrame)
	if fh.XScale != 0 || fh.YScale != 0 {
		fmt.Fprintf(w, "Scaling:    %d, %d\n", fh.XScale, fh.YScale)
	}
	fmt.Fprintf(w, "Partition0: %d bytes\n", fh.Part0Size)
	fmt.Fprintf(w, "Tokens:     %d bytes\n", len(frame)-container.VP8FrameHeaderSize-fh.Part0Size)
	return nil
}
