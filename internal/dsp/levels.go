package dsp

import "github.com/pkg/errors"

// ErrInvalidDimensions is returned for non-positive image sizes or buffers
// too short for the given geometry.
var ErrInvalidDimensions = errors.New("invalid image dimensions")

// Gradient smoothing for images made of a few quantized levels. A pixel is
// replaced by its local box average when the change stays below the smallest
// distance between two levels, which removes banding without moving edges.
// The box sum is a sliding window over rows combined with row prefix sums;
// every accumulator is 16 bits wide and relies on modular arithmetic.

const (
	levelsFix  = 16 // precision of the averaging scale
	levelsLFix = 2  // extra precision of the correction table index
	lutSize    = (1 << (8 + levelsLFix)) - 1
)

type smoother struct {
	width, height int
	stride        int
	row           int
	src, dst      int // row offsets into data
	data          []byte

	radius int
	scale  uint32

	ring    []uint16 // radius*2+1 rows of running sums
	cur     int      // ring row to be replaced next
	top     []uint16 // last cumulative row
	sums    []uint16 // vertical window of row prefix sums
	average []uint16

	numLevels    int
	min, max     int
	minLevelDist int

	correction [2*lutSize + 1]int16
}

// DequantizeLevels smooths data in place. strength in [0, 100] selects the
// box radius (up to 4 pixels); 0 leaves the image untouched, as do images
// with two levels or fewer. Pixels at the global minimum or maximum level
// are never modified.
func DequantizeLevels(data []byte, width, height, stride, strength int) error {
	if strength < 0 || strength > 100 {
		return errors.Errorf("dsp: smoothing strength %d outside [0, 100]", strength)
	}
	if width <= 0 || height <= 0 || stride < width || len(data) < (height-1)*stride+width {
		return errors.Wrapf(ErrInvalidDimensions, "%dx%d stride %d, %d bytes", width, height, stride, len(data))
	}
	radius := 4 * strength / 100
	if 2*radius+1 > width {
		radius = (width - 1) >> 1
	}
	if 2*radius+1 > height {
		radius = (height - 1) >> 1
	}
	if radius <= 0 {
		return nil
	}

	s := newSmoother(data, width, height, stride, radius)
	if s.numLevels <= 2 {
		return nil
	}
	for ; s.row < s.height; s.row++ {
		s.vfilter()
		if s.row >= s.radius {
			s.hfilter()
			s.apply()
		}
	}
	return nil
}

func newSmoother(data []byte, width, height, stride, radius int) *smoother {
	r := 2*radius + 1
	s := &smoother{
		width:   width,
		height:  height,
		stride:  stride,
		data:    data,
		radius:  radius,
		scale:   uint32((1 << (levelsFix + levelsLFix)) / (r * r)),
		row:     -radius,
		ring:    make([]uint16, r*width),
		top:     make([]uint16, width),
		sums:    make([]uint16, width),
		average: make([]uint16, width),
	}
	s.countLevels()
	s.initCorrection()
	return s
}

func (s *smoother) countLevels() {
	var used [256]bool
	s.min, s.max = 255, 0
	for j := 0; j < s.height; j++ {
		for _, v := range s.data[j*s.stride : j*s.stride+s.width] {
			if int(v) < s.min {
				s.min = int(v)
			}
			if int(v) > s.max {
				s.max = int(v)
			}
			used[v] = true
		}
	}
	s.minLevelDist = s.max - s.min
	last := -1
	for i, u := range used {
		if !u {
			continue
		}
		s.numLevels++
		if last >= 0 && i-last < s.minLevelDist {
			s.minLevelDist = i - last
		}
		last = i
	}
}

// initCorrection builds f(x) = x up to threshold2, 0 from threshold1 on and a
// linear ramp in between, with f(-x) = -f(x). threshold2 is 3/4 of
// threshold1, which is the minimum level distance.
func (s *smoother) initCorrection() {
	t1 := s.minLevelDist << levelsLFix
	t2 := (3 * t1) >> 2
	delta := t1 - t2
	lut := s.correction[:]
	for i := 1; i <= lutSize; i++ {
		var c int
		switch {
		case i <= t2:
			c = i
		case i < t1:
			c = t2 * (t1 - i) / delta
		}
		c >>= levelsLFix
		lut[lutSize+i] = int16(c)
		lut[lutSize-i] = int16(-c)
	}
	lut[lutSize] = 0
}

// vfilter adds the next source row to the vertical window. Rows above the
// image and below its last row replicate the edge rows.
func (s *smoother) vfilter() {
	src := s.data[s.src : s.src+s.width]
	cur := s.ring[s.cur*s.width : (s.cur+1)*s.width]
	var sum uint16
	for x, v := range src {
		sum += uint16(v)
		nv := s.top[x] + sum
		s.sums[x] = nv - cur[x]
		cur[x] = nv
	}
	copy(s.top, cur)
	s.cur++
	if s.cur == 2*s.radius+1 {
		s.cur = 0
	}
	if s.row >= 0 && s.row < s.height-1 {
		s.src += s.stride
	}
}

// hfilter turns the windowed prefix sums into box averages, mirroring the
// missing columns at both ends.
func (s *smoother) hfilter() {
	in := s.sums
	w, r := s.width, s.radius
	x := 0
	for ; x <= r; x++ {
		delta := in[x+r-1] + in[r-x]
		s.average[x] = uint16((uint32(delta) * s.scale) >> levelsFix)
	}
	for ; x < w-r; x++ {
		delta := in[x+r] - in[x-r-1]
		s.average[x] = uint16((uint32(delta) * s.scale) >> levelsFix)
	}
	for ; x < w; x++ {
		delta := 2*in[w-1] - in[2*w-2-r-x] - in[x-r-1]
		s.average[x] = uint16((uint32(delta) * s.scale) >> levelsFix)
	}
}

func (s *smoother) apply() {
	dst := s.data[s.dst : s.dst+s.width]
	for x, v := range dst {
		iv := int(v)
		if iv > s.min && iv < s.max {
			c := iv + int(s.correction[lutSize+int(s.average[x])-(iv<<levelsLFix)])
			dst[x] = Clip8b(c)
		}
	}
	s.dst += s.stride
}
