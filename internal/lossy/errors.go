package lossy

import (
	"github.com/pkg/errors"

	"github.com/deepteams/vp8enc/internal/bitio"
	"github.com/deepteams/vp8enc/internal/dsp"
)

var (
	// ErrAllocation reports that an output buffer could not grow.
	ErrAllocation = bitio.ErrAllocation

	// ErrInvalidDimensions reports a width or height outside [1, 16383] or
	// planes too small for the picture.
	ErrInvalidDimensions = dsp.ErrInvalidDimensions

	// ErrStructuralLimit reports that the first partition could not be made
	// to fit its size limit.
	ErrStructuralLimit = errors.New("lossy: partition 0 exceeds its size limit")

	// ErrCanceled reports that the progress hook or the context stopped the
	// encode.
	ErrCanceled = errors.New("lossy: encoding canceled")
)
