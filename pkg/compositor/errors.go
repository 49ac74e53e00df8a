package compositor

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when the QR code or background buffer is empty.
	ErrEmptyInput = errors.New("compositor: empty input buffer")
	// ErrDimensionRead is matched by every *DimensionReadError.
	ErrDimensionRead = errors.New("compositor: cannot read qr code dimensions")
	// ErrUnknownBlend is matched by every *UnknownBlendError.
	ErrUnknownBlend = errors.New("compositor: unknown blend mode")
	// ErrTooLarge is wrapped when an input or the padded QR code would exceed
	// the pixel budget, or padding exceeds MaxPadding.
	ErrTooLarge = errors.New("compositor: image too large")
)

// DimensionReadError reports a QR raster whose size could not be determined.
type DimensionReadError struct {
	Width, Height int
	Err           error
}

func (e *DimensionReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrDimensionRead, e.Err)
	}
	return fmt.Sprintf("%s: got %dx%d", ErrDimensionRead, e.Width, e.Height)
}

func (e *DimensionReadError) Is(target error) bool { return target == ErrDimensionRead }

func (e *DimensionReadError) Unwrap() error { return e.Err }

// ImageProcessingError wraps a failure from the raster codec or a pipeline
// stage. Op names the stage, e.g. "decode background".
type ImageProcessingError struct {
	Op  string
	Err error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("compositor: %s: %v", e.Op, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

type UnknownBlendError struct {
	Blend string
}

func (e *UnknownBlendError) Error() string {
	return fmt.Sprintf("%s %q", ErrUnknownBlend, e.Blend)
}

func (e *UnknownBlendError) Is(target error) bool { return target == ErrUnknownBlend }
