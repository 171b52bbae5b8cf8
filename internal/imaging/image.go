package imaging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"dicomstack/internal/worker"
)

// SpatialParameters is the geometric metadata attached to a reconstructed
// image: voxel grid size, physical spacing, patient-space origin, and a
// row-major direction cosine matrix. Read-only output produced by the
// worker.
type SpatialParameters struct {
	Size      []int64
	Spacing   []float64
	Origin    []float64
	Direction []float64
}

// directionTolerance bounds the deviation from orthonormality accepted in a
// direction matrix. Scanner output is float32 at best.
const directionTolerance = 1e-4

// Validate checks dimensional consistency and that Direction is an
// orthonormal dims x dims matrix.
func (p SpatialParameters) Validate(dims int) error {
	if len(p.Size) != dims {
		return fmt.Errorf("size has %d entries for a %dD image", len(p.Size), dims)
	}
	if len(p.Spacing) != dims {
		return fmt.Errorf("spacing has %d entries for a %dD image", len(p.Spacing), dims)
	}
	if len(p.Origin) != dims {
		return fmt.Errorf("origin has %d entries for a %dD image", len(p.Origin), dims)
	}
	if len(p.Direction) != dims*dims {
		return fmt.Errorf("direction has %d entries, expected %d for a %dD image", len(p.Direction), dims*dims, dims)
	}
	for i, extent := range p.Size {
		if extent <= 0 {
			return fmt.Errorf("size[%d] = %d is not positive", i, extent)
		}
	}
	for i, step := range p.Spacing {
		if step <= 0 || math.IsNaN(step) {
			return fmt.Errorf("spacing[%d] = %v is not positive", i, step)
		}
	}

	// D^T D must be the identity for a valid direction cosine matrix.
	direction := mat.NewDense(dims, dims, p.Direction)
	var product mat.Dense
	product.Mul(direction.T(), direction)
	for row := 0; row < dims; row++ {
		for col := 0; col < dims; col++ {
			want := 0.0
			if row == col {
				want = 1.0
			}
			if math.Abs(product.At(row, col)-want) > directionTolerance {
				return fmt.Errorf("direction matrix is not orthonormal at (%d,%d)", row, col)
			}
		}
	}
	return nil
}

// Image is an opaque reconstructed raster plus its spatial parameters.
// Caller-owned once returned; the engine keeps no reference.
type Image struct {
	Dims      int
	PixelType string
	Pixels    []byte
	Spatial   SpatialParameters
}

// Frame is the wire form of an image output produced by the worker.
type Frame struct {
	Dims      int       `cbor:"dims"`
	PixelType string    `cbor:"pixel_type"`
	Size      []int64   `cbor:"size"`
	Spacing   []float64 `cbor:"spacing"`
	Origin    []float64 `cbor:"origin"`
	Direction []float64 `cbor:"direction"`
	Pixels    []byte    `cbor:"pixels"`
}

// EncodeFrame marshals a frame with the protocol codec. The engine itself
// only decodes; encoding exists for worker-side tooling and test doubles.
func EncodeFrame(frame Frame) ([]byte, error) {
	return worker.Marshal(frame)
}

// DecodeImage unmarshals and validates an image frame. A frame that fails
// validation yields no Image at all; corrupt geometry never escapes.
func DecodeImage(data []byte) (*Image, error) {
	var frame Frame
	if err := worker.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode image frame: %w", err)
	}
	if frame.Dims != 2 && frame.Dims != 3 {
		return nil, fmt.Errorf("unsupported image dimensionality %d", frame.Dims)
	}
	spatial := SpatialParameters{
		Size:      frame.Size,
		Spacing:   frame.Spacing,
		Origin:    frame.Origin,
		Direction: frame.Direction,
	}
	if err := spatial.Validate(frame.Dims); err != nil {
		return nil, fmt.Errorf("invalid spatial parameters: %w", err)
	}
	if len(frame.Pixels) == 0 {
		return nil, fmt.Errorf("image frame carries no pixel data")
	}
	return &Image{
		Dims:      frame.Dims,
		PixelType: frame.PixelType,
		Pixels:    frame.Pixels,
		Spatial:   spatial,
	}, nil
}
