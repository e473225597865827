package ops

import (
	"fmt"

	"github.com/esim-ml/esim/internal/tensor"
)

// MaxDimOp represents a max reduction along a dimension.
//
// Backward pass: the gradient flows only to the element that attained
// the maximum in each slice; all other elements receive zero. The argmax
// is recomputed from the stored input. Ties route the gradient to the
// first maximal element.
type MaxDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewMaxDimOp creates a new MaxDimOp.
func NewMaxDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *MaxDimOp {
	ndim := len(input.Shape())
	if dim < 0 {
		dim = ndim + dim
	}
	return &MaxDimOp{
		input:   input,
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward computes the input gradient for max reduction.
func (op *MaxDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if op.input.DType() != tensor.Float32 {
		panic(fmt.Sprintf("maxdim: unsupported dtype %s", op.input.DType()))
	}

	shape := op.input.Shape()
	inputGrad, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("maxdim: failed to create gradient: %v", err))
	}

	x := op.input.AsFloat32()
	g := outputGrad.AsFloat32()
	out := inputGrad.AsFloat32()
	for i := range out {
		out[i] = 0
	}

	strides := shape.ComputeStrides()
	dimSize := shape[op.dim]
	dimStride := strides[op.dim]
	numSlices := shape.NumElements() / dimSize

	for slice := 0; slice < numSlices; slice++ {
		baseIdx := 0
		temp := slice
		for d := len(shape) - 1; d >= 0; d-- {
			if d == op.dim {
				continue
			}
			coord := temp % shape[d]
			temp /= shape[d]
			baseIdx += coord * strides[d]
		}

		argmax := baseIdx
		for j := 1; j < dimSize; j++ {
			idx := baseIdx + j*dimStride
			if x[idx] > x[argmax] {
				argmax = idx
			}
		}

		// The output gradient is laid out contiguously per slice in the
		// same order slices are enumerated here.
		out[argmax] = g[slice]
	}

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the input tensors.
func (op *MaxDimOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *MaxDimOp) Output() *tensor.RawTensor {
	return op.output
}
