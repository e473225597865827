package ops

import (
	"fmt"

	"github.com/esim-ml/esim/internal/tensor"
)

// SoftmaxOp represents a softmax activation along a dimension.
//
// Backward pass, per slice along dim:
//
//	grad_x = s * (grad_y - sum(grad_y * s))
//
// where s is the softmax output of the slice. Only the output is needed
// to compute the gradient.
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	dim    int // normalized (non-negative) softmax dimension
}

// NewSoftmaxOp creates a new SoftmaxOp.
func NewSoftmaxOp(input, output *tensor.RawTensor, dim int) *SoftmaxOp {
	ndim := len(input.Shape())
	if dim < 0 {
		dim = ndim + dim
	}
	return &SoftmaxOp{
		input:  input,
		output: output,
		dim:    dim,
	}
}

// Backward computes the input gradient for softmax.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if op.output.DType() != tensor.Float32 {
		panic(fmt.Sprintf("softmax: unsupported dtype %s", op.output.DType()))
	}

	shape := op.output.Shape()
	inputGrad, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("softmax: failed to create gradient: %v", err))
	}

	s := op.output.AsFloat32()
	g := outputGrad.AsFloat32()
	out := inputGrad.AsFloat32()

	strides := shape.ComputeStrides()
	dimSize := shape[op.dim]
	dimStride := strides[op.dim]
	numSlices := shape.NumElements() / dimSize

	for slice := 0; slice < numSlices; slice++ {
		// Recover the base flat offset of this slice: decompose the slice
		// counter over all dimensions except dim.
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

		var dot float32
		for j := 0; j < dimSize; j++ {
			idx := baseIdx + j*dimStride
			dot += g[idx] * s[idx]
		}
		for j := 0; j < dimSize; j++ {
			idx := baseIdx + j*dimStride
			out[idx] = s[idx] * (g[idx] - dot)
		}
	}

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the input tensors.
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}
