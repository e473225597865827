package ops

import "github.com/esim-ml/esim/internal/tensor"

// SumDimOp represents a sum reduction along a dimension.
//
// Backward pass: every element along the reduced dimension contributed
// with weight 1, so the output gradient is broadcast back to the input
// shape (re-inserting the reduced dimension first if keepDim was false).
type SumDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	ndim := len(input.Shape())
	if dim < 0 {
		dim = ndim + dim
	}
	return &SumDimOp{
		input:   input,
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward computes the input gradient for sum reduction.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad
	if !op.keepDim {
		grad = unsqueezeDim(grad, op.dim, op.input.Shape())
	}
	inputGrad := broadcastTo(grad, op.input.Shape())

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the input tensors.
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}
