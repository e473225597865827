package ops

import "github.com/esim-ml/esim/internal/tensor"

// MeanDimOp represents a mean reduction along a dimension.
//
// Backward pass: like sum, but each element contributed with weight
// 1/dimSize, so the broadcast gradient is divided by the reduced
// dimension's size.
type MeanDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
	dimSize int
}

// NewMeanDimOp creates a new MeanDimOp.
func NewMeanDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	ndim := len(input.Shape())
	if dim < 0 {
		dim = ndim + dim
	}
	return &MeanDimOp{
		input:   input,
		output:  output,
		dim:     dim,
		keepDim: keepDim,
		dimSize: input.Shape()[dim],
	}
}

// Backward computes the input gradient for mean reduction.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad
	if !op.keepDim {
		grad = unsqueezeDim(grad, op.dim, op.input.Shape())
	}
	inputGrad := broadcastTo(grad, op.input.Shape())
	inputGrad = backend.MulScalar(inputGrad, 1/float32(op.dimSize))

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the input tensors.
func (op *MeanDimOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *MeanDimOp) Output() *tensor.RawTensor {
	return op.output
}
