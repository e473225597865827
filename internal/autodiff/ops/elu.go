package ops

import (
	"fmt"

	"github.com/esim-ml/esim/internal/tensor"
)

// ELUOp represents an exponential linear unit activation:
//
//	output = x                     if x > 0
//	output = alpha * (exp(x) - 1)  otherwise
//
// Backward pass:
//   - dy/dx = 1 for x > 0
//   - dy/dx = alpha * exp(x) = y + alpha for x <= 0
//
// The negative branch reuses the stored output, avoiding an exp.
type ELUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	alpha  float32
}

// NewELUOp creates a new ELUOp.
func NewELUOp(input, output *tensor.RawTensor, alpha float32) *ELUOp {
	return &ELUOp{
		input:  input,
		output: output,
		alpha:  alpha,
	}
}

// Backward computes the input gradient for ELU.
func (op *ELUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if op.input.DType() != tensor.Float32 {
		panic(fmt.Sprintf("elu: unsupported dtype %s", op.input.DType()))
	}

	inputGrad, err := tensor.NewRaw(op.input.Shape(), tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("elu: failed to create gradient: %v", err))
	}

	x := op.input.AsFloat32()
	y := op.output.AsFloat32()
	g := outputGrad.AsFloat32()
	out := inputGrad.AsFloat32()

	for i := range x {
		if x[i] > 0 {
			out[i] = g[i]
		} else {
			out[i] = g[i] * (y[i] + op.alpha)
		}
	}

	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns the input tensors.
func (op *ELUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *ELUOp) Output() *tensor.RawTensor {
	return op.output
}
