// Package ops defines the differentiable operations recorded on the
// gradient tape. Each operation stores the raw tensors involved in its
// forward pass and knows how to turn an output gradient into input
// gradients during the backward pass.
package ops

import "github.com/esim-ml/esim/internal/tensor"

// Operation is the interface for a recorded differentiable operation.
//
// During the backward pass the tape walks recorded operations in reverse
// order, calling Backward with the accumulated gradient of the output.
type Operation interface {
	// Backward computes input gradients given the output gradient.
	// Returns one gradient per input tensor (in the same order as Inputs).
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors of this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor of this operation.
	Output() *tensor.RawTensor
}

// MultiOutputOperation is implemented by operations that produce more than
// one output tensor (e.g. chunk). The tape collects the gradients of all
// outputs before invoking BackwardMulti.
type MultiOutputOperation interface {
	Operation

	// Outputs returns all output tensors of this operation.
	Outputs() []*tensor.RawTensor

	// BackwardMulti computes input gradients given the gradients for all
	// outputs. A nil entry means the corresponding output did not receive
	// a gradient and is treated as zero.
	BackwardMulti(outputGrads []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor
}
